package definition

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/pitabwire/tabula/model"
)

// snapshot is an immutable view of every loaded catalog.
type snapshot struct {
	catalogs map[string]model.CatalogDefinition
	tables   map[string]model.TableDefinition
	order    []string
	checksum string
}

// Registry is a read-optimized, thread-safe store of table definitions.
// Readers never block; Replace swaps the whole snapshot at once.
type Registry struct {
	snap atomic.Pointer[snapshot]
}

// NewRegistry creates a Registry from the given catalogs.
func NewRegistry(defs []model.CatalogDefinition) *Registry {
	r := &Registry{}
	r.Replace(defs)
	return r
}

// Replace atomically installs a snapshot built from defs. When two catalogs
// declare the same table id, the later one wins; Validator reports this.
func (r *Registry) Replace(defs []model.CatalogDefinition) {
	s := &snapshot{
		catalogs: make(map[string]model.CatalogDefinition, len(defs)),
		tables:   make(map[string]model.TableDefinition),
	}

	parts := make([]string, 0, len(defs))
	for _, def := range defs {
		s.catalogs[def.Domain] = def
		parts = append(parts, def.Checksum)
		for _, t := range def.Tables {
			if _, seen := s.tables[t.ID]; !seen {
				s.order = append(s.order, t.ID)
			}
			s.tables[t.ID] = t
		}
	}
	slices.Sort(s.order)

	slices.Sort(parts)
	s.checksum = fmt.Sprintf("%x", sha256.Sum256([]byte(strings.Join(parts, ":"))))

	r.snap.Store(s)
}

func (r *Registry) current() *snapshot {
	return r.snap.Load()
}

// GetTable returns the table definition with the given id.
func (r *Registry) GetTable(tableID string) (model.TableDefinition, bool) {
	t, ok := r.current().tables[tableID]
	return t, ok
}

// Tables returns every table definition ordered by id.
func (r *Registry) Tables() []model.TableDefinition {
	s := r.current()
	out := make([]model.TableDefinition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.tables[id])
	}
	return out
}

// GetCatalog returns the catalog of a domain.
func (r *Registry) GetCatalog(domain string) (model.CatalogDefinition, bool) {
	c, ok := r.current().catalogs[domain]
	return c, ok
}

// Catalogs returns every loaded catalog.
func (r *Registry) Catalogs() []model.CatalogDefinition {
	s := r.current()
	out := make([]model.CatalogDefinition, 0, len(s.catalogs))
	for _, c := range s.catalogs {
		out = append(out, c)
	}
	return out
}

// Checksum returns the combined checksum of all loaded catalogs.
func (r *Registry) Checksum() string {
	return r.current().checksum
}
