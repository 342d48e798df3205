// Package metadata resolves table definitions into the descriptors served to
// the frontend, applying the caller's capabilities.
package metadata

import (
	"fmt"

	"github.com/pitabwire/tabula/internal/definition"
	"github.com/pitabwire/tabula/model"
)

// TableProvider resolves TableDefinitions into TableDescriptors.
type TableProvider struct {
	registry *definition.Registry
}

// NewTableProvider creates a TableProvider backed by registry.
func NewTableProvider(registry *definition.Registry) *TableProvider {
	return &TableProvider{registry: registry}
}

// Authorize returns the definition of tableID when caps grants every
// capability the table requires. Returns NOT_FOUND or FORBIDDEN otherwise.
func (p *TableProvider) Authorize(caps model.CapabilitySet, tableID string) (model.TableDefinition, error) {
	def, ok := p.registry.GetTable(tableID)
	if !ok {
		return model.TableDefinition{}, model.NewNotFoundError(fmt.Sprintf("table %q not found", tableID))
	}
	if !caps.HasAll(def.Capabilities...) {
		return model.TableDefinition{}, model.NewForbiddenError(
			fmt.Sprintf("insufficient capabilities for table %q", tableID),
		)
	}
	return def, nil
}

// GetTable resolves the descriptor of one table.
func (p *TableProvider) GetTable(caps model.CapabilitySet, tableID string) (model.TableDescriptor, error) {
	def, err := p.Authorize(caps, tableID)
	if err != nil {
		return model.TableDescriptor{}, err
	}
	return Describe(caps, def, ""), nil
}

// ListTables resolves every table the caller may open, ordered by id.
func (p *TableProvider) ListTables(caps model.CapabilitySet) []model.TableDescriptor {
	out := []model.TableDescriptor{}
	for _, def := range p.registry.Tables() {
		if !caps.HasAll(def.Capabilities...) {
			continue
		}
		out = append(out, Describe(caps, def, ""))
	}
	return out
}

// Describe builds the descriptor of def. policy only matters for page size
// and flag defaults and may be empty.
func Describe(caps model.CapabilitySet, def model.TableDefinition, policy model.ColumnPolicy) model.TableDescriptor {
	opts := def.Options(policy)
	desc := model.TableDescriptor{
		ID:          def.ID,
		Title:       def.Title,
		DefaultSort: def.DefaultSort,
		SortDir:     def.SortDir,
		PageSize:    opts.PageSize,
		Searchable:  opts.Searchable,
		Filterable:  opts.Filterable,
		Exportable:  opts.Exportable,
		Selectable:  opts.Selectable,
		Paginate:    opts.Paginate,
		Columns:     ColumnDescriptors(def),
		RowActions:  ResolveRowActions(caps, def.RowActions),
	}
	if opts.Selectable {
		desc.BulkActions = ResolveBulkActions(caps, def.BulkActions)
	}
	if desc.SortDir == "" && desc.DefaultSort != "" {
		desc.SortDir = string(model.SortAsc)
	}
	return desc
}

// ColumnDescriptors resolves the columns of def, including format and status
// map so clients can render cells the same way the server does.
func ColumnDescriptors(def model.TableDefinition) []model.ColumnDescriptor {
	out := make([]model.ColumnDescriptor, 0, len(def.Columns))
	for _, c := range def.Columns {
		typ := model.ColumnPlain
		if c.Type == string(model.ColumnBadge) {
			typ = model.ColumnBadge
		}
		out = append(out, model.ColumnDescriptor{
			Key:        c.Key,
			Header:     c.Header,
			Type:       typ,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Format:     c.Format,
			StatusMap:  c.StatusMap,
		})
	}
	return out
}
