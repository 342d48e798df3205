package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/pitabwire/tabula/model"
)

// MemoryRowStore keeps collections in memory. Updates write new field maps,
// so rows handed out by List are never modified afterwards.
type MemoryRowStore struct {
	mu          sync.RWMutex
	collections map[string][]model.Row
}

// NewMemoryRowStore creates an empty in-memory store.
func NewMemoryRowStore() *MemoryRowStore {
	return &MemoryRowStore{collections: make(map[string][]model.Row)}
}

// Seed replaces the rows of collection.
func (s *MemoryRowStore) Seed(collection string, rows []model.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = slices.Clone(rows)
}

// List returns the rows of collection. Unknown collections are empty.
func (s *MemoryRowStore) List(_ context.Context, collection string) ([]model.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.collections[collection]), nil
}

// Delete removes the rows with the given ids.
func (s *MemoryRowStore) Delete(_ context.Context, collection string, ids []string) (int, error) {
	targets := idSet(ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.collections[collection]
	kept := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := targets[r.ID]; !ok {
			kept = append(kept, r)
		}
	}
	s.collections[collection] = kept
	return len(rows) - len(kept), nil
}

// Update merges set into the rows with the given ids.
func (s *MemoryRowStore) Update(_ context.Context, collection string, ids []string, set map[string]any) (int, error) {
	targets := idSet(ids)

	s.mu.Lock()
	defer s.mu.Unlock()

	rows := slices.Clone(s.collections[collection])
	n := 0
	for i, r := range rows {
		if _, ok := targets[r.ID]; !ok {
			continue
		}
		fields := maps.Clone(r.Fields)
		if fields == nil {
			fields = make(map[string]any, len(set))
		}
		maps.Copy(fields, set)
		rows[i] = model.Row{ID: r.ID, Fields: fields}
		n++
	}
	s.collections[collection] = rows
	return n, nil
}

// Len returns the number of rows in collection.
func (s *MemoryRowStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
