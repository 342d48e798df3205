package table

import (
	"slices"

	"github.com/pitabwire/tabula/model"
)

// Selection is the set of selected row identifiers of one table instance.
// It is not safe for concurrent use; Table guards it.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle adds id when absent and removes it otherwise. It reports whether id
// is selected afterwards.
func (s *Selection) Toggle(id string) bool {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// ToggleAllVisible clears the page rows from the selection when all of them
// are selected and selects all of them otherwise. Rows on other pages are
// never touched.
func (s *Selection) ToggleAllVisible(pageRows []model.Row) {
	if s.IsAllVisibleSelected(pageRows) {
		for _, r := range pageRows {
			delete(s.ids, r.ID)
		}
		return
	}
	for _, r := range pageRows {
		s.ids[r.ID] = struct{}{}
	}
}

// IsAllVisibleSelected reports whether pageRows is non-empty and every row on
// it is selected.
func (s *Selection) IsAllVisibleSelected(pageRows []model.Row) bool {
	if len(pageRows) == 0 {
		return false
	}
	for _, r := range pageRows {
		if _, ok := s.ids[r.ID]; !ok {
			return false
		}
	}
	return true
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in ascending order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clear removes every id.
func (s *Selection) Clear() {
	clear(s.ids)
}

// Prune drops ids for which exists reports false and returns how many were
// removed.
func (s *Selection) Prune(exists func(id string) bool) int {
	removed := 0
	for id := range s.ids {
		if !exists(id) {
			delete(s.ids, id)
			removed++
		}
	}
	return removed
}
