package table

import (
	"slices"
	"strings"

	"github.com/pitabwire/tabula/model"
)

// ApplyFilters returns the rows matching the search term and every active
// column filter, in input order. The input slice is not modified.
//
// A non-empty search keeps a row when the string form of any column value
// contains the term, ignoring case. A column filter keeps a row only when the
// row's raw value equals the filter value.
func ApplyFilters(rows []model.Row, columns []model.Column, search string, filters model.FilterState) []model.Row {
	active := filters.Active()
	needle := strings.ToLower(search)

	out := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if needle != "" && !matchesSearch(row, columns, needle) {
			continue
		}
		if !matchesFilters(row, active) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func matchesSearch(row model.Row, columns []model.Column, needle string) bool {
	for _, col := range columns {
		v, ok := row.Value(col.Key)
		if !ok || v == nil {
			continue
		}
		if strings.Contains(strings.ToLower(stringOf(v)), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(row model.Row, active model.FilterState) bool {
	for key, want := range active {
		v, ok := row.Value(key)
		if !ok || !Equal(want, v) {
			return false
		}
	}
	return true
}

// FilterOptions derives the selectable values of every filterable column from
// the unfiltered rows: distinct non-nil values sorted ascending. Options are
// not narrowed by other active filters.
func FilterOptions(rows []model.Row, columns []model.Column) map[string][]any {
	options := make(map[string][]any)
	for _, col := range columns {
		if !col.Filterable {
			continue
		}
		values := make([]any, 0)
		for _, row := range rows {
			v, ok := row.Value(col.Key)
			if !ok || v == nil {
				continue
			}
			if slices.ContainsFunc(values, func(seen any) bool { return Equal(seen, v) }) {
				continue
			}
			values = append(values, v)
		}
		slices.SortStableFunc(values, Compare)
		options[col.Key] = values
	}
	return options
}
