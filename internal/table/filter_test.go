package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitabwire/tabula/model"
)

func TestApplyFilters_search(t *testing.T) {
	got := ApplyFilters(studentRows(), studentColumns(), "amaka", nil)
	assert.Equal(t, []string{"1", "3"}, rowIDs(got))
}

func TestApplyFilters_columnFilter(t *testing.T) {
	got := ApplyFilters(studentRows(), studentColumns(), "", model.FilterState{"class": "JSS2"})
	assert.Equal(t, []string{"2", "3"}, rowIDs(got))
}

func TestApplyFilters_searchAndFilterCombine(t *testing.T) {
	got := ApplyFilters(studentRows(), studentColumns(), "Amaka", model.FilterState{"class": "JSS2"})
	assert.Equal(t, []string{"3"}, rowIDs(got))
}

func TestApplyFilters_strictEquality(t *testing.T) {
	got := ApplyFilters(studentRows(), studentColumns(), "", model.FilterState{"class": "JSS"})
	assert.Empty(t, got)
}

func TestApplyFilters_emptyFilterValueIgnored(t *testing.T) {
	got := ApplyFilters(studentRows(), studentColumns(), "", model.FilterState{"class": ""})
	assert.Len(t, got, 3)
}

func TestApplyFilters_missingValueOnlySkipsColumn(t *testing.T) {
	rows := []model.Row{
		{ID: "a", Fields: map[string]any{"name": "Chidi"}},
		{ID: "b", Fields: map[string]any{"name": "Dayo", "class": "SS1"}},
	}
	got := ApplyFilters(rows, studentColumns(), "chi", nil)
	assert.Equal(t, []string{"a"}, rowIDs(got))
}

func TestApplyFilters_idempotent(t *testing.T) {
	rows := studentRows()
	filters := model.FilterState{"class": "JSS2"}
	first := ApplyFilters(rows, studentColumns(), "a", filters)
	second := ApplyFilters(rows, studentColumns(), "a", filters)
	assert.Equal(t, first, second)
}

func TestApplyFilters_doesNotMutateInput(t *testing.T) {
	rows := studentRows()
	_ = ApplyFilters(rows, studentColumns(), "Bola", nil)
	assert.Equal(t, []string{"1", "2", "3"}, rowIDs(rows))
}

func TestFilterOptions(t *testing.T) {
	rows := append(studentRows(), model.Row{ID: "4", Fields: map[string]any{"class": nil}})
	options := FilterOptions(rows, studentColumns())

	require.Len(t, options, 1, "only filterable columns get options")
	assert.Equal(t, []any{"JSS1", "JSS2"}, options["class"])
}

func TestFilterOptions_numeric(t *testing.T) {
	rows := []model.Row{
		{ID: "a", Fields: map[string]any{"year": 10}},
		{ID: "b", Fields: map[string]any{"year": 9}},
		{ID: "c", Fields: map[string]any{"year": 10.0}},
	}
	cols := []model.Column{{Key: "year", Filterable: true}}
	assert.Equal(t, []any{9, 10}, FilterOptions(rows, cols)["year"])
}
