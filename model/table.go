package model

import "fmt"

// ColumnType controls how a cell value is presented.
type ColumnType string

const (
	ColumnPlain ColumnType = "plain"
	ColumnBadge ColumnType = "badge"
)

// SortDirection is the direction of the active sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ColumnPolicy decides what happens when a row lacks a field addressed by a
// column key.
type ColumnPolicy string

const (
	// ColumnPolicyStrict rejects rows and column sets that do not line up.
	ColumnPolicyStrict ColumnPolicy = "strict"
	// ColumnPolicyLenient renders missing values as blank cells.
	ColumnPolicyLenient ColumnPolicy = "lenient"
)

// Row is a single record of a table dataset. Fields is treated as read-only
// by the engine.
type Row struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Value returns the value stored under key and whether it is defined. The
// "id" key falls back to the row identifier when no such field exists.
func (r Row) Value(key string) (any, bool) {
	if v, ok := r.Fields[key]; ok {
		return v, true
	}
	if key == "id" && r.ID != "" {
		return r.ID, true
	}
	return nil, false
}

// NewRow builds a Row from a flat record, taking the identifier from idField.
func NewRow(idField string, fields map[string]any) (Row, error) {
	raw, ok := fields[idField]
	if !ok || raw == nil {
		return Row{}, fmt.Errorf("row has no %q field", idField)
	}
	id := fmt.Sprint(raw)
	if id == "" {
		return Row{}, fmt.Errorf("row has an empty %q field", idField)
	}
	return Row{ID: id, Fields: fields}, nil
}

// Column describes how one field is displayed, sorted and filtered.
// Render and BadgeClassOf must be pure.
type Column struct {
	Key          string
	Header       string
	Sortable     bool
	Filterable   bool
	Type         ColumnType
	Render       func(value any, row Row) string
	BadgeClassOf func(value any) string
}

// SortSpec is the single active sort. An empty Key keeps the caller's order.
type SortSpec struct {
	Key       string        `json:"key,omitempty"`
	Direction SortDirection `json:"direction"`
}

// FilterState maps a filterable column key to the selected filter value.
type FilterState map[string]any

// Active returns the entries that constrain rows; nil and empty-string values
// mean "no filter".
func (f FilterState) Active() FilterState {
	active := make(FilterState, len(f))
	for k, v := range f {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		active[k] = v
	}
	return active
}

// PaginationState is the requested page. Page is 1-based.
type PaginationState struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// TableOptions are the capability flags a caller enables on a table instance.
type TableOptions struct {
	Searchable bool
	Filterable bool
	Exportable bool
	Selectable bool
	Paginate   bool
	PageSize   int
	Policy     ColumnPolicy
}

// DefaultTableOptions enables every capability with a page size of 10.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		Searchable: true,
		Filterable: true,
		Exportable: true,
		Selectable: true,
		Paginate:   true,
		PageSize:   10,
		Policy:     ColumnPolicyLenient,
	}
}

// RowEvent names an event emitted for a single row.
type RowEvent string

const (
	RowEventView   RowEvent = "view"
	RowEventEdit   RowEvent = "edit"
	RowEventDelete RowEvent = "delete"
)

// BulkResult is the outcome of a bulk action.
type BulkResult struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Affected int            `json:"affected"`
	Result   map[string]any `json:"result,omitempty"`
}
