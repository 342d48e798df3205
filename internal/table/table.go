// Package table implements the tabular data engine: search and column
// filters, single-column stable sort, pagination, row selection, CSV export
// and the bulk dispatch surface. A Table owns the view state of one table
// instance and derives every rendering from its source rows.
package table

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pitabwire/tabula/model"
)

// Executor runs a bulk action against a snapshot of selected row ids.
type Executor func(ctx context.Context, action string, ids []string) (model.BulkResult, error)

// RowHandler receives a row event for the addressed row.
type RowHandler func(ctx context.Context, row model.Row) error

// Option configures a Table.
type Option func(*Table)

// WithLogger sets the logger used for derivation and degradation messages.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Table) { t.logger = logger }
}

// WithRowHandler registers the handler invoked by Emit for event.
func WithRowHandler(event model.RowEvent, h RowHandler) Option {
	return func(t *Table) { t.handlers[event] = h }
}

// Table is one table instance. All methods are safe for concurrent use.
type Table struct {
	mu sync.Mutex

	columns []model.Column
	opts    model.TableOptions

	rows     []model.Row
	rowIndex map[string]int

	search   string
	filters  model.FilterState
	sort     model.SortSpec
	page     int
	pageSize int

	selection *Selection
	inFlight  map[string]struct{}

	handlers map[model.RowEvent]RowHandler
	warned   map[string]bool
	logger   *zap.Logger
}

// New creates a Table over columns. Under the strict column policy duplicate
// or empty column keys are rejected.
func New(columns []model.Column, opts model.TableOptions, options ...Option) (*Table, error) {
	if len(columns) == 0 {
		return nil, model.NewValidationError([]model.FieldError{
			{Field: "columns", Code: "REQUIRED", Message: "at least one column is required"},
		})
	}
	if opts.Policy == "" {
		opts.Policy = model.ColumnPolicyLenient
	}
	if opts.PageSize <= 0 {
		opts.PageSize = model.DefaultTableOptions().PageSize
	}
	if opts.Policy == model.ColumnPolicyStrict {
		if errs := validateColumns(columns); len(errs) > 0 {
			return nil, model.NewValidationError(errs)
		}
	}

	t := &Table{
		columns:   slices.Clone(columns),
		opts:      opts,
		rowIndex:  make(map[string]int),
		filters:   make(model.FilterState),
		sort:      model.SortSpec{Direction: model.SortAsc},
		page:      1,
		pageSize:  opts.PageSize,
		selection: NewSelection(),
		inFlight:  make(map[string]struct{}),
		handlers:  make(map[model.RowEvent]RowHandler),
		warned:    make(map[string]bool),
		logger:    zap.NewNop(),
	}
	for _, o := range options {
		o(t)
	}
	return t, nil
}

func validateColumns(columns []model.Column) []model.FieldError {
	var errs []model.FieldError
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		field := fmt.Sprintf("columns[%d].key", i)
		switch {
		case col.Key == "":
			errs = append(errs, model.FieldError{Field: field, Code: "REQUIRED", Message: "column key is required"})
		case seen[col.Key]:
			errs = append(errs, model.FieldError{Field: field, Code: "DUPLICATE", Message: fmt.Sprintf("duplicate column key %q", col.Key)})
		}
		seen[col.Key] = true
	}
	return errs
}

// Options returns the capability flags of the table.
func (t *Table) Options() model.TableOptions {
	return t.opts
}

// Columns returns the column set.
func (t *Table) Columns() []model.Column {
	return slices.Clone(t.columns)
}

// SetRows replaces the source collection. Row ids must be unique and
// non-empty. Under the strict policy every row must define every column key;
// under the lenient policy missing keys render blank and are logged once per
// column. Selected ids that no longer exist are pruned.
func (t *Table) SetRows(rows []model.Row) error {
	index := make(map[string]int, len(rows))
	for i, r := range rows {
		if r.ID == "" {
			return model.NewValidationError([]model.FieldError{
				{Field: fmt.Sprintf("rows[%d].id", i), Code: "REQUIRED", Message: "row id is required"},
			})
		}
		if _, dup := index[r.ID]; dup {
			return model.NewValidationError([]model.FieldError{
				{Field: fmt.Sprintf("rows[%d].id", i), Code: "DUPLICATE", Message: fmt.Sprintf("duplicate row id %q", r.ID)},
			})
		}
		index[r.ID] = i
	}

	missing := t.missingFields(rows)
	if len(missing) > 0 && t.opts.Policy == model.ColumnPolicyStrict {
		errs := make([]model.FieldError, 0, len(missing))
		for _, m := range missing {
			errs = append(errs, model.FieldError{
				Field:   "columns." + m.key,
				Code:    "MISSING_FIELD",
				Message: fmt.Sprintf("%d rows have no %q field", m.count, m.key),
			})
		}
		return model.NewValidationError(errs)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, m := range missing {
		if t.warned[m.key] {
			continue
		}
		t.warned[m.key] = true
		t.logger.Warn("column key missing from rows, rendering blank cells",
			zap.String("column", m.key),
			zap.Int("rows", m.count),
		)
	}

	t.rows = slices.Clone(rows)
	t.rowIndex = index
	exists := func(id string) bool {
		_, ok := index[id]
		return ok
	}
	if n := t.selection.Prune(exists); n > 0 {
		t.logger.Debug("pruned stale selection", zap.Int("removed", n))
	}
	return nil
}

type missingField struct {
	key   string
	count int
}

func (t *Table) missingFields(rows []model.Row) []missingField {
	var out []missingField
	for _, col := range t.columns {
		n := 0
		for _, r := range rows {
			if _, ok := r.Value(col.Key); !ok {
				n++
			}
		}
		if n > 0 {
			out = append(out, missingField{key: col.Key, count: n})
		}
	}
	return out
}

// SetSearch sets the free-text term and returns to the first page.
func (t *Table) SetSearch(term string) error {
	if !t.opts.Searchable {
		return model.NewFeatureDisabledError("search")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.search = term
	t.page = 1
	return nil
}

// SetFilter sets the filter of a filterable column and returns to the first
// page. A nil or empty value removes the filter.
func (t *Table) SetFilter(key string, value any) error {
	if !t.opts.Filterable {
		return model.NewFeatureDisabledError("filtering")
	}
	col, ok := t.column(key)
	if !ok || !col.Filterable {
		return model.NewBadRequestError(fmt.Sprintf("column %q is not filterable", key))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, isString := value.(string); value == nil || (isString && s == "") {
		delete(t.filters, key)
	} else {
		t.filters[key] = value
	}
	t.page = 1
	return nil
}

// ClearFilters removes every column filter and returns to the first page.
func (t *Table) ClearFilters() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.filters)
	t.page = 1
}

// ResolveFilterValue maps the string form of an option back to the raw value
// offered for key. Unknown labels are returned unchanged.
func (t *Table) ResolveFilterValue(key, label string) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, v := range FilterOptions(t.rows, t.columns)[key] {
		if stringOf(v) == label {
			return v
		}
	}
	return label
}

// ToggleSort applies the header-click rule to a sortable column.
func (t *Table) ToggleSort(key string) error {
	col, ok := t.column(key)
	if !ok || !col.Sortable {
		return model.NewBadRequestError(fmt.Sprintf("column %q is not sortable", key))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sort = NextSort(t.sort, key)
	return nil
}

// SetSort replaces the sort. An empty key restores the source order.
func (t *Table) SetSort(spec model.SortSpec) error {
	if spec.Direction == "" {
		spec.Direction = model.SortAsc
	}
	if spec.Direction != model.SortAsc && spec.Direction != model.SortDesc {
		return model.NewBadRequestError(fmt.Sprintf("invalid sort direction %q", spec.Direction))
	}
	if spec.Key != "" {
		col, ok := t.column(spec.Key)
		if !ok || !col.Sortable {
			return model.NewBadRequestError(fmt.Sprintf("column %q is not sortable", spec.Key))
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sort = spec
	return nil
}

// SetPage moves to a 1-based page. Pages past the end are clamped on the
// next derivation.
func (t *Table) SetPage(page int) error {
	if !t.opts.Paginate {
		return model.NewFeatureDisabledError("pagination")
	}
	if page < 1 {
		return model.NewBadRequestError("page must be at least 1")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.page = page
	return nil
}

// SetPageSize changes the number of rows per page.
func (t *Table) SetPageSize(size int) error {
	if !t.opts.Paginate {
		return model.NewFeatureDisabledError("pagination")
	}
	if size < 1 {
		return model.NewBadRequestError("page size must be at least 1")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pageSize = size
	return nil
}

// ToggleRow toggles the selection of one source row.
func (t *Table) ToggleRow(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkSelectableLocked(); err != nil {
		return err
	}
	if _, ok := t.rowIndex[id]; !ok {
		return model.NewNotFoundError(fmt.Sprintf("row %q not found", id))
	}
	t.selection.Toggle(id)
	return nil
}

// ToggleAllVisible selects every row on the current page, or clears them when
// they are all selected already.
func (t *Table) ToggleAllVisible() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkSelectableLocked(); err != nil {
		return err
	}
	t.selection.ToggleAllVisible(t.deriveLocked().page)
	return nil
}

// ClearSelection empties the selection.
func (t *Table) ClearSelection() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkSelectableLocked(); err != nil {
		return err
	}
	t.selection.Clear()
	return nil
}

func (t *Table) checkSelectableLocked() error {
	if !t.opts.Selectable {
		return model.NewFeatureDisabledError("selection")
	}
	if len(t.inFlight) > 0 {
		return model.NewSelectionLockedError()
	}
	return nil
}

// SelectedIDs returns the selected ids that still exist in the source rows,
// in ascending order.
func (t *Table) SelectedIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selectedIDsLocked()
}

func (t *Table) selectedIDsLocked() []string {
	ids := t.selection.IDs()
	return slices.DeleteFunc(ids, func(id string) bool {
		_, ok := t.rowIndex[id]
		return !ok
	})
}

// Row returns the source row with the given id.
func (t *Table) Row(id string) (model.Row, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.rowIndex[id]
	if !ok {
		return model.Row{}, false
	}
	return t.rows[i], true
}

// Emit routes a row event to its registered handler and returns the row.
// Events without a handler are acknowledged without side effects.
func (t *Table) Emit(ctx context.Context, event model.RowEvent, id string) (model.Row, error) {
	switch event {
	case model.RowEventView, model.RowEventEdit, model.RowEventDelete:
	default:
		return model.Row{}, model.NewBadRequestError(fmt.Sprintf("unknown row event %q", event))
	}
	row, ok := t.Row(id)
	if !ok {
		return model.Row{}, model.NewNotFoundError(fmt.Sprintf("row %q not found", id))
	}

	h, ok := t.handlers[event]
	if !ok {
		return row, nil
	}
	if err := h(ctx, row); err != nil {
		return model.Row{}, err
	}
	return row, nil
}

// Export serializes the filtered and sorted rows, ignoring pagination.
func (t *Table) Export(now time.Time) (Export, error) {
	if !t.opts.Exportable {
		return Export{}, model.NewFeatureDisabledError("export")
	}
	t.mu.Lock()
	d := t.deriveLocked()
	t.mu.Unlock()

	return Export{
		Filename:    ExportFilename(now),
		ContentType: CSVContentType,
		Body:        SerializeCSV(d.sorted, t.columns),
		Rows:        len(d.sorted),
	}, nil
}

// Dispatch runs a bulk action over the current selection. The same action
// cannot be dispatched twice concurrently and the selection cannot change
// until every running dispatch has finished. exec is not cancelled when ctx
// is. The selection is left as is whatever the outcome.
func (t *Table) Dispatch(ctx context.Context, action string, exec Executor) (model.BulkResult, error) {
	t.mu.Lock()
	if !t.opts.Selectable {
		t.mu.Unlock()
		return model.BulkResult{}, model.NewFeatureDisabledError("selection")
	}
	if _, running := t.inFlight[action]; running {
		t.mu.Unlock()
		return model.BulkResult{}, model.NewActionInFlightError(action)
	}
	ids := t.selectedIDsLocked()
	if len(ids) == 0 {
		t.mu.Unlock()
		return model.BulkResult{}, model.NewSelectionEmptyError()
	}
	t.inFlight[action] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inFlight, action)
		t.mu.Unlock()
	}()

	result, err := exec(context.WithoutCancel(ctx), action, ids)
	if err != nil {
		if model.CodeOf(err) != "" {
			return model.BulkResult{}, err
		}
		return model.BulkResult{}, model.NewBulkActionFailedError(action, err)
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "handler reported failure"
		}
		return result, model.NewBulkActionFailedError(action, errors.New(msg))
	}
	return result, nil
}

// InFlight returns the actions currently being dispatched, sorted.
func (t *Table) InFlight() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inFlightLocked()
}

func (t *Table) inFlightLocked() []string {
	out := make([]string, 0, len(t.inFlight))
	for a := range t.inFlight {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

func (t *Table) column(key string) (model.Column, bool) {
	for _, c := range t.columns {
		if c.Key == key {
			return c, true
		}
	}
	return model.Column{}, false
}
