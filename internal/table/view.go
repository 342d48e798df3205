package table

import (
	"go.uber.org/zap"

	"github.com/pitabwire/tabula/model"
)

// derivation is one pass of the filter, sort and paginate pipeline.
type derivation struct {
	sorted    []model.Row
	page      []model.Row
	pageCount int
}

// deriveLocked recomputes the pipeline from the source rows and clamps the
// current page into range. t.mu must be held.
func (t *Table) deriveLocked() derivation {
	rows := t.rows
	if t.opts.Searchable || t.opts.Filterable {
		search, filters := "", model.FilterState(nil)
		if t.opts.Searchable {
			search = t.search
		}
		if t.opts.Filterable {
			filters = t.filters
		}
		rows = ApplyFilters(rows, t.columns, search, filters)
	}
	sorted := ApplySort(rows, t.sort)

	size := t.pageSize
	if !t.opts.Paginate {
		size = 0
	}
	pageCount := PageCount(len(sorted), size)
	t.page = ClampPage(t.page, pageCount)

	return derivation{
		sorted:    sorted,
		page:      Paginate(sorted, t.page, size),
		pageCount: pageCount,
	}
}

// Snapshot derives the current view.
func (t *Table) Snapshot() model.TableView {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.deriveLocked()
	selected := t.selectedIDsLocked()

	view := model.TableView{
		Columns:            t.columnDescriptors(),
		Rows:               make([]model.RowView, 0, len(d.page)),
		Page:               t.page,
		PageSize:           t.pageSize,
		PageCount:          d.pageCount,
		FilteredCount:      len(d.sorted),
		SourceCount:        len(t.rows),
		Empty:              len(d.sorted) == 0,
		Search:             t.search,
		Sort:               t.sort,
		SelectedIDs:        selected,
		SelectedCount:      len(selected),
		AllVisibleSelected: t.opts.Selectable && t.selection.IsAllVisibleSelected(d.page),
		BulkEnabled:        t.opts.Selectable && len(selected) > 0,
		InFlight:           t.inFlightLocked(),
	}
	if !t.opts.Paginate {
		view.PageSize = len(d.sorted)
	}
	if len(t.filters) > 0 {
		view.Filters = make(map[string]any, len(t.filters))
		for k, v := range t.filters {
			view.Filters[k] = v
		}
	}
	if t.opts.Filterable {
		view.FilterOptions = t.optionDescriptors()
	}
	for _, r := range d.page {
		view.Rows = append(view.Rows, t.rowView(r))
	}

	t.logger.Debug("table derived",
		zap.Int("source", view.SourceCount),
		zap.Int("filtered", view.FilteredCount),
		zap.Int("page", view.Page),
		zap.Int("page_count", view.PageCount),
	)
	return view
}

func (t *Table) rowView(r model.Row) model.RowView {
	cells := make([]model.CellView, 0, len(t.columns))
	for _, col := range t.columns {
		v, ok := r.Value(col.Key)
		cell := model.CellView{Key: col.Key, Value: v}
		if ok {
			cell.Display = display(col, v, r)
			if col.Type == model.ColumnBadge && col.BadgeClassOf != nil {
				cell.BadgeClass = col.BadgeClassOf(v)
			}
		}
		cells = append(cells, cell)
	}
	return model.RowView{ID: r.ID, Cells: cells, Selected: t.selection.Contains(r.ID)}
}

func display(col model.Column, v any, r model.Row) string {
	if col.Render != nil {
		return col.Render(v, r)
	}
	return stringOf(v)
}

func (t *Table) columnDescriptors() []model.ColumnDescriptor {
	out := make([]model.ColumnDescriptor, 0, len(t.columns))
	for _, c := range t.columns {
		typ := c.Type
		if typ == "" {
			typ = model.ColumnPlain
		}
		out = append(out, model.ColumnDescriptor{
			Key:        c.Key,
			Header:     c.Header,
			Type:       typ,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
		})
	}
	return out
}

func (t *Table) optionDescriptors() map[string][]model.OptionDescriptor {
	options := FilterOptions(t.rows, t.columns)
	out := make(map[string][]model.OptionDescriptor, len(options))
	for _, col := range t.columns {
		values, ok := options[col.Key]
		if !ok {
			continue
		}
		descs := make([]model.OptionDescriptor, 0, len(values))
		for _, v := range values {
			label := display(col, v, model.Row{Fields: map[string]any{col.Key: v}})
			descs = append(descs, model.OptionDescriptor{Label: label, Value: v})
		}
		out[col.Key] = descs
	}
	return out
}
