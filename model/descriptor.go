package model

// TableDescriptor is the resolved table metadata sent to the frontend.
type TableDescriptor struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Columns     []ColumnDescriptor `json:"columns"`
	RowActions  []ActionDescriptor `json:"row_actions,omitempty"`
	BulkActions []ActionDescriptor `json:"bulk_actions,omitempty"`
	DefaultSort string             `json:"default_sort,omitempty"`
	SortDir     string             `json:"sort_dir,omitempty"`
	PageSize    int                `json:"page_size"`
	Searchable  bool               `json:"searchable"`
	Filterable  bool               `json:"filterable"`
	Exportable  bool               `json:"exportable"`
	Selectable  bool               `json:"selectable"`
	Paginate    bool               `json:"paginate"`
}

// ColumnDescriptor describes a visible table column.
type ColumnDescriptor struct {
	Key        string            `json:"key"`
	Header     string            `json:"header"`
	Type       ColumnType        `json:"type"`
	Sortable   bool              `json:"sortable"`
	Filterable bool              `json:"filterable"`
	Format     string            `json:"format,omitempty"`
	StatusMap  map[string]string `json:"status_map,omitempty"`
}

// OptionDescriptor is a resolved option for filter dropdowns.
type OptionDescriptor struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ActionDescriptor is a resolved row or bulk action sent to the frontend.
type ActionDescriptor struct {
	ID             string                  `json:"id"`
	Label          string                  `json:"label"`
	Icon           string                  `json:"icon,omitempty"`
	Style          string                  `json:"style,omitempty"`
	Enabled        bool                    `json:"enabled"`
	ClearSelection bool                    `json:"clear_selection,omitempty"`
	Confirmation   *ConfirmationDescriptor `json:"confirmation,omitempty"`
}

// ConfirmationDescriptor describes a confirmation dialog.
type ConfirmationDescriptor struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Confirm string `json:"confirm"`
	Cancel  string `json:"cancel,omitempty"`
}

// TableView is one derived rendering of a table instance: the current page
// plus everything the frontend needs to draw controls around it.
type TableView struct {
	Columns            []ColumnDescriptor            `json:"columns"`
	Rows               []RowView                     `json:"rows"`
	Page               int                           `json:"page"`
	PageSize           int                           `json:"page_size"`
	PageCount          int                           `json:"page_count"`
	FilteredCount      int                           `json:"filtered_count"`
	SourceCount        int                           `json:"source_count"`
	Empty              bool                          `json:"empty"`
	Search             string                        `json:"search,omitempty"`
	Filters            map[string]any                `json:"filters,omitempty"`
	Sort               SortSpec                      `json:"sort"`
	FilterOptions      map[string][]OptionDescriptor `json:"filter_options,omitempty"`
	SelectedIDs        []string                      `json:"selected_ids"`
	SelectedCount      int                           `json:"selected_count"`
	AllVisibleSelected bool                          `json:"all_visible_selected"`
	BulkEnabled        bool                          `json:"bulk_enabled"`
	InFlight           []string                      `json:"in_flight,omitempty"`
}

// RowView is a rendered row on the current page.
type RowView struct {
	ID       string     `json:"id"`
	Cells    []CellView `json:"cells"`
	Selected bool       `json:"selected"`
}

// CellView is a rendered cell.
type CellView struct {
	Key        string `json:"key"`
	Value      any    `json:"value"`
	Display    string `json:"display"`
	BadgeClass string `json:"badge_class,omitempty"`
}

// SessionResponse is returned when a table instance is created.
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	TableID   string    `json:"table_id"`
	View      TableView `json:"view"`
}

// BulkResponse wraps a bulk action result with the view after dispatch.
type BulkResponse struct {
	Result           BulkResult `json:"result"`
	SelectionCleared bool       `json:"selection_cleared"`
	View             TableView  `json:"view"`
}

// RowEventResponse echoes the row a row event was applied to.
type RowEventResponse struct {
	Event RowEvent  `json:"event"`
	Row   Row       `json:"row"`
	View  TableView `json:"view"`
}
