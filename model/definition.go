package model

// CatalogDefinition is the root structure of a catalog file. Each file
// declares one domain's tables.
type CatalogDefinition struct {
	Domain  string            `yaml:"domain"  json:"domain"`
	Version string            `yaml:"version" json:"version"`
	Tables  []TableDefinition `yaml:"tables"  json:"tables"`

	// Checksum is computed at load time and not part of the YAML.
	Checksum string `yaml:"-" json:"-"`
	// SourceFile records the originating file path.
	SourceFile string `yaml:"-" json:"-"`
}

// TableDefinition describes an administrative listing backed by a row
// collection.
type TableDefinition struct {
	ID           string                 `yaml:"id"           json:"id"`
	Title        string                 `yaml:"title"        json:"title"`
	Source       string                 `yaml:"source"       json:"source"`
	IDField      string                 `yaml:"id_field"     json:"id_field,omitempty"`
	Capabilities []string               `yaml:"capabilities" json:"capabilities,omitempty"`
	PageSize     int                    `yaml:"page_size"    json:"page_size,omitempty"`
	Searchable   *bool                  `yaml:"searchable"   json:"searchable,omitempty"`
	Filterable   *bool                  `yaml:"filterable"   json:"filterable,omitempty"`
	Exportable   *bool                  `yaml:"exportable"   json:"exportable,omitempty"`
	Selectable   *bool                  `yaml:"selectable"   json:"selectable,omitempty"`
	Paginate     *bool                  `yaml:"paginate"     json:"paginate,omitempty"`
	DefaultSort  string                 `yaml:"default_sort" json:"default_sort,omitempty"`
	SortDir      string                 `yaml:"sort_dir"     json:"sort_dir,omitempty"`
	Columns      []ColumnDefinition     `yaml:"columns"      json:"columns"`
	RowActions   []ActionDefinition     `yaml:"row_actions"  json:"row_actions,omitempty"`
	BulkActions  []BulkActionDefinition `yaml:"bulk_actions" json:"bulk_actions,omitempty"`
	Seed         []map[string]any       `yaml:"seed"         json:"seed,omitempty"`
}

// RowIDField returns the field that identifies rows, defaulting to "id".
func (t TableDefinition) RowIDField() string {
	if t.IDField == "" {
		return "id"
	}
	return t.IDField
}

// BulkAction returns the bulk action with the given ID.
func (t TableDefinition) BulkAction(id string) (BulkActionDefinition, bool) {
	for _, a := range t.BulkActions {
		if a.ID == id {
			return a, true
		}
	}
	return BulkActionDefinition{}, false
}

// Options resolves the capability flags of the table. Unset flags default to
// enabled.
func (t TableDefinition) Options(policy ColumnPolicy) TableOptions {
	opts := DefaultTableOptions()
	opts.Searchable = flag(t.Searchable, opts.Searchable)
	opts.Filterable = flag(t.Filterable, opts.Filterable)
	opts.Exportable = flag(t.Exportable, opts.Exportable)
	opts.Selectable = flag(t.Selectable, opts.Selectable)
	opts.Paginate = flag(t.Paginate, opts.Paginate)
	if t.PageSize > 0 {
		opts.PageSize = t.PageSize
	}
	if policy != "" {
		opts.Policy = policy
	}
	return opts
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// ColumnDefinition describes a table column.
type ColumnDefinition struct {
	Key        string            `yaml:"key"        json:"key"`
	Header     string            `yaml:"header"     json:"header"`
	Type       string            `yaml:"type"       json:"type,omitempty"`
	Sortable   bool              `yaml:"sortable"   json:"sortable,omitempty"`
	Filterable bool              `yaml:"filterable" json:"filterable,omitempty"`
	Format     string            `yaml:"format"     json:"format,omitempty"`
	StatusMap  map[string]string `yaml:"status_map" json:"status_map,omitempty"`
}

// ActionDefinition describes a per-row action button.
type ActionDefinition struct {
	ID           string                  `yaml:"id"           json:"id"`
	Label        string                  `yaml:"label"        json:"label"`
	Icon         string                  `yaml:"icon"         json:"icon,omitempty"`
	Style        string                  `yaml:"style"        json:"style,omitempty"`
	Capabilities []string                `yaml:"capabilities" json:"capabilities,omitempty"`
	Confirmation *ConfirmationDefinition `yaml:"confirmation" json:"confirmation,omitempty"`
}

// BulkActionDefinition describes an action applied to every selected row.
type BulkActionDefinition struct {
	ID             string                  `yaml:"id"              json:"id"`
	Label          string                  `yaml:"label"           json:"label"`
	Icon           string                  `yaml:"icon"            json:"icon,omitempty"`
	Style          string                  `yaml:"style"           json:"style,omitempty"`
	Handler        string                  `yaml:"handler"         json:"handler"`
	Capabilities   []string                `yaml:"capabilities"    json:"capabilities,omitempty"`
	Set            map[string]any          `yaml:"set"             json:"set,omitempty"`
	ClearSelection bool                    `yaml:"clear_selection" json:"clear_selection,omitempty"`
	IdempotencyTTL string                  `yaml:"idempotency_ttl" json:"idempotency_ttl,omitempty"`
	Confirmation   *ConfirmationDefinition `yaml:"confirmation"    json:"confirmation,omitempty"`
}

// ConfirmationDefinition describes a confirmation dialog.
type ConfirmationDefinition struct {
	Title   string `yaml:"title"   json:"title"`
	Message string `yaml:"message" json:"message"`
	Confirm string `yaml:"confirm" json:"confirm"`
	Cancel  string `yaml:"cancel"  json:"cancel,omitempty"`
}
