package definition

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pitabwire/tabula/model"
)

//go:embed catalog.schema.json
var catalogSchema []byte

// CatalogSchema returns the JSON schema every catalog must satisfy.
func CatalogSchema() []byte {
	return catalogSchema
}

// VError describes a single validation error in a catalog.
type VError struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e VError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validator checks catalogs against the catalog schema and then
// referentially: unique ids, sort and filter columns, status maps, handlers
// and capability namespaces.
type Validator struct {
	schema   *gojsonschema.Schema
	handlers map[string]bool
}

// NewValidator creates a Validator. handlers lists the registered bulk
// handler names; when empty, handler names are not checked.
func NewValidator(handlers ...string) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(catalogSchema))
	if err != nil {
		return nil, fmt.Errorf("compiling catalog schema: %w", err)
	}
	known := make(map[string]bool, len(handlers))
	for _, h := range handlers {
		known[h] = true
	}
	return &Validator{schema: schema, handlers: known}, nil
}

// Validate checks all catalogs together so that table ids are unique across
// domains.
func (v *Validator) Validate(defs []model.CatalogDefinition) []VError {
	var errs []VError
	tableIDs := make(map[string]string)

	for i, def := range defs {
		prefix := fmt.Sprintf("catalogs[%d]", i)
		if def.SourceFile != "" {
			prefix = def.SourceFile
		}

		schemaErrs := v.validateSchema(prefix, def)
		errs = append(errs, schemaErrs...)
		if len(schemaErrs) > 0 {
			continue
		}

		for j, t := range def.Tables {
			tp := fmt.Sprintf("%s.tables[%d]", prefix, j)
			if other, dup := tableIDs[t.ID]; dup {
				errs = append(errs, VError{
					Path:    tp + ".id",
					Code:    "DUPLICATE",
					Message: fmt.Sprintf("table %q is already declared by domain %q", t.ID, other),
				})
			}
			tableIDs[t.ID] = def.Domain
			errs = append(errs, v.validateTable(tp, def.Domain, t)...)
		}
	}
	return errs
}

func (v *Validator) validateSchema(prefix string, def model.CatalogDefinition) []VError {
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(def))
	if err != nil {
		return []VError{{Path: prefix, Code: "SCHEMA", Message: err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]VError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		path := prefix
		if f := re.Field(); f != "" && f != "(root)" {
			path = prefix + "." + f
		}
		errs = append(errs, VError{
			Path:    path,
			Code:    "SCHEMA_" + strings.ToUpper(re.Type()),
			Message: re.Description(),
		})
	}
	return errs
}

func (v *Validator) validateTable(prefix, domain string, t model.TableDefinition) []VError {
	var errs []VError

	columns := make(map[string]model.ColumnDefinition, len(t.Columns))
	for i, c := range t.Columns {
		cp := fmt.Sprintf("%s.columns[%d]", prefix, i)
		if _, dup := columns[c.Key]; dup {
			errs = append(errs, VError{Path: cp + ".key", Code: "DUPLICATE", Message: fmt.Sprintf("duplicate column key %q", c.Key)})
		}
		columns[c.Key] = c
		if len(c.StatusMap) > 0 && c.Type != string(model.ColumnBadge) {
			errs = append(errs, VError{Path: cp + ".status_map", Code: "INVALID", Message: "status_map requires type badge"})
		}
	}

	if t.DefaultSort != "" {
		c, ok := columns[t.DefaultSort]
		switch {
		case !ok:
			errs = append(errs, VError{Path: prefix + ".default_sort", Code: "REF_NOT_FOUND", Message: fmt.Sprintf("column %q not found", t.DefaultSort)})
		case !c.Sortable:
			errs = append(errs, VError{Path: prefix + ".default_sort", Code: "INVALID", Message: fmt.Sprintf("column %q is not sortable", t.DefaultSort)})
		}
	}

	errs = append(errs, checkNamespace(prefix+".capabilities", domain, t.Capabilities)...)

	rowActions := make(map[string]bool, len(t.RowActions))
	for i, a := range t.RowActions {
		ap := fmt.Sprintf("%s.row_actions[%d]", prefix, i)
		if rowActions[a.ID] {
			errs = append(errs, VError{Path: ap + ".id", Code: "DUPLICATE", Message: fmt.Sprintf("duplicate row action %q", a.ID)})
		}
		rowActions[a.ID] = true
		errs = append(errs, checkNamespace(ap+".capabilities", domain, a.Capabilities)...)
	}

	bulkActions := make(map[string]bool, len(t.BulkActions))
	for i, a := range t.BulkActions {
		ap := fmt.Sprintf("%s.bulk_actions[%d]", prefix, i)
		if bulkActions[a.ID] {
			errs = append(errs, VError{Path: ap + ".id", Code: "DUPLICATE", Message: fmt.Sprintf("duplicate bulk action %q", a.ID)})
		}
		bulkActions[a.ID] = true
		if len(v.handlers) > 0 && !v.handlers[a.Handler] {
			errs = append(errs, VError{Path: ap + ".handler", Code: "REF_NOT_FOUND", Message: fmt.Sprintf("handler %q is not registered", a.Handler)})
		}
		if a.Handler == "update" && len(a.Set) == 0 {
			errs = append(errs, VError{Path: ap + ".set", Code: "REQUIRED", Message: "update actions need at least one field to set"})
		}
		if a.IdempotencyTTL != "" {
			if _, err := time.ParseDuration(a.IdempotencyTTL); err != nil {
				errs = append(errs, VError{Path: ap + ".idempotency_ttl", Code: "INVALID", Message: err.Error()})
			}
		}
		errs = append(errs, checkNamespace(ap+".capabilities", domain, a.Capabilities)...)
	}
	if len(t.BulkActions) > 0 && t.Selectable != nil && !*t.Selectable {
		errs = append(errs, VError{Path: prefix + ".bulk_actions", Code: "INVALID", Message: "bulk actions require a selectable table"})
	}

	idField := t.RowIDField()
	seen := make(map[string]bool, len(t.Seed))
	for i, fields := range t.Seed {
		sp := fmt.Sprintf("%s.seed[%d]", prefix, i)
		row, err := model.NewRow(idField, fields)
		if err != nil {
			errs = append(errs, VError{Path: sp + "." + idField, Code: "REQUIRED", Message: err.Error()})
			continue
		}
		if seen[row.ID] {
			errs = append(errs, VError{Path: sp + "." + idField, Code: "DUPLICATE", Message: fmt.Sprintf("duplicate row id %q", row.ID)})
		}
		seen[row.ID] = true
	}

	return errs
}

func checkNamespace(path, domain string, caps []string) []VError {
	var errs []VError
	for _, c := range caps {
		if c != "*" && !strings.HasPrefix(c, domain+":") {
			errs = append(errs, VError{
				Path:    path,
				Code:    "NAMESPACE_MISMATCH",
				Message: fmt.Sprintf("capability %q does not match domain %q", c, domain),
			})
		}
	}
	return errs
}
