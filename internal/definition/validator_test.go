package definition

import (
	"testing"

	"github.com/pitabwire/tabula/model"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator("delete", "update", "notify")
	if err != nil {
		t.Fatalf("NewValidator() error = %v", err)
	}
	return v
}

func loadCatalog(t *testing.T, path string) model.CatalogDefinition {
	t.Helper()
	def, err := NewLoader().LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile(%s) error = %v", path, err)
	}
	return def
}

func hasError(errs []VError, code, pathSuffix string) bool {
	for _, e := range errs {
		if e.Code == code && (pathSuffix == "" || len(e.Path) >= len(pathSuffix) && e.Path[len(e.Path)-len(pathSuffix):] == pathSuffix) {
			return true
		}
	}
	return false
}

func TestValidator_valid_catalog(t *testing.T) {
	errs := newTestValidator(t).Validate([]model.CatalogDefinition{loadCatalog(t, "testdata/students/catalog.yaml")})
	if len(errs) != 0 {
		t.Errorf("Validate() = %v, want no errors", errs)
	}
}

func TestValidator_referential_errors(t *testing.T) {
	errs := newTestValidator(t).Validate([]model.CatalogDefinition{loadCatalog(t, "testdata/broken/catalog.yaml")})

	tests := []struct {
		code string
		path string
	}{
		{"NAMESPACE_MISMATCH", "tables[0].capabilities"},
		{"INVALID", "tables[0].default_sort"},
		{"DUPLICATE", "tables[0].columns[1].key"},
		{"INVALID", "tables[0].columns[2].status_map"},
		{"REF_NOT_FOUND", "tables[0].bulk_actions[0].handler"},
		{"REQUIRED", "tables[0].bulk_actions[1].set"},
		{"REQUIRED", "tables[0].seed[0].id"},
	}
	for _, tt := range tests {
		if !hasError(errs, tt.code, tt.path) {
			t.Errorf("missing %s at %s in %v", tt.code, tt.path, errs)
		}
	}
}

func TestValidator_schema_errors(t *testing.T) {
	def := model.CatalogDefinition{
		Domain:  "students",
		Version: "1",
		Tables: []model.TableDefinition{{
			ID:     "students.list",
			Title:  "Students",
			Source: "students",
			Columns: []model.ColumnDefinition{
				{Key: "name", Header: "Name", Type: "sparkline"},
			},
			PageSize: 500,
		}},
	}
	errs := newTestValidator(t).Validate([]model.CatalogDefinition{def})
	if len(errs) < 2 {
		t.Fatalf("Validate() = %v, want schema errors for type and page_size", errs)
	}
	for _, e := range errs {
		if len(e.Code) < 7 || e.Code[:7] != "SCHEMA_" {
			t.Errorf("Code = %q, want SCHEMA_*", e.Code)
		}
	}
}

func TestValidator_missing_tables(t *testing.T) {
	errs := newTestValidator(t).Validate([]model.CatalogDefinition{{Domain: "students", Version: "1"}})
	if len(errs) == 0 {
		t.Fatal("catalog without tables should fail")
	}
}

func TestValidator_duplicate_table_across_catalogs(t *testing.T) {
	def := loadCatalog(t, "testdata/students/catalog.yaml")
	other := def
	other.Domain = "alumni"
	other.SourceFile = "alumni.yaml"

	errs := newTestValidator(t).Validate([]model.CatalogDefinition{def, other})
	if !hasError(errs, "DUPLICATE", "alumni.yaml.tables[0].id") {
		t.Errorf("Validate() = %v, want duplicate table id", errs)
	}
}

func TestValidator_bad_idempotency_ttl(t *testing.T) {
	def := loadCatalog(t, "testdata/students/catalog.yaml")
	def.Tables[0].BulkActions[2].IdempotencyTTL = "soon"

	errs := newTestValidator(t).Validate([]model.CatalogDefinition{def})
	if !hasError(errs, "INVALID", "bulk_actions[2].idempotency_ttl") {
		t.Errorf("Validate() = %v, want idempotency_ttl error", errs)
	}
}
