package model

import "testing"

func TestRow_Value(t *testing.T) {
	r := Row{ID: "7", Fields: map[string]any{"name": "Amaka", "guardian": nil}}

	if v, ok := r.Value("name"); !ok || v != "Amaka" {
		t.Errorf("Value(name) = %v, %v", v, ok)
	}
	if v, ok := r.Value("guardian"); !ok || v != nil {
		t.Errorf("Value(guardian) = %v, %v; want nil, true", v, ok)
	}
	if _, ok := r.Value("missing"); ok {
		t.Error("Value(missing) should be undefined")
	}
	if v, ok := r.Value("id"); !ok || v != "7" {
		t.Errorf("Value(id) = %v, %v; want fallback to row ID", v, ok)
	}
}

func TestNewRow(t *testing.T) {
	r, err := NewRow("student_no", map[string]any{"student_no": 42, "name": "Bola"})
	if err != nil {
		t.Fatalf("NewRow error: %v", err)
	}
	if r.ID != "42" {
		t.Errorf("ID = %q, want 42", r.ID)
	}

	if _, err := NewRow("id", map[string]any{"name": "Bola"}); err == nil {
		t.Error("NewRow without id field should fail")
	}
	if _, err := NewRow("id", map[string]any{"id": ""}); err == nil {
		t.Error("NewRow with empty id should fail")
	}
}

func TestFilterState_Active(t *testing.T) {
	f := FilterState{"class": "JSS2", "status": "", "house": nil, "year": 2}
	active := f.Active()
	if len(active) != 2 {
		t.Fatalf("Active() = %v, want 2 entries", active)
	}
	if active["class"] != "JSS2" || active["year"] != 2 {
		t.Errorf("Active() = %v", active)
	}
}

func TestTableDefinition_Options(t *testing.T) {
	off := false
	def := TableDefinition{PageSize: 25, Exportable: &off}
	opts := def.Options(ColumnPolicyStrict)

	if opts.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", opts.PageSize)
	}
	if opts.Exportable {
		t.Error("Exportable = true, want false")
	}
	if !opts.Searchable || !opts.Selectable || !opts.Paginate || !opts.Filterable {
		t.Errorf("unset flags should default to enabled: %+v", opts)
	}
	if opts.Policy != ColumnPolicyStrict {
		t.Errorf("Policy = %q, want strict", opts.Policy)
	}
	if def.RowIDField() != "id" {
		t.Errorf("RowIDField() = %q, want id", def.RowIDField())
	}
}
