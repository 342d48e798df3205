package metadata

import (
	"testing"

	"github.com/pitabwire/tabula/internal/definition"
	"github.com/pitabwire/tabula/model"
)

func testTableDefinitions() []model.CatalogDefinition {
	off := false
	return []model.CatalogDefinition{
		{
			Domain: "students",
			Tables: []model.TableDefinition{
				{
					ID:           "students.list",
					Title:        "Students",
					Source:       "students",
					Capabilities: []string{"students:list:view"},
					DefaultSort:  "name",
					Columns: []model.ColumnDefinition{
						{Key: "name", Header: "Name", Sortable: true},
						{Key: "status", Header: "Status", Type: "badge", StatusMap: map[string]string{"active": "success"}},
					},
					RowActions: []model.ActionDefinition{
						{ID: "view", Label: "View"},
						{ID: "delete", Label: "Delete", Capabilities: []string{"students:row:delete"}},
					},
					BulkActions: []model.BulkActionDefinition{
						{ID: "notify", Label: "Notify", Handler: "notify", Capabilities: []string{"students:bulk:notify"}},
						{
							ID: "delete", Label: "Delete", Handler: "delete", ClearSelection: true,
							Capabilities: []string{"students:bulk:delete"},
							Confirmation: &model.ConfirmationDefinition{Title: "Delete", Message: "Sure?", Confirm: "Yes"},
						},
					},
				},
				{
					ID:           "students.archive",
					Title:        "Archive",
					Source:       "archive",
					Capabilities: []string{"students:archive:view"},
					Selectable:   &off,
					PageSize:     50,
					BulkActions:  []model.BulkActionDefinition{{ID: "notify", Handler: "notify"}},
				},
			},
		},
	}
}

func instructorCaps() model.CapabilitySet {
	return model.CapabilitySet{"students:list:view": true, "students:bulk:notify": true}
}

func TestTableProvider_GetTable_success(t *testing.T) {
	p := NewTableProvider(definition.NewRegistry(testTableDefinitions()))

	desc, err := p.GetTable(instructorCaps(), "students.list")
	if err != nil {
		t.Fatalf("GetTable() error = %v", err)
	}
	if desc.Title != "Students" {
		t.Errorf("Title = %q, want Students", desc.Title)
	}
	if desc.PageSize != 10 {
		t.Errorf("PageSize = %d, want default 10", desc.PageSize)
	}
	if desc.SortDir != "asc" {
		t.Errorf("SortDir = %q, want asc", desc.SortDir)
	}
	if desc.Columns[1].Type != model.ColumnBadge || desc.Columns[1].StatusMap["active"] != "success" {
		t.Errorf("badge column = %+v", desc.Columns[1])
	}
	if !desc.RowActions[0].Enabled || desc.RowActions[1].Enabled {
		t.Errorf("RowActions = %+v, want view enabled and delete disabled", desc.RowActions)
	}
	if !desc.BulkActions[0].Enabled || desc.BulkActions[1].Enabled {
		t.Errorf("BulkActions = %+v, want notify enabled and delete disabled", desc.BulkActions)
	}
	if desc.BulkActions[1].Confirmation == nil || !desc.BulkActions[1].ClearSelection {
		t.Errorf("delete bulk action = %+v", desc.BulkActions[1])
	}
}

func TestTableProvider_GetTable_not_found(t *testing.T) {
	p := NewTableProvider(definition.NewRegistry(testTableDefinitions()))
	_, err := p.GetTable(instructorCaps(), "nope")
	if model.CodeOf(err) != model.ErrNotFound {
		t.Errorf("error code = %q, want NOT_FOUND", model.CodeOf(err))
	}
}

func TestTableProvider_GetTable_forbidden(t *testing.T) {
	p := NewTableProvider(definition.NewRegistry(testTableDefinitions()))
	_, err := p.GetTable(instructorCaps(), "students.archive")
	if model.CodeOf(err) != model.ErrForbidden {
		t.Errorf("error code = %q, want FORBIDDEN", model.CodeOf(err))
	}
}

func TestTableProvider_ListTables(t *testing.T) {
	p := NewTableProvider(definition.NewRegistry(testTableDefinitions()))

	if got := p.ListTables(instructorCaps()); len(got) != 1 || got[0].ID != "students.list" {
		t.Errorf("ListTables(instructor) = %+v", got)
	}

	all := p.ListTables(model.CapabilitySet{"*": true})
	if len(all) != 2 {
		t.Fatalf("ListTables(admin) = %d tables, want 2", len(all))
	}
	archive := all[0]
	if archive.ID != "students.archive" || archive.Selectable || archive.BulkActions != nil {
		t.Errorf("non-selectable table should not offer bulk actions: %+v", archive)
	}
	if archive.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", archive.PageSize)
	}
}
