package definition

import (
	"testing"
	"time"

	"github.com/pitabwire/tabula/model"
)

func TestBuildColumns(t *testing.T) {
	def := model.TableDefinition{
		Columns: []model.ColumnDefinition{
			{Key: "name", Header: "Name", Sortable: true},
			{Key: "status", Header: "Status", Type: "badge", Filterable: true,
				StatusMap: map[string]string{"active": "success", "default": "muted"}},
			{Key: "enrolled", Header: "Enrolled", Format: "date"},
			{Key: "boarder", Header: "Boarder", Format: "boolean"},
			{Key: "house", Header: "House", Format: "upper"},
		},
	}
	cols := BuildColumns(def)
	if len(cols) != 5 {
		t.Fatalf("BuildColumns() = %d columns, want 5", len(cols))
	}

	if cols[0].Type != model.ColumnPlain || cols[0].Render != nil || !cols[0].Sortable {
		t.Errorf("plain column = %+v", cols[0])
	}

	status := cols[1]
	if status.Type != model.ColumnBadge || status.BadgeClassOf == nil {
		t.Fatalf("badge column = %+v", status)
	}
	if got := status.BadgeClassOf("active"); got != "success" {
		t.Errorf("BadgeClassOf(active) = %q, want success", got)
	}
	if got := status.BadgeClassOf("graduated"); got != "muted" {
		t.Errorf("BadgeClassOf(graduated) = %q, want muted", got)
	}

	row := model.Row{ID: "1"}
	if got := cols[2].Render("2023-09-04T08:30:00Z", row); got != "2023-09-04" {
		t.Errorf("date Render = %q", got)
	}
	if got := cols[2].Render(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), row); got != "2024-01-02" {
		t.Errorf("date Render(time) = %q", got)
	}
	if got := cols[3].Render(true, row); got != "Yes" {
		t.Errorf("boolean Render = %q, want Yes", got)
	}
	if got := cols[4].Render("kings", row); got != "KINGS" {
		t.Errorf("upper Render = %q, want KINGS", got)
	}
}

func TestSeedRows(t *testing.T) {
	def := model.TableDefinition{
		ID:      "students.list",
		IDField: "admission_no",
		Seed: []map[string]any{
			{"admission_no": "A-1", "name": "Amaka"},
			{"admission_no": 2, "name": "Bola"},
		},
	}
	rows, err := SeedRows(def)
	if err != nil {
		t.Fatalf("SeedRows() error = %v", err)
	}
	if rows[0].ID != "A-1" || rows[1].ID != "2" {
		t.Errorf("ids = %q, %q", rows[0].ID, rows[1].ID)
	}

	def.Seed = append(def.Seed, map[string]any{"name": "Chidi"})
	if _, err := SeedRows(def); err == nil {
		t.Error("SeedRows() should fail for a row without id")
	}
}
