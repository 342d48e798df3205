package table

import "github.com/pitabwire/tabula/model"

func studentRows() []model.Row {
	return []model.Row{
		{ID: "1", Fields: map[string]any{"id": 1, "name": "Amaka", "class": "JSS1"}},
		{ID: "2", Fields: map[string]any{"id": 2, "name": "Bola", "class": "JSS2"}},
		{ID: "3", Fields: map[string]any{"id": 3, "name": "Amaka", "class": "JSS2"}},
	}
}

func studentColumns() []model.Column {
	return []model.Column{
		{Key: "id", Header: "ID", Sortable: true},
		{Key: "name", Header: "Name", Sortable: true},
		{Key: "class", Header: "Class", Sortable: true, Filterable: true},
	}
}

func rowIDs(rows []model.Row) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func viewIDs(view model.TableView) []string {
	ids := make([]string, 0, len(view.Rows))
	for _, r := range view.Rows {
		ids = append(ids, r.ID)
	}
	return ids
}
