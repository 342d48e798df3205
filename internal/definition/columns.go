package definition

import (
	"fmt"
	"strings"
	"time"

	"github.com/pitabwire/tabula/model"
)

// BuildColumns converts the column definitions of a table into engine
// columns, attaching a renderer for the column format and a badge
// classifier for its status map.
func BuildColumns(def model.TableDefinition) []model.Column {
	cols := make([]model.Column, 0, len(def.Columns))
	for _, c := range def.Columns {
		col := model.Column{
			Key:        c.Key,
			Header:     c.Header,
			Sortable:   c.Sortable,
			Filterable: c.Filterable,
			Type:       model.ColumnPlain,
			Render:     renderer(c.Format),
		}
		if c.Type == string(model.ColumnBadge) {
			col.Type = model.ColumnBadge
			col.BadgeClassOf = badgeClassifier(c.StatusMap)
		}
		cols = append(cols, col)
	}
	return cols
}

func renderer(format string) func(any, model.Row) string {
	switch format {
	case "date":
		return func(v any, _ model.Row) string { return formatTime(v, time.DateOnly) }
	case "datetime":
		return func(v any, _ model.Row) string { return formatTime(v, "2006-01-02 15:04") }
	case "boolean":
		return func(v any, _ model.Row) string {
			switch b := v.(type) {
			case bool:
				if b {
					return "Yes"
				}
				return "No"
			case nil:
				return ""
			default:
				return fmt.Sprint(v)
			}
		}
	case "upper":
		return func(v any, _ model.Row) string {
			if v == nil {
				return ""
			}
			return strings.ToUpper(fmt.Sprint(v))
		}
	default:
		return nil
	}
}

func formatTime(v any, layout string) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.Format(layout)
	case string:
		for _, in := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
			if parsed, err := time.Parse(in, t); err == nil {
				return parsed.Format(layout)
			}
		}
		return t
	default:
		return fmt.Sprint(v)
	}
}

func badgeClassifier(statusMap map[string]string) func(any) string {
	return func(v any) string {
		if v == nil {
			return statusMap["default"]
		}
		if class, ok := statusMap[fmt.Sprint(v)]; ok {
			return class
		}
		return statusMap["default"]
	}
}

// SeedRows converts the seed fixtures of a table into rows.
func SeedRows(def model.TableDefinition) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(def.Seed))
	for i, fields := range def.Seed {
		row, err := model.NewRow(def.RowIDField(), fields)
		if err != nil {
			return nil, fmt.Errorf("table %s seed[%d]: %w", def.ID, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
