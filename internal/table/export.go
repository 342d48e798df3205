package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pitabwire/tabula/model"
)

// CSVContentType is the media type of exported payloads.
const CSVContentType = "text/csv; charset=utf-8"

// Export is a fully serialized CSV download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
}

// ExportFilename returns the download name for an export taken at now.
func ExportFilename(now time.Time) string {
	return "data-export-" + now.Format(time.DateOnly) + ".csv"
}

// SerializeCSV writes a header line of column headers followed by one record
// per row. Text values are always quoted with embedded quotes doubled;
// numbers and booleans are written bare and missing values are empty.
// Records are separated by "\n".
func SerializeCSV(rows []model.Row, columns []model.Column) []byte {
	var b strings.Builder

	for i, col := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvHeader(col.Header))
	}

	for _, row := range rows {
		b.WriteByte('\n')
		for i, col := range columns {
			if i > 0 {
				b.WriteByte(',')
			}
			v, _ := row.Value(col.Key)
			b.WriteString(csvValue(v))
		}
	}
	return []byte(b.String())
}

func csvHeader(h string) string {
	if strings.ContainsAny(h, ",\"\r\n") {
		return quote(h)
	}
	return h
}

func csvValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case time.Time:
		return quote(x.Format(time.RFC3339))
	default:
		return quote(stringOf(x))
	}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
