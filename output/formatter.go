// Package output serializes relations for display and export.
package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/vegasq/sheetql/table"
)

// Formatter writes a relation to a stream in one specific format.
type Formatter interface {
	Write(w io.Writer, rel *table.Relation) error
}

// New returns the formatter for a format name: "csv", "jsonl" or "table".
func New(format string) (Formatter, error) {
	switch format {
	case "csv":
		return &CSVFormatter{}, nil
	case "jsonl":
		return &JSONLFormatter{}, nil
	case "table", "":
		return &TableFormatter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// formatCell renders one cell value as text. Floats drop trailing zeros so
// integral values read naturally.
func formatCell(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case bool:
		return strconv.FormatBool(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case time.Time:
		return n.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}
