package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vegasq/sheetql/table"
)

// JSONLFormatter writes one JSON object per row, keys matching column
// names.
type JSONLFormatter struct{}

// Write serializes rel to w.
func (f *JSONLFormatter) Write(w io.Writer, rel *table.Relation) error {
	enc := json.NewEncoder(w)
	for _, row := range rel.Rows {
		obj := make(map[string]interface{}, len(rel.Columns))
		for _, col := range rel.Columns {
			obj[col.Name] = row[col.Name]
		}
		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("encoding jsonl row: %w", err)
		}
	}
	return nil
}
