package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/vegasq/sheetql/table"
)

// CSVFormatter writes the relation as RFC 4180 CSV with a header row,
// columns in relation order.
type CSVFormatter struct {
	// Delimiter overrides the comma when set.
	Delimiter rune
}

// Write serializes rel to w.
func (f *CSVFormatter) Write(w io.Writer, rel *table.Relation) error {
	cw := csv.NewWriter(w)
	if f.Delimiter != 0 {
		cw.Comma = f.Delimiter
	}
	if err := cw.Write(rel.ColumnNames()); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(rel.Columns))
	for _, row := range rel.Rows {
		for i, col := range rel.Columns {
			record[i] = formatCell(row[col.Name])
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile exports rel to path, creating or truncating the file. This
// backs the statement-level "> path" redirection.
func WriteCSVFile(path string, rel *table.Relation) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	if err := (&CSVFormatter{}).Write(f, rel); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
