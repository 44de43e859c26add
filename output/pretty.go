package output

import (
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/sheetql/table"
)

// maxCellWidth bounds interactive cell rendering; wider values are
// truncated with an ellipsis.
const maxCellWidth = 48

// TableFormatter renders the relation as an aligned ASCII table for
// interactive display.
type TableFormatter struct {
	// MaxRows limits how many rows are rendered; 0 means all.
	MaxRows int
}

// Write renders rel to w followed by a row-count line.
func (f *TableFormatter) Write(w io.Writer, rel *table.Relation) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(rel.ColumnNames())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)

	shown := len(rel.Rows)
	if f.MaxRows > 0 && shown > f.MaxRows {
		shown = f.MaxRows
	}
	record := make([]string, len(rel.Columns))
	for _, row := range rel.Rows[:shown] {
		for i, col := range rel.Columns {
			record[i] = runewidth.Truncate(formatCell(row[col.Name]), maxCellWidth, "…")
		}
		tw.Append(record)
	}
	tw.Render()

	if shown < len(rel.Rows) {
		fmt.Fprintf(w, "%d rows (%d shown)\n", len(rel.Rows), shown)
	} else {
		fmt.Fprintf(w, "%d rows\n", len(rel.Rows))
	}
	return nil
}
