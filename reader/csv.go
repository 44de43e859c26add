package reader

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/vegasq/sheetql/table"
)

// ReadCSV loads a CSV file into a relation. The first record supplies
// column names. Records shorter than the header pad with nulls; the
// reader tolerates ragged rows.
func ReadCSV(path string) (*table.Relation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return table.New(), nil
	}

	rel := table.New(records[0]...)
	for _, record := range records[1:] {
		row := make(map[string]interface{}, len(records[0]))
		for i, name := range records[0] {
			if i < len(record) {
				row[name] = coerceCell(record[i])
			} else {
				row[name] = nil
			}
		}
		rel.AppendRow(row)
	}
	rel.InferTypes()
	return rel, nil
}
