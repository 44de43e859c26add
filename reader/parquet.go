// Package reader loads spreadsheet, CSV and parquet files into relations
// and implements the provider interface consumed by the query engine. A
// per-file cache keyed by file identity (name, size, mtime) avoids
// re-reading unchanged files between statements.
package reader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/vegasq/sheetql/table"
)

// ReadParquet loads an entire parquet file into a relation. Column order
// follows the file schema.
func ReadParquet(path string) (*table.Relation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pqFile, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %s: %w", path, err)
	}

	var names []string
	for _, field := range pqFile.Schema().Fields() {
		names = append(names, field.Name())
	}
	rel := table.New(names...)

	rows := parquet.NewReader(pqFile)
	defer rows.Close()
	for {
		row := make(map[string]interface{})
		if err := rows.Read(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("reading parquet row: %w", err)
		}
		rel.AppendRow(row)
	}
	rel.InferTypes()
	return rel, nil
}
