package reader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/vegasq/sheetql/table"
)

// ReadXLSX loads one sheet of an Excel workbook into a relation. The first
// row supplies column names; an empty sheet name selects the first sheet.
func ReadXLSX(path, sheet string) (*table.Relation, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return table.New(), nil
	}

	header := rows[0]
	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		names[i] = h
	}
	rel := table.New(names...)

	for _, record := range rows[1:] {
		row := make(map[string]interface{}, len(names))
		for i, name := range names {
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

// ListXLSXSheets returns the workbook's sheet names in file order.
func ListXLSXSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// coerceCell turns spreadsheet cell text into a typed value: int64,
// float64, bool, nil for empty or NA-like cells, text otherwise.
func coerceCell(s string) interface{} {
	trimmed := strings.TrimSpace(s)
	switch strings.ToUpper(trimmed) {
	case "", "NA", "N/A", "NULL":
		return nil
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	switch strings.ToUpper(trimmed) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	return s
}
