package query

import (
	"sort"

	"github.com/vegasq/sheetql/sqlerr"
	"github.com/vegasq/sheetql/table"
)

// rowInfo pairs a row with its position in the source relation so window
// results can be written back in original row order.
type rowInfo struct {
	row           map[string]interface{}
	originalIndex int
}

// applyWindows computes every window call in the projection and builds the
// output relation: the plain columns and literals from the select list
// plus one column per window call. Rows keep the source relation's order;
// sorting inside a window affects only that window's values.
func applyWindows(rel *table.Relation, q *Query) (*table.Relation, error) {
	out := &table.Relation{}
	type colSource struct {
		srcCol  string        // set for plain columns
		literal *LiteralExpr  // set for literals
		window  []interface{} // set for window results, indexed by row
	}
	var sources []colSource

	for _, item := range q.SelectList {
		switch e := item.Expr.(type) {
		case *ColumnRef:
			if e.IsWildcard() {
				for _, col := range rel.Columns {
					out.Columns = append(out.Columns, table.Column{Name: col.Name, Type: col.Type})
					sources = append(sources, colSource{srcCol: col.Name})
				}
				continue
			}
			name, ok := rel.ResolveColumn(e.Column)
			if !ok {
				return nil, sqlerr.ColumnNotFound(e.Column, rel.ColumnNames())
			}
			outName := name
			if item.Alias != "" {
				outName = item.Alias
			}
			out.Columns = append(out.Columns, table.Column{Name: outName})
			sources = append(sources, colSource{srcCol: name})
		case *LiteralExpr:
			out.Columns = append(out.Columns, table.Column{Name: aggregateItemName(item, rel)})
			sources = append(sources, colSource{literal: e})
		case *WindowExpr:
			values, err := computeWindow(rel, e)
			if err != nil {
				return nil, err
			}
			out.Columns = append(out.Columns, table.Column{Name: aggregateItemName(item, rel)})
			sources = append(sources, colSource{window: values})
		case *AggregateExpr:
			return nil, sqlerr.Unsupported("aggregate functions mixed with window functions")
		}
	}

	for i, row := range rel.Rows {
		outRow := make(map[string]interface{}, len(out.Columns))
		for c, src := range sources {
			name := out.Columns[c].Name
			switch {
			case src.window != nil:
				outRow[name] = src.window[i]
			case src.literal != nil:
				outRow[name] = src.literal.Value
			default:
				outRow[name] = row[src.srcCol]
			}
		}
		out.Rows = append(out.Rows, outRow)
	}
	out.InferTypes()
	return out, nil
}

// computeWindow evaluates one window call and returns its value per source
// row, indexed by original row position.
func computeWindow(rel *table.Relation, win *WindowExpr) ([]interface{}, error) {
	partCols := make([]string, len(win.PartitionBy))
	for i, col := range win.PartitionBy {
		name, ok := rel.ResolveColumn(col)
		if !ok {
			return nil, sqlerr.ColumnNotFound(col, rel.ColumnNames())
		}
		partCols[i] = name
	}
	orderCols := make([]string, len(win.OrderBy))
	for i, item := range win.OrderBy {
		name, ok := rel.ResolveColumn(item.Column)
		if !ok {
			return nil, sqlerr.ColumnNotFound(item.Column, rel.ColumnNames())
		}
		orderCols[i] = name
	}
	targetCol := ""
	if win.Column != "" {
		name, ok := rel.ResolveColumn(win.Column)
		if !ok {
			return nil, sqlerr.ColumnNotFound(win.Column, rel.ColumnNames())
		}
		targetCol = name
	}

	// Partition rows, preserving original order inside each partition.
	partIndex := make(map[string]int)
	var partitions [][]rowInfo
	for i, row := range rel.Rows {
		key := groupKey(row, partCols)
		p, ok := partIndex[key]
		if !ok {
			p = len(partitions)
			partIndex[key] = p
			partitions = append(partitions, nil)
		}
		partitions[p] = append(partitions[p], rowInfo{row: row, originalIndex: i})
	}

	results := make([]interface{}, len(rel.Rows))
	for _, part := range partitions {
		sorted, err := sortPartition(part, win.OrderBy, orderCols)
		if err != nil {
			return nil, err
		}
		if err := fillWindowValues(results, sorted, win, orderCols, targetCol); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// sortPartition orders one partition by the window's order keys. The sort
// is stable, so ties keep original row order.
func sortPartition(part []rowInfo, items []OrderByItem, cols []string) ([]rowInfo, error) {
	sorted := make([]rowInfo, len(part))
	copy(sorted, part)
	if len(cols) == 0 {
		return sorted, nil
	}
	var sortErr error
	sort.SliceStable(sorted, func(i, j int) bool {
		for k, col := range cols {
			cmp, err := compareValues(sorted[i].row[col], sorted[j].row[col])
			if err != nil {
				if sortErr == nil {
					sortErr = err
				}
				return false
			}
			if cmp == 0 {
				continue
			}
			if items[k].Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return sorted, nil
}

func fillWindowValues(results []interface{}, sorted []rowInfo, win *WindowExpr, orderCols []string, targetCol string) error {
	switch win.Func {
	case "ROW_NUMBER":
		for i, info := range sorted {
			results[info.originalIndex] = int64(i + 1)
		}
	case "RANK", "DENSE_RANK":
		rank := int64(1)
		dense := int64(1)
		for i, info := range sorted {
			if i > 0 {
				same, err := sameOrderKeys(sorted[i-1].row, info.row, orderCols)
				if err != nil {
					return err
				}
				if !same {
					rank = int64(i + 1)
					dense++
				}
			}
			if win.Func == "RANK" {
				results[info.originalIndex] = rank
			} else {
				results[info.originalIndex] = dense
			}
		}
	case "LAG":
		for i, info := range sorted {
			if i == 0 {
				results[info.originalIndex] = nil
			} else {
				results[info.originalIndex] = sorted[i-1].row[targetCol]
			}
		}
	case "LEAD":
		for i, info := range sorted {
			if i == len(sorted)-1 {
				results[info.originalIndex] = nil
			} else {
				results[info.originalIndex] = sorted[i+1].row[targetCol]
			}
		}
	default:
		return sqlerr.Unsupported("window function " + win.Func)
	}
	return nil
}

func sameOrderKeys(a, b map[string]interface{}, cols []string) (bool, error) {
	for _, col := range cols {
		cmp, err := compareValues(a[col], b[col])
		if err != nil {
			return false, err
		}
		if cmp != 0 {
			return false, nil
		}
	}
	return true, nil
}
