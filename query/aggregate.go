package query

import (
	"math"
	"strings"

	"github.com/vegasq/sheetql/sqlerr"
	"github.com/vegasq/sheetql/table"
)

// group is one GROUP BY partition: the shared key values plus the member
// rows.
type group struct {
	keyValues map[string]interface{}
	rows      []map[string]interface{}
}

// applyGroupBy partitions rows by the distinct tuples of group-column
// values and computes one output row per partition. Partitions keep
// first-occurrence order, which makes results reproducible even though
// callers may not rely on it.
func applyGroupBy(rel *table.Relation, q *Query) (*table.Relation, error) {
	groupCols := make([]string, len(q.GroupBy))
	for i, col := range q.GroupBy {
		name, ok := rel.ResolveColumn(col)
		if !ok {
			return nil, sqlerr.ColumnNotFound(col, rel.ColumnNames())
		}
		groupCols[i] = name
	}

	// Every plain projected column must be a group column.
	for _, item := range q.SelectList {
		switch e := item.Expr.(type) {
		case *ColumnRef:
			if e.IsWildcard() {
				return nil, sqlerr.InvalidProjection("*").
					WithSuggestion("list the GROUP BY columns explicitly instead of *")
			}
			name, ok := rel.ResolveColumn(e.Column)
			if !ok {
				return nil, sqlerr.ColumnNotFound(e.Column, rel.ColumnNames())
			}
			if !containsFold(groupCols, name) {
				return nil, sqlerr.InvalidProjection(e.Column)
			}
		case *WindowExpr:
			return nil, sqlerr.Unsupported("window functions combined with GROUP BY")
		}
	}

	index := make(map[string]int)
	var groups []*group
	for _, row := range rel.Rows {
		key := groupKey(row, groupCols)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			kv := make(map[string]interface{}, len(groupCols))
			for _, col := range groupCols {
				kv[col] = row[col]
			}
			groups = append(groups, &group{keyValues: kv})
		}
		groups[i].rows = append(groups[i].rows, row)
	}

	out := &table.Relation{}
	for _, item := range q.SelectList {
		out.Columns = append(out.Columns, table.Column{Name: aggregateItemName(item, rel)})
	}
	for _, g := range groups {
		row := make(map[string]interface{}, len(q.SelectList))
		for i, item := range q.SelectList {
			name := out.Columns[i].Name
			switch e := item.Expr.(type) {
			case *ColumnRef:
				resolved, _ := rel.ResolveColumn(e.Column)
				row[name] = g.keyValues[resolved]
			case *LiteralExpr:
				row[name] = e.Value
			case *AggregateExpr:
				v, err := computeAggregate(e, g.rows, rel)
				if err != nil {
					return nil, err
				}
				row[name] = v
			}
		}
		out.Rows = append(out.Rows, row)
	}
	out.InferTypes()
	return out, nil
}

// applyGlobalAggregates handles aggregate calls without GROUP BY: a single
// output row with one value per aggregate. Plain projected columns carry
// no meaning here and are dropped from the output.
func applyGlobalAggregates(rel *table.Relation, q *Query) (*table.Relation, error) {
	out := &table.Relation{}
	row := make(map[string]interface{})
	for _, item := range q.SelectList {
		switch e := item.Expr.(type) {
		case *AggregateExpr:
			name := aggregateItemName(item, rel)
			v, err := computeAggregate(e, rel.Rows, rel)
			if err != nil {
				return nil, err
			}
			out.Columns = append(out.Columns, table.Column{Name: name})
			row[name] = v
		case *LiteralExpr:
			name := aggregateItemName(item, rel)
			out.Columns = append(out.Columns, table.Column{Name: name})
			row[name] = e.Value
		case *WindowExpr:
			return nil, sqlerr.Unsupported("window functions mixed with aggregates")
		}
	}
	out.Rows = append(out.Rows, row)
	out.InferTypes()
	return out, nil
}

// computeAggregate evaluates one aggregate call over a set of rows.
func computeAggregate(agg *AggregateExpr, rows []map[string]interface{}, rel *table.Relation) (interface{}, error) {
	if agg.Star {
		return int64(len(rows)), nil
	}
	col, ok := rel.ResolveColumn(agg.Column)
	if !ok {
		return nil, sqlerr.ColumnNotFound(agg.Column, rel.ColumnNames())
	}

	var values []interface{}
	seen := make(map[string]bool)
	for _, row := range rows {
		v := row[col]
		if v == nil {
			continue
		}
		if agg.Distinct {
			key := rowKey(row, []table.Column{{Name: col}})
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		values = append(values, v)
	}

	switch agg.Func {
	case "COUNT":
		return int64(len(values)), nil
	case "MIN", "MAX":
		if len(values) == 0 {
			return nil, nil
		}
		best := values[0]
		for _, v := range values[1:] {
			cmp, err := compareValues(v, best)
			if err != nil {
				return nil, err
			}
			if (agg.Func == "MIN" && cmp < 0) || (agg.Func == "MAX" && cmp > 0) {
				best = v
			}
		}
		return best, nil
	}

	nums, err := aggregateNumbers(agg, values)
	if err != nil {
		return nil, err
	}
	switch agg.Func {
	case "SUM":
		if len(nums) == 0 {
			return nil, nil
		}
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum, nil
	case "AVG":
		if len(nums) == 0 {
			return nil, nil
		}
		sum := 0.0
		for _, n := range nums {
			sum += n
		}
		return sum / float64(len(nums)), nil
	case "VARIANCE":
		return sampleVariance(nums), nil
	case "STDDEV":
		v := sampleVariance(nums)
		if v == nil {
			return nil, nil
		}
		return math.Sqrt(v.(float64)), nil
	}
	return nil, sqlerr.Unsupported("aggregate function " + agg.Func)
}

func aggregateNumbers(agg *AggregateExpr, values []interface{}) ([]float64, error) {
	nums := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := toFloat64(v)
		if !ok {
			return nil, sqlerr.TypeMismatch(v, 0.0).
				WithSuggestion(agg.String() + " needs a numeric column")
		}
		nums = append(nums, f)
	}
	return nums, nil
}

// sampleVariance returns the n-1 variance, or nil for fewer than two
// values.
func sampleVariance(nums []float64) interface{} {
	if len(nums) < 2 {
		return nil
	}
	mean := 0.0
	for _, n := range nums {
		mean += n
	}
	mean /= float64(len(nums))
	ss := 0.0
	for _, n := range nums {
		d := n - mean
		ss += d * d
	}
	return ss / float64(len(nums)-1)
}

// aggregateItemName picks the output column name for an aggregated
// projection item: the alias when given, the lowercased function name for
// aggregates, the resolved column name otherwise.
func aggregateItemName(item SelectItem, rel *table.Relation) string {
	if item.Alias != "" {
		return item.Alias
	}
	switch e := item.Expr.(type) {
	case *AggregateExpr:
		return strings.ToLower(e.Func)
	case *ColumnRef:
		if name, ok := rel.ResolveColumn(e.Column); ok {
			return name
		}
		return e.Column
	case *LiteralExpr:
		return toString(e.Value)
	case *WindowExpr:
		return strings.ToLower(e.Func)
	}
	return ""
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
