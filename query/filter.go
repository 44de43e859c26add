package query

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vegasq/sheetql/sqlerr"
	"github.com/vegasq/sheetql/table"
)

// floatEqualityEpsilon scales with the compared magnitudes so that large
// floats still compare equal after round-tripping through text.
const floatEqualityEpsilon = 1e-9

// applyWhere evaluates the predicate row-wise and returns a relation with
// the surviving rows. Connectors are honored left to right without
// precedence.
func applyWhere(rel *table.Relation, pred *Predicate) (*table.Relation, error) {
	if pred == nil || len(pred.Conds) == 0 {
		return rel, nil
	}
	cols := make([]string, len(pred.Conds))
	for i, cond := range pred.Conds {
		name, ok := rel.ResolveColumn(cond.Left.Column)
		if !ok {
			return nil, sqlerr.ColumnNotFound(cond.Left.Column, rel.ColumnNames())
		}
		cols[i] = name
	}

	out := &table.Relation{Columns: rel.Columns}
	for _, row := range rel.Rows {
		keep, err := evalPredicateRow(row, pred, cols)
		if err != nil {
			return nil, err
		}
		if keep {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func evalPredicateRow(row map[string]interface{}, pred *Predicate, cols []string) (bool, error) {
	result, err := evalCondition(row[cols[0]], pred.Conds[0])
	if err != nil {
		return false, err
	}
	for i := 1; i < len(pred.Conds); i++ {
		next, err := evalCondition(row[cols[i]], pred.Conds[i])
		if err != nil {
			return false, err
		}
		if pred.Ops[i-1] == ConnectorAnd {
			result = result && next
		} else {
			result = result || next
		}
	}
	return result, nil
}

// evalCondition applies one comparison to a single cell value. Null cells
// fail every comparison except IS NULL.
func evalCondition(value interface{}, cond Condition) (bool, error) {
	switch cond.Op {
	case OpIs:
		return value == nil, nil
	case OpIsNot:
		return value != nil, nil
	}
	if value == nil {
		return false, nil
	}

	switch cond.Op {
	case OpLike, OpNotLike:
		pattern, ok := cond.Right.(string)
		if !ok {
			return false, sqlerr.TypeMismatch(value, cond.Right).
				WithSuggestion("LIKE patterns must be quoted text")
		}
		matched := likeMatch(toString(value), pattern)
		if cond.Op == OpNotLike {
			matched = !matched
		}
		return matched, nil
	case OpIn, OpNotIn:
		values, ok := cond.Right.([]interface{})
		if !ok {
			return false, sqlerr.Syntaxf(cond.String(), "malformed IN list")
		}
		found := false
		for _, candidate := range values {
			cmp, err := compareValues(value, candidate)
			if err != nil {
				return false, err
			}
			if cmp == 0 {
				found = true
				break
			}
		}
		if cond.Op == OpNotIn {
			found = !found
		}
		return found, nil
	case OpBetween, OpNotBetween:
		bounds, ok := cond.Right.([2]interface{})
		if !ok {
			return false, sqlerr.Syntaxf(cond.String(), "malformed BETWEEN bounds")
		}
		low, err := compareValues(value, bounds[0])
		if err != nil {
			return false, err
		}
		high, err := compareValues(value, bounds[1])
		if err != nil {
			return false, err
		}
		inside := low >= 0 && high <= 0
		if cond.Op == OpNotBetween {
			inside = !inside
		}
		return inside, nil
	}

	cmp, err := compareValues(value, cond.Right)
	if err != nil {
		return false, err
	}
	switch cond.Op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGe:
		return cmp >= 0, nil
	}
	return false, sqlerr.Unsupported("operator " + cond.Op.String())
}

// compareValues orders two cell values: -1, 0 or 1. Numbers compare
// numerically with a magnitude-scaled epsilon, text compares as text,
// booleans as false < true. Mixing text with numbers is a type error.
func compareValues(a, b interface{}) (int, error) {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0, nil
		}
		if a == nil {
			return -1, nil
		}
		return 1, nil
	}

	if at, aok := a.(time.Time); aok {
		if bt, bok := b.(time.Time); bok {
			switch {
			case at.Before(bt):
				return -1, nil
			case at.After(bt):
				return 1, nil
			}
			return 0, nil
		}
	}

	af, aNum := toFloat64(a)
	bf, bNum := toFloat64(b)
	if aNum && bNum {
		eps := floatEqualityEpsilon * math.Max(1, math.Max(math.Abs(af), math.Abs(bf)))
		switch {
		case math.Abs(af-bf) <= eps:
			return 0, nil
		case af < bf:
			return -1, nil
		}
		return 1, nil
	}
	if aNum != bNum {
		return 0, sqlerr.TypeMismatch(a, b)
	}

	as, bs := toString(a), toString(b)
	return strings.Compare(as, bs), nil
}

// toFloat64 coerces numeric values, numeric text and booleans to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// likeMatch implements SQL LIKE: '%' matches any run, '_' matches exactly
// one character. Matching is case-insensitive, following common
// spreadsheet expectations.
func likeMatch(s, pattern string) bool {
	return likeMatchFold(strings.ToLower(s), strings.ToLower(pattern))
}

func likeMatchFold(s, pattern string) bool {
	sr := []rune(s)
	pr := []rune(pattern)
	return likeRunes(sr, pr)
}

func likeRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		// Collapse adjacent wildcards, then try every split point.
		for len(p) > 0 && p[0] == '%' {
			p = p[1:]
		}
		if len(p) == 0 {
			return true
		}
		for i := 0; i <= len(s); i++ {
			if likeRunes(s[i:], p) {
				return true
			}
		}
		return false
	case '_':
		return len(s) > 0 && likeRunes(s[1:], p[1:])
	default:
		return len(s) > 0 && s[0] == p[0] && likeRunes(s[1:], p[1:])
	}
}

// applyLimit truncates the relation to its first n rows in current order.
func applyLimit(rel *table.Relation, limit *int64) *table.Relation {
	if limit == nil || int64(len(rel.Rows)) <= *limit {
		return rel
	}
	return &table.Relation{Columns: rel.Columns, Rows: rel.Rows[:*limit]}
}

// applyOrderBy sorts the relation by the given keys. The sort is stable so
// equal keys keep their prior relative order.
func applyOrderBy(rel *table.Relation, items []OrderByItem) (*table.Relation, error) {
	if len(items) == 0 {
		return rel, nil
	}
	keys := make([]string, len(items))
	for i, item := range items {
		name, ok := rel.ResolveColumn(item.Column)
		if !ok {
			return nil, sqlerr.ColumnNotFound(item.Column, rel.ColumnNames())
		}
		keys[i] = name
	}

	out := &table.Relation{Columns: rel.Columns, Rows: make([]map[string]interface{}, len(rel.Rows))}
	copy(out.Rows, rel.Rows)

	var sortErr error
	sort.SliceStable(out.Rows, func(i, j int) bool {
		for k, key := range keys {
			cmp, err := compareValues(out.Rows[i][key], out.Rows[j][key])
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
	return out, nil
}

// applyDistinct removes duplicate rows, keeping first occurrences in order.
func applyDistinct(rel *table.Relation) *table.Relation {
	out := &table.Relation{Columns: rel.Columns}
	seen := make(map[string]bool, len(rel.Rows))
	for _, row := range rel.Rows {
		key := rowKey(row, rel.Columns)
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Rows = append(out.Rows, row)
	}
	return out
}

// rowKey builds a hashable identity for a row over the given columns.
func rowKey(row map[string]interface{}, cols []table.Column) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%#v", row[col.Name])
	}
	return strings.Join(parts, "\x00||\x00")
}

// groupKey builds a hashable identity for the given key columns.
func groupKey(row map[string]interface{}, cols []string) string {
	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%#v", row[col])
	}
	return strings.Join(parts, "\x00||\x00")
}
