package query

import (
	"strconv"
	"strings"

	"github.com/vegasq/sheetql/sqlerr"
)

// aggregateFuncs are the supported aggregate function names.
var aggregateFuncs = map[string]bool{
	"COUNT":    true,
	"SUM":      true,
	"AVG":      true,
	"MIN":      true,
	"MAX":      true,
	"STDDEV":   true,
	"VARIANCE": true,
}

// windowFuncs maps supported window function names to whether they take a
// column argument.
var windowFuncs = map[string]bool{
	"ROW_NUMBER": false,
	"RANK":       false,
	"DENSE_RANK": false,
	"LAG":        true,
	"LEAD":       true,
}

// conditionOps in match priority order. Longest operators first so that
// ">=" wins over ">" and "IS NOT" over "IS".
var conditionOps = []struct {
	text string
	op   CompareOp
	word bool // alphabetic operator, matched on word boundaries
}{
	{"NOT BETWEEN", OpNotBetween, true},
	{"NOT LIKE", OpNotLike, true},
	{"NOT IN", OpNotIn, true},
	{"IS NOT", OpIsNot, true},
	{"BETWEEN", OpBetween, true},
	{"LIKE", OpLike, true},
	{"IS", OpIs, true},
	{"IN", OpIn, true},
	{">=", OpGe, false},
	{"<=", OpLe, false},
	{"!=", OpNe, false},
	{"<>", OpNe, false},
	{"=", OpEq, false},
	{"<", OpLt, false},
	{">", OpGt, false},
}

// Parse turns one raw statement string into a Query.
func Parse(raw string) (*Query, error) {
	parts, err := splitStatement(raw)
	if err != nil {
		return nil, err
	}

	q := &Query{Kind: StatementSelect, Distinct: parts.distinct, OutputPath: parts.outputPath}
	if parts.createName != "" {
		q.Kind = StatementCreateTable
		q.TempName = parts.createName
	}

	if q.SelectList, err = parseSelectList(parts.selectList); err != nil {
		return nil, err
	}
	if q.Tables, err = parseTableRefs(parts.from); err != nil {
		return nil, err
	}
	if parts.where != "" {
		pred, err := parsePredicate(parts.where)
		if err != nil {
			return nil, err
		}
		if q.Where, q.RowLimit, err = extractRowLimit(pred); err != nil {
			return nil, err
		}
	}
	if parts.groupBy != "" {
		if q.GroupBy, err = parseColumnList(parts.groupBy); err != nil {
			return nil, err
		}
	}
	if parts.having != "" {
		if q.Having, err = parsePredicate(parts.having); err != nil {
			return nil, err
		}
	}
	if parts.orderBy != "" {
		if q.OrderBy, err = parseOrderBy(parts.orderBy); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func parseSelectList(s string) ([]SelectItem, error) {
	var items []SelectItem
	for _, part := range splitTopLevel(s, ',') {
		if part == "" {
			return nil, sqlerr.Syntax(s, "empty projection item")
		}
		item, err := parseSelectItem(part)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseSelectItem(s string) (SelectItem, error) {
	expr := s
	alias := ""
	if pos := findKeyword(s, "AS"); pos >= 0 {
		expr = strings.TrimSpace(s[:pos])
		alias = unquote(strings.TrimSpace(s[pos+len("AS"):]))
		if alias == "" {
			return SelectItem{}, sqlerr.Syntax(s, "missing alias after AS")
		}
	}
	node, err := parseSelectExpression(expr)
	if err != nil {
		return SelectItem{}, err
	}
	return SelectItem{Expr: node, Alias: alias}, nil
}

// parseSelectExpression classifies one projection expression. Priority:
// window call, aggregate call, text literal, numeric literal, column
// reference.
func parseSelectExpression(s string) (SelectExpression, error) {
	if s == "*" {
		return &ColumnRef{Column: "*"}, nil
	}
	if pos := findKeyword(s, "OVER"); pos >= 0 {
		return parseWindowCall(s, pos)
	}
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") {
		return parseAggregateCall(s, open)
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return &LiteralExpr{Value: s[1 : len(s)-1]}, nil
	}
	if v, ok := parseNumber(s); ok {
		return &LiteralExpr{Value: v}, nil
	}
	ref, err := parseColumnRef(s)
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func parseAggregateCall(s string, open int) (*AggregateExpr, error) {
	name := strings.ToUpper(strings.TrimSpace(s[:open]))
	if !aggregateFuncs[name] {
		return nil, sqlerr.Syntaxf(s, "unknown function %q", name)
	}
	arg := strings.TrimSpace(s[open+1 : len(s)-1])
	agg := &AggregateExpr{Func: name}
	if hasKeywordPrefix(arg, "DISTINCT") {
		agg.Distinct = true
		arg = strings.TrimSpace(arg[len("DISTINCT"):])
	}
	switch {
	case arg == "*":
		if name != "COUNT" {
			return nil, sqlerr.Syntaxf(s, "%s(*) is not valid, only COUNT(*)", name)
		}
		agg.Star = true
	case arg == "":
		return nil, sqlerr.Syntaxf(s, "%s requires a column argument", name)
	default:
		ref, err := parseColumnRef(arg)
		if err != nil {
			return nil, err
		}
		agg.Column = ref.Column
	}
	return agg, nil
}

func parseWindowCall(s string, overPos int) (*WindowExpr, error) {
	call := strings.TrimSpace(s[:overPos])
	spec := strings.TrimSpace(s[overPos+len("OVER"):])
	if !strings.HasPrefix(spec, "(") || !strings.HasSuffix(spec, ")") {
		return nil, sqlerr.Syntax(s, "OVER requires a parenthesized window specification")
	}
	spec = strings.TrimSpace(spec[1 : len(spec)-1])

	open := strings.IndexByte(call, '(')
	if open <= 0 || !strings.HasSuffix(call, ")") {
		return nil, sqlerr.Syntaxf(s, "malformed window function call %q", call)
	}
	name := strings.ToUpper(strings.TrimSpace(call[:open]))
	takesArg, ok := windowFuncs[name]
	if !ok {
		return nil, sqlerr.Syntaxf(s, "unknown window function %q", name)
	}
	arg := strings.TrimSpace(call[open+1 : len(call)-1])

	win := &WindowExpr{Func: name}
	if takesArg {
		if arg == "" {
			return nil, sqlerr.Syntaxf(s, "%s requires a column argument", name)
		}
		ref, err := parseColumnRef(arg)
		if err != nil {
			return nil, err
		}
		win.Column = ref.Column
	} else if arg != "" {
		return nil, sqlerr.Syntaxf(s, "%s takes no arguments", name)
	}

	rest := spec
	if pos := findKeyword(rest, "PARTITION BY"); pos >= 0 {
		body := rest[pos+len("PARTITION BY"):]
		end := findKeyword(body, "ORDER BY")
		partCols := body
		if end >= 0 {
			partCols = body[:end]
			rest = body[end:]
		} else {
			rest = ""
		}
		cols, err := parseColumnList(strings.TrimSpace(partCols))
		if err != nil {
			return nil, err
		}
		win.PartitionBy = cols
	}
	if pos := findKeyword(rest, "ORDER BY"); pos >= 0 {
		order, err := parseOrderBy(strings.TrimSpace(rest[pos+len("ORDER BY"):]))
		if err != nil {
			return nil, err
		}
		win.OrderBy = order
	}

	if (name == "RANK" || name == "DENSE_RANK") && len(win.OrderBy) == 0 {
		return nil, sqlerr.Syntaxf(s, "%s requires ORDER BY in its OVER clause", name)
	}
	return win, nil
}

func parseTableRefs(s string) ([]TableRef, error) {
	var refs []TableRef
	for _, part := range splitTopLevel(s, ',') {
		if part == "" {
			return nil, sqlerr.Syntax(s, "empty table reference")
		}
		ref, err := parseTableRef(part)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// parseTableRef parses source[.sheet][ AS alias]. The name splits on the
// last unquoted dot, so "staff.xlsx.people" is source "staff.xlsx" with
// sheet "people". A dotless name is a temporary-relation reference.
func parseTableRef(s string) (TableRef, error) {
	name := s
	alias := ""
	if pos := findKeyword(s, "AS"); pos >= 0 {
		name = strings.TrimSpace(s[:pos])
		alias = unquote(strings.TrimSpace(s[pos+len("AS"):]))
	} else if fields := splitTopLevel(s, ' '); len(fields) == 2 {
		name, alias = fields[0], unquote(fields[1])
	}
	if name == "" {
		return TableRef{}, sqlerr.Syntax(s, "empty table name")
	}

	ref := TableRef{Alias: alias}
	if name[0] == '"' || name[0] == '\'' {
		ref.Source = unquote(name)
		return ref, nil
	}
	if dot := lastUnquotedDot(name); dot >= 0 {
		ref.Source = unquote(name[:dot])
		ref.Sheet = unquote(name[dot+1:])
		if ref.Sheet == "" {
			return TableRef{}, sqlerr.Syntaxf(s, "missing sheet name after dot in %q", name)
		}
	} else {
		ref.Source = name
	}
	return ref, nil
}

// lastUnquotedDot returns the index of the last dot outside quoted
// segments, or -1.
func lastUnquotedDot(s string) int {
	pos := -1
	inQuote := rune(0)
	for i, r := range s {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '.':
			pos = i
		}
	}
	return pos
}

func parsePredicate(s string) (*Predicate, error) {
	tokens := splitConnectors(s)
	pred := &Predicate{}
	for i, tok := range tokens {
		text := stripOuterParens(tok.text)
		if text == "" {
			return nil, sqlerr.Syntax(s, "empty condition")
		}
		cond, err := parseCondition(text)
		if err != nil {
			return nil, err
		}
		pred.Conds = append(pred.Conds, cond)
		if i < len(tokens)-1 {
			pred.Ops = append(pred.Ops, tok.next)
		}
	}
	return pred, nil
}

func parseCondition(s string) (Condition, error) {
	for _, cand := range conditionOps {
		var pos int
		if cand.word {
			pos = findKeyword(s, cand.text)
		} else {
			pos = indexOutsideQuotes(s, cand.text)
		}
		if pos <= 0 {
			continue
		}
		left := strings.TrimSpace(s[:pos])
		right := strings.TrimSpace(s[pos+len(cand.text):])
		if left == "" || right == "" {
			return Condition{}, sqlerr.Syntaxf(s, "incomplete condition around %q", cand.text)
		}
		ref, err := parseColumnRef(left)
		if err != nil {
			return Condition{}, err
		}
		value, err := parseConditionValue(cand.op, right)
		if err != nil {
			return Condition{}, err
		}
		return Condition{Left: *ref, Op: cand.op, Right: value}, nil
	}
	return Condition{}, sqlerr.Syntaxf(s, "no comparison operator found in %q", s).
		WithSuggestion("conditions look like: column <op> value")
}

func parseConditionValue(op CompareOp, s string) (interface{}, error) {
	switch op {
	case OpIn, OpNotIn:
		if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
			return nil, sqlerr.Syntaxf(s, "IN requires a parenthesized value list")
		}
		var values []interface{}
		for _, part := range splitTopLevel(s[1:len(s)-1], ',') {
			if part == "" {
				return nil, sqlerr.Syntax(s, "empty value in IN list")
			}
			values = append(values, coerceLiteral(part))
		}
		if len(values) == 0 {
			return nil, sqlerr.Syntax(s, "empty IN list")
		}
		return values, nil
	case OpBetween, OpNotBetween:
		pos := findKeyword(s, "AND")
		if pos < 0 {
			return nil, sqlerr.Syntax(s, "BETWEEN requires <low> AND <high>")
		}
		low := strings.TrimSpace(s[:pos])
		high := strings.TrimSpace(s[pos+len("AND"):])
		if low == "" || high == "" {
			return nil, sqlerr.Syntax(s, "BETWEEN requires <low> AND <high>")
		}
		return [2]interface{}{coerceLiteral(low), coerceLiteral(high)}, nil
	case OpIs, OpIsNot:
		if !strings.EqualFold(s, "NULL") {
			return nil, sqlerr.Syntaxf(s, "IS comparisons support only NULL, got %q", s)
		}
		return nil, nil
	default:
		return coerceLiteral(s), nil
	}
}

// coerceLiteral turns a raw right-hand token into a typed Go value:
// quoted text, TRUE/FALSE, NULL, int64, float64, or the bare text itself.
func coerceLiteral(s string) interface{} {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') {
		return unquote(s)
	}
	switch {
	case strings.EqualFold(s, "NULL"):
		return nil
	case strings.EqualFold(s, "TRUE"):
		return true
	case strings.EqualFold(s, "FALSE"):
		return false
	}
	if v, ok := parseNumber(s); ok {
		return v
	}
	return s
}

func parseNumber(s string) (interface{}, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	return nil, false
}

// extractRowLimit pulls ROWNUM conditions out of the predicate and turns
// them into a head limit. ROWNUM supports only < and <= against an integer
// and cannot share a predicate with OR connectors.
func extractRowLimit(pred *Predicate) (*Predicate, *int64, error) {
	var limit *int64
	hasRownum := false
	out := &Predicate{}
	for i, cond := range pred.Conds {
		if !strings.EqualFold(cond.Left.Column, "ROWNUM") || cond.Left.Table != "" {
			out.Conds = append(out.Conds, cond)
			if i < len(pred.Ops) {
				out.Ops = append(out.Ops, pred.Ops[i])
			}
			continue
		}
		hasRownum = true
		n, ok := cond.Right.(int64)
		if !ok {
			return nil, nil, sqlerr.Syntaxf(cond.String(), "ROWNUM requires an integer bound")
		}
		var bound int64
		switch cond.Op {
		case OpLe:
			bound = n
		case OpLt:
			bound = n - 1
		default:
			return nil, nil, sqlerr.Unsupported("ROWNUM with operator " + cond.Op.String())
		}
		if bound < 0 {
			bound = 0
		}
		if limit == nil || bound < *limit {
			v := bound
			limit = &v
		}
	}
	if hasRownum {
		for _, op := range pred.Ops {
			if op == ConnectorOr {
				return nil, nil, sqlerr.Unsupported("ROWNUM in a predicate with OR")
			}
		}
	}
	// Fix up trailing connector when the last condition was a ROWNUM.
	if len(out.Ops) >= len(out.Conds) && len(out.Conds) > 0 {
		out.Ops = out.Ops[:len(out.Conds)-1]
	}
	if len(out.Conds) == 0 {
		out = nil
	}
	return out, limit, nil
}

func parseColumnList(s string) ([]string, error) {
	var cols []string
	for _, part := range splitTopLevel(s, ',') {
		if part == "" {
			return nil, sqlerr.Syntax(s, "empty column name")
		}
		ref, err := parseColumnRef(part)
		if err != nil {
			return nil, err
		}
		cols = append(cols, ref.Column)
	}
	return cols, nil
}

func parseOrderBy(s string) ([]OrderByItem, error) {
	var items []OrderByItem
	for _, part := range splitTopLevel(s, ',') {
		if part == "" {
			return nil, sqlerr.Syntax(s, "empty ORDER BY key")
		}
		item := OrderByItem{}
		if endsWithKeyword(part, "DESC") {
			item.Desc = true
			part = strings.TrimSpace(part[:len(part)-len("DESC")])
		} else if endsWithKeyword(part, "ASC") {
			part = strings.TrimSpace(part[:len(part)-len("ASC")])
		}
		ref, err := parseColumnRef(part)
		if err != nil {
			return nil, err
		}
		item.Column = ref.Column
		items = append(items, item)
	}
	return items, nil
}

// parseColumnRef parses a possibly quoted, possibly table-qualified column
// name. Double-quoted identifiers keep their content verbatim, dots
// included.
func parseColumnRef(s string) (*ColumnRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, sqlerr.Syntax(s, "empty column reference")
	}
	if s[0] == '"' {
		if len(s) < 2 || s[len(s)-1] != '"' {
			return nil, sqlerr.Syntaxf(s, "unterminated quoted identifier %q", s)
		}
		return &ColumnRef{Column: s[1 : len(s)-1]}, nil
	}
	if strings.ContainsAny(s, "()<>=!' ") {
		err := sqlerr.Syntaxf(s, "invalid column reference %q", s)
		if strings.ContainsRune(s, '(') {
			err = err.WithSuggestion("reference the aggregate's output column by its alias or lowercased function name, e.g. HAVING count > 1")
		}
		return nil, err
	}
	if dot := lastUnquotedDot(s); dot >= 0 {
		return &ColumnRef{Table: s[:dot], Column: s[dot+1:]}, nil
	}
	return &ColumnRef{Column: s}, nil
}

// indexOutsideQuotes returns the first index of sub in s that is not inside
// a quoted string, or -1.
func indexOutsideQuotes(s, sub string) int {
	inQuote := rune(0)
	for i := 0; i+len(sub) <= len(s); i++ {
		r := rune(s[i])
		if inQuote != 0 {
			if r == inQuote {
				inQuote = 0
			}
			continue
		}
		if r == '\'' || r == '"' {
			inQuote = r
			continue
		}
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

// stripOuterParens removes one or more balanced outer parenthesis pairs.
func stripOuterParens(s string) string {
	s = strings.TrimSpace(s)
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		depth := 0
		balanced := true
		for i, r := range s {
			if r == '(' {
				depth++
			} else if r == ')' {
				depth--
				if depth == 0 && i != len(s)-1 {
					balanced = false
					break
				}
			}
		}
		if !balanced {
			break
		}
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
