// Package query implements the sheetql statement front-end and execution
// engine: clause splitting, expression parsing into an AST, and evaluation
// of the AST against relations supplied by a RelationProvider.
//
// The statement syntax is Oracle-flavoured SQL over file.sheet table
// references:
//
//	SELECT [DISTINCT] <proj-list> FROM <table-ref>[, ...]
//	    [WHERE <predicate>] [GROUP BY <cols>] [HAVING <predicate>]
//	    [ORDER BY <cols [ASC|DESC]>] [> <output-path>]
//	CREATE TABLE <name> AS <select-statement>
//
// Example usage:
//
//	q, err := query.Parse("select dept, count(*) as n from staff.xlsx.people group by dept")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rel, err := exec.Execute(q)
package query

import (
	"fmt"
	"strings"
)

// StatementKind distinguishes plain SELECT statements from
// CREATE TABLE ... AS statements.
type StatementKind int

const (
	// StatementSelect is a plain SELECT query.
	StatementSelect StatementKind = iota
	// StatementCreateTable materializes the SELECT result as a named
	// temporary relation.
	StatementCreateTable
)

// Query is the parsed representation of one statement. It is produced by
// Parse and consumed by the Executor.
type Query struct {
	Kind     StatementKind
	TempName string // CREATE TABLE target name

	SelectList []SelectItem
	Distinct   bool
	Tables     []TableRef
	Where      *Predicate
	GroupBy    []string
	Having     *Predicate
	OrderBy    []OrderByItem

	// RowLimit holds the row-count limit extracted from ROWNUM conditions
	// in the WHERE clause. It truncates the relation in its pre-sort order.
	RowLimit *int64

	// OutputPath is the redirection target parsed from a trailing
	// "> path"; empty means interactive display.
	OutputPath string
}

// TableRef identifies a source relation. Source is a file name (extension
// optional) and Sheet the sheet within it. An empty Sheet denotes a lookup
// of a temporary relation named Source.
type TableRef struct {
	Source string
	Sheet  string
	Alias  string
}

// String reconstructs the reference for error messages.
func (t TableRef) String() string {
	name := t.Source
	if t.Sheet != "" {
		name += "." + t.Sheet
	}
	if t.Alias != "" {
		name += " AS " + t.Alias
	}
	return name
}

// SelectItem is one projection entry: an expression plus its optional
// output alias.
type SelectItem struct {
	Expr  SelectExpression
	Alias string
}

// SelectExpression is the closed set of expressions allowed in a SELECT
// list: ColumnRef, LiteralExpr, AggregateExpr and WindowExpr. The executor
// switches exhaustively over these variants.
type SelectExpression interface {
	selectExpression()
}

// ColumnRef references a column, optionally qualified by a table alias.
// Column "*" is the wildcard.
type ColumnRef struct {
	Table  string
	Column string
}

func (*ColumnRef) selectExpression() {}

// String returns the reference in table.column form.
func (c *ColumnRef) String() string {
	if c.Table != "" {
		return c.Table + "." + c.Column
	}
	return c.Column
}

// IsWildcard reports whether the reference is the * projection.
func (c *ColumnRef) IsWildcard() bool { return c.Column == "*" }

// LiteralExpr is a typed constant projected independently of any column.
type LiteralExpr struct {
	Value interface{}
}

func (*LiteralExpr) selectExpression() {}

// AggregateExpr is an aggregate function call.
type AggregateExpr struct {
	Func     string // COUNT, SUM, AVG, MIN, MAX, STDDEV, VARIANCE
	Column   string // target column; empty when Star is set
	Star     bool   // COUNT(*)
	Distinct bool
}

func (*AggregateExpr) selectExpression() {}

// String reconstructs the call for error messages and default naming.
func (a *AggregateExpr) String() string {
	arg := a.Column
	if a.Star {
		arg = "*"
	}
	if a.Distinct {
		arg = "DISTINCT " + arg
	}
	return fmt.Sprintf("%s(%s)", a.Func, arg)
}

// WindowExpr is a window function call with its OVER specification.
type WindowExpr struct {
	Func        string // ROW_NUMBER, RANK, DENSE_RANK, LAG, LEAD
	Column      string // target column, required for LAG/LEAD
	PartitionBy []string
	OrderBy     []OrderByItem
}

func (*WindowExpr) selectExpression() {}

// OrderByItem is one sort key with its direction.
type OrderByItem struct {
	Column string
	Desc   bool
}

// Connector joins two adjacent conditions in a predicate.
type Connector int

const (
	ConnectorAnd Connector = iota
	ConnectorOr
)

// String returns the SQL keyword for the connector.
func (c Connector) String() string {
	if c == ConnectorOr {
		return "OR"
	}
	return "AND"
}

// CompareOp is a condition operator.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpLike
	OpNotLike
	OpIn
	OpNotIn
	OpIs
	OpIsNot
	OpBetween
	OpNotBetween
)

// String returns the SQL spelling of the operator.
func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpGt:
		return ">"
	case OpLe:
		return "<="
	case OpGe:
		return ">="
	case OpLike:
		return "LIKE"
	case OpNotLike:
		return "NOT LIKE"
	case OpIn:
		return "IN"
	case OpNotIn:
		return "NOT IN"
	case OpIs:
		return "IS"
	case OpIsNot:
		return "IS NOT"
	case OpBetween:
		return "BETWEEN"
	case OpNotBetween:
		return "NOT BETWEEN"
	default:
		return "?"
	}
}

// Condition is one (operand, operator, operand) comparison. Left is always
// a column reference; Right is a coerced literal (int64, float64, string,
// bool or nil), a []interface{} for IN, or a [2]interface{} for BETWEEN.
type Condition struct {
	Left  ColumnRef
	Op    CompareOp
	Right interface{}
}

// String reconstructs the condition for error messages.
func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Left.String(), c.Op, c.Right)
}

// Predicate is a flat sequence of conditions joined by connectors. It is
// evaluated left to right without operator precedence: parentheses are
// respected while splitting but do not group evaluation.
type Predicate struct {
	Conds []Condition
	Ops   []Connector // len(Ops) == len(Conds)-1
}

// String reconstructs the predicate for error messages.
func (p *Predicate) String() string {
	if p == nil || len(p.Conds) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Conds[0].String())
	for i := 1; i < len(p.Conds); i++ {
		b.WriteString(" ")
		b.WriteString(p.Ops[i-1].String())
		b.WriteString(" ")
		b.WriteString(p.Conds[i].String())
	}
	return b.String()
}

// IsWildcardSelect reports whether the projection is a bare SELECT *.
func (q *Query) IsWildcardSelect() bool {
	if len(q.SelectList) != 1 {
		return false
	}
	ref, ok := q.SelectList[0].Expr.(*ColumnRef)
	return ok && ref.IsWildcard() && q.SelectList[0].Alias == ""
}

// HasAggregates reports whether the projection contains aggregate calls.
func (q *Query) HasAggregates() bool {
	for _, item := range q.SelectList {
		if _, ok := item.Expr.(*AggregateExpr); ok {
			return true
		}
	}
	return false
}

// HasWindows reports whether the projection contains window calls.
func (q *Query) HasWindows() bool {
	for _, item := range q.SelectList {
		if _, ok := item.Expr.(*WindowExpr); ok {
			return true
		}
	}
	return false
}
