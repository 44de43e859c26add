package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vegasq/sheetql/sqlerr"
)

func TestParseSimpleSelect(t *testing.T) {
	q, err := Parse("SELECT id, name FROM staff.xlsx.people")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Kind != StatementSelect {
		t.Errorf("Kind = %v", q.Kind)
	}
	if len(q.SelectList) != 2 {
		t.Fatalf("got %d select items", len(q.SelectList))
	}
	ref, ok := q.SelectList[0].Expr.(*ColumnRef)
	if !ok || ref.Column != "id" {
		t.Errorf("item 0 = %#v", q.SelectList[0].Expr)
	}
	if len(q.Tables) != 1 {
		t.Fatalf("got %d tables", len(q.Tables))
	}
	if q.Tables[0].Source != "staff.xlsx" || q.Tables[0].Sheet != "people" {
		t.Errorf("table = %+v", q.Tables[0])
	}
}

func TestParseTableRefs(t *testing.T) {
	tests := []struct {
		in   string
		want TableRef
	}{
		{"employees", TableRef{Source: "employees"}},
		{"data.csv", TableRef{Source: "data", Sheet: "csv"}},
		{"staff.xlsx.people", TableRef{Source: "staff.xlsx", Sheet: "people"}},
		{"staff.xlsx.people AS p", TableRef{Source: "staff.xlsx", Sheet: "people", Alias: "p"}},
		{"employees e", TableRef{Source: "employees", Alias: "e"}},
		{`"weird name.xlsx"`, TableRef{Source: "weird name.xlsx"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTableRef(tt.in)
			if err != nil {
				t.Fatalf("parseTableRef(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseSelectItemKinds(t *testing.T) {
	tests := []struct {
		in   string
		want SelectExpression
	}{
		{"salary", &ColumnRef{Column: "salary"}},
		{"e.salary", &ColumnRef{Table: "e", Column: "salary"}},
		{"*", &ColumnRef{Column: "*"}},
		{"42", &LiteralExpr{Value: int64(42)}},
		{"3.5", &LiteralExpr{Value: 3.5}},
		{"'hello'", &LiteralExpr{Value: "hello"}},
		{"COUNT(*)", &AggregateExpr{Func: "COUNT", Star: true}},
		{"sum(salary)", &AggregateExpr{Func: "SUM", Column: "salary"}},
		{"COUNT(DISTINCT dept)", &AggregateExpr{Func: "COUNT", Column: "dept", Distinct: true}},
		{
			"ROW_NUMBER() OVER (PARTITION BY dept ORDER BY salary DESC)",
			&WindowExpr{Func: "ROW_NUMBER", PartitionBy: []string{"dept"}, OrderBy: []OrderByItem{{Column: "salary", Desc: true}}},
		},
		{
			"LAG(salary) OVER (ORDER BY id)",
			&WindowExpr{Func: "LAG", Column: "salary", OrderBy: []OrderByItem{{Column: "id"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSelectExpression(tt.in)
			if err != nil {
				t.Fatalf("parseSelectExpression(%q): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParseSelectItemAlias(t *testing.T) {
	item, err := parseSelectItem("COUNT(*) AS n")
	if err != nil {
		t.Fatalf("parseSelectItem: %v", err)
	}
	if item.Alias != "n" {
		t.Errorf("alias = %q", item.Alias)
	}
	if _, ok := item.Expr.(*AggregateExpr); !ok {
		t.Errorf("expr = %#v", item.Expr)
	}
}

func TestParseConditions(t *testing.T) {
	tests := []struct {
		in   string
		want Condition
	}{
		{"salary > 150", Condition{Left: ColumnRef{Column: "salary"}, Op: OpGt, Right: int64(150)}},
		{"salary >= 1.5", Condition{Left: ColumnRef{Column: "salary"}, Op: OpGe, Right: 1.5}},
		{"name = 'Ann'", Condition{Left: ColumnRef{Column: "name"}, Op: OpEq, Right: "Ann"}},
		{"name != 'Ann'", Condition{Left: ColumnRef{Column: "name"}, Op: OpNe, Right: "Ann"}},
		{"name <> 'Ann'", Condition{Left: ColumnRef{Column: "name"}, Op: OpNe, Right: "Ann"}},
		{"name LIKE 'A%'", Condition{Left: ColumnRef{Column: "name"}, Op: OpLike, Right: "A%"}},
		{"dept IS NULL", Condition{Left: ColumnRef{Column: "dept"}, Op: OpIs, Right: nil}},
		{"dept IS NOT NULL", Condition{Left: ColumnRef{Column: "dept"}, Op: OpIsNot, Right: nil}},
		{"active = TRUE", Condition{Left: ColumnRef{Column: "active"}, Op: OpEq, Right: true}},
		{
			"dept IN ('X', 'Y')",
			Condition{Left: ColumnRef{Column: "dept"}, Op: OpIn, Right: []interface{}{"X", "Y"}},
		},
		{
			"salary BETWEEN 100 AND 200",
			Condition{Left: ColumnRef{Column: "salary"}, Op: OpBetween, Right: [2]interface{}{int64(100), int64(200)}},
		},
		{
			"salary NOT BETWEEN 100 AND 200",
			Condition{Left: ColumnRef{Column: "salary"}, Op: OpNotBetween, Right: [2]interface{}{int64(100), int64(200)}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCondition(tt.in)
			if err != nil {
				t.Fatalf("parseCondition(%q): %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestParsePredicateConnectors(t *testing.T) {
	pred, err := parsePredicate("a = 1 AND b = 2 OR c = 3")
	if err != nil {
		t.Fatalf("parsePredicate: %v", err)
	}
	if len(pred.Conds) != 3 {
		t.Fatalf("got %d conditions", len(pred.Conds))
	}
	if pred.Ops[0] != ConnectorAnd || pred.Ops[1] != ConnectorOr {
		t.Errorf("ops = %v", pred.Ops)
	}
}

func TestParseRownumLimit(t *testing.T) {
	q, err := Parse("SELECT * FROM t WHERE salary > 100 AND ROWNUM <= 10")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.RowLimit == nil || *q.RowLimit != 10 {
		t.Fatalf("RowLimit = %v", q.RowLimit)
	}
	if len(q.Where.Conds) != 1 || q.Where.Conds[0].Left.Column != "salary" {
		t.Errorf("Where = %+v", q.Where)
	}
}

func TestParseRownumStrictLess(t *testing.T) {
	q, err := Parse("SELECT * FROM t WHERE ROWNUM < 5")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.RowLimit == nil || *q.RowLimit != 4 {
		t.Fatalf("RowLimit = %v", q.RowLimit)
	}
	if q.Where != nil {
		t.Errorf("Where = %+v, want nil", q.Where)
	}
}

func TestParseRownumUnsupported(t *testing.T) {
	for _, stmt := range []string{
		"SELECT * FROM t WHERE ROWNUM > 5",
		"SELECT * FROM t WHERE ROWNUM <= 5 OR salary > 100",
	} {
		_, err := Parse(stmt)
		if !errors.Is(err, sqlerr.ErrUnsupported) {
			t.Errorf("Parse(%q) err = %v, want unsupported", stmt, err)
		}
	}
}

func TestParseOrderBy(t *testing.T) {
	q, err := Parse("SELECT * FROM t ORDER BY a, b DESC, c ASC")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []OrderByItem{{Column: "a"}, {Column: "b", Desc: true}, {Column: "c"}}
	if !reflect.DeepEqual(q.OrderBy, want) {
		t.Errorf("OrderBy = %+v", q.OrderBy)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		stmt string
	}{
		{"unknown function", "SELECT FOO(a) FROM t"},
		{"rank without order", "SELECT RANK() OVER (PARTITION BY d) FROM t"},
		{"lag without column", "SELECT LAG() OVER (ORDER BY a) FROM t"},
		{"no operator", "SELECT * FROM t WHERE salary"},
		{"is not null misuse", "SELECT * FROM t WHERE a IS 5"},
		{"empty in list", "SELECT * FROM t WHERE a IN ()"},
		{"sum star", "SELECT SUM(*) FROM t"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.stmt)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.stmt)
			}
			if !errors.Is(err, sqlerr.ErrSyntax) {
				t.Errorf("error kind = %v, want syntax", err)
			}
		})
	}
}

func TestHavingAggregateCallSuggestsOutputColumn(t *testing.T) {
	_, err := Parse("SELECT dept, COUNT(*) AS n FROM t GROUP BY dept HAVING COUNT(*) > 1")
	if err == nil {
		t.Fatal("Parse succeeded, want error")
	}
	if !errors.Is(err, sqlerr.ErrSyntax) {
		t.Errorf("error kind = %v, want syntax", err)
	}
	var se *sqlerr.Error
	if !errors.As(err, &se) || se.Suggestion == "" {
		t.Errorf("error = %v, want a suggestion naming the output column", err)
	}
}

func TestParseCreateTable(t *testing.T) {
	q, err := Parse("CREATE TABLE top AS SELECT * FROM employees WHERE salary > 150")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Kind != StatementCreateTable || q.TempName != "top" {
		t.Errorf("kind=%v name=%q", q.Kind, q.TempName)
	}
}

func TestParseRedirection(t *testing.T) {
	q, err := Parse("SELECT name FROM employees > out.csv")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.OutputPath != "out.csv" {
		t.Errorf("OutputPath = %q", q.OutputPath)
	}
}
