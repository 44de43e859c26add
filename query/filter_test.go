package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vegasq/sheetql/sqlerr"
	"github.com/vegasq/sheetql/table"
)

func employeesRelation() *table.Relation {
	rel := table.New("id", "name", "dept", "salary")
	rel.AppendRow(map[string]interface{}{"id": int64(1), "name": "A", "dept": "X", "salary": int64(100)})
	rel.AppendRow(map[string]interface{}{"id": int64(2), "name": "B", "dept": "Y", "salary": int64(200)})
	rel.AppendRow(map[string]interface{}{"id": int64(3), "name": "C", "dept": "X", "salary": int64(300)})
	rel.InferTypes()
	return rel
}

func mustParse(t *testing.T, stmt string) *Query {
	t.Helper()
	q, err := Parse(stmt)
	if err != nil {
		t.Fatalf("Parse(%q): %v", stmt, err)
	}
	return q
}

func TestApplyWhereBasic(t *testing.T) {
	q := mustParse(t, "SELECT * FROM t WHERE salary > 150")
	got, err := applyWhere(employeesRelation(), q.Where)
	if err != nil {
		t.Fatalf("applyWhere: %v", err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(got.Rows))
	}
	if got.Rows[0]["name"] != "B" || got.Rows[1]["name"] != "C" {
		t.Errorf("rows = %v", got.Rows)
	}
}

func TestApplyWhereIdempotent(t *testing.T) {
	q := mustParse(t, "SELECT * FROM t WHERE salary > 150 AND dept = 'X'")
	once, err := applyWhere(employeesRelation(), q.Where)
	if err != nil {
		t.Fatalf("applyWhere: %v", err)
	}
	twice, err := applyWhere(once, q.Where)
	if err != nil {
		t.Fatalf("applyWhere twice: %v", err)
	}
	if !reflect.DeepEqual(once.Rows, twice.Rows) {
		t.Errorf("filtering is not idempotent: %v vs %v", once.Rows, twice.Rows)
	}
}

func TestApplyWhereConnectors(t *testing.T) {
	tests := []struct {
		stmt string
		want []string
	}{
		{"SELECT * FROM t WHERE dept = 'X' AND salary > 150", []string{"C"}},
		{"SELECT * FROM t WHERE dept = 'Y' OR salary > 250", []string{"B", "C"}},
		{"SELECT * FROM t WHERE salary >= 100 AND salary <= 200", []string{"A", "B"}},
	}
	for _, tt := range tests {
		t.Run(tt.stmt, func(t *testing.T) {
			q := mustParse(t, tt.stmt)
			got, err := applyWhere(employeesRelation(), q.Where)
			if err != nil {
				t.Fatalf("applyWhere: %v", err)
			}
			var names []string
			for _, row := range got.Rows {
				names = append(names, row["name"].(string))
			}
			if !reflect.DeepEqual(names, tt.want) {
				t.Errorf("got %v, want %v", names, tt.want)
			}
		})
	}
}

func TestApplyWhereUnknownColumn(t *testing.T) {
	q := mustParse(t, "SELECT * FROM t WHERE wages > 100")
	_, err := applyWhere(employeesRelation(), q.Where)
	if !errors.Is(err, sqlerr.ErrColumnNotFound) {
		t.Fatalf("err = %v, want column not found", err)
	}
}

func TestApplyWhereCaseInsensitiveColumn(t *testing.T) {
	q := mustParse(t, "SELECT * FROM t WHERE SALARY > 250")
	got, err := applyWhere(employeesRelation(), q.Where)
	if err != nil {
		t.Fatalf("applyWhere: %v", err)
	}
	if len(got.Rows) != 1 {
		t.Errorf("got %d rows, want 1", len(got.Rows))
	}
}

func TestEvalConditionOperators(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		cond  string
		want  bool
	}{
		{"like prefix", "Carol", "name LIKE 'car%'", true},
		{"like miss", "Bob", "name LIKE 'car%'", false},
		{"like underscore", "Bob", "name LIKE 'B_b'", true},
		{"not like", "Bob", "name NOT LIKE 'car%'", true},
		{"in hit", "X", "dept IN ('X', 'Y')", true},
		{"in miss", "Z", "dept IN ('X', 'Y')", false},
		{"not in", "Z", "dept NOT IN ('X', 'Y')", true},
		{"between inside", int64(150), "salary BETWEEN 100 AND 200", true},
		{"between edge", int64(200), "salary BETWEEN 100 AND 200", true},
		{"between outside", int64(300), "salary BETWEEN 100 AND 200", false},
		{"not between", int64(300), "salary NOT BETWEEN 100 AND 200", true},
		{"is null", nil, "dept IS NULL", true},
		{"is not null", "X", "dept IS NOT NULL", true},
		{"null fails comparison", nil, "salary > 0", false},
		{"numeric text", "250", "salary > 200", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond, err := parseCondition(tt.cond)
			if err != nil {
				t.Fatalf("parseCondition(%q): %v", tt.cond, err)
			}
			got, err := evalCondition(tt.value, cond)
			if err != nil {
				t.Fatalf("evalCondition: %v", err)
			}
			if got != tt.want {
				t.Errorf("evalCondition(%v, %q) = %v, want %v", tt.value, tt.cond, got, tt.want)
			}
		})
	}
}

func TestCompareValuesTypeMismatch(t *testing.T) {
	_, err := compareValues("abc", int64(5))
	if !errors.Is(err, sqlerr.ErrTypeMismatch) {
		t.Fatalf("err = %v, want type mismatch", err)
	}
}

func TestCompareValuesEpsilon(t *testing.T) {
	cmp, err := compareValues(0.1+0.2, 0.3)
	if err != nil {
		t.Fatalf("compareValues: %v", err)
	}
	if cmp != 0 {
		t.Errorf("0.1+0.2 vs 0.3 = %d, want 0", cmp)
	}
}

func TestApplyOrderByReversal(t *testing.T) {
	rel := employeesRelation()
	asc, err := applyOrderBy(rel, []OrderByItem{{Column: "salary"}})
	if err != nil {
		t.Fatalf("applyOrderBy asc: %v", err)
	}
	desc, err := applyOrderBy(asc, []OrderByItem{{Column: "salary", Desc: true}})
	if err != nil {
		t.Fatalf("applyOrderBy desc: %v", err)
	}
	for i := range asc.Rows {
		if !reflect.DeepEqual(asc.Rows[i], desc.Rows[len(desc.Rows)-1-i]) {
			t.Fatalf("desc is not the reverse of asc at %d", i)
		}
	}
}

func TestApplyOrderByStable(t *testing.T) {
	rel := table.New("grp", "seq")
	for i := 0; i < 5; i++ {
		rel.AppendRow(map[string]interface{}{"grp": "same", "seq": int64(i)})
	}
	got, err := applyOrderBy(rel, []OrderByItem{{Column: "grp"}})
	if err != nil {
		t.Fatalf("applyOrderBy: %v", err)
	}
	for i, row := range got.Rows {
		if row["seq"] != int64(i) {
			t.Fatalf("row %d seq = %v, stable order broken", i, row["seq"])
		}
	}
}

func TestApplyLimit(t *testing.T) {
	rel := employeesRelation()
	two := int64(2)
	got := applyLimit(rel, &two)
	if len(got.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(got.Rows))
	}
	if got.Rows[0]["id"] != int64(1) || got.Rows[1]["id"] != int64(2) {
		t.Errorf("limit picked wrong rows: %v", got.Rows)
	}
	ten := int64(10)
	if got := applyLimit(rel, &ten); len(got.Rows) != 3 {
		t.Errorf("oversized limit changed row count: %d", len(got.Rows))
	}
}

func TestApplyDistinct(t *testing.T) {
	rel := table.New("dept")
	for _, d := range []string{"X", "Y", "X", "X", "Y"} {
		rel.AppendRow(map[string]interface{}{"dept": d})
	}
	got := applyDistinct(rel)
	if len(got.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(got.Rows))
	}
	if got.Rows[0]["dept"] != "X" || got.Rows[1]["dept"] != "Y" {
		t.Errorf("rows = %v", got.Rows)
	}
}

func TestLikeMatch(t *testing.T) {
	tests := []struct {
		s, pattern string
		want       bool
	}{
		{"hello", "hello", true},
		{"hello", "h%", true},
		{"hello", "%llo", true},
		{"hello", "h_llo", true},
		{"hello", "h_lo", false},
		{"hello", "%", true},
		{"", "%", true},
		{"", "_", false},
		{"HELLO", "hello", true},
	}
	for _, tt := range tests {
		if got := likeMatch(tt.s, tt.pattern); got != tt.want {
			t.Errorf("likeMatch(%q, %q) = %v, want %v", tt.s, tt.pattern, got, tt.want)
		}
	}
}
