// Package table defines the in-memory relation model shared by the query
// engine, the file readers and the output formatters.
//
// A Relation is an ordered list of named, typed columns plus a sequence of
// rows. Rows are maps from column name to value; the column slice carries
// the order. Values are one of int64, float64, string, bool, time.Time or
// nil. Relations are treated as immutable once produced: every pipeline
// stage that changes shape builds a new Relation.
package table

import (
	"strings"
	"time"
)

// Type classifies column values.
type Type int

const (
	TypeNull Type = iota
	TypeInt
	TypeFloat
	TypeText
	TypeBool
	TypeTime
)

// String returns a user-friendly type name.
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeText:
		return "text"
	case TypeBool:
		return "boolean"
	case TypeTime:
		return "timestamp"
	default:
		return "null"
	}
}

// Column describes one named, typed column.
type Column struct {
	Name string
	Type Type
}

// Relation is an in-memory table. Column names are unique within a relation.
type Relation struct {
	Columns []Column
	Rows    []map[string]interface{}
}

// New creates an empty relation with the given column names. Types are
// TypeNull until rows are appended and InferTypes is called.
func New(names ...string) *Relation {
	cols := make([]Column, len(names))
	for i, name := range names {
		cols[i] = Column{Name: name}
	}
	return &Relation{Columns: cols, Rows: make([]map[string]interface{}, 0)}
}

// ColumnNames returns the column names in relation order.
func (r *Relation) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// ResolveColumn finds the actual column name for a reference. Lookup is
// case-sensitive first, then falls back to a case-insensitive match. The
// boolean reports whether any column matched.
func (r *Relation) ResolveColumn(name string) (string, bool) {
	for _, c := range r.Columns {
		if c.Name == name {
			return c.Name, true
		}
	}
	for _, c := range r.Columns {
		if strings.EqualFold(c.Name, name) {
			return c.Name, true
		}
	}
	return "", false
}

// HasColumn reports whether name resolves to a column.
func (r *Relation) HasColumn(name string) bool {
	_, ok := r.ResolveColumn(name)
	return ok
}

// AppendRow adds a row. The map is stored as-is; callers must not mutate it
// afterwards.
func (r *Relation) AppendRow(row map[string]interface{}) {
	r.Rows = append(r.Rows, row)
}

// Clone returns a deep-enough copy: the column slice and each row map are
// copied, values are shared.
func (r *Relation) Clone() *Relation {
	out := &Relation{
		Columns: append([]Column(nil), r.Columns...),
		Rows:    make([]map[string]interface{}, len(r.Rows)),
	}
	for i, row := range r.Rows {
		copied := make(map[string]interface{}, len(row))
		for k, v := range row {
			copied[k] = v
		}
		out.Rows[i] = copied
	}
	return out
}

// InferTypes fills in column types from the first non-null value in each
// column. Columns with only nulls keep TypeNull.
func (r *Relation) InferTypes() {
	for i := range r.Columns {
		if r.Columns[i].Type != TypeNull {
			continue
		}
		for _, row := range r.Rows {
			if v, ok := row[r.Columns[i].Name]; ok && v != nil {
				r.Columns[i].Type = TypeOf(v)
				break
			}
		}
	}
}

// TypeOf maps a value to its relation Type.
func TypeOf(v interface{}) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInt
	case float32, float64:
		return TypeFloat
	case bool:
		return TypeBool
	case time.Time:
		return TypeTime
	default:
		return TypeText
	}
}
