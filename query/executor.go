package query

import (
	"github.com/vegasq/sheetql/logging"
	"github.com/vegasq/sheetql/output"
	"github.com/vegasq/sheetql/sqlerr"
	"github.com/vegasq/sheetql/table"
)

// RelationProvider supplies named base relations. Implementations load
// spreadsheet sheets, CSV or parquet files; the executor only requires
// that column names, order and types stay stable for the duration of one
// query.
type RelationProvider interface {
	// Relation returns the relation identified by (source, sheet). Sheet
	// may be empty when the source itself names a single relation.
	Relation(source, sheet string) (*table.Relation, error)
	// ListRelations returns the relation names available in source.
	ListRelations(source string) ([]string, error)
}

// Executor evaluates parsed queries against a RelationProvider and a
// TempStore. One Execute call is fully synchronous; no work survives it.
type Executor struct {
	provider RelationProvider
	temp     *TempStore
	log      *logging.Logger
}

// NewExecutor wires an executor to its relation sources.
func NewExecutor(provider RelationProvider, temp *TempStore) *Executor {
	if temp == nil {
		temp = NewTempStore()
	}
	return &Executor{provider: provider, temp: temp, log: logging.New("executor")}
}

// Temp exposes the executor's store for shell commands (SHOW TABLES,
// DROP TABLE).
func (e *Executor) Temp() *TempStore { return e.temp }

// Execute runs the fixed evaluation pipeline: resolve source, WHERE,
// grouping or aggregates or windows or plain projection, DISTINCT,
// ORDER BY, CREATE TABLE materialization, output redirection.
func (e *Executor) Execute(q *Query) (*table.Relation, error) {
	if len(q.Tables) == 0 {
		return nil, sqlerr.Syntax("", "missing table reference")
	}
	if len(q.Tables) > 1 {
		return nil, sqlerr.Unsupported("multi-table FROM (joins)").
			WithSuggestion("materialize intermediate results with CREATE TABLE ... AS")
	}

	rel, err := e.resolveSource(q.Tables[0])
	if err != nil {
		return nil, err
	}
	e.log.Debugf("resolved %s: %d rows, %d columns", q.Tables[0], len(rel.Rows), len(rel.Columns))

	if rel, err = applyWhere(rel, q.Where); err != nil {
		return nil, err
	}
	rel = applyLimit(rel, q.RowLimit)

	switch {
	case len(q.GroupBy) > 0:
		if rel, err = applyGroupBy(rel, q); err != nil {
			return nil, err
		}
		if rel, err = applyWhere(rel, q.Having); err != nil {
			return nil, err
		}
	case q.HasAggregates():
		if rel, err = applyGlobalAggregates(rel, q); err != nil {
			return nil, err
		}
	case q.HasWindows():
		if rel, err = applyWindows(rel, q); err != nil {
			return nil, err
		}
	default:
		if rel, err = applyProjection(rel, q); err != nil {
			return nil, err
		}
	}

	if q.Distinct {
		rel = applyDistinct(rel)
	}
	if rel, err = applyOrderBy(rel, q.OrderBy); err != nil {
		return nil, err
	}

	if q.Kind == StatementCreateTable {
		e.temp.Put(q.TempName, rel)
		e.log.Infof("materialized temporary table %q: %d rows", q.TempName, len(rel.Rows))
	}
	if q.OutputPath != "" {
		if err := output.WriteCSVFile(q.OutputPath, rel); err != nil {
			return nil, err
		}
		e.log.Infof("wrote %d rows to %s", len(rel.Rows), q.OutputPath)
	}
	return rel, nil
}

// resolveSource fetches the base relation: temporary store first for bare
// names, then the provider.
func (e *Executor) resolveSource(ref TableRef) (*table.Relation, error) {
	if ref.Sheet == "" {
		if rel, ok := e.temp.Get(ref.Source); ok {
			return rel, nil
		}
	}
	if e.provider == nil {
		return nil, sqlerr.TempNotFound(ref.Source)
	}
	rel, err := e.provider.Relation(ref.Source, ref.Sheet)
	if err != nil {
		return nil, err
	}
	return rel, nil
}

// applyProjection handles select lists made of plain columns and literals.
// A wildcard expands to all source columns in source order.
func applyProjection(rel *table.Relation, q *Query) (*table.Relation, error) {
	if q.IsWildcardSelect() {
		return rel, nil
	}

	type colSource struct {
		srcCol  string
		literal *LiteralExpr
	}
	out := &table.Relation{}
	var sources []colSource
	for _, item := range q.SelectList {
		switch e := item.Expr.(type) {
		case *ColumnRef:
			if e.IsWildcard() {
				for _, col := range rel.Columns {
					out.Columns = append(out.Columns, col)
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
			srcType := table.TypeNull
			for _, col := range rel.Columns {
				if col.Name == name {
					srcType = col.Type
					break
				}
			}
			out.Columns = append(out.Columns, table.Column{Name: outName, Type: srcType})
			sources = append(sources, colSource{srcCol: name})
		case *LiteralExpr:
			name := aggregateItemName(item, rel)
			out.Columns = append(out.Columns, table.Column{Name: name, Type: table.TypeOf(e.Value)})
			sources = append(sources, colSource{literal: e})
		}
	}

	for _, row := range rel.Rows {
		outRow := make(map[string]interface{}, len(out.Columns))
		for i, src := range sources {
			name := out.Columns[i].Name
			if src.literal != nil {
				outRow[name] = src.literal.Value
			} else {
				outRow[name] = row[src.srcCol]
			}
		}
		out.Rows = append(out.Rows, outRow)
	}
	return out, nil
}
