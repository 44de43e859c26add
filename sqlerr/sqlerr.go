// Package sqlerr provides the structured error taxonomy for sheetql.
//
// Every error produced by the splitter, parser and executor is an *Error
// with a Kind that callers can match on, a message safe to show to an
// interactive user, and an optional suggestion. Parse-time errors are
// raised before any row is touched; execution-time errors abort the whole
// query.
package sqlerr

import (
	"fmt"
	"strings"
)

// Kind identifies the class of a query error.
type Kind int

const (
	// KindSyntax covers malformed clauses, unbalanced parentheses and
	// missing SELECT/FROM keywords.
	KindSyntax Kind = iota
	// KindRelationNotFound covers unknown source.sheet references and
	// unknown temporary relation names.
	KindRelationNotFound
	// KindColumnNotFound covers projection, predicate, group and order
	// references to columns absent from the resolved relation.
	KindColumnNotFound
	// KindInvalidProjection covers non-aggregated columns outside GROUP BY.
	KindInvalidProjection
	// KindUnsupported covers accepted-but-unimplemented features such as
	// multi-table FROM lists.
	KindUnsupported
	// KindTypeMismatch covers comparisons between incompatible value types.
	KindTypeMismatch
)

// String returns the kind name used in rendered messages.
func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindRelationNotFound:
		return "relation not found"
	case KindColumnNotFound:
		return "column not found"
	case KindInvalidProjection:
		return "invalid projection"
	case KindUnsupported:
		return "unsupported feature"
	case KindTypeMismatch:
		return "type mismatch"
	default:
		return "error"
	}
}

// Error is a structured query error.
type Error struct {
	Kind       Kind
	Message    string
	Fragment   string // offending query substring, if known
	Suggestion string // optional hint for the user
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Fragment != "" {
		fmt.Fprintf(&b, " (near %q)", e.Fragment)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by kind, so callers can use errors.Is with the
// sentinel values below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// UserMessage renders the error for interactive display, including the
// suggestion when present.
func (e *Error) UserMessage() string {
	msg := e.Error()
	if e.Suggestion != "" {
		msg += "\nsuggestion: " + e.Suggestion
	}
	return msg
}

// Sentinels for errors.Is matching by kind.
var (
	ErrSyntax            = &Error{Kind: KindSyntax}
	ErrRelationNotFound  = &Error{Kind: KindRelationNotFound}
	ErrColumnNotFound    = &Error{Kind: KindColumnNotFound}
	ErrInvalidProjection = &Error{Kind: KindInvalidProjection}
	ErrUnsupported       = &Error{Kind: KindUnsupported}
	ErrTypeMismatch      = &Error{Kind: KindTypeMismatch}
)

// Syntax creates a syntax error for the given offending fragment.
func Syntax(fragment, message string) *Error {
	return &Error{Kind: KindSyntax, Message: message, Fragment: fragment}
}

// Syntaxf creates a syntax error with a formatted message.
func Syntaxf(fragment, format string, args ...interface{}) *Error {
	return &Error{Kind: KindSyntax, Message: fmt.Sprintf(format, args...), Fragment: fragment}
}

// RelationNotFound creates an error for a missing source.sheet reference.
func RelationNotFound(source, sheet string) *Error {
	name := source
	if sheet != "" {
		name = source + "." + sheet
	}
	return &Error{
		Kind:       KindRelationNotFound,
		Message:    fmt.Sprintf("relation %q does not exist", name),
		Suggestion: "use SHOW DB to list available files and sheets",
	}
}

// TempNotFound creates an error for a missing temporary relation.
func TempNotFound(name string) *Error {
	return &Error{
		Kind:       KindRelationNotFound,
		Message:    fmt.Sprintf("temporary relation %q does not exist", name),
		Suggestion: "use SHOW TABLES to list temporary relations",
	}
}

// ColumnNotFound creates an error for a missing column, listing the columns
// that are available.
func ColumnNotFound(column string, available []string) *Error {
	e := &Error{
		Kind:    KindColumnNotFound,
		Message: fmt.Sprintf("column %q does not exist", column),
	}
	if len(available) > 0 {
		e.Suggestion = "available columns: " + strings.Join(available, ", ")
	}
	return e
}

// InvalidProjection creates an error for a non-aggregated column outside
// GROUP BY.
func InvalidProjection(column string) *Error {
	return &Error{
		Kind:       KindInvalidProjection,
		Message:    fmt.Sprintf("column %q must appear in GROUP BY or inside an aggregate function", column),
		Suggestion: fmt.Sprintf("add %q to GROUP BY or wrap it in an aggregate", column),
	}
}

// Unsupported creates an error for syntactically accepted features without
// executor support.
func Unsupported(feature string) *Error {
	return &Error{Kind: KindUnsupported, Message: feature + " is not supported"}
}

// TypeMismatch creates an error for incomparable operand types.
func TypeMismatch(left, right interface{}) *Error {
	return &Error{
		Kind:    KindTypeMismatch,
		Message: fmt.Sprintf("cannot compare %T with %T", left, right),
	}
}

// WithSuggestion returns the error with a suggestion attached.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithCause returns the error with an underlying cause attached.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}
