package query

import (
	"strings"
	"unicode"

	"github.com/vegasq/sheetql/sqlerr"
)

// statementParts holds the raw clause substrings produced by splitStatement,
// before any expression parsing.
type statementParts struct {
	createName string // set for CREATE TABLE <name> AS ...
	distinct   bool
	selectList string
	from       string
	where      string
	groupBy    string
	having     string
	orderBy    string
	outputPath string
}

// clauseKeywords in statement order. Clause boundaries are the first
// top-level occurrence of each subsequent keyword.
var clauseKeywords = []string{"FROM", "WHERE", "GROUP BY", "HAVING", "ORDER BY"}

// splitStatement normalizes whitespace and splits the raw statement into
// clause substrings. It handles the CREATE TABLE ... AS wrapper and the
// trailing output redirection.
func splitStatement(raw string) (*statementParts, error) {
	stmt := normalizeSpace(raw)
	stmt = strings.TrimSuffix(stmt, ";")
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return nil, sqlerr.Syntax(raw, "empty statement")
	}

	parts := &statementParts{}

	if hasKeywordPrefix(stmt, "CREATE TABLE") {
		rest := strings.TrimSpace(stmt[len("CREATE TABLE"):])
		asPos := findKeyword(rest, "AS")
		if asPos < 0 {
			return nil, sqlerr.Syntax(stmt, "CREATE TABLE requires AS <select-statement>").
				WithSuggestion("try: CREATE TABLE name AS SELECT ...")
		}
		name := strings.TrimSpace(rest[:asPos])
		if name == "" || strings.ContainsAny(name, " \t") {
			return nil, sqlerr.Syntaxf(rest, "invalid table name %q", name)
		}
		parts.createName = unquote(name)
		stmt = strings.TrimSpace(rest[asPos+len("AS"):])
	}

	if !hasKeywordPrefix(stmt, "SELECT") {
		return nil, sqlerr.Syntax(stmt, "statement must start with SELECT").
			WithSuggestion("supported forms: SELECT ... FROM ... and CREATE TABLE ... AS SELECT ...")
	}
	stmt = strings.TrimSpace(stmt[len("SELECT"):])

	var path string
	var err error
	stmt, path, err = stripRedirection(stmt)
	if err != nil {
		return nil, err
	}
	parts.outputPath = path

	if hasKeywordPrefix(stmt, "DISTINCT") {
		parts.distinct = true
		stmt = strings.TrimSpace(stmt[len("DISTINCT"):])
	}

	// Locate each clause keyword in order; everything between two keywords
	// belongs to the earlier clause.
	type span struct {
		keyword string
		start   int // position of keyword
		body    int // position after keyword
	}
	var spans []span
	search := 0
	for _, kw := range clauseKeywords {
		pos := findKeywordFrom(stmt, kw, search)
		if pos < 0 {
			continue
		}
		spans = append(spans, span{keyword: kw, start: pos, body: pos + len(kw)})
		search = pos + len(kw)
	}

	if len(spans) == 0 || spans[0].keyword != "FROM" {
		return nil, sqlerr.Syntax(stmt, "missing FROM clause").
			WithSuggestion("every SELECT needs FROM <source>[.<sheet>]")
	}

	parts.selectList = strings.TrimSpace(stmt[:spans[0].start])
	if parts.selectList == "" {
		return nil, sqlerr.Syntax(stmt, "empty SELECT list")
	}

	for i, sp := range spans {
		end := len(stmt)
		if i+1 < len(spans) {
			end = spans[i+1].start
		}
		body := strings.TrimSpace(stmt[sp.body:end])
		if body == "" {
			return nil, sqlerr.Syntaxf(stmt, "empty %s clause", sp.keyword)
		}
		switch sp.keyword {
		case "FROM":
			parts.from = body
		case "WHERE":
			parts.where = body
		case "GROUP BY":
			parts.groupBy = body
		case "HAVING":
			parts.having = body
		case "ORDER BY":
			parts.orderBy = body
		}
	}

	if parts.having != "" && parts.groupBy == "" {
		return nil, sqlerr.Syntax(stmt, "HAVING requires GROUP BY")
	}
	return parts, nil
}

// stripRedirection finds a trailing "> path" redirection and removes it.
// The heuristic looks at the last '>' outside quoted strings: it is
// redirection only when the text after it does not start with a digit or
// an operator continuation ('=', '<', '!', '>'), and the text before it
// does not end with WHERE, AND or OR. This keeps "salary > 1000" a
// comparison while "... > out.csv" redirects.
func stripRedirection(stmt string) (string, string, error) {
	pos := -1
	inQuote := rune(0)
	for i, r := range stmt {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '>':
			pos = i
		}
	}
	if pos < 0 {
		return stmt, "", nil
	}
	if pos == len(stmt)-1 {
		return "", "", sqlerr.Syntax(stmt, "redirection target missing after '>'")
	}

	after := strings.TrimSpace(stmt[pos+1:])
	if after == "" {
		return "", "", sqlerr.Syntax(stmt, "redirection target missing after '>'")
	}
	if strings.ContainsRune("=<!>", rune(after[0])) || unicode.IsDigit(rune(after[0])) {
		return stmt, "", nil
	}
	before := strings.TrimSpace(stmt[:pos])
	// A '>' with >= spelled ">=" is caught above; here reject a '>' that is
	// the tail of a comparison left dangling by a keyword.
	if endsWithKeyword(before, "WHERE") || endsWithKeyword(before, "AND") || endsWithKeyword(before, "OR") {
		return stmt, "", nil
	}
	quoted := len(after) >= 2 && (after[0] == '\'' || after[0] == '"') && after[len(after)-1] == after[0]
	if !quoted && strings.ContainsAny(after, " \t") {
		return stmt, "", nil
	}
	return before, unquote(after), nil
}

// splitTopLevel splits s on sep runes that sit outside parentheses and
// quoted strings. Used for comma lists and OVER clause internals.
func splitTopLevel(s string, sep rune) []string {
	var out []string
	depth := 0
	inQuote := rune(0)
	start := 0
	for i, r := range s {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == sep && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + len(string(r))
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

// connectorToken pairs a condition substring with the connector that
// follows it in the predicate text.
type connectorToken struct {
	text string
	next Connector // connector after this condition; meaningless for last
}

// splitConnectors splits a predicate string on top-level AND/OR keywords,
// remembering which connector separated each pair. BETWEEN's inner AND is
// kept with its condition.
func splitConnectors(s string) []connectorToken {
	var out []connectorToken
	depth := 0
	inQuote := rune(0)
	betweenDepth := 0 // count of BETWEEN keywords awaiting their AND
	start := 0
	i := 0
	for i < len(s) {
		r := rune(s[i])
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		case depth == 0 && isWordBoundary(s, i):
			if matchKeywordAt(s, i, "BETWEEN") {
				betweenDepth++
				i += len("BETWEEN")
				continue
			}
			if matchKeywordAt(s, i, "AND") {
				if betweenDepth > 0 {
					betweenDepth--
					i += len("AND")
					continue
				}
				out = append(out, connectorToken{text: strings.TrimSpace(s[start:i]), next: ConnectorAnd})
				i += len("AND")
				start = i
				continue
			}
			if matchKeywordAt(s, i, "OR") {
				out = append(out, connectorToken{text: strings.TrimSpace(s[start:i]), next: ConnectorOr})
				i += len("OR")
				start = i
				continue
			}
		}
		i++
	}
	out = append(out, connectorToken{text: strings.TrimSpace(s[start:])})
	return out
}

// findKeyword returns the byte offset of the first top-level, word-bounded,
// case-insensitive occurrence of kw in s, or -1.
func findKeyword(s, kw string) int {
	return findKeywordFrom(s, kw, 0)
}

func findKeywordFrom(s, kw string, from int) int {
	depth := 0
	inQuote := rune(0)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			inQuote = r
		case r == '(':
			depth++
		case r == ')':
			depth--
		default:
			if i >= from && depth == 0 && isWordBoundary(s, i) && matchKeywordAt(s, i, kw) {
				return i
			}
		}
	}
	return -1
}

// matchKeywordAt reports a case-insensitive keyword match at position i,
// bounded on the right by a non-identifier character. Multi-word keywords
// ("GROUP BY") match across a single space.
func matchKeywordAt(s string, i int, kw string) bool {
	if i+len(kw) > len(s) {
		return false
	}
	if !strings.EqualFold(s[i:i+len(kw)], kw) {
		return false
	}
	end := i + len(kw)
	if end < len(s) && isIdentRune(rune(s[end])) {
		return false
	}
	return true
}

// isWordBoundary reports whether position i starts a new word.
func isWordBoundary(s string, i int) bool {
	if i == 0 {
		return true
	}
	return !isIdentRune(rune(s[i-1]))
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// hasKeywordPrefix reports whether s begins with the keyword followed by a
// word boundary, case-insensitively.
func hasKeywordPrefix(s, kw string) bool {
	return matchKeywordAt(s, 0, kw)
}

// endsWithKeyword reports whether s ends with the keyword on a word
// boundary, case-insensitively.
func endsWithKeyword(s, kw string) bool {
	if len(s) < len(kw) {
		return false
	}
	tail := s[len(s)-len(kw):]
	if !strings.EqualFold(tail, kw) {
		return false
	}
	if len(s) == len(kw) {
		return true
	}
	return !isIdentRune(rune(s[len(s)-len(kw)-1]))
}

// normalizeSpace collapses runs of whitespace outside quoted strings into
// single spaces.
func normalizeSpace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inQuote := rune(0)
	space := false
	for _, r := range s {
		switch {
		case inQuote != 0:
			b.WriteRune(r)
			if r == inQuote {
				inQuote = 0
			}
		case r == '\'' || r == '"':
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			inQuote = r
			b.WriteRune(r)
		case unicode.IsSpace(r):
			space = true
		default:
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unquote strips one matching pair of single or double quotes.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
