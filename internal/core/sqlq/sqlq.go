// Package sqlq renders literals, identifiers and predicates for the ECHO SQL dialect
// Nothing here performs I/O; every caller supplied value passes through Quote
package sqlq

import (
	"regexp"
	"strconv"
	"strings"

	perr "echokit/internal/platform/errors"
)

var (
	fieldRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	integerRe = regexp.MustCompile(`^-?[0-9]+$`)
)

// Quote renders s as a single quoted string literal with embedded quotes doubled
func Quote(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

// Ident renders a double quoted identifier, used for table and view names such as "ICIS-AIR_FCES_PCES"
func Ident(name string) string { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }

// ValidField reports an InvalidArgument error unless name is a bare column name
func ValidField(name string) error {
	if !fieldRe.MatchString(name) {
		return perr.InvalidArgf("invalid field name %q", name)
	}
	return nil
}

// Literal is a value ready to be placed in query text
type Literal struct{ text string }

// SQL returns the rendered literal
func (l Literal) SQL() string { return l.text }

// String returns a quoted string literal
func String(s string) Literal { return Literal{text: Quote(s)} }

// Int returns a bare integer literal
func Int(n int64) Literal { return Literal{text: strconv.FormatInt(n, 10)} }

// Integer validates s as an integer and returns it bare
func Integer(s string) (Literal, error) {
	s = strings.TrimSpace(s)
	if !integerRe.MatchString(s) {
		return Literal{}, perr.InvalidArgf("%q is not an integer", s)
	}
	return Literal{text: s}, nil
}

// Strings quotes every value
func Strings(vals []string) []Literal {
	out := make([]Literal, len(vals))
	for i, v := range vals {
		out[i] = String(v)
	}
	return out
}

// Integers validates and renders every value bare
func Integers(vals []string) ([]Literal, error) {
	out := make([]Literal, len(vals))
	for i, v := range vals {
		l, err := Integer(v)
		if err != nil {
			return nil, err
		}
		out[i] = l
	}
	return out, nil
}

// Predicate is a rendered boolean expression
type Predicate string

// String returns the predicate text
func (p Predicate) String() string { return string(p) }

// Eq renders field = value
func Eq(field string, v Literal) Predicate { return Predicate(field + " = " + v.text) }

// In renders field IN (a,b,...); an empty list renders a predicate that matches nothing
func In(field string, vals []Literal) Predicate {
	if len(vals) == 0 {
		return Predicate("1 = 0")
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.text
	}
	return Predicate(field + " IN (" + strings.Join(parts, ",") + ")")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Like renders a prefix match on field
// % and _ in prefix match literally; an ESCAPE clause is added only when one is present
func Like(field, prefix string) Predicate {
	esc := likeEscaper.Replace(prefix)
	if esc == prefix {
		return Predicate(field + " LIKE " + Quote(prefix+"%"))
	}
	return Predicate(field + " LIKE " + Quote(esc+"%") + ` ESCAPE '\'`)
}

// And joins non empty predicates with AND
func And(ps ...Predicate) Predicate { return join(" AND ", ps) }

// Or joins non empty predicates with OR, parenthesized when there is more than one
func Or(ps ...Predicate) Predicate {
	j := join(" OR ", ps)
	if strings.Contains(string(j), " OR ") {
		return "(" + j + ")"
	}
	return j
}

func join(sep string, ps []Predicate) Predicate {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		if p != "" {
			parts = append(parts, string(p))
		}
	}
	return Predicate(strings.Join(parts, sep))
}

// Select renders SELECT cols FROM "table" [WHERE pred]; no cols selects *
func Select(tableName string, cols []string, where Predicate) string {
	proj := "*"
	if len(cols) > 0 {
		proj = strings.Join(cols, ", ")
	}
	q := "SELECT " + proj + " FROM " + Ident(tableName)
	if where != "" {
		q += " WHERE " + string(where)
	}
	return q
}

// DefaultTable is the facility registry, also the REST endpoint used when a query names no table
const DefaultTable = "ECHO_EXPORTER"

// Query is one request for the transport
type Query struct {
	SQL        string
	Table      string // REST endpoint table; DefaultTable when empty
	IndexField string // promoted to the result key when present
}

// Endpoint returns the table the query is addressed to
func (q Query) Endpoint() string {
	if q.Table == "" {
		return DefaultTable
	}
	return q.Table
}
