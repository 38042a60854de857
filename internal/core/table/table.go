// Package table holds the row oriented result value returned by every ECHO query
package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	perr "echokit/internal/platform/errors"
)

// Row is one record keyed by column name
// Cells are strings from CSV payloads and JSON scalars from REST payloads
type Row map[string]any

// String renders a cell as text; missing and null cells are ""
func (r Row) String(col string) string {
	switch v := r[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Float parses a cell as a number; ok is false for blanks and non numbers
func (r Row) Float(col string) (float64, bool) {
	switch v := r[col].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	s := strings.TrimSpace(r.String(col))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// Table is an ordered set of columns and rows with an optional key column
// A Table is not mutated after construction; methods that change it return a new Table
type Table struct {
	columns []string
	rows    []Row
	key     string
}

// New builds a Table; columns missing from the list but present in rows are appended in first seen order
func New(columns []string, rows []Row) *Table {
	t := &Table{columns: append([]string(nil), columns...), rows: rows}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		seen[c] = struct{}{}
	}
	for _, r := range rows {
		for c := range r {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				t.columns = append(t.columns, c)
			}
		}
	}
	return t
}

// Empty returns a Table with no columns and no rows
func Empty() *Table { return &Table{} }

// Len returns the number of rows; a nil Table has none
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Columns returns a copy of the column names
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Rows returns the rows; callers must treat them as read only
func (t *Table) Rows() []Row {
	if t == nil {
		return nil
	}
	return t.rows
}

// Key returns the key column or "" when unindexed
func (t *Table) Key() string {
	if t == nil {
		return ""
	}
	return t.key
}

// Has reports whether col is one of the columns
func (t *Table) Has(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.columns {
		if c == col {
			return true
		}
	}
	return false
}

// WithKey returns a copy keyed by field
// When field is absent it returns t unchanged with a KeyNotFound error
func (t *Table) WithKey(field string) (*Table, error) {
	if !t.Has(field) {
		return t, perr.Newf(perr.ErrorCodeKeyNotFound, "key field %s not in result columns", field)
	}
	c := *t
	c.key = field
	return &c, nil
}

// Values returns the text of col for every row
func (t *Table) Values(col string) []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Rows() {
		out = append(out, r.String(col))
	}
	return out
}

// KeyValues returns the key column values, or nil when unindexed
func (t *Table) KeyValues() []string {
	if t.Key() == "" {
		return nil
	}
	return t.Values(t.key)
}

// Filter returns the rows for which keep is true, preserving columns and key
func (t *Table) Filter(keep func(Row) bool) *Table {
	if t == nil {
		return nil
	}
	out := &Table{columns: t.columns, key: t.key}
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, r)
		}
	}
	return out
}

// Derive returns a copy with col set on every row to fn(row)
// Rows are copied so the receiver is left untouched
func (t *Table) Derive(col string, fn func(Row) any) *Table {
	if t == nil {
		return nil
	}
	out := &Table{columns: t.Columns(), key: t.key, rows: make([]Row, len(t.rows))}
	if !t.Has(col) {
		out.columns = append(out.columns, col)
	}
	for i, r := range t.rows {
		nr := make(Row, len(r)+1)
		for k, v := range r {
			nr[k] = v
		}
		nr[col] = fn(r)
		out.rows[i] = nr
	}
	return out
}

// Concat appends tables in order, skipping nil and empty ones
// Columns are unioned in first seen order; the key survives only when every part agrees on it
func Concat(parts ...*Table) *Table {
	var (
		out     = &Table{}
		seen    = map[string]struct{}{}
		key     string
		keySet  bool
		agreed  = true
		nonzero bool
	)
	for _, p := range parts {
		if p.Len() == 0 {
			continue
		}
		nonzero = true
		for _, c := range p.columns {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				out.columns = append(out.columns, c)
			}
		}
		out.rows = append(out.rows, p.rows...)
		if !keySet {
			key, keySet = p.key, true
		} else if p.key != key {
			agreed = false
		}
	}
	if !nonzero {
		return out
	}
	if agreed {
		out.key = key
	}
	return out
}
