package store

import (
	"context"
	"errors"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// scanInto copies vals into pointer dests by assignment or conversion
func scanInto(vals []any, dest []any) error {
	if len(vals) != len(dest) {
		return errors.New("dest len mismatch")
	}
	for i := range dest {
		dv := reflect.ValueOf(dest[i])
		if dv.Kind() != reflect.Pointer {
			return errors.New("dest not pointer")
		}
		v := reflect.ValueOf(vals[i])
		switch {
		case v.Type().AssignableTo(dv.Elem().Type()):
			dv.Elem().Set(v)
		case v.Type().ConvertibleTo(dv.Elem().Type()):
			dv.Elem().Set(v.Convert(dv.Elem().Type()))
		default:
			return errors.New("type mismatch")
		}
	}
	return nil
}

// fakeRows implements both pgx.Rows and Rows
type fakeRows struct {
	cols   []string
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newFakeRows(cols []string, data ...[]any) *fakeRows {
	return &fakeRows{cols: cols, data: data, idx: -1}
}

func (r *fakeRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}
func (r *fakeRows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("scan out of range")
	}
	return scanInto(r.data[r.idx], dest)
}
func (r *fakeRows) Err() error        { return r.err }
func (r *fakeRows) Close()            { r.closed = true }
func (r *fakeRows) Columns() []string { return r.cols }

func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}
func (r *fakeRows) Values() ([]any, error) { return r.data[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte    { return nil }
func (r *fakeRows) Conn() *pgx.Conn        { return nil }

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanInto(r.vals, dest)
}

// fakePgx implements pgxQuerier and records statements
type fakePgx struct {
	stmts   []string
	tag     string
	execErr error
	rows    *fakeRows
	row     fakeRow
}

func (f *fakePgx) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	return pgconn.NewCommandTag(f.tag), f.execErr
}
func (f *fakePgx) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.stmts = append(f.stmts, sql)
	if f.rows == nil {
		return nil, errors.New("no rows configured")
	}
	return f.rows, nil
}
func (f *fakePgx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.stmts = append(f.stmts, sql)
	return f.row
}
