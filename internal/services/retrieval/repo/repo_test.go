package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/store"
	kit "echokit/internal/platform/testkit"
	"echokit/internal/services/retrieval/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

type tag int64

func (t tag) String() string      { return "INSERT 0 1" }
func (t tag) RowsAffected() int64 { return int64(t) }

type stubRows struct {
	data [][]any
	i    int
}

func (r *stubRows) Next() bool        { r.i++; return r.i <= len(r.data) }
func (r *stubRows) Err() error        { return nil }
func (r *stubRows) Close()            {}
func (r *stubRows) Columns() []string { return nil }
func (r *stubRows) Scan(dst ...any) error {
	row := r.data[r.i-1]
	for i, d := range dst {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case *[]string:
			*p = row[i].([]string)
		case *int:
			*p = row[i].(int)
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unexpected dest")
		}
	}
	return nil
}

type stubQ struct {
	sql      []string
	args     [][]any
	affected int64
	err      error
	rows     *stubRows
}

func (q *stubQ) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return tag(q.affected), q.err
}

func (q *stubQ) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func (q *stubQ) QueryRow(context.Context, string, ...any) store.Row { return nil }

type stubCH struct {
	execs  []string
	table  string
	cols   []string
	rows   [][]any
	insErr error
}

func (c *stubCH) Exec(_ context.Context, sql string, _ ...any) error {
	c.execs = append(c.execs, sql)
	return nil
}

func (c *stubCH) InsertRows(_ context.Context, table string, cols []string, rows [][]any) error {
	c.table, c.cols, c.rows = table, cols, rows
	return c.insErr
}

func (c *stubCH) Ping(context.Context) error { return nil }
func (c *stubCH) Close() error               { return nil }

var rec = domain.Retrieval{
	ID:           "6b1f0a3e-5b9a-4c53-9d0b-0f3e7c1c2d11",
	Program:      "RCRA Violations",
	RegionKind:   "county",
	RegionValues: []string{"ERIE"},
	State:        "NY",
	Query:        "SELECT 1",
	IDsSearched:  0,
	RowsFound:    2,
	CreatedAt:    time.Date(2026, 3, 3, 13, 0, 0, 0, time.UTC),
}

func TestPGInsert(t *testing.T) {
	q := &stubQ{affected: 1}
	if err := NewPG(q).Insert(context.Background(), rec); err != nil {
		t.Fatalf("insert: %v", err)
	}
	kit.MustContain(t, q.sql[0], "insert into echo_retrievals")
	if len(q.args[0]) != 10 || q.args[0][0] != rec.ID || q.args[0][2] != "county" {
		t.Fatalf("args %v", q.args[0])
	}

	q = &stubQ{affected: 1}
	bare := rec
	bare.RegionValues = nil
	_ = NewPG(q).Insert(context.Background(), bare)
	if vals, ok := q.args[0][3].([]string); !ok || vals == nil {
		t.Fatalf("nil values must be sent as an empty array, got %#v", q.args[0][3])
	}
}

func TestPGInsertErrors(t *testing.T) {
	err := NewPG(&stubQ{affected: 0}).Insert(context.Background(), rec)
	kit.MustCode(t, err, perr.ErrorCodeDB)

	err = NewPG(&stubQ{err: errors.New("conn reset")}).Insert(context.Background(), rec)
	kit.MustCode(t, err, perr.ErrorCodeDB)
	kit.MustContain(t, err.Error(), "conn reset")
}

func TestPGInsertRetriesSerializationFailures(t *testing.T) {
	q := &stubQ{err: &pgconn.PgError{Code: "40001", Message: "could not serialize access"}}
	err := NewPG(q).Insert(context.Background(), rec)
	if len(q.sql) != insertAttempts {
		t.Fatalf("attempts %d want %d", len(q.sql), insertAttempts)
	}
	kit.MustCode(t, err, perr.ErrorCodeDB)

	q = &stubQ{err: &pgconn.PgError{Code: "23505", Message: "duplicate key"}}
	err = NewPG(q).Insert(context.Background(), rec)
	if len(q.sql) != 1 {
		t.Fatalf("unique violations must not retry, got %d attempts", len(q.sql))
	}
	kit.MustCode(t, err, perr.ErrorCodeDuplicateKey)
}

func TestPGRecent(t *testing.T) {
	q := &stubQ{rows: &stubRows{data: [][]any{
		{rec.ID, rec.Program, rec.RegionKind, rec.RegionValues, rec.State, rec.Query, 0, 2, 0, rec.CreatedAt},
	}}}
	out, err := NewPG(q).Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(out) != 1 || out[0].Program != rec.Program || out[0].RowsFound != 2 || !out[0].CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("got %+v", out)
	}
	if q.args[0][0] != 5 {
		t.Fatalf("limit not passed: %v", q.args[0])
	}
}

func TestPGEnsureSchema(t *testing.T) {
	q := &stubQ{}
	if err := NewPG(q).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	kit.MustContain(t, q.sql[0], "create table if not exists echo_retrievals")
}

func TestCHArchive(t *testing.T) {
	ch := &stubCH{}
	tbl := table.New([]string{"ID_NUMBER", "FAC_NAME"}, []table.Row{
		{"ID_NUMBER": "NYD1", "FAC_NAME": "ACME"},
		{"ID_NUMBER": "NYD2", "FAC_NAME": "O'HARA"},
	})
	if err := NewCH(ch).Archive(context.Background(), rec, tbl); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if ch.table != ArchiveTable || len(ch.rows) != 2 || strings.Join(ch.cols, ",") != "retrieval_id,program,row_num,payload,created_at" {
		t.Fatalf("insert %s %v %d", ch.table, ch.cols, len(ch.rows))
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(ch.rows[1][3].(string)), &payload); err != nil || payload["FAC_NAME"] != "O'HARA" {
		t.Fatalf("payload %v err %v", ch.rows[1][3], err)
	}
	if ch.rows[1][2] != uint32(1) {
		t.Fatalf("row_num %v", ch.rows[1][2])
	}
}

func TestCHArchiveSkipsEmptyAndWrapsErrors(t *testing.T) {
	ch := &stubCH{insErr: errors.New("too many parts")}
	if err := NewCH(ch).Archive(context.Background(), rec, nil); err != nil || ch.table != "" {
		t.Fatalf("empty table should not insert")
	}
	tbl := table.New([]string{"A"}, []table.Row{{"A": "1"}})
	kit.MustCode(t, NewCH(ch).Archive(context.Background(), rec, tbl), perr.ErrorCodeDB)

	if err := NewCH(ch).EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	kit.MustContain(t, ch.execs[0], "create table if not exists echo_rows")
}
