// Package repo persists retrieval audits in postgres and archives fetched rows in clickhouse
package repo

import (
	"context"
	"encoding/json"

	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/store"
	"echokit/internal/services/retrieval/domain"
)

const schemaPG = `
create table if not exists echo_retrievals (
  id             uuid primary key,
  program        text not null,
  region_kind    text not null,
  region_values  text[] not null default '{}',
  state          text not null default '',
  query          text not null,
  ids_searched   integer not null default 0,
  rows_found     integer not null default 0,
  failed_batches integer not null default 0,
  created_at     timestamptz not null default now()
);
create index if not exists echo_retrievals_created_idx on echo_retrievals (created_at desc)
`

// ArchiveTable is the clickhouse table fetched rows land in
const ArchiveTable = "echo_rows"

const schemaCH = `
create table if not exists echo_rows (
  retrieval_id String,
  program      LowCardinality(String),
  row_num      UInt32,
  payload      String,
  created_at   DateTime64(3, 'UTC')
) engine = MergeTree
order by (program, created_at, retrieval_id, row_num)
`

// serialization failures and deadlocks get this many tries
const insertAttempts = 3

var archiveColumns = []string{"retrieval_id", "program", "row_num", "payload", "created_at"}

// PG implements domain.AuditStore
type PG struct{ q store.RowQuerier }

// NewPG binds the audit store to a querier
func NewPG(q store.RowQuerier) *PG { return &PG{q: q} }

// EnsureSchema creates the audit table when missing
func (r *PG) EnsureSchema(ctx context.Context) error {
	_, err := store.Exec(ctx, r.q, schemaPG)
	return perr.WrapIf(err, perr.ErrorCodeDB, "create echo_retrievals")
}

// Insert writes one audit row
func (r *PG) Insert(ctx context.Context, rec domain.Retrieval) error {
	const sql = `
insert into echo_retrievals
  (id, program, region_kind, region_values, state, query, ids_searched, rows_found, failed_batches, created_at)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	vals := rec.RegionValues
	if vals == nil {
		vals = []string{}
	}
	var err error
	for attempt := 0; attempt < insertAttempts; attempt++ {
		err = store.ExecOne(ctx, r.q, sql,
			rec.ID, rec.Program, rec.RegionKind, vals, rec.State, rec.Query,
			rec.IDsSearched, rec.RowsFound, rec.FailedBatches, rec.CreatedAt)
		if !perr.Retryable(err) {
			break
		}
	}
	return perr.FromPostgresf(err, "insert echo_retrievals %s", rec.ID)
}

// Recent lists the newest audit rows first
func (r *PG) Recent(ctx context.Context, limit int) ([]domain.Retrieval, error) {
	const sql = `
select id::text, program, region_kind, region_values, state, query,
       ids_searched, rows_found, failed_batches, created_at
from echo_retrievals
order by created_at desc
limit $1
`
	out, err := store.Many(ctx, r.q, scanRetrieval, sql, limit)
	if err != nil {
		return nil, perr.FromPostgresf(err, "list echo_retrievals")
	}
	return out, nil
}

func scanRetrieval(row store.Row) (domain.Retrieval, error) {
	var rec domain.Retrieval
	err := row.Scan(&rec.ID, &rec.Program, &rec.RegionKind, &rec.RegionValues, &rec.State, &rec.Query,
		&rec.IDsSearched, &rec.RowsFound, &rec.FailedBatches, &rec.CreatedAt)
	return rec, err
}

// CH implements domain.RowArchive
type CH struct{ ch store.Clickhouse }

// NewCH binds the archive to a clickhouse seam
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

// EnsureSchema creates the archive table when missing
func (a *CH) EnsureSchema(ctx context.Context) error {
	return perr.WrapIf(a.ch.Exec(ctx, schemaCH), perr.ErrorCodeDB, "create echo_rows")
}

// Archive appends one JSON payload per row
func (a *CH) Archive(ctx context.Context, rec domain.Retrieval, t *table.Table) error {
	if t.Len() == 0 {
		return nil
	}
	rows := make([][]any, 0, t.Len())
	for i, r := range t.Rows() {
		payload, err := json.Marshal(r)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeJSON, "encode row %d", i)
		}
		rows = append(rows, []any{rec.ID, rec.Program, uint32(i), string(payload), rec.CreatedAt})
	}
	return perr.WrapIf(a.ch.InsertRows(ctx, ArchiveTable, archiveColumns, rows), perr.ErrorCodeDB, "insert echo_rows")
}
