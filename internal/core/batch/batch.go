// Package batch fetches program records for long id lists in bounded batches
package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"echokit/internal/core/program"
	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
)

// DefaultSize keeps request URIs under the remote limit; the CSV gateway requires it
const DefaultSize = 50

// Executor runs one query; echoapi transports satisfy it
type Executor interface {
	Execute(ctx context.Context, q sqlq.Query) (*table.Table, error)
}

// Request describes one batched fetch
type Request struct {
	Descriptor   program.Descriptor
	IDs          []string
	BatchSize    int  // DefaultSize when <= 0
	ByRegistryID bool // filter on REGISTRY_ID instead of the descriptor id field
	Numeric      bool // render ids bare instead of quoted
	Concurrency  int  // overrides the fetcher default when > 0
}

// Report counts what a fetch did
type Report struct {
	IDs     int `json:"ids"`
	Batches int `json:"batches"`
	Empty   int `json:"empty_batches"`
	Failed  int `json:"failed_batches"`
	Rows    int `json:"rows"`
}

// String renders the summary line shown to analysts
func (r Report) String() string {
	return fmt.Sprintf("%d ids were searched, %d program records were found", r.IDs, r.Rows)
}

// Fetcher issues one query per batch through an Executor
type Fetcher struct {
	exec        Executor
	log         logger.Logger
	metrics     *metrics.Metrics
	concurrency int
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithMetrics records batch outcomes on m
func WithMetrics(m *metrics.Metrics) Option { return func(f *Fetcher) { f.metrics = m } }

// WithConcurrency runs up to n batches at once; 1 is sequential
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// New returns a sequential Fetcher unless configured otherwise
func New(exec Executor, opts ...Option) *Fetcher {
	f := &Fetcher{exec: exec, log: *logger.Named("batch"), concurrency: 1}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Partition splits items into consecutive chunks of at most size
// The trailing partial chunk is always kept
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultSize
	}
	var out [][]T
	cur := make([]T, 0, size)
	for _, it := range items {
		cur = append(cur, it)
		if len(cur) == size {
			out = append(out, cur)
			cur = make([]T, 0, size)
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// FetchByIDs returns the concatenated rows of every batch, or nil when no batch produced rows
// Empty batches are skipped; failed batches are reported in the joined error next to the partial table
func (f *Fetcher) FetchByIDs(ctx context.Context, req Request) (*table.Table, Report, error) {
	rep := Report{IDs: len(req.IDs)}
	if len(req.IDs) == 0 {
		return nil, rep, nil
	}

	field := req.Descriptor.IDField
	if req.ByRegistryID {
		field = program.RegistryID
	}
	if err := sqlq.ValidField(field); err != nil {
		return nil, rep, perr.WithField(err, "id_field")
	}
	lits, err := literals(req.IDs, req.Numeric)
	if err != nil {
		return nil, rep, err
	}

	build := func(batch []sqlq.Literal) sqlq.Query {
		return req.Descriptor.Query(sqlq.In(sqlq.Ident(field), batch))
	}
	out, rep, err := f.run(ctx, Partition(lits, req.BatchSize), build, req.Concurrency, rep)
	f.log.Info().
		Str("program", req.Descriptor.Name).
		Int("batches", rep.Batches).
		Int("empty", rep.Empty).
		Int("failed", rep.Failed).
		Msg(rep.String())
	return out, rep, err
}

// ProgramIDs resolves registry ids to program ids through EXP_PGM
func (f *Fetcher) ProgramIDs(ctx context.Context, registryIDs []string, size int) ([]string, Report, error) {
	rep := Report{IDs: len(registryIDs)}
	if len(registryIDs) == 0 {
		return nil, rep, nil
	}
	build := func(batch []sqlq.Literal) sqlq.Query {
		where := sqlq.In(sqlq.Ident(program.RegistryID), batch)
		return sqlq.Query{
			SQL:   sqlq.Select("EXP_PGM", []string{sqlq.Ident("PGM_ID")}, where),
			Table: "EXP_PGM",
		}
	}
	out, rep, err := f.run(ctx, Partition(sqlq.Strings(registryIDs), size), build, 0, rep)
	return out.Values("PGM_ID"), rep, err
}

func (f *Fetcher) run(ctx context.Context, batches [][]sqlq.Literal, build func([]sqlq.Literal) sqlq.Query, concurrency int, rep Report) (*table.Table, Report, error) {
	rep.Batches = len(batches)
	parts := make([]*table.Table, len(batches))
	errs := make([]error, len(batches))

	one := func(i int) {
		q := build(batches[i])
		t, err := f.exec.Execute(ctx, q)
		parts[i], errs[i] = t, err
		f.log.Debug().Int("batch", i).Int("ids", len(batches[i])).Int("rows", t.Len()).Err(err).Msg("batch done")
	}

	if concurrency <= 0 {
		concurrency = f.concurrency
	}
	if concurrency <= 1 {
		for i := range batches {
			if ctx.Err() != nil {
				break
			}
			one(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(concurrency)
		for i := range batches {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				one(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var (
		kept     []*table.Table
		failures []error
	)
	for i, err := range errs {
		switch {
		case err == nil && parts[i] != nil:
			rep.Rows += parts[i].Len()
			kept = append(kept, parts[i])
			f.metrics.Batch("ok", parts[i].Len())
		case err == nil:
		case perr.HasCode(err, perr.ErrorCodeEmptyResult):
			rep.Empty++
			f.metrics.Batch("empty", 0)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		default:
			rep.Failed++
			f.metrics.Batch("failed", 0)
			failures = append(failures, perr.WithOp(err, fmt.Sprintf("batch %d of %d", i+1, len(batches))))
		}
	}
	if cerr := ctx.Err(); cerr != nil {
		failures = append(failures, cerr)
	}

	var out *table.Table
	if rep.Rows > 0 {
		out = table.Concat(kept...)
	}
	return out, rep, errors.Join(failures...)
}

func literals(ids []string, numeric bool) ([]sqlq.Literal, error) {
	if !numeric {
		return sqlq.Strings(ids), nil
	}
	lits, err := sqlq.Integers(ids)
	if err != nil {
		return nil, perr.WithField(err, "ids")
	}
	return lits, nil
}
