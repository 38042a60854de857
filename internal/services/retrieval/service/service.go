// Package service contains retrieval workflows
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"echokit/internal/adapters/echoapi"
	"echokit/internal/core/batch"
	"echokit/internal/core/program"
	"echokit/internal/core/region"
	"echokit/internal/core/results"
	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/logger"
	"echokit/internal/platform/metrics"
	"echokit/internal/services/retrieval/domain"
)

// Service defines the retrieval service contract
type Service interface {
	domain.ServicePort
}

// Options wires the engine into the service
// Audit and Archive are optional; nil disables persistence
type Options struct {
	Catalog    *program.Catalog
	Transport  echoapi.Transport
	Fetcher    *batch.Fetcher
	Builder    region.Builder
	Reconciler *region.Reconciler
	Audit      domain.AuditStore
	Archive    domain.RowArchive
	Metrics    *metrics.Metrics
	BatchSize  int
	// MaxBatchSize caps per-request batch sizes when the transport limits IN lists; 0 is no cap
	MaxBatchSize int
	// PersistTimeout bounds audit and archive writes after a retrieval
	PersistTimeout time.Duration
}

// Svc implements the retrieval service
type Svc struct {
	o Options
}

const (
	defaultTopN       = 10
	defaultRecent     = 20
	lastModifiedTable = "Last-Modified"
	dateLayout        = "2006-01-02"
)

// New constructs a retrieval service
func New(o Options) *Svc {
	if o.Catalog == nil {
		panic("retrieval.Service requires a program catalog")
	}
	if o.Transport == nil {
		panic("retrieval.Service requires an echo transport")
	}
	if o.Fetcher == nil {
		o.Fetcher = batch.New(o.Transport, batch.WithMetrics(o.Metrics))
	}
	if o.Reconciler == nil {
		o.Reconciler = region.NewReconciler()
	}
	if o.BatchSize <= 0 {
		o.BatchSize = batch.DefaultSize
	}
	if o.MaxBatchSize > 0 && o.BatchSize > o.MaxBatchSize {
		o.BatchSize = o.MaxBatchSize
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = 10 * time.Second
	}
	return &Svc{o: o}
}

// Programs lists the catalog in declaration order
func (s *Svc) Programs(_ context.Context) (domain.ProgramsResult, error) {
	return domain.ProgramsResult{Programs: s.o.Catalog.All()}, nil
}

// Retrieve runs one program query for a region and stores the result in a container
func (s *Svc) Retrieve(ctx context.Context, in domain.RetrieveInput) (domain.RetrieveResult, error) {
	d, err := s.o.Catalog.Get(in.Program)
	if err != nil {
		return domain.RetrieveResult{}, perr.WithField(err, "program")
	}
	sel, err := in.Region.Selector()
	if err != nil {
		return domain.RetrieveResult{}, err
	}
	size := in.BatchSize
	if size <= 0 {
		size = s.o.BatchSize
	}
	if s.o.MaxBatchSize > 0 && size > s.o.MaxBatchSize {
		size = s.o.MaxBatchSize
	}

	t, query, rep, err := s.fetch(ctx, d, sel, size)
	kind := string(sel.Kind())
	switch {
	case err != nil && (t.Len() == 0 || ctx.Err() != nil):
		s.o.Metrics.Retrieval(d.Name, kind, "error")
		logger.C(ctx).Warn().Err(err).Str("program", d.Name).Str("region", kind).Msg("retrieval failed")
		return domain.RetrieveResult{}, err
	case err != nil:
		s.o.Metrics.Retrieval(d.Name, kind, "partial")
	case t.Len() == 0:
		s.o.Metrics.Retrieval(d.Name, kind, "empty")
	default:
		s.o.Metrics.Retrieval(d.Name, kind, "ok")
	}

	c := results.New(d, sel)
	c.Store(t, query, rep)

	out := domain.RetrieveResult{
		ID:            c.ID.String(),
		Program:       d.Name,
		RegionKind:    kind,
		Query:         c.LastQuery(),
		Report:        rep,
		Summary:       rep.String(),
		RowsFound:     c.Len(),
		Key:           c.Table().Key(),
		Columns:       c.Table().Columns(),
		Rows:          c.Table().Rows(),
		Warnings:      messages(err),
		StoredAt:      c.StoredAt(),
		FailedBatches: rep.Failed,
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = []table.Row{}
	}
	if in.IncludeTotals && c.Len() > 0 {
		if tot, terr := c.YearlyTotals(); terr != nil {
			out.Warnings = append(out.Warnings, terr.Error())
		} else {
			out.Totals = &tot
		}
	}
	if in.IncludeFacilities || in.IncludeOthers {
		s.facilities(ctx, c, in.IncludeOthers, &out)
	}

	logger.C(ctx).Info().
		Str("program", d.Name).
		Str("region", kind).
		Str("retrieval_id", out.ID).
		Int("rows", out.RowsFound).
		Int("failed_batches", rep.Failed).
		Msg(out.Summary)

	s.persist(ctx, c)
	return out, nil
}

// fetch dispatches on the selector kind and returns the table, the query that produced it and the report
func (s *Svc) fetch(ctx context.Context, d program.Descriptor, sel region.Selector, size int) (*table.Table, string, batch.Report, error) {
	switch sv := sel.(type) {
	case region.Neighborhood:
		ids, err := s.within(ctx, sv)
		if err != nil {
			return nil, region.CandidateQuery().SQL, batch.Report{}, err
		}
		req := batch.Request{Descriptor: d, IDs: ids, BatchSize: size}
		var idsErr error
		if d.IDField == program.RegistryID {
			req.ByRegistryID = true
		} else {
			pids, _, err := s.o.Fetcher.ProgramIDs(ctx, ids, size)
			if err != nil && len(pids) == 0 {
				return nil, "", batch.Report{IDs: len(ids)}, err
			}
			req.IDs, idsErr = pids, err
			req.Numeric = d.NumericIDs
		}
		t, rep, err := s.o.Fetcher.FetchByIDs(ctx, req)
		return t, batchedQuery(d, req), rep, errors.Join(idsErr, err)

	case region.IDList:
		req := batch.Request{Descriptor: d, IDs: sv.IDs, BatchSize: size, Numeric: d.NumericIDs}
		t, rep, err := s.o.Fetcher.FetchByIDs(ctx, req)
		return t, batchedQuery(d, req), rep, err
	}

	pred, err := s.o.Builder.Predicate(sel)
	if err != nil {
		return nil, "", batch.Report{}, err
	}
	q := d.Query(pred)
	t, err := s.single(ctx, q, sel)
	rep := batch.Report{Batches: 1, Rows: t.Len()}
	switch {
	case err != nil:
		rep.Failed = 1
	case t.Len() == 0:
		rep.Empty = 1
	}
	return t, q.SQL, rep, err
}

// single runs one predicate query; no data is a nil table and a nil error
func (s *Svc) single(ctx context.Context, q sqlq.Query, sel region.Selector) (*table.Table, error) {
	t, err := s.o.Transport.Execute(ctx, q)
	if echoapi.IsNoData(err) {
		logger.C(ctx).Debug().Err(err).Str("table", q.Endpoint()).Msg("no records found")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if c, ok := sel.(region.County); ok && s.o.Builder.NeedsReconcile(sel) {
		t = s.o.Reconciler.Filter(t, c)
	}
	if t.Len() == 0 {
		return nil, nil
	}
	return t, nil
}

// within resolves the neighborhood to the registry ids inside it
func (s *Svc) within(ctx context.Context, nb region.Neighborhood) ([]string, error) {
	ids, err := region.ResolveNeighborhood(ctx, s.o.Transport, nb)
	if err != nil {
		return nil, err
	}
	logger.C(ctx).Debug().Int("inside", len(ids)).Msg("neighborhood resolved")
	return ids, nil
}

// batchedQuery renders the shape of a batched query for display and audit
func batchedQuery(d program.Descriptor, req batch.Request) string {
	field := d.IDField
	if req.ByRegistryID {
		field = program.RegistryID
	}
	size := req.BatchSize
	if size <= 0 {
		size = batch.DefaultSize
	}
	return d.Select(sqlq.Predicate(fmt.Sprintf("%s IN (...) -- %d ids in batches of %d", sqlq.Ident(field), len(req.IDs), size)))
}

// messages flattens a joined error into one message per failure
func messages(err error) []string {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		var out []string
		for _, e := range j.Unwrap() {
			out = append(out, messages(e)...)
		}
		return out
	}
	return []string{err.Error()}
}

// persist writes the audit row and archives rows; failures are logged only
func (s *Svc) persist(ctx context.Context, c *results.Container) {
	if s.o.Audit == nil && s.o.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.o.PersistTimeout)
	defer cancel()

	rec := domain.Retrieval{
		ID:            c.ID.String(),
		Program:       c.Descriptor.Name,
		RegionKind:    string(c.Selector.Kind()),
		RegionValues:  c.Selector.Values(),
		State:         c.Selector.StateCode(),
		Query:         c.LastQuery(),
		IDsSearched:   c.Report().IDs,
		RowsFound:     c.Len(),
		FailedBatches: c.Report().Failed,
		CreatedAt:     c.StoredAt(),
	}
	log := logger.C(ctx).With().Str("retrieval_id", rec.ID).Logger()
	if s.o.Audit != nil {
		if err := s.o.Audit.Insert(ctx, rec); err != nil {
			log.Error().Err(err).Msg("audit insert failed")
		}
	}
	if s.o.Archive != nil && c.Len() > 0 {
		if err := s.o.Archive.Archive(ctx, rec, c.Table()); err != nil {
			log.Error().Err(err).Int("rows", c.Len()).Msg("row archive failed")
		}
	}
}

// exporter describes the facility registry itself
var exporter = program.Descriptor{Name: "Facilities", BaseTable: sqlq.DefaultTable, View: sqlq.DefaultTable, IDField: program.RegistryID}

// ActiveFacilities returns active registry rows in a region keyed by REGISTRY_ID
func (s *Svc) ActiveFacilities(ctx context.Context, in domain.ActiveInput) (domain.FacilitiesResult, error) {
	sel, err := in.Region.Selector()
	if err != nil {
		return domain.FacilitiesResult{}, err
	}
	t, err := s.active(ctx, sel)
	if err != nil {
		return domain.FacilitiesResult{}, err
	}
	out := domain.FacilitiesResult{RowsFound: t.Len(), Columns: t.Columns(), Rows: t.Rows()}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	if out.Rows == nil {
		out.Rows = []table.Row{}
	}
	return out, nil
}

func (s *Svc) active(ctx context.Context, sel region.Selector) (*table.Table, error) {
	isActive := func(r table.Row) bool { return r.String(program.ActiveFlag) == "Y" }
	var (
		req batch.Request
		t   *table.Table
		err error
	)
	switch sv := sel.(type) {
	case region.Neighborhood:
		ids, werr := s.within(ctx, sv)
		if werr != nil {
			return nil, werr
		}
		req = batch.Request{Descriptor: exporter, IDs: ids, ByRegistryID: true, BatchSize: s.o.BatchSize}
	case region.IDList:
		req = batch.Request{Descriptor: exporter, IDs: sv.IDs, ByRegistryID: true, BatchSize: s.o.BatchSize}
	default:
		pred, berr := s.o.Builder.Predicate(sel)
		if berr != nil {
			return nil, berr
		}
		q := exporter.Query(sqlq.And(pred, sqlq.Eq(program.ActiveFlag, sqlq.String("Y"))))
		return s.single(ctx, q, sel)
	}

	t, _, err = s.o.Fetcher.FetchByIDs(ctx, req)
	if err != nil {
		if t.Len() == 0 || ctx.Err() != nil {
			return nil, err
		}
		logger.C(ctx).Warn().Err(err).Int("rows", t.Len()).Msg("active facilities are partial")
	}
	return t.Filter(isActive), nil
}

// facilities adds per facility totals and, when others is set, the active facilities without records
// Failures become warnings
func (s *Svc) facilities(ctx context.Context, c *results.Container, others bool, out *domain.RetrieveResult) {
	var ids []string
	if c.Len() > 0 {
		ft, err := c.FacilityTotals()
		if err != nil {
			out.Warnings = append(out.Warnings, err.Error())
			return
		}
		out.Facilities = &ft
		ids = ft.IDs()
	}
	if !others {
		return
	}
	t, err := s.withoutRecords(ctx, c.Descriptor, c.Selector, ids)
	if err != nil {
		logger.C(ctx).Warn().Err(err).Str("program", c.Descriptor.Name).Msg("facilities without records unavailable")
		out.Warnings = append(out.Warnings, err.Error())
		return
	}
	res := domain.FacilitiesResult{RowsFound: t.Len(), Columns: t.Columns(), Rows: t.Rows()}
	if res.Columns == nil {
		res.Columns = []string{}
	}
	if res.Rows == nil {
		res.Rows = []table.Row{}
	}
	out.Others = &res
}

// withoutRecords returns the region's active facilities in d's program whose ids are not in ids
// Registry keyed programs match REGISTRY_ID; others match the <TYPE>_IDS column of the first echo type
func (s *Svc) withoutRecords(ctx context.Context, d program.Descriptor, sel region.Selector, ids []string) (*table.Table, error) {
	col := program.RegistryID
	if d.IDField != program.RegistryID {
		if len(d.Types) == 0 {
			return nil, perr.InvalidArgf("program %s has no echo type to match facilities on", d.Name)
		}
		col = program.IDsColumn(d.Types[0])
	}
	active, err := s.active(ctx, sel)
	if err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		have[id] = struct{}{}
	}
	inProgram := func(r table.Row) bool {
		if len(d.Types) == 0 {
			return true
		}
		for _, t := range d.Types {
			if r.String(program.FlagColumn(t)) == "Y" {
				return true
			}
		}
		return false
	}
	return active.Filter(func(r table.Row) bool {
		fields := strings.Fields(r.String(col))
		if len(fields) == 0 || !inProgram(r) {
			return false
		}
		for _, id := range fields {
			if _, ok := have[id]; ok {
				return false
			}
		}
		return true
	}), nil
}

// TopViolators ranks the region's active program facilities by noncompliant quarters, then formal actions
// Programs without a compliance history rank on their release column instead
func (s *Svc) TopViolators(ctx context.Context, in domain.TopViolatorsInput) (domain.TopViolatorsResult, error) {
	d, err := s.o.Catalog.Get(in.Program)
	if err != nil {
		return domain.TopViolatorsResult{}, perr.WithField(err, "program")
	}
	comp, ok := program.ComplianceFor(d)
	field, byField := "", false
	if !ok {
		if field, byField = program.RankFieldFor(d); !byField {
			return domain.TopViolatorsResult{}, perr.WithField(perr.InvalidArgf("program %s has no compliance history or release column", d.Name), "program")
		}
	}
	sel, err := in.Region.Selector()
	if err != nil {
		return domain.TopViolatorsResult{}, err
	}
	t, err := s.active(ctx, sel)
	if err != nil {
		return domain.TopViolatorsResult{}, err
	}

	out := domain.TopViolatorsResult{Program: d.Name}
	var all []domain.Violator
	if byField {
		all, out.RankedBy = rankReleases(t, field), field
	} else {
		all, out.History = rankViolators(t, comp), comp.History
	}
	n := in.Limit
	if n <= 0 {
		n = defaultTopN
	}
	out.TotalFound, out.Violators = len(all), all
	if len(all) > n {
		out.Violators = all[:n]
	}
	return out, nil
}

func rankViolators(t *table.Table, comp program.Compliance) []domain.Violator {
	out := []domain.Violator{}
	for _, r := range t.Rows() {
		if r.String(comp.Flag) != "Y" {
			continue
		}
		hist := r.String(comp.History)
		n := strings.Count(hist, "S") + strings.Count(hist, "V")
		if n == 0 {
			continue
		}
		actions, _ := r.Float(comp.Actions)
		v := violator(r)
		v.Noncompliance = n
		v.FormalActions = int(actions)
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Noncompliance != out[j].Noncompliance {
			return out[i].Noncompliance > out[j].Noncompliance
		}
		return out[i].FormalActions > out[j].FormalActions
	})
	return out
}

// rankReleases keeps facilities reporting a positive value in field, largest first
func rankReleases(t *table.Table, field string) []domain.Violator {
	out := []domain.Violator{}
	for _, r := range t.Rows() {
		val, ok := r.Float(field)
		if !ok || val <= 0 {
			continue
		}
		v := violator(r)
		v.Value = &val
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Value > *out[j].Value })
	return out
}

func violator(r table.Row) domain.Violator {
	v := domain.Violator{
		RegistryID: r.String(program.RegistryID),
		Name:       r.String(program.FacName),
		DFRURL:     r.String("DFR_URL"),
	}
	if lat, ok := r.Float(program.Latitude); ok {
		v.Lat = &lat
	}
	if lon, ok := r.Float(program.Longitude); ok {
		v.Long = &lon
	}
	return v
}

// LastModified reports when the program's base table was last refreshed upstream
func (s *Svc) LastModified(ctx context.Context, name string) (domain.LastModifiedResult, error) {
	d, err := s.o.Catalog.Get(name)
	if err != nil {
		return domain.LastModifiedResult{}, err
	}
	if d.BaseTable == "" {
		return domain.LastModifiedResult{}, perr.InvalidArgf("program %s has no base table", d.Name)
	}
	q := sqlq.Query{
		SQL:   fmt.Sprintf(`select modified from %s where %s = %s`, sqlq.Ident(lastModifiedTable), sqlq.Ident("name"), sqlq.Quote(d.BaseTable)),
		Table: lastModifiedTable,
	}
	t, err := s.o.Transport.Execute(ctx, q)
	if echoapi.IsNoData(err) || (err == nil && t.Len() == 0) {
		return domain.LastModifiedResult{}, perr.NotFoundf("no modification date for %s", d.BaseTable)
	}
	if err != nil {
		return domain.LastModifiedResult{}, err
	}

	raw := strings.TrimSpace(t.Rows()[0].String("modified"))
	if len(raw) > len(dateLayout) {
		raw = raw[:len(dateLayout)]
	}
	at, err := time.Parse(dateLayout, raw)
	if err != nil {
		return domain.LastModifiedResult{}, perr.Wrapf(err, perr.ErrorCodeUpstream, "unparsable modified date %q", raw)
	}
	return domain.LastModifiedResult{Program: d.Name, BaseTable: d.BaseTable, Modified: at.Format(dateLayout)}, nil
}

// Recent lists audit records, newest first
func (s *Svc) Recent(ctx context.Context, in domain.RecentInput) ([]domain.Retrieval, error) {
	if s.o.Audit == nil {
		return nil, perr.Unavailablef("retrieval audit is disabled")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultRecent
	}
	out, err := s.o.Audit.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Retrieval{}
	}
	return out, nil
}
