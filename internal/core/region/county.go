package region

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"echokit/internal/core/normalize"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
)

// Reconciler maps raw registry county names to corrected names
// Without a lookup entry it falls back to normalize.County
type Reconciler struct {
	lookup map[string]string // STATE|RAW -> corrected
}

// NewReconciler returns a Reconciler with no lookup entries
func NewReconciler() *Reconciler { return &Reconciler{lookup: map[string]string{}} }

// LoadCountyLookup reads a corrected county CSV with FAC_STATE, FAC_COUNTY and County columns
func LoadCountyLookup(r io.Reader) (*Reconciler, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read county lookup header")
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	si, okS := col["FAC_STATE"]
	ri, okR := col["FAC_COUNTY"]
	ci, okC := col["County"]
	if !okS || !okR || !okC {
		return nil, perr.InvalidArgf("county lookup needs FAC_STATE, FAC_COUNTY and County columns")
	}

	rc := NewReconciler()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "read county lookup")
		}
		if len(rec) <= max(si, ri, ci) {
			continue
		}
		rc.Add(rec[si], rec[ri], rec[ci])
	}
	return rc, nil
}

// Add records that raw in state is called corrected
func (rc *Reconciler) Add(state, raw, corrected string) {
	rc.lookup[key(state, raw)] = normalize.County(corrected)
}

// Canonical returns the corrected county name for raw in state
func (rc *Reconciler) Canonical(state, raw string) string {
	if c, ok := rc.lookup[key(state, raw)]; ok {
		return c
	}
	return normalize.County(raw)
}

// Filter keeps the rows of a state wide facility table whose county reconciles to one of sel.Names
func (rc *Reconciler) Filter(t *table.Table, sel County) *table.Table {
	want := make(map[string]struct{}, len(sel.Names))
	for _, n := range sel.Names {
		want[normalize.County(n)] = struct{}{}
	}
	stateCol, countyCol := Field(KindState), Field(KindCounty)
	return t.Filter(func(r table.Row) bool {
		state := r.String(stateCol)
		if state == "" {
			state = sel.State
		}
		_, ok := want[rc.Canonical(state, r.String(countyCol))]
		return ok
	})
}

func key(state, raw string) string {
	return strings.ToUpper(strings.TrimSpace(state)) + "|" + normalize.Name(raw)
}
