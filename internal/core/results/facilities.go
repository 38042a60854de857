package results

import (
	"sort"
	"strings"

	"echokit/internal/core/program"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
)

// Aggregators name the value a facility total carries
const (
	AggregatorSum    = "sum"
	AggregatorAmount = "Amount"
	AggregatorCount  = "count"
)

// cwaViolationCounts are the quarterly violation columns added per CWA row
var cwaViolationCounts = []string{"NUME90Q", "NUMCVDT", "NUMSVCD", "NUMPSCH"}

// penaltyExtras are columns added to the penalty amount of a program
var penaltyExtras = map[string]string{
	"CWA Penalties": "STATE_LOCAL_PENALTY_AMT",
}

// FacilityTotal is one facility's aggregated value
type FacilityTotal struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Lat   *float64 `json:"lat,omitempty"`
	Long  *float64 `json:"long,omitempty"`
	Value float64  `json:"value"`
}

// FacilityTotals is the stored table grouped by facility
type FacilityTotals struct {
	Program    string          `json:"program"`
	IDField    string          `json:"id_field"`
	Aggregator string          `json:"aggregator"`
	Facilities []FacilityTotal `json:"facilities"`
}

// IDs returns the grouped facility ids
func (f FacilityTotals) IDs() []string {
	out := make([]string, len(f.Facilities))
	for i, ft := range f.Facilities {
		out[i] = ft.ID
	}
	return out
}

// FacilityTotals groups the stored rows by the program id field
//
//	CWA Violations      sums the four quarterly violation counts, keeps totals > 0
//	* Penalties         sums agg_col as Amount, keeps totals > 0
//	agg_type = "sum"    sums agg_col
//	otherwise           counts rows with a date, keeps totals > 0
//
// Facilities are ordered by id; name and coordinates come from the first row that has them
func (c *Container) FacilityTotals() (FacilityTotals, error) {
	d := c.Descriptor
	out := FacilityTotals{Program: d.Name, IDField: d.IDField, Facilities: []FacilityTotal{}}
	if c.table.Len() == 0 {
		return out, perr.EmptyResultf("no %s records to aggregate", d.Name)
	}
	if !c.table.Has(d.IDField) {
		return out, perr.InvalidArgf("%s rows carry no %s column", d.Name, d.IDField)
	}

	value, positive := facilityRule(d, &out)
	byID := map[string]*FacilityTotal{}
	for _, r := range c.table.Rows() {
		id := strings.TrimSpace(r.String(d.IDField))
		if id == "" {
			continue
		}
		ft, ok := byID[id]
		if !ok {
			ft = &FacilityTotal{ID: id}
			byID[id] = ft
		}
		if ft.Name == "" {
			ft.Name = r.String(program.FacName)
		}
		if ft.Lat == nil {
			if v, ok := r.Float(program.Latitude); ok {
				ft.Lat = &v
			}
		}
		if ft.Long == nil {
			if v, ok := r.Float(program.Longitude); ok {
				ft.Long = &v
			}
		}
		ft.Value += value(r)
	}

	for _, ft := range byID {
		if positive && ft.Value <= 0 {
			continue
		}
		out.Facilities = append(out.Facilities, *ft)
	}
	sort.Slice(out.Facilities, func(i, j int) bool { return out.Facilities[i].ID < out.Facilities[j].ID })
	return out, nil
}

// facilityRule picks the per row value and whether zero totals are dropped
func facilityRule(d program.Descriptor, out *FacilityTotals) (func(table.Row) float64, bool) {
	switch {
	case d.Name == "CWA Violations":
		out.Aggregator = AggregatorSum
		return func(r table.Row) float64 {
			var n float64
			for _, col := range cwaViolationCounts {
				v, _ := r.Float(col)
				n += v
			}
			return n
		}, true

	case strings.HasSuffix(d.Name, "Penalties") && d.AggCol != "":
		out.Aggregator = AggregatorAmount
		extra := penaltyExtras[d.Name]
		return func(r table.Row) float64 {
			v, _ := r.Float(d.AggCol)
			if extra != "" {
				x, _ := r.Float(extra)
				v += x
			}
			return v
		}, true

	case d.Agg == program.AggSum:
		out.Aggregator = AggregatorSum
		return func(r table.Row) float64 {
			v, _ := r.Float(d.AggCol)
			return v
		}, false
	}

	out.Aggregator = AggregatorCount
	return func(r table.Row) float64 {
		if d.DateField == "" || strings.TrimSpace(r.String(d.DateField)) != "" {
			return 1
		}
		return 0
	}, true
}
