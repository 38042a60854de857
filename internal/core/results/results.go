// Package results holds the table retrieved for one program and region
package results

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"echokit/internal/core/batch"
	"echokit/internal/core/program"
	"echokit/internal/core/region"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	ptime "echokit/internal/platform/time"
)

// Container pairs a descriptor and selector with the last stored table
// A Container belongs to the caller that created it and is not safe for concurrent Store
type Container struct {
	ID         uuid.UUID
	Descriptor program.Descriptor
	Selector   region.Selector

	table     *table.Table
	lastQuery string
	storedAt  time.Time
	report    batch.Report

	now func() time.Time
}

// New returns an empty container
func New(d program.Descriptor, sel region.Selector) *Container {
	return &Container{ID: uuid.New(), Descriptor: d, Selector: sel, now: time.Now}
}

// Store replaces the table, query and report; derived columns are applied to t
func (c *Container) Store(t *table.Table, query string, rep batch.Report) {
	c.table = derive(c.Descriptor, t)
	c.lastQuery = query
	c.report = rep
	c.storedAt = c.now().UTC()
}

// Table returns the stored table, nil before the first Store or when nothing matched
func (c *Container) Table() *table.Table { return c.table }

// LastQuery returns the query that produced the table
func (c *Container) LastQuery() string { return c.lastQuery }

// StoredAt returns when Store last ran
func (c *Container) StoredAt() time.Time { return c.storedAt }

// Report returns the fetch report
func (c *Container) Report() batch.Report { return c.report }

// Len returns the stored row count
func (c *Container) Len() int { return c.table.Len() }

func derive(d program.Descriptor, t *table.Table) *table.Table {
	for _, dc := range d.Derived {
		if !anyColumn(t, dc.Sources) {
			continue
		}
		sources := dc.Sources
		t = t.Derive(dc.Target, func(r table.Row) any {
			for _, s := range sources {
				if strings.TrimSpace(r.String(s)) != "" {
					return r[s]
				}
			}
			return nil
		})
	}
	return t
}

func anyColumn(t *table.Table, cols []string) bool {
	for _, c := range cols {
		if t.Has(c) {
			return true
		}
	}
	return false
}

// YearTotal is one aggregated year
type YearTotal struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Totals is the yearly aggregation of a stored table
type Totals struct {
	Program string          `json:"program"`
	Unit    string          `json:"unit,omitempty"`
	Agg     program.AggType `json:"agg_type"`
	Years   []YearTotal     `json:"years"`
	Skipped int             `json:"skipped"` // rows with a blank or unparsable date
}

const defaultDateFormat = "%m/%d/%Y"

// YearlyTotals groups the stored rows by year of the date field
// Sum programs add the aggregation column; every other program counts rows
func (c *Container) YearlyTotals() (Totals, error) {
	d := c.Descriptor
	out := Totals{Program: d.Name, Unit: d.Unit, Agg: d.Agg}
	if d.DateField == "" {
		return out, perr.InvalidArgf("program %s has no date field to aggregate on", d.Name)
	}
	format := d.DateFormat
	if format == "" {
		format = defaultDateFormat
	}
	if _, err := ptime.Layout(format); err != nil {
		return out, err
	}

	byYear := map[int]float64{}
	for _, r := range c.table.Rows() {
		raw := strings.TrimSpace(r.String(d.DateField))
		when, err := ptime.Parse(format, raw)
		if raw == "" || err != nil {
			out.Skipped++
			continue
		}
		switch d.Agg {
		case program.AggSum:
			v, _ := r.Float(d.AggCol)
			byYear[when.Year()] += v
		default:
			byYear[when.Year()]++
		}
	}

	for y, v := range byYear {
		out.Years = append(out.Years, YearTotal{Year: y, Value: v})
	}
	sort.Slice(out.Years, func(i, j int) bool { return out.Years[i].Year < out.Years[j].Year })
	return out, nil
}
