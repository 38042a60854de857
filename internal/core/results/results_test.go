package results

import (
	"reflect"
	"testing"
	"time"

	"echokit/internal/core/batch"
	"echokit/internal/core/program"
	"echokit/internal/core/region"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
	kit "echokit/internal/platform/testkit"
)

func caaViolations(t *testing.T) program.Descriptor {
	t.Helper()
	d, err := program.Default().Get("CAA Violations")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return d
}

func TestStoreOverwritesAndDerives(t *testing.T) {
	c := New(caaViolations(t), region.State{Code: "NY"})
	c.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	if c.Table() != nil || c.Len() != 0 {
		t.Fatalf("new container should be empty")
	}

	first := table.New([]string{"EARLIEST_FRV_DETERM_DATE", "HPV_DAYZERO_DATE"}, []table.Row{
		{"EARLIEST_FRV_DETERM_DATE": "01-02-2020", "HPV_DAYZERO_DATE": "03-04-2019"},
		{"EARLIEST_FRV_DETERM_DATE": "", "HPV_DAYZERO_DATE": "05-06-2018"},
		{"EARLIEST_FRV_DETERM_DATE": nil, "HPV_DAYZERO_DATE": nil},
	})
	c.Store(first, "q1", batch.Report{IDs: 3, Rows: 3})

	if got := c.Table().Values("Date"); !reflect.DeepEqual(got, []string{"01-02-2020", "05-06-2018", ""}) {
		t.Fatalf("Date = %v", got)
	}
	if first.Has("Date") {
		t.Fatalf("Store must not mutate the input table")
	}
	if c.LastQuery() != "q1" || c.Report().Rows != 3 || !c.StoredAt().Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("metadata not stored")
	}

	c.Store(nil, "q2", batch.Report{IDs: 3})
	if c.Table() != nil || c.LastQuery() != "q2" {
		t.Fatalf("Store should overwrite")
	}
}

func TestYearlyTotalsCount(t *testing.T) {
	c := New(caaViolations(t), region.State{Code: "NY"})
	c.Store(table.New(nil, []table.Row{
		{"EARLIEST_FRV_DETERM_DATE": "01-02-2020"},
		{"EARLIEST_FRV_DETERM_DATE": "11-30-2020"},
		{"HPV_DAYZERO_DATE": "05-06-2018"},
		{"EARLIEST_FRV_DETERM_DATE": "garbage"},
	}), "q", batch.Report{})

	got, err := c.YearlyTotals()
	if err != nil {
		t.Fatalf("YearlyTotals: %v", err)
	}
	want := []YearTotal{{Year: 2018, Value: 1}, {Year: 2020, Value: 2}}
	if !reflect.DeepEqual(got.Years, want) || got.Skipped != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestYearlyTotalsSum(t *testing.T) {
	d := program.Descriptor{
		Name: "RCRA Penalties", View: "RCRA_ENFORCEMENTS_MVIEW", IDField: "ID_NUMBER",
		DateField: "ENFORCEMENT_ACTION_DATE", DateFormat: "%m/%d/%Y",
		Agg: program.AggSum, AggCol: "FMP_AMOUNT", Unit: "dollars",
	}
	c := New(d, region.State{Code: "NY"})
	c.Store(table.New(nil, []table.Row{
		{"ENFORCEMENT_ACTION_DATE": "01/02/2021", "FMP_AMOUNT": "1000"},
		{"ENFORCEMENT_ACTION_DATE": "07/08/2021", "FMP_AMOUNT": 250.5},
		{"ENFORCEMENT_ACTION_DATE": "07/08/2022", "FMP_AMOUNT": ""},
	}), "q", batch.Report{})

	got, err := c.YearlyTotals()
	if err != nil {
		t.Fatalf("YearlyTotals: %v", err)
	}
	want := []YearTotal{{Year: 2021, Value: 1250.5}, {Year: 2022, Value: 0}}
	if !reflect.DeepEqual(got.Years, want) || got.Unit != "dollars" {
		t.Fatalf("got %+v", got)
	}
}

func TestYearlyTotalsNeedsDateField(t *testing.T) {
	c := New(program.Descriptor{Name: "Facilities", View: "ECHO_EXPORTER", IDField: "REGISTRY_ID"}, region.State{Code: "NY"})
	_, err := c.YearlyTotals()
	kit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
}

func catalogGet(t *testing.T, name string) program.Descriptor {
	t.Helper()
	d, err := program.Default().Get(name)
	if err != nil {
		t.Fatalf("Get %s: %v", name, err)
	}
	return d
}

func TestFacilityTotals(t *testing.T) {
	cases := []struct {
		name    string
		program string
		rows    []table.Row
		agg     string
		want    map[string]float64
	}{
		{
			name:    "cwa violations add quarterly counts",
			program: "CWA Violations",
			rows: []table.Row{
				{"NPDES_ID": "NY001", "FAC_NAME": "MILL", "FAC_LAT": "42.1", "FAC_LONG": "-78.1", "NUME90Q": "1", "NUMCVDT": "2", "NUMSVCD": "0", "NUMPSCH": ""},
				{"NPDES_ID": "NY001", "NUME90Q": 1},
				{"NPDES_ID": "NY002", "FAC_NAME": "CLEAN", "NUME90Q": "0", "NUMCVDT": "0"},
			},
			agg:  AggregatorSum,
			want: map[string]float64{"NY001": 4},
		},
		{
			name:    "cwa penalties include state and local amounts",
			program: "CWA Penalties",
			rows: []table.Row{
				{"NPDES_ID": "NY001", "FED_PENALTY_ASSESSED_AMT": "1000", "STATE_LOCAL_PENALTY_AMT": "250"},
				{"NPDES_ID": "NY002", "FED_PENALTY_ASSESSED_AMT": "", "STATE_LOCAL_PENALTY_AMT": "75"},
				{"NPDES_ID": "NY003", "FED_PENALTY_ASSESSED_AMT": "0"},
			},
			agg:  AggregatorAmount,
			want: map[string]float64{"NY001": 1250, "NY002": 75},
		},
		{
			name:    "emissions keep zero totals",
			program: "Greenhouse Gas Emissions",
			rows: []table.Row{
				{"REGISTRY_ID": "110001", "ANNUAL_EMISSION": "10.5"},
				{"REGISTRY_ID": "110001", "ANNUAL_EMISSION": "4.5"},
				{"REGISTRY_ID": "110002", "ANNUAL_EMISSION": "0"},
			},
			agg:  AggregatorSum,
			want: map[string]float64{"110001": 15, "110002": 0},
		},
		{
			name:    "inspections count dated rows",
			program: "RCRA Inspections",
			rows: []table.Row{
				{"ID_NUMBER": "NYD1", "EVALUATION_START_DATE": "01/02/2020"},
				{"ID_NUMBER": "NYD1", "EVALUATION_START_DATE": "03/04/2021"},
				{"ID_NUMBER": "NYD2", "EVALUATION_START_DATE": ""},
				{"ID_NUMBER": "", "EVALUATION_START_DATE": "03/04/2021"},
			},
			agg:  AggregatorCount,
			want: map[string]float64{"NYD1": 2},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New(catalogGet(t, tc.program), region.State{Code: "NY"})
			c.Store(table.New(nil, tc.rows), "q", batch.Report{})

			got, err := c.FacilityTotals()
			if err != nil {
				t.Fatalf("FacilityTotals: %v", err)
			}
			if got.Aggregator != tc.agg {
				t.Fatalf("aggregator %q want %q", got.Aggregator, tc.agg)
			}
			values := map[string]float64{}
			for _, f := range got.Facilities {
				values[f.ID] = f.Value
			}
			if !reflect.DeepEqual(values, tc.want) {
				t.Fatalf("got %v want %v", values, tc.want)
			}
		})
	}
}

func TestFacilityTotalsCarriesLocation(t *testing.T) {
	c := New(catalogGet(t, "CWA Violations"), region.State{Code: "NY"})
	c.Store(table.New(nil, []table.Row{
		{"NPDES_ID": "NY009", "NUME90Q": "1"},
		{"NPDES_ID": "NY009", "FAC_NAME": "MILL", "FAC_LAT": "42.5", "FAC_LONG": "-78.5", "NUME90Q": "1"},
		{"NPDES_ID": "NY001", "FAC_NAME": "PLANT", "NUMPSCH": "3"},
	}), "q", batch.Report{})

	got, err := c.FacilityTotals()
	if err != nil {
		t.Fatalf("FacilityTotals: %v", err)
	}
	if !reflect.DeepEqual(got.IDs(), []string{"NY001", "NY009"}) {
		t.Fatalf("ids %v", got.IDs())
	}
	mill := got.Facilities[1]
	if mill.Name != "MILL" || mill.Lat == nil || *mill.Lat != 42.5 || mill.Long == nil || *mill.Long != -78.5 {
		t.Fatalf("location not taken from the first row that has it: %+v", mill)
	}
	if got.Facilities[0].Lat != nil {
		t.Fatalf("missing coordinates should stay nil")
	}
}

func TestFacilityTotalsErrors(t *testing.T) {
	c := New(catalogGet(t, "RCRA Violations"), region.State{Code: "NY"})
	_, err := c.FacilityTotals()
	kit.MustCode(t, err, perr.ErrorCodeEmptyResult)

	c.Store(table.New([]string{"REGISTRY_ID"}, []table.Row{{"REGISTRY_ID": "1"}}), "q", batch.Report{})
	_, err = c.FacilityTotals()
	kit.MustCode(t, err, perr.ErrorCodeInvalidArgument)
}
