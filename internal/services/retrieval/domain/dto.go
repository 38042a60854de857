// Package domain holds DTOs and ports for the retrieval service
package domain

import (
	"encoding/json"
	"time"

	"echokit/internal/core/batch"
	"echokit/internal/core/program"
	"echokit/internal/core/region"
	"echokit/internal/core/results"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
)

// RegionInput is the wire form of a region selector
// neighborhood takes a GeoJSON polygon; every other kind takes values
type RegionInput struct {
	Kind    string          `json:"kind" validate:"required,oneof=state county congressional_district zip_code watershed huc12 census_tract neighborhood ids" example:"county"`
	Values  []string        `json:"values,omitempty" validate:"omitempty,max=5000,dive,required,max=64" example:"ERIE,NIAGARA"`
	State   string          `json:"state,omitempty" validate:"omitempty,us_state" example:"NY"`
	Polygon json.RawMessage `json:"polygon,omitempty" swaggertype:"object"`
}

// Selector resolves the input into a validated selector
func (in RegionInput) Selector() (region.Selector, error) {
	if region.Kind(in.Kind) == region.KindNeighborhood {
		if len(in.Polygon) == 0 {
			return nil, perr.WithField(perr.InvalidArgf("neighborhood regions need a polygon"), "polygon")
		}
		nb, err := region.ParseGeoJSON(in.Polygon)
		if err != nil {
			return nil, err
		}
		return nb, nil
	}
	return region.Parse(in.Kind, in.Values, in.State)
}

// RetrieveInput asks for one program's records in a region
type RetrieveInput struct {
	Program       string      `json:"program" validate:"required,max=100" example:"RCRA Violations"`
	Region        RegionInput `json:"region"`
	BatchSize     int         `json:"batch_size,omitempty" validate:"omitempty,min=1,max=1000" example:"50"`
	IncludeTotals bool        `json:"include_totals,omitempty" example:"true"`
	// IncludeFacilities adds per facility totals; IncludeOthers also lists active program facilities without records
	IncludeFacilities bool `json:"include_facilities,omitempty" example:"true"`
	IncludeOthers     bool `json:"include_others,omitempty" example:"false"`
}

// RetrieveResult is the stored table plus what is needed to reproduce it
type RetrieveResult struct {
	ID            string                  `json:"id" example:"6b1f0a3e-5b9a-4c53-9d0b-0f3e7c1c2d11"`
	Program       string                  `json:"program" example:"RCRA Violations"`
	RegionKind    string                  `json:"region_kind" example:"county"`
	Query         string                  `json:"query" example:"SELECT * FROM \"RCRA_VIOLATIONS_MVIEW\" WHERE FAC_STATE = 'NY'"`
	Report        batch.Report            `json:"report"`
	Summary       string                  `json:"summary" example:"120 ids were searched, 7 program records were found"`
	RowsFound     int                     `json:"rows_found" example:"7"`
	Key           string                  `json:"key,omitempty" example:"ID_NUMBER"`
	Columns       []string                `json:"columns"`
	Rows          []table.Row             `json:"rows" swaggertype:"array,object"`
	Warnings      []string                `json:"warnings,omitempty"`
	Totals        *results.Totals         `json:"totals,omitempty"`
	Facilities    *results.FacilityTotals `json:"facilities,omitempty"`
	Others        *FacilitiesResult       `json:"others,omitempty"`
	StoredAt      time.Time               `json:"stored_at" example:"2026-03-03T13:00:00Z"`
	FailedBatches int                     `json:"failed_batches" example:"0"`
}

// ActiveInput selects active facilities in a region
type ActiveInput struct {
	Region RegionInput `json:"region"`
}

// FacilitiesResult lists registry rows keyed by REGISTRY_ID
type FacilitiesResult struct {
	RowsFound int         `json:"rows_found" example:"42"`
	Columns   []string    `json:"columns"`
	Rows      []table.Row `json:"rows" swaggertype:"array,object"`
}

// TopViolatorsInput ranks active facilities of one program by noncompliant quarters,
// or by reported releases for GHG and TRI programs
type TopViolatorsInput struct {
	Program string      `json:"program" validate:"required,max=100" example:"CAA Violations"`
	Region  RegionInput `json:"region"`
	Limit   int         `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"10"`
}

// Violator is one ranked facility
type Violator struct {
	RegistryID    string   `json:"registry_id" example:"110000307695"`
	Name          string   `json:"name" example:"ACME PLATING"`
	Noncompliance int      `json:"noncomp_count" example:"9"`
	FormalActions int      `json:"formal_actions" example:"2"`
	Value         *float64 `json:"value,omitempty" example:"51234.5"`
	DFRURL        string   `json:"dfr_url,omitempty" example:"http://echo.epa.gov/detailed-facility-report?fid=110000307695"`
	Lat           *float64 `json:"lat,omitempty" example:"42.88"`
	Long          *float64 `json:"long,omitempty" example:"-78.87"`
}

// TopViolatorsResult is the ranking plus the size of the full violator list
type TopViolatorsResult struct {
	Program    string     `json:"program" example:"CAA Violations"`
	History    string     `json:"history_field,omitempty" example:"CAA_3YR_COMPL_QTRS_HISTORY"`
	RankedBy   string     `json:"ranked_by,omitempty" example:"GHG_CO2_RELEASES"`
	Violators  []Violator `json:"violators"`
	TotalFound int        `json:"total_violators" example:"31"`
}

// ProgramsResult lists the catalog
type ProgramsResult struct {
	Programs []program.Descriptor `json:"programs"`
}

// LastModifiedResult reports when the program's base table was refreshed upstream
type LastModifiedResult struct {
	Program   string `json:"program" example:"RCRA Violations"`
	BaseTable string `json:"base_table" example:"RCRA_VIOLATIONS"`
	Modified  string `json:"modified" example:"2026-02-28"`
}

// RecentInput pages the audit log
type RecentInput struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=200" example:"20"`
}

// Retrieval is one audit record
type Retrieval struct {
	ID            string    `json:"id" example:"6b1f0a3e-5b9a-4c53-9d0b-0f3e7c1c2d11"`
	Program       string    `json:"program" example:"RCRA Violations"`
	RegionKind    string    `json:"region_kind" example:"county"`
	RegionValues  []string  `json:"region_values" example:"ERIE,NIAGARA"`
	State         string    `json:"state,omitempty" example:"NY"`
	Query         string    `json:"query"`
	IDsSearched   int       `json:"ids_searched" example:"120"`
	RowsFound     int       `json:"rows_found" example:"7"`
	FailedBatches int       `json:"failed_batches" example:"0"`
	CreatedAt     time.Time `json:"created_at" example:"2026-03-03T13:00:00Z"`
}
