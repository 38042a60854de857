// Package region turns geographic selectors into ECHO query predicates
package region

import (
	"strings"

	"github.com/ctessum/geom"

	perr "echokit/internal/platform/errors"
	str "echokit/internal/platform/strings"
)

// Kind tags a Selector variant
type Kind string

// Selector kinds accepted at the API boundary
const (
	KindState                 Kind = "state"
	KindCounty                Kind = "county"
	KindCongressionalDistrict Kind = "congressional_district"
	KindZipCode               Kind = "zip_code"
	KindWatershed             Kind = "watershed"
	KindHUC12                 Kind = "huc12"
	KindCensusTract           Kind = "census_tract"
	KindNeighborhood          Kind = "neighborhood"
	KindIDList                Kind = "ids"
)

// Kinds lists every accepted kind
var Kinds = []Kind{
	KindState, KindCounty, KindCongressionalDistrict, KindZipCode, KindWatershed,
	KindHUC12, KindCensusTract, KindNeighborhood, KindIDList,
}

// registry columns each kind filters on
var fields = map[Kind]string{
	KindState:                 "FAC_STATE",
	KindCounty:                "FAC_COUNTY",
	KindCongressionalDistrict: "FAC_DERIVED_CD113",
	KindZipCode:               "FAC_ZIP",
	KindWatershed:             "FAC_DERIVED_HUC",
	KindHUC12:                 "FAC_DERIVED_WBD",
	KindCensusTract:           "FAC_DERIVED_CB2010",
}

// Field returns the registry column for k, or "" for kinds that are not column filters
func Field(k Kind) string { return fields[k] }

// Selector is the closed set of region variants
type Selector interface {
	Kind() Kind
	// Values returns the selector values as text, for audit and display
	Values() []string
	// StateCode returns the state qualifier or ""
	StateCode() string
	validate() error
}

// State selects facilities in one state
type State struct{ Code string }

// County selects facilities in named counties of one state
type County struct {
	State string
	Names []string
}

// CongressionalDistrict selects facilities in numbered districts of one state
type CongressionalDistrict struct {
	State     string
	Districts []string
}

// ZipCode selects facilities by zip
type ZipCode struct{ Zips []string }

// Watershed selects facilities by HUC8 code, or HUC12 when Fine is set
type Watershed struct {
	Codes []string
	Fine  bool
}

// CensusTract selects facilities by 2010 census block code
type CensusTract struct{ Tracts []string }

// Neighborhood selects facilities inside a polygon; x is longitude and y latitude
type Neighborhood struct{ Polygon geom.Polygon }

// IDList selects records by id directly
type IDList struct{ IDs []string }

// Kind implements Selector
func (State) Kind() Kind { return KindState }

// Kind implements Selector
func (County) Kind() Kind { return KindCounty }

// Kind implements Selector
func (CongressionalDistrict) Kind() Kind { return KindCongressionalDistrict }

// Kind implements Selector
func (ZipCode) Kind() Kind { return KindZipCode }

// Kind implements Selector
func (w Watershed) Kind() Kind {
	if w.Fine {
		return KindHUC12
	}
	return KindWatershed
}

// Kind implements Selector
func (CensusTract) Kind() Kind { return KindCensusTract }

// Kind implements Selector
func (Neighborhood) Kind() Kind { return KindNeighborhood }

// Kind implements Selector
func (IDList) Kind() Kind { return KindIDList }

// Values implements Selector
func (s State) Values() []string { return []string{s.Code} }

// Values implements Selector
func (s County) Values() []string { return s.Names }

// Values implements Selector
func (s CongressionalDistrict) Values() []string { return s.Districts }

// Values implements Selector
func (s ZipCode) Values() []string { return s.Zips }

// Values implements Selector
func (s Watershed) Values() []string { return s.Codes }

// Values implements Selector
func (s CensusTract) Values() []string { return s.Tracts }

// Values renders each vertex as "lon lat"
func (s Neighborhood) Values() []string {
	var out []string
	for _, ring := range s.Polygon {
		for _, p := range ring {
			out = append(out, formatPoint(p))
		}
	}
	return out
}

// Values implements Selector
func (s IDList) Values() []string { return s.IDs }

// StateCode implements Selector
func (s State) StateCode() string { return s.Code }

// StateCode implements Selector
func (s County) StateCode() string { return s.State }

// StateCode implements Selector
func (s CongressionalDistrict) StateCode() string { return s.State }

// StateCode implements Selector
func (ZipCode) StateCode() string { return "" }

// StateCode implements Selector
func (Watershed) StateCode() string { return "" }

// StateCode implements Selector
func (CensusTract) StateCode() string { return "" }

// StateCode implements Selector
func (Neighborhood) StateCode() string { return "" }

// StateCode implements Selector
func (IDList) StateCode() string { return "" }

func (s State) validate() error { return validState(s.Code) }

func (s County) validate() error {
	if err := validState(s.State); err != nil {
		return err
	}
	return nonEmpty(s.Names, "county names")
}

func (s CongressionalDistrict) validate() error {
	if err := validState(s.State); err != nil {
		return err
	}
	return nonEmpty(s.Districts, "district numbers")
}

func (s ZipCode) validate() error     { return nonEmpty(s.Zips, "zip codes") }
func (s Watershed) validate() error   { return nonEmpty(s.Codes, "watershed codes") }
func (s CensusTract) validate() error { return nonEmpty(s.Tracts, "census tracts") }
func (s IDList) validate() error      { return nonEmpty(s.IDs, "ids") }

func (s Neighborhood) validate() error {
	if len(s.Polygon) == 0 || len(s.Polygon[0]) < 3 {
		return perr.WithField(perr.InvalidArgf("polygon needs at least three vertices"), "polygon")
	}
	return nil
}

func validState(code string) error {
	code = strings.TrimSpace(code)
	if len(code) != 2 {
		return perr.WithField(perr.InvalidArgf("a two letter state is required, got %q", code), "state")
	}
	return nil
}

func nonEmpty(vals []string, what string) error {
	if len(vals) == 0 {
		return perr.WithField(perr.InvalidArgf("%s are required", what), "values")
	}
	return nil
}

// Validate reports why sel cannot be queried
func Validate(sel Selector) error {
	if sel == nil {
		return perr.InvalidArgf("region selector is required")
	}
	return sel.validate()
}

// Parse resolves a kind and raw values into a Selector
// Each value may itself be a comma separated list, and the state is upper cased
func Parse(kind string, values []string, state string) (Selector, error) {
	var vals []string
	for _, v := range values {
		vals = append(vals, str.SplitList(v)...)
	}
	state = strings.ToUpper(strings.TrimSpace(state))

	var sel Selector
	switch Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case KindState:
		if state == "" && len(vals) == 1 {
			state = strings.ToUpper(vals[0])
		}
		sel = State{Code: state}
	case KindCounty:
		sel = County{State: state, Names: upperAll(vals)}
	case KindCongressionalDistrict:
		sel = CongressionalDistrict{State: state, Districts: vals}
	case KindZipCode:
		sel = ZipCode{Zips: vals}
	case KindWatershed:
		sel = Watershed{Codes: vals}
	case KindHUC12:
		sel = Watershed{Codes: vals, Fine: true}
	case KindCensusTract:
		sel = CensusTract{Tracts: vals}
	case KindIDList:
		sel = IDList{IDs: vals}
	case KindNeighborhood:
		return nil, perr.InvalidArgf("neighborhood selectors are built from a polygon")
	default:
		return nil, perr.WithField(perr.InvalidArgf("unknown region kind %q", kind), "kind")
	}
	if err := sel.validate(); err != nil {
		return nil, err
	}
	return sel, nil
}

func upperAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
