package program

import (
	"strings"

	"echokit/internal/core/table"
)

// Facility registry columns shared by several lookups
const (
	RegistryID = "REGISTRY_ID"
	ActiveFlag = "FAC_ACTIVE_FLAG"
	Latitude   = "FAC_LAT"
	Longitude  = "FAC_LONG"
	FacName    = "FAC_NAME"
)

// flagOverrides lists echo types whose flag column does not follow <TYPE>_FLAG
var flagOverrides = map[string]string{
	"SDWA": "SDWIS_FLAG",
}

// FlagColumn returns the facility registry column flagging participation in echo type t
func FlagColumn(t string) string {
	t = strings.ToUpper(t)
	if c, ok := flagOverrides[t]; ok {
		return c
	}
	return t + "_FLAG"
}

// IDsColumn returns the facility registry column listing program ids for echo type t
func IDsColumn(t string) string { return strings.ToUpper(t) + "_IDS" }

// EchoIDs returns the program ids of facilities flagged Y for echo type t
// Cells holding several space separated ids are split
func EchoIDs(facilities *table.Table, t string) []string {
	flag, ids := FlagColumn(t), IDsColumn(t)
	var out []string
	for _, r := range facilities.Rows() {
		if r.String(flag) != "Y" {
			continue
		}
		out = append(out, strings.Fields(r.String(ids))...)
	}
	return out
}

// HasEchoFlag reports whether any facility participates in one of the program's echo types
func HasEchoFlag(d Descriptor, facilities *table.Table) bool {
	for _, t := range d.Types {
		flag := FlagColumn(t)
		for _, r := range facilities.Rows() {
			if r.String(flag) == "Y" {
				return true
			}
		}
	}
	return false
}

// Compliance names the registry columns used to rank violators for one echo type
type Compliance struct {
	Flag    string
	History string // quarterly history string; S and V mark noncompliance
	Actions string // formal action count
}

var compliance = map[string]Compliance{
	"AIR":   {Flag: "AIR_FLAG", History: "CAA_3YR_COMPL_QTRS_HISTORY", Actions: "CAA_FORMAL_ACTION_COUNT"},
	"NPDES": {Flag: "NPDES_FLAG", History: "CWA_13QTRS_COMPL_HISTORY", Actions: "CWA_FORMAL_ACTION_COUNT"},
	"RCRA":  {Flag: "RCRA_FLAG", History: "RCRA_3YR_COMPL_QTRS_HISTORY", Actions: "RCRA_FORMAL_ACTION_COUNT"},
}

// ComplianceFor returns the ranking columns of the first echo type of d that has them
func ComplianceFor(d Descriptor) (Compliance, bool) {
	for _, t := range d.Types {
		if c, ok := compliance[strings.ToUpper(t)]; ok {
			return c, true
		}
	}
	return Compliance{}, false
}

// releaseFields are registry columns ranking facilities of echo types that have no compliance history
var releaseFields = map[string]string{
	"GHG": "GHG_CO2_RELEASES",
	"TRI": "TRI_RELEASES_TRANSFERS",
}

// RankFieldFor returns the numeric registry column ranking facilities of d
// Programs spanning several echo types rank on the first one listed
func RankFieldFor(d Descriptor) (string, bool) {
	for _, t := range d.Types {
		if f, ok := releaseFields[strings.ToUpper(t)]; ok {
			return f, true
		}
	}
	return "", false
}
