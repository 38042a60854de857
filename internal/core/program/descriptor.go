// Package program describes the ECHO program tables a retrieval can target
package program

import (
	"strings"

	"echokit/internal/core/sqlq"
	perr "echokit/internal/platform/errors"
)

// AggType names how yearly totals are computed for a program
type AggType string

// Aggregations
const (
	AggNone  AggType = ""
	AggCount AggType = "count"
	AggSum   AggType = "sum"
)

// Coalesce derives Target from the first non blank Sources cell
type Coalesce struct {
	Target  string   `toml:"target"  json:"target"`
	Sources []string `toml:"sources" json:"sources"`
}

// Descriptor identifies one EPA program table and how to query it
// Values are built once from the catalog and only ever copied
type Descriptor struct {
	Name       string     `toml:"name"        json:"name"`
	BaseTable  string     `toml:"base_table"  json:"base_table"`
	View       string     `toml:"view"        json:"view"`
	Types      []string   `toml:"echo_type"   json:"echo_type,omitempty"`
	IDField    string     `toml:"id_field"    json:"id_field"`
	NumericIDs bool       `toml:"numeric_ids" json:"numeric_ids,omitempty"`
	DateField  string     `toml:"date_field"  json:"date_field,omitempty"`
	DateFormat string     `toml:"date_format" json:"date_format,omitempty"`
	Agg        AggType    `toml:"agg_type"    json:"agg_type,omitempty"`
	AggCol     string     `toml:"agg_col"     json:"agg_col,omitempty"`
	Unit       string     `toml:"unit"        json:"unit,omitempty"`
	Template   string     `toml:"sql"         json:"sql,omitempty"`
	Derived    []Coalesce `toml:"derived"     json:"derived,omitempty"`
}

// Validate checks the fields every query depends on
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return perr.InvalidArgf("descriptor name is required")
	}
	if d.View == "" && d.Template == "" {
		return perr.InvalidArgf("descriptor %s needs a view or a sql template", d.Name)
	}
	if err := sqlq.ValidField(d.IDField); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "descriptor %s id field", d.Name)
	}
	switch d.Agg {
	case AggNone, AggCount:
	case AggSum:
		if d.AggCol == "" {
			return perr.InvalidArgf("descriptor %s sums without an agg_col", d.Name)
		}
	default:
		return perr.InvalidArgf("descriptor %s has unknown agg_type %q", d.Name, d.Agg)
	}
	for _, c := range d.Derived {
		if c.Target == "" || len(c.Sources) == 0 {
			return perr.InvalidArgf("descriptor %s has an incomplete derived column", d.Name)
		}
	}
	return nil
}

// Select renders the query for pred
// Without a template it selects every column of the view; a template gets WHERE appended,
// or AND when the template already filters
func (d Descriptor) Select(pred sqlq.Predicate) string {
	if d.Template == "" {
		return sqlq.Select(d.View, nil, pred)
	}
	tpl := strings.TrimRight(d.Template, " \n\t;")
	if pred == "" {
		return tpl
	}
	if strings.Contains(strings.ToUpper(tpl), " WHERE ") {
		return tpl + " AND " + pred.String()
	}
	return tpl + " WHERE " + pred.String()
}

// Query wraps Select with the view and key the transport needs
func (d Descriptor) Query(pred sqlq.Predicate) sqlq.Query {
	return sqlq.Query{SQL: d.Select(pred), Table: d.endpoint(), IndexField: d.IDField}
}

func (d Descriptor) endpoint() string {
	if d.View != "" {
		return d.View
	}
	return d.BaseTable
}

// HasType reports whether the program carries the echo type tag t
func (d Descriptor) HasType(t string) bool {
	for _, x := range d.Types {
		if strings.EqualFold(x, t) {
			return true
		}
	}
	return false
}
