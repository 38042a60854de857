package region

import (
	"echokit/internal/core/sqlq"
	perr "echokit/internal/platform/errors"
)

// CountyStrategy selects how County selectors are matched
type CountyStrategy int

const (
	// CountyLike prefix matches each county name in the query
	CountyLike CountyStrategy = iota
	// CountyReconcile queries the whole state and matches corrected names client side
	CountyReconcile
)

// ParseCountyStrategy maps a config value to a strategy; unknown values fall back to CountyLike
func ParseCountyStrategy(s string) CountyStrategy {
	if s == "reconcile" {
		return CountyReconcile
	}
	return CountyLike
}

// Builder renders predicates for selectors; the zero value uses CountyLike
type Builder struct {
	County CountyStrategy
}

// BuildPredicate renders sel with the default builder
func BuildPredicate(sel Selector) (sqlq.Predicate, error) { return Builder{}.Predicate(sel) }

// Predicate renders the WHERE fragment for sel
// Neighborhood and IDList selectors are resolved by id instead and return an error here
func (b Builder) Predicate(sel Selector) (sqlq.Predicate, error) {
	if err := Validate(sel); err != nil {
		return "", err
	}
	switch s := sel.(type) {
	case State:
		return stateEq(s.Code), nil
	case County:
		if b.County == CountyReconcile {
			return stateEq(s.State), nil
		}
		likes := make([]sqlq.Predicate, len(s.Names))
		for i, n := range s.Names {
			likes[i] = sqlq.Like(Field(KindCounty), n)
		}
		return sqlq.And(sqlq.Or(likes...), stateEq(s.State)), nil
	case CongressionalDistrict:
		nums, err := sqlq.Integers(s.Districts)
		if err != nil {
			return "", perr.WithField(err, "values")
		}
		return sqlq.And(sqlq.In(Field(KindCongressionalDistrict), nums), stateEq(s.State)), nil
	case ZipCode:
		return sqlq.In(Field(KindZipCode), sqlq.Strings(s.Zips)), nil
	case Watershed:
		return sqlq.In(Field(s.Kind()), sqlq.Strings(s.Codes)), nil
	case CensusTract:
		return sqlq.In(Field(KindCensusTract), sqlq.Strings(s.Tracts)), nil
	case Neighborhood, IDList:
		return "", perr.InvalidArgf("%s selectors resolve to ids, not a predicate", sel.Kind())
	}
	return "", perr.InvalidArgf("unsupported selector %T", sel)
}

// NeedsReconcile reports whether results for sel must pass through a county Reconciler
func (b Builder) NeedsReconcile(sel Selector) bool {
	_, ok := sel.(County)
	return ok && b.County == CountyReconcile
}

func stateEq(code string) sqlq.Predicate {
	return sqlq.Eq(Field(KindState), sqlq.String(code))
}
