package region

import (
	"context"
	"strconv"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"

	"echokit/internal/core/sqlq"
	"echokit/internal/core/table"
	perr "echokit/internal/platform/errors"
)

// Facility registry columns used by the spatial join
const (
	idCol     = "REGISTRY_ID"
	latCol    = "FAC_LAT"
	lonCol    = "FAC_LONG"
	activeCol = "FAC_ACTIVE_FLAG"
)

// NewNeighborhood builds a Neighborhood from [lon, lat] pairs; the ring is closed if needed
func NewNeighborhood(points [][2]float64) (Neighborhood, error) {
	ring := make([]geom.Point, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, geom.Point{X: p[0], Y: p[1]})
	}
	if n := len(ring); n > 0 && !ring[0].Equals(ring[n-1]) {
		ring = append(ring, ring[0])
	}
	nb := Neighborhood{Polygon: geom.Polygon{ring}}
	if err := nb.validate(); err != nil {
		return Neighborhood{}, err
	}
	return nb, nil
}

// ParseGeoJSON builds a Neighborhood from a GeoJSON Polygon geometry
func ParseGeoJSON(data []byte) (Neighborhood, error) {
	g, err := geojson.Decode(data)
	if err != nil {
		return Neighborhood{}, perr.WithField(perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode geojson"), "polygon")
	}
	poly, ok := g.(geom.Polygon)
	if !ok {
		return Neighborhood{}, perr.WithField(perr.InvalidArgf("geojson geometry must be a Polygon, got %T", g), "polygon")
	}
	nb := Neighborhood{Polygon: poly}
	if err := nb.validate(); err != nil {
		return Neighborhood{}, err
	}
	return nb, nil
}

// CandidateQuery fetches the id and coordinates of every active facility
func CandidateQuery() sqlq.Query {
	return sqlq.Query{
		SQL:        sqlq.Select(sqlq.DefaultTable, []string{idCol, latCol, lonCol}, sqlq.Eq(activeCol, sqlq.String("Y"))),
		Table:      sqlq.DefaultTable,
		IndexField: idCol,
	}
}

// Within returns the registry ids of candidates inside the polygon, in candidate order
// Rows are checked against the bounding box first; points on an edge count as inside
func (n Neighborhood) Within(candidates *table.Table) []string {
	box := n.Polygon.Bounds()
	var out []string
	for _, r := range candidates.Rows() {
		lat, okLat := r.Float(latCol)
		lon, okLon := r.Float(lonCol)
		if !okLat || !okLon {
			continue
		}
		p := geom.Point{X: lon, Y: lat}
		if p.X < box.Min.X || p.X > box.Max.X || p.Y < box.Min.Y || p.Y > box.Max.Y {
			continue
		}
		if p.Within(n.Polygon) == geom.Outside {
			continue
		}
		out = append(out, r.String(idCol))
	}
	return out
}

// Executor runs one query against the remote service
type Executor interface {
	Execute(ctx context.Context, q sqlq.Query) (*table.Table, error)
}

// ResolveNeighborhood runs the candidate query through exec and returns the registry ids inside n
// A candidate query that yields no data resolves to no ids
func ResolveNeighborhood(ctx context.Context, exec Executor, n Neighborhood) ([]string, error) {
	cand, err := exec.Execute(ctx, CandidateQuery())
	if err != nil && !perr.HasCode(err, perr.ErrorCodeEmptyResult) {
		return nil, err
	}
	return n.Within(cand), nil
}

func formatPoint(p geom.Point) string {
	return strconv.FormatFloat(p.X, 'f', -1, 64) + " " + strconv.FormatFloat(p.Y, 'f', -1, 64)
}
