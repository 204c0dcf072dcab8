package walk

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// Route is an immutable path with its cumulative geodesic length.
// Build one with NewRoute or StraightLine; a new acquisition replaces it.
type Route struct {
	geometry       []Coordinate
	cumulative     []float64 // cumulative[i] is the distance from geometry[0] to geometry[i]
	totalLength    float64
	reportedLength float64
	tier           SourceTier
}

// NewRoute builds a route from an ordered geometry. The total length is the
// haversine sum of consecutive points, regardless of what a provider reported.
func NewRoute(geometry []Coordinate, tier SourceTier) (Route, error) {
	if len(geometry) < 2 {
		return Route{}, ErrInvalidRoute
	}

	points := make([]Coordinate, len(geometry))
	copy(points, geometry)

	cumulative := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		if !points[i].Valid() || !points[i-1].Valid() {
			return Route{}, ErrInvalidRoute
		}
		cumulative[i] = cumulative[i-1] + Distance(points[i-1], points[i])
	}

	total := cumulative[len(cumulative)-1]
	if !positive(total) {
		return Route{}, ErrInvalidRoute
	}

	return Route{
		geometry:       points,
		cumulative:     cumulative,
		totalLength:    total,
		reportedLength: total,
		tier:           tier,
	}, nil
}

// StraightLine synthesizes the two point fallback route between start and end
func StraightLine(start, end Coordinate) (Route, error) {
	return NewRoute([]Coordinate{start, end}, StraightLineFallback)
}

// withReportedLength returns a copy carrying the provider's own distance figure
func (r Route) withReportedLength(meters float64) Route {
	if positive(meters) {
		r.reportedLength = meters
	}
	return r
}

// Geometry returns a copy of the ordered coordinates
func (r Route) Geometry() []Coordinate {
	out := make([]Coordinate, len(r.geometry))
	copy(out, r.geometry)
	return out
}

// Len returns the number of points in the geometry
func (r Route) Len() int { return len(r.geometry) }

// Start returns the first coordinate
func (r Route) Start() Coordinate { return r.geometry[0] }

// End returns the last coordinate
func (r Route) End() Coordinate { return r.geometry[len(r.geometry)-1] }

// TotalLength returns the route length in meters
func (r Route) TotalLength() float64 { return r.totalLength }

// ReportedLength is the distance the directions provider claimed, for display
func (r Route) ReportedLength() float64 { return r.reportedLength }

// Tier reports where the geometry came from
func (r Route) Tier() SourceTier { return r.tier }

// IsZero reports whether r is the empty route
func (r Route) IsZero() bool { return len(r.geometry) == 0 }

// LineString converts the geometry to an orb line string
func (r Route) LineString() orb.LineString {
	ls := make(orb.LineString, len(r.geometry))
	for i, c := range r.geometry {
		ls[i] = c.Point()
	}
	return ls
}

// Feature returns the route as a GeoJSON feature
func (r Route) Feature() *geojson.Feature {
	f := geojson.NewFeature(r.LineString())
	f.Properties["kind"] = "route"
	f.Properties["tier"] = r.tier.String()
	f.Properties["total_length"] = r.totalLength
	f.Properties["reported_length"] = r.reportedLength
	return f
}

// Distance returns the great-circle distance between two coordinates in meters
func Distance(a, b Coordinate) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// Bearing returns the initial bearing from a to b, normalized to [0, 360)
func Bearing(a, b Coordinate) float64 {
	bearing := geo.Bearing(a.Point(), b.Point())
	bearing = math.Mod(bearing, 360)
	if bearing < 0 {
		bearing += 360
	}
	return bearing
}

// Destination returns the point reached from c after distance meters on bearing
func Destination(c Coordinate, bearing, distance float64) Coordinate {
	d := coordinateFromPoint(geo.PointAtBearingAndDistance(c.Point(), bearing, distance))
	d.Lon = normalizeLon(d.Lon)
	return d
}

// normalizeLon wraps a longitude into [-180, 180]
func normalizeLon(lon float64) float64 {
	if lon >= -180 && lon <= 180 {
		return lon
	}
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
