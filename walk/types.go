package walk

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Coordinate is a latitude/longitude pair in decimal degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// ParseCoordinate parses a string like "12.9716,77.5946" into a Coordinate
func ParseCoordinate(input string) (Coordinate, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q: %w", input, ErrInvalidInput)
	}

	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return Coordinate{}, fmt.Errorf("invalid lat/lon %q: %w", input, ErrInvalidInput)
	}

	c := Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("coordinate %q out of range: %w", input, ErrInvalidInput)
	}
	return c, nil
}

// Valid reports whether the coordinate is finite and within WGS84 bounds
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Point converts to an orb point, which is ordered [lon, lat]
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lon, c.Lat}
}

// String formats the coordinate with six decimals
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon)
}

func coordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lon: p.Lon()}
}

// SourceTier records where a route's geometry came from
type SourceTier int

const (
	// Routed geometry came from the directions service
	Routed SourceTier = iota
	// StraightLineFallback geometry is a synthesized segment between the endpoints
	StraightLineFallback
)

func (t SourceTier) String() string {
	switch t {
	case Routed:
		return "routed"
	case StraightLineFallback:
		return "straight_line_fallback"
	default:
		return fmt.Sprintf("SourceTier(%d)", int(t))
	}
}

// MarshalText encodes the tier as its name
func (t SourceTier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a tier name
func (t *SourceTier) UnmarshalText(b []byte) error {
	switch string(b) {
	case "routed":
		*t = Routed
	case "straight_line_fallback":
		*t = StraightLineFallback
	default:
		return fmt.Errorf("unknown source tier %q", string(b))
	}
	return nil
}

// Projection is the position and metrics derived from a progress fraction
type Projection struct {
	Position        Coordinate `json:"position"`
	StepsTaken      int        `json:"steps_taken"`
	DistanceCovered float64    `json:"distance_covered"` // meters
	TimeRemaining   float64    `json:"time_remaining"`   // seconds
	Course          float64    `json:"course"`           // degrees, bearing of the current segment
}

// Frame is what renderers receive on every tick
type Frame struct {
	Projection
	Progress      float64    `json:"progress"`
	Running       bool       `json:"running"`
	Complete      bool       `json:"complete"`
	HasRoute      bool       `json:"has_route"`
	Speed         float64    `json:"speed"`        // m/s
	TotalLength   float64    `json:"total_length"` // meters
	TotalSteps    int        `json:"total_steps"`
	TotalDuration float64    `json:"total_duration"` // seconds at current speed
	Tier          SourceTier `json:"tier"`
	Advisory      string     `json:"advisory,omitempty"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Remaining returns the time remaining as a duration
func (f Frame) Remaining() time.Duration {
	return secondsToDuration(f.TimeRemaining)
}

// secondsToDuration converts seconds to a duration, saturating at the
// longest representable duration instead of overflowing.
func secondsToDuration(seconds float64) time.Duration {
	ns := seconds * float64(time.Second)
	switch {
	case math.IsNaN(ns) || ns <= 0:
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
