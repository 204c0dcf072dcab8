package walk

import (
	"math"
	"sort"
)

// DefaultStepLength is an average adult stride in meters
const DefaultStepLength = 0.75

// Projector maps a progress fraction onto a route
type Projector struct {
	StepLength float64
}

// NewProjector returns a projector for the given stride length
func NewProjector(stepLength float64) (Projector, error) {
	if !positive(stepLength) {
		return Projector{}, ErrInvalidStepLength
	}
	return Projector{StepLength: stepLength}, nil
}

// Project returns the interpolated position and derived metrics for progress.
// The result depends only on its arguments.
func (p Projector) Project(route Route, progress, speed float64) Projection {
	if route.IsZero() {
		return Projection{}
	}

	progress = clampProgress(progress)
	target := progress * route.totalLength

	var proj Projection
	switch {
	case progress <= 0:
		target = 0
		proj.Position = route.geometry[0]
		proj.Course = Bearing(route.geometry[0], route.geometry[1])
	case progress >= 1:
		target = route.totalLength
		last := len(route.geometry) - 1
		proj.Position = route.geometry[last]
		proj.Course = Bearing(route.geometry[last-1], route.geometry[last])
	default:
		proj.Position, proj.Course = route.pointAt(target)
	}

	proj.DistanceCovered = target
	proj.StepsTaken = p.steps(target)
	if positive(speed) {
		proj.TimeRemaining = math.Max(0, (route.totalLength-target)/speed)
	}
	return proj
}

// TotalSteps returns the steps needed for the whole route
func (p Projector) TotalSteps(route Route) int {
	return p.steps(route.totalLength)
}

func (p Projector) steps(distance float64) int {
	if !positive(p.StepLength) || distance <= 0 {
		return 0
	}
	return int(math.Floor(distance / p.StepLength))
}

// pointAt returns the point at arc length target along the route and the
// bearing of the segment it falls on. target must be inside (0, totalLength).
func (r Route) pointAt(target float64) (Coordinate, float64) {
	// first index whose cumulative distance reaches target
	i := sort.SearchFloat64s(r.cumulative, target)
	if i <= 0 {
		i = 1
	}
	if i >= len(r.geometry) {
		i = len(r.geometry) - 1
	}

	from, to := r.geometry[i-1], r.geometry[i]
	course := Bearing(from, to)

	segment := r.cumulative[i] - r.cumulative[i-1]
	if segment <= 0 {
		return to, course
	}

	along := target - r.cumulative[i-1]
	switch {
	case along <= 0:
		return from, course
	case along >= segment:
		return to, course
	}
	// walk the great circle so segments across the antimeridian stay on the route
	return Destination(from, course, along), course
}

func clampProgress(progress float64) float64 {
	if math.IsNaN(progress) || progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}
