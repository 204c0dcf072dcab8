package walk

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// Directions is an external walking-directions provider
type Directions interface {
	Directions(ctx context.Context, start, end Coordinate) (Leg, error)
}

// Leg is a provider response: an ordered geometry and the provider's length
type Leg struct {
	Geometry []Coordinate
	Distance float64 // meters, as reported by the provider
}

// DirectionsFunc adapts a function to the Directions interface
type DirectionsFunc func(ctx context.Context, start, end Coordinate) (Leg, error)

// Directions calls f
func (f DirectionsFunc) Directions(ctx context.Context, start, end Coordinate) (Leg, error) {
	return f(ctx, start, end)
}

// Advisory messages shown when the straight-line fallback is used
const (
	AdvisorySlow     = "Using straight line (directions service was slow)"
	AdvisoryFallback = "Using straight line estimate"
)

// Acquirer obtains routes with a bounded wait and a straight-line fallback
type Acquirer struct {
	directions Directions
	timeout    time.Duration
	logger     log.FieldLogger
}

// NewAcquirer returns an acquirer racing directions against timeout.
// A nil directions provider always falls back to the straight line.
func NewAcquirer(directions Directions, timeout time.Duration, logger log.FieldLogger) (*Acquirer, error) {
	if timeout <= 0 {
		return nil, ErrInvalidTimeout
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Acquirer{directions: directions, timeout: timeout, logger: logger}, nil
}

// Acquire returns a route from start to end. Only invalid input is an error;
// every provider failure yields the straight-line route plus an advisory.
func (a *Acquirer) Acquire(ctx context.Context, start, end Coordinate) (Route, string, error) {
	if !start.Valid() || !end.Valid() || start == end {
		return Route{}, "", ErrInvalidInput
	}

	fields := log.Fields{"start": start.String(), "end": end.String()}

	route, err := a.fetch(ctx, start, end)
	if err == nil {
		a.logger.WithFields(fields).WithFields(log.Fields{
			"points":   route.Len(),
			"distance": route.TotalLength(),
		}).Info("Route found")
		return route, "", nil
	}

	advisory := AdvisoryFallback
	if errors.Is(err, context.DeadlineExceeded) {
		advisory = AdvisorySlow
	}
	a.logger.WithFields(fields).WithError(err).Warn("Falling back to straight line route")

	fallback, ferr := StraightLine(start, end)
	if ferr != nil {
		// distinct endpoints can still collapse to zero length (e.g. both poles)
		return Route{}, "", ErrInvalidInput
	}
	return fallback, advisory, nil
}

func (a *Acquirer) fetch(ctx context.Context, start, end Coordinate) (Route, error) {
	if a.directions == nil {
		return Route{}, fmt.Errorf("%w: no provider configured", ErrRouteUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	type result struct {
		leg Leg
		err error
	}
	results := make(chan result, 1)
	go func() {
		leg, err := a.directions.Directions(ctx, start, end)
		results <- result{leg, err}
	}()

	var res result
	select {
	case res = <-results:
	case <-ctx.Done():
		return Route{}, fmt.Errorf("%w: %w", ErrRouteUnavailable, ctx.Err())
	}

	if res.err != nil {
		return Route{}, fmt.Errorf("%w: %w", ErrRouteUnavailable, res.err)
	}

	route, err := NewRoute(res.leg.Geometry, Routed)
	if err != nil {
		return Route{}, fmt.Errorf("%w: %w", ErrRouteUnavailable, err)
	}
	return route.withReportedLength(res.leg.Distance), nil
}
