package walk

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
)

// Helper function to create a logger that discards output
func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func createTestAcquirer(t *testing.T, directions Directions, timeout time.Duration) *Acquirer {
	t.Helper()
	acquirer, err := NewAcquirer(directions, timeout, quietLogger())
	if err != nil {
		t.Fatalf("Failed to create acquirer: %v", err)
	}
	return acquirer
}

func TestAcquireRouted(t *testing.T) {
	a := Coordinate{Lat: 52.52, Lon: 13.405}
	mid := Destination(a, 90, 400)
	b := Destination(mid, 0, 300)

	directions := DirectionsFunc(func(ctx context.Context, start, end Coordinate) (Leg, error) {
		return Leg{Geometry: []Coordinate{start, mid, end}, Distance: 712.3}, nil
	})
	acquirer := createTestAcquirer(t, directions, time.Second)

	route, advisory, err := acquirer.Acquire(context.Background(), a, b)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if advisory != "" {
		t.Errorf("advisory = %q, want none", advisory)
	}
	if route.Tier() != Routed {
		t.Errorf("Tier() = %v, want Routed", route.Tier())
	}
	if route.Len() != 3 {
		t.Errorf("Len() = %d, want 3", route.Len())
	}
	// the provider's distance is informational only
	if math.Abs(route.TotalLength()-700) > 1 {
		t.Errorf("TotalLength() = %f, want ~700", route.TotalLength())
	}
	if route.ReportedLength() != 712.3 {
		t.Errorf("ReportedLength() = %f, want 712.3", route.ReportedLength())
	}
}

func TestAcquireTimesOut(t *testing.T) {
	a := Coordinate{Lat: 0, Lon: 0}
	b := Destination(a, 45, 1414)

	// a provider that never answers on its own
	directions := DirectionsFunc(func(ctx context.Context, start, end Coordinate) (Leg, error) {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Leg{Geometry: []Coordinate{start, end}}, nil
	})
	acquirer := createTestAcquirer(t, directions, 20*time.Millisecond)

	begin := time.Now()
	route, advisory, err := acquirer.Acquire(context.Background(), a, b)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if elapsed := time.Since(begin); elapsed > time.Second {
		t.Errorf("Acquire took %v, want about the timeout", elapsed)
	}

	if route.Tier() != StraightLineFallback {
		t.Errorf("Tier() = %v, want StraightLineFallback", route.Tier())
	}
	if advisory != AdvisorySlow {
		t.Errorf("advisory = %q, want %q", advisory, AdvisorySlow)
	}
	geometry := route.Geometry()
	if len(geometry) != 2 || geometry[0] != a || geometry[1] != b {
		t.Errorf("Geometry() = %v, want [%v %v]", geometry, a, b)
	}
	if math.Abs(route.TotalLength()-1414) > 0.5 {
		t.Errorf("TotalLength() = %f, want ~1414", route.TotalLength())
	}
}

func TestAcquireFallsBackOnFailure(t *testing.T) {
	a := Coordinate{Lat: 40.7128, Lon: -74.0060}
	b := Coordinate{Lat: 40.7306, Lon: -73.9352}

	tests := []struct {
		name       string
		directions Directions
	}{
		{"no provider", nil},
		{"provider error", DirectionsFunc(func(context.Context, Coordinate, Coordinate) (Leg, error) {
			return Leg{}, errors.New("connection refused")
		})},
		{"empty geometry", DirectionsFunc(func(context.Context, Coordinate, Coordinate) (Leg, error) {
			return Leg{}, nil
		})},
		{"single point", DirectionsFunc(func(_ context.Context, start, _ Coordinate) (Leg, error) {
			return Leg{Geometry: []Coordinate{start}}, nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acquirer := createTestAcquirer(t, tt.directions, time.Second)
			route, advisory, err := acquirer.Acquire(context.Background(), a, b)
			if err != nil {
				t.Fatalf("Acquire failed: %v", err)
			}
			if route.Tier() != StraightLineFallback {
				t.Errorf("Tier() = %v, want StraightLineFallback", route.Tier())
			}
			if advisory != AdvisoryFallback {
				t.Errorf("advisory = %q, want %q", advisory, AdvisoryFallback)
			}
			if math.Abs(route.TotalLength()-Distance(a, b)) > 1e-9 {
				t.Errorf("TotalLength() = %f, want %f", route.TotalLength(), Distance(a, b))
			}
		})
	}
}

func TestAcquireRejectsInvalidInput(t *testing.T) {
	acquirer := createTestAcquirer(t, nil, time.Second)
	a := Coordinate{Lat: 1, Lon: 1}

	tests := []struct {
		name       string
		start, end Coordinate
	}{
		{"same point", a, a},
		{"invalid start", Coordinate{Lat: 100, Lon: 0}, a},
		{"invalid end", a, Coordinate{Lat: 0, Lon: math.NaN()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := acquirer.Acquire(context.Background(), tt.start, tt.end); err != ErrInvalidInput {
				t.Errorf("Acquire() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNewAcquirerValidation(t *testing.T) {
	if _, err := NewAcquirer(nil, 0, nil); err != ErrInvalidTimeout {
		t.Errorf("NewAcquirer(timeout 0) error = %v, want ErrInvalidTimeout", err)
	}
}
