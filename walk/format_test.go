package walk

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{-5 * time.Second, "0:00"},
		{59*time.Second + 900*time.Millisecond, "0:59"},
		{6 * time.Minute, "6:00"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
		{26*time.Hour + 5*time.Second, "1d:2:00:05"},
	}

	for _, tt := range tests {
		if got := FormatClock(tt.d); got != tt.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{42 * time.Second, "42s"},
		{25 * time.Minute, "25m 0s"},
		{3*time.Hour + 4*time.Second, "3h 0m 4s"},
		{50 * time.Hour, "2d 2h 0m 0s"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatDistanceAndPercent(t *testing.T) {
	if got := FormatDistance(1234.5); got != "1.23 km" {
		t.Errorf("FormatDistance(1234.5) = %q, want %q", got, "1.23 km")
	}
	if got := FormatPercent(0.5); got != "50.0%" {
		t.Errorf("FormatPercent(0.5) = %q, want %q", got, "50.0%")
	}
}
