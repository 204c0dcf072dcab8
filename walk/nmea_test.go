package walk

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestCalculateChecksum(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		expected string
	}{
		{
			name:     "Simple GGA sentence",
			sentence: "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,",
			expected: "47",
		},
		{
			name:     "Simple RMC sentence",
			sentence: "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W",
			expected: "6A",
		},
		{
			name:     "Single character after $",
			sentence: "$A",
			expected: "41",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateChecksum(tt.sentence)
			if result != tt.expected {
				t.Errorf("calculateChecksum(%q) = %q, want %q", tt.sentence, result, tt.expected)
			}
		})
	}
}

func TestNMEACoordinates(t *testing.T) {
	tests := []struct {
		value float64
		lat   string
		lon   string
	}{
		{37.7749, "3746.4940,N", "03746.4940,E"},
		{-122.4194, "12225.1640,S", "12225.1640,W"},
		{5.5, "0530.0000,N", "00530.0000,E"},
		{0.01, "0000.6000,N", "00000.6000,E"},
	}

	for _, tt := range tests {
		if got := nmeaLatitude(tt.value); got != tt.lat {
			t.Errorf("nmeaLatitude(%f) = %q, want %q", tt.value, got, tt.lat)
		}
		if got := nmeaLongitude(tt.value); got != tt.lon {
			t.Errorf("nmeaLongitude(%f) = %q, want %q", tt.value, got, tt.lon)
		}
	}
}

// Helper function to check a complete sentence against its own checksum
func validSentence(t *testing.T, sentence string) string {
	t.Helper()

	if !strings.HasPrefix(sentence, "$") || !strings.HasSuffix(sentence, "\r\n") {
		t.Fatalf("sentence %q is not framed with $ and CRLF", sentence)
	}
	body, checksum, ok := strings.Cut(strings.TrimSuffix(sentence, "\r\n"), "*")
	if !ok {
		t.Fatalf("sentence %q has no checksum", sentence)
	}
	if want := calculateChecksum(body); checksum != want {
		t.Errorf("sentence %q checksum = %s, want %s", sentence, checksum, want)
	}
	return body
}

func TestSentencesWithRoute(t *testing.T) {
	frame := Frame{
		Projection: Projection{
			Position: Coordinate{Lat: 37.7749, Lon: -122.4194},
			Course:   90,
		},
		HasRoute:  true,
		Running:   true,
		Speed:     1.5,
		Timestamp: time.Date(2024, 3, 15, 12, 30, 45, 670000000, time.UTC),
	}

	sentences := Sentences(frame)
	if len(sentences) != 4 {
		t.Fatalf("got %d sentences, want 4", len(sentences))
	}

	want := []string{
		"$GPGGA,123045,3746.4940,N,12225.1640,W,1,08,1.2,0.0,M,0.0,M,,",
		"$GPRMC,123045,A,3746.4940,N,12225.1640,W,2.9,90.0,150324,,,A",
		"$GPVTG,90.0,T,,M,2.9,N,5.4,K,A",
		"$GPGLL,3746.4940,N,12225.1640,W,123045.67,A,A",
	}
	for i, s := range sentences {
		if body := validSentence(t, s); body != want[i] {
			t.Errorf("sentence %d = %q, want %q", i, body, want[i])
		}
	}
}

func TestSentencesStationaryWhenPaused(t *testing.T) {
	frame := Frame{
		Projection: Projection{Position: Coordinate{Lat: 1, Lon: 1}},
		HasRoute:   true,
		Speed:      1.5,
		Timestamp:  testEpoch,
	}

	vtg := validSentence(t, Sentences(frame)[2])
	if !strings.Contains(vtg, ",0.0,N,0.0,K,") {
		t.Errorf("paused VTG = %q, want zero ground speed", vtg)
	}
}

func TestSentencesWithoutRoute(t *testing.T) {
	sentences := Sentences(Frame{Timestamp: testEpoch})

	prefixes := []string{"$GPGGA,090000,,,,,0,00", "$GPRMC,090000,V", "$GPVTG,,,,,,,,,N", "$GPGLL,,,,,090000.00,V,N"}
	for i, s := range sentences {
		body := validSentence(t, s)
		if !strings.HasPrefix(body, prefixes[i]) {
			t.Errorf("sentence %d = %q, want prefix %q", i, body, prefixes[i])
		}
	}
}

func TestNMEARendererWritesBurst(t *testing.T) {
	var buf bytes.Buffer
	renderer := NewNMEARenderer(&buf)

	renderer.Render(Frame{HasRoute: true, Projection: Projection{Position: Coordinate{Lat: 2, Lon: 3}}, Timestamp: testEpoch})
	renderer.Render(Frame{Timestamp: testEpoch})

	if n := strings.Count(buf.String(), "\r\n"); n != 8 {
		t.Errorf("wrote %d sentences, want 8", n)
	}
	if !strings.HasPrefix(buf.String(), "$GPGGA,090000,0200.0000,N,00300.0000,E") {
		t.Errorf("unexpected output start: %q", buf.String()[:40])
	}
}
