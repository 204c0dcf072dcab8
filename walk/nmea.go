package walk

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

const (
	knotsPerMPS    = 1.94384
	nmeaSatellites = 8
)

// NMEARenderer writes the walker position as NMEA 0183 sentences, so the
// walk can drive anything that consumes a GPS receiver (serial port, gpsd, stdout)
type NMEARenderer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewNMEARenderer returns a renderer writing to w
func NewNMEARenderer(w io.Writer) *NMEARenderer {
	return &NMEARenderer{w: w}
}

// Render writes one burst of sentences for frame
func (n *NMEARenderer) Render(frame Frame) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for _, sentence := range Sentences(frame) {
		fmt.Fprint(n.w, sentence)
	}
}

// Sentences returns the NMEA burst for a frame: GGA, RMC, VTG and GLL with a
// fix once a route exists, no-fix variants otherwise
func Sentences(frame Frame) []string {
	timestamp := frame.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	if !frame.HasRoute {
		return []string{
			generateNoFixGGA(timestamp),
			generateNoFixRMC(timestamp),
			generateNoFixVTG(),
			generateNoFixGLL(timestamp),
		}
	}

	var knots float64
	if frame.Running {
		knots = frame.Speed * knotsPerMPS
	}

	return []string{
		generateGGA(frame.Position, timestamp),
		generateRMC(frame.Position, knots, frame.Course, timestamp),
		generateVTG(knots, frame.Course),
		generateGLL(frame.Position, timestamp),
	}
}

// calculateChecksum calculates the NMEA checksum for a sentence
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ { // Skip the '$' character
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// formatNMEA formats a complete NMEA sentence with checksum
func formatNMEA(sentence string) string {
	checksum := calculateChecksum(sentence)
	return fmt.Sprintf("%s*%s\r\n", sentence, checksum)
}

// nmeaLatitude converts decimal degrees to DDMM.MMMM,H
func nmeaLatitude(lat float64) string {
	deg := int(math.Abs(lat))
	min := (math.Abs(lat) - float64(deg)) * 60
	hem := "N"
	if lat < 0 {
		hem = "S"
	}
	return fmt.Sprintf("%02d%07.4f,%s", deg, min, hem)
}

// nmeaLongitude converts decimal degrees to DDDMM.MMMM,H
func nmeaLongitude(lon float64) string {
	deg := int(math.Abs(lon))
	min := (math.Abs(lon) - float64(deg)) * 60
	hem := "E"
	if lon < 0 {
		hem = "W"
	}
	return fmt.Sprintf("%03d%07.4f,%s", deg, min, hem)
}

func nmeaTimeHundredths(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d%02d%02d.%02d", t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/10000000)
}

// generateGGA generates a GGA (Global Positioning System Fix Data) sentence
func generateGGA(pos Coordinate, timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPGGA,%s,%s,%s,1,%02d,1.2,0.0,M,0.0,M,,",
		timestamp.UTC().Format("150405"),
		nmeaLatitude(pos.Lat),
		nmeaLongitude(pos.Lon),
		nmeaSatellites)
	return formatNMEA(sentence)
}

// generateNoFixGGA generates a GGA sentence when there's no route yet
func generateNoFixGGA(timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPGGA,%s,,,,,0,00,,,,,,,,", timestamp.UTC().Format("150405"))
	return formatNMEA(sentence)
}

// generateRMC generates an RMC (Recommended Minimum) sentence
func generateRMC(pos Coordinate, knots, course float64, timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPRMC,%s,A,%s,%s,%.1f,%.1f,%s,,,A",
		timestamp.UTC().Format("150405"),
		nmeaLatitude(pos.Lat),
		nmeaLongitude(pos.Lon),
		knots, course,
		timestamp.UTC().Format("020106"))
	return formatNMEA(sentence)
}

// generateNoFixRMC generates an RMC sentence when there's no route yet
func generateNoFixRMC(timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPRMC,%s,V,,,,,,,%s,,,N",
		timestamp.UTC().Format("150405"),
		timestamp.UTC().Format("020106"))
	return formatNMEA(sentence)
}

// generateVTG generates a VTG (Track Made Good and Ground Speed) sentence
func generateVTG(knots, course float64) string {
	// 1 knot = 1.852 km/h
	sentence := fmt.Sprintf("$GPVTG,%.1f,T,,M,%.1f,N,%.1f,K,A", course, knots, knots*1.852)
	return formatNMEA(sentence)
}

// generateNoFixVTG generates a VTG sentence when there's no route yet
func generateNoFixVTG() string {
	return formatNMEA("$GPVTG,,,,,,,,,N")
}

// generateGLL generates a GLL (Geographic Position - Latitude/Longitude) sentence
func generateGLL(pos Coordinate, timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPGLL,%s,%s,%s,A,A",
		nmeaLatitude(pos.Lat),
		nmeaLongitude(pos.Lon),
		nmeaTimeHundredths(timestamp))
	return formatNMEA(sentence)
}

// generateNoFixGLL generates a GLL sentence when there's no route yet
func generateNoFixGLL(timestamp time.Time) string {
	sentence := fmt.Sprintf("$GPGLL,,,,,%s,V,N", nmeaTimeHundredths(timestamp))
	return formatNMEA(sentence)
}
