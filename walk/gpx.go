package walk

import (
	"encoding/xml"
	"fmt"
	"os"
	"sync"
	"time"
)

// GPX represents the root GPX document structure
type GPX struct {
	XMLName xml.Name  `xml:"gpx"`
	Version string    `xml:"version,attr"`
	Creator string    `xml:"creator,attr"`
	Xmlns   string    `xml:"xmlns,attr"`
	Route   *GPXRoute `xml:"rte,omitempty"`
	Track   GPXTrack  `xml:"trk"`
}

// GPXTrack is the walked track
type GPXTrack struct {
	Name    string     `xml:"name"`
	Segment GPXSegment `xml:"trkseg"`
}

// GPXSegment is a segment of a GPX track
type GPXSegment struct {
	Points []GPXPoint `xml:"trkpt"`
}

// GPXRoute is the planned route
type GPXRoute struct {
	Name   string     `xml:"name"`
	Points []GPXPoint `xml:"rtept"`
}

// GPXPoint is a single waypoint
type GPXPoint struct {
	Lat  float64    `xml:"lat,attr"`
	Lon  float64    `xml:"lon,attr"`
	Time *time.Time `xml:"time,omitempty"`
}

// GPXRecorder writes the walked track to a GPX file. It is a renderer:
// every frame while walking adds a track point.
type GPXRecorder struct {
	mu         sync.Mutex
	filename   string
	gpx        *GPX
	file       *os.File
	flushEvery int
	lastPos    Coordinate
	hasLast    bool
	err        error // first background flush failure, reported by Flush or Close
}

// NewGPXRecorder creates the GPX file and an empty track
func NewGPXRecorder(filename string) (*GPXRecorder, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create GPX file %s: %w", filename, err)
	}

	return &GPXRecorder{
		filename:   filename,
		file:       file,
		flushEvery: 10,
		gpx: &GPX{
			Version: "1.1",
			Creator: "go-focus-walker",
			Xmlns:   "http://www.topografix.com/GPX/1/1",
			Track:   GPXTrack{Name: "Focus Walk"},
		},
	}, nil
}

// SetRoute stores the planned route alongside the track
func (g *GPXRecorder) SetRoute(route Route) {
	g.mu.Lock()
	defer g.mu.Unlock()

	points := make([]GPXPoint, 0, route.Len())
	for _, c := range route.Geometry() {
		points = append(points, GPXPoint{Lat: c.Lat, Lon: c.Lon})
	}
	g.gpx.Route = &GPXRoute{Name: route.Tier().String(), Points: points}
}

// Render adds the walker position while walking, skipping repeats
func (g *GPXRecorder) Render(frame Frame) {
	if !frame.HasRoute || (!frame.Running && !frame.Complete) {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasLast && g.lastPos == frame.Position {
		return
	}
	g.lastPos, g.hasLast = frame.Position, true

	ts := frame.Timestamp.UTC()
	g.gpx.Track.Segment.Points = append(g.gpx.Track.Segment.Points, GPXPoint{
		Lat:  frame.Position.Lat,
		Lon:  frame.Position.Lon,
		Time: &ts,
	})

	if len(g.gpx.Track.Segment.Points)%g.flushEvery == 0 {
		g.keepLocked(g.writeLocked())
	}
}

// Completed flushes the finished track
func (g *GPXRecorder) Completed(Frame) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keepLocked(g.writeLocked())
}

// PointCount returns the number of recorded track points
func (g *GPXRecorder) PointCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.gpx.Track.Segment.Points)
}

// Flush writes the current document to the file. It also returns any
// failure from earlier flushes triggered by Render or Completed.
func (g *GPXRecorder) Flush() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keepLocked(g.writeLocked())
	return g.takeErrLocked()
}

// Close writes final data and closes the file
func (g *GPXRecorder) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.file == nil {
		return nil
	}
	g.keepLocked(g.writeLocked())
	g.keepLocked(g.file.Close())
	g.file = nil
	return g.takeErrLocked()
}

func (g *GPXRecorder) keepLocked(err error) {
	if err != nil && g.err == nil {
		g.err = err
	}
}

func (g *GPXRecorder) takeErrLocked() error {
	err := g.err
	g.err = nil
	return err
}

func (g *GPXRecorder) writeLocked() error {
	if g.file == nil {
		return fmt.Errorf("GPX file %s is closed", g.filename)
	}
	if _, err := g.file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek to beginning of file: %w", err)
	}
	if err := g.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate file: %w", err)
	}
	if _, err := g.file.WriteString(xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}

	encoder := xml.NewEncoder(g.file)
	encoder.Indent("", "  ")
	if err := encoder.Encode(g.gpx); err != nil {
		return fmt.Errorf("failed to encode GPX data: %w", err)
	}
	if err := g.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// ReadGPXFile parses a GPX file written by GPXRecorder (or any GPX 1.1 file)
func ReadGPXFile(filename string) (*GPX, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPX file %s: %w", filename, err)
	}
	defer file.Close()

	var gpx GPX
	if err := xml.NewDecoder(file).Decode(&gpx); err != nil {
		return nil, fmt.Errorf("failed to parse GPX file %s: %w", filename, err)
	}
	return &gpx, nil
}

// Leg returns the planned route of a GPX document: its route points if it has
// any, otherwise its track points. It lets a recorded walk be walked again.
func (g *GPX) Leg() (Leg, error) {
	points := g.Track.Segment.Points
	if g.Route != nil && len(g.Route.Points) > 0 {
		points = g.Route.Points
	}
	if len(points) < 2 {
		return Leg{}, fmt.Errorf("GPX has %d points: %w", len(points), ErrInvalidRoute)
	}

	geometry := make([]Coordinate, len(points))
	for i, p := range points {
		geometry[i] = Coordinate{Lat: p.Lat, Lon: p.Lon}
	}
	return Leg{Geometry: geometry}, nil
}
