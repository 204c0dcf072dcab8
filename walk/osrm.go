package walk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// OSRMClient requests routes from an OSRM HTTP server
type OSRMClient struct {
	BaseURL    string
	Profile    string
	HTTPClient *http.Client
}

// NewOSRMClient returns a client for baseURL using the given profile
func NewOSRMClient(baseURL, profile string) *OSRMClient {
	if profile == "" {
		profile = "walking"
	}
	return &OSRMClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Profile:    profile,
		HTTPClient: http.DefaultClient,
	}
}

// OSRM response format
type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64          `json:"distance"`
		Duration float64          `json:"duration"`
		Geometry geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

// Directions fetches the first route between start and end
func (c *OSRMClient) Directions(ctx context.Context, start, end Coordinate) (Leg, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		c.BaseURL, c.Profile, start.Lon, start.Lat, end.Lon, end.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Leg{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Leg{}, fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Leg{}, fmt.Errorf("OSRM returned %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Leg{}, fmt.Errorf("JSON decode failed: %w", err)
	}

	if parsed.Code != "Ok" {
		msg := parsed.Message
		if msg == "" {
			msg = "route calculation failed"
		}
		return Leg{}, fmt.Errorf("OSRM %s: %s", parsed.Code, msg)
	}
	if len(parsed.Routes) == 0 {
		return Leg{}, fmt.Errorf("no routes found")
	}

	first := parsed.Routes[0]
	line, ok := first.Geometry.Geometry().(orb.LineString)
	if !ok {
		return Leg{}, fmt.Errorf("unexpected geometry type %q", first.Geometry.Type)
	}

	coords := make([]Coordinate, len(line))
	for i, p := range line {
		coords[i] = coordinateFromPoint(p)
	}
	return Leg{Geometry: coords, Distance: first.Distance}, nil
}
