package walk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Geocoder resolves free text into a coordinate
type Geocoder interface {
	Search(ctx context.Context, query string) (Coordinate, error)
}

// NominatimClient searches an OpenStreetMap Nominatim server
type NominatimClient struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewNominatimClient returns a geocoder for baseURL
func NewNominatimClient(baseURL, userAgent string) *NominatimClient {
	return &NominatimClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		UserAgent:  userAgent,
		HTTPClient: http.DefaultClient,
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search returns the best match for query
func (c *NominatimClient) Search(ctx context.Context, query string) (Coordinate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Coordinate{}, ErrInvalidInput
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Coordinate{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Coordinate{}, fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinate{}, fmt.Errorf("nominatim returned %d", resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return Coordinate{}, fmt.Errorf("JSON decode failed: %w", err)
	}
	if len(places) == 0 {
		return Coordinate{}, fmt.Errorf("%q: %w", query, ErrNotFound)
	}

	lat, err1 := strconv.ParseFloat(places[0].Lat, 64)
	lon, err2 := strconv.ParseFloat(places[0].Lon, 64)
	if err1 != nil || err2 != nil {
		return Coordinate{}, fmt.Errorf("invalid lat/lon in result for %q", query)
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

// Resolve parses input as "lat,lon" and otherwise geocodes it
func Resolve(ctx context.Context, g Geocoder, input string) (Coordinate, error) {
	if c, err := ParseCoordinate(input); err == nil {
		return c, nil
	}
	if g == nil {
		return Coordinate{}, fmt.Errorf("cannot resolve %q without a geocoder: %w", input, ErrInvalidInput)
	}
	return g.Search(ctx, input)
}
