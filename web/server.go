// Package web exposes a walk session over HTTP and websocket.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/Bucknalla/go-focus-walker/walk"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"
	log "github.com/sirupsen/logrus"
)

// ErrNoLocation is returned when "current" is requested before any location
// has been published
var ErrNoLocation = errors.New("current location is not known yet")

// Options configures a Server
type Options struct {
	Session  *walk.Session
	Hub      *Hub
	Location walk.LocationProvider
	Geocoder walk.Geocoder
	// LocationFeed receives browser-reported positions; usually the same
	// value as Location
	LocationFeed *walk.LocationFeed
	StaticDir    string
	Logger       log.FieldLogger
}

// Server routes the web API to one session
type Server struct {
	session  *walk.Session
	hub      *Hub
	location walk.LocationProvider
	feed     *walk.LocationFeed
	geocoder walk.Geocoder
	logger   log.FieldLogger
	router   *mux.Router
}

// NewServer builds the router. The hub, if any, should already be attached to
// the session as a renderer.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}
	location := opts.Location
	if location == nil && opts.LocationFeed != nil {
		location = opts.LocationFeed
	}

	s := &Server{
		session:  opts.Session,
		hub:      hub,
		location: location,
		feed:     opts.LocationFeed,
		geocoder: opts.Geocoder,
		logger:   logger,
	}

	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/endpoints", s.handleSetEndpoints).Methods(http.MethodPost)
	api.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/clear", s.handleClear).Methods(http.MethodPost)
	api.HandleFunc("/speed", s.handleSetSpeed).Methods(http.MethodPost)
	api.HandleFunc("/focus", s.handleSetFocus).Methods(http.MethodPost)
	api.HandleFunc("/status", s.handleGetStatus).Methods(http.MethodGet)
	api.HandleFunc("/route", s.handleGetRoute).Methods(http.MethodGet)
	api.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet)
	api.HandleFunc("/location", s.handlePublishLocation).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.handleWebSocket)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no such endpoint: %s", r.URL.Path))
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Handle favicon.ico requests
	r.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if opts.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(filepath.Clean(opts.StaticDir))))
	}

	s.router = r
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hub returns the websocket hub
func (s *Server) Hub() *Hub {
	return s.hub
}

// Each point is either a {"lat","lon"} object, "lat,lon" text, a place name
// to geocode, or "current" for the latest reported location
type endpointsRequest struct {
	Start json.RawMessage `json:"start"`
	End   json.RawMessage `json:"end"`
}

type statusResponse struct {
	walk.Frame
	Start     *walk.Coordinate `json:"start,omitempty"`
	End       *walk.Coordinate `json:"end,omitempty"`
	Remaining string           `json:"remaining"`
	Clients   int              `json:"clients"`
}

func (s *Server) status() statusResponse {
	frame := s.session.Frame()
	resp := statusResponse{
		Frame:     frame,
		Remaining: walk.FormatClock(frame.Remaining()),
		Clients:   s.hub.Clients(),
	}
	if start, end, ok := s.session.Endpoints(); ok {
		resp.Start, resp.End = &start, &end
	}
	return resp
}

func (s *Server) resolvePoint(ctx context.Context, raw json.RawMessage) (walk.Coordinate, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return walk.Coordinate{}, fmt.Errorf("missing point: %w", walk.ErrInvalidInput)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.EqualFold(strings.TrimSpace(text), "current") {
			if s.location == nil {
				return walk.Coordinate{}, ErrNoLocation
			}
			c, ok := s.location.Latest()
			if !ok {
				return walk.Coordinate{}, ErrNoLocation
			}
			return c, nil
		}
		c, err := walk.Resolve(ctx, s.geocoder, text)
		if err != nil {
			return walk.Coordinate{}, upstream(err)
		}
		return c, nil
	}

	var c walk.Coordinate
	if err := json.Unmarshal(raw, &c); err != nil {
		return walk.Coordinate{}, fmt.Errorf("invalid point %s: %w", string(raw), walk.ErrInvalidInput)
	}
	if !c.Valid() {
		return walk.Coordinate{}, fmt.Errorf("point %s out of range: %w", c, walk.ErrInvalidInput)
	}
	return c, nil
}

func (s *Server) handleSetEndpoints(w http.ResponseWriter, r *http.Request) {
	var req endpointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	start, err := s.resolvePoint(r.Context(), req.Start)
	if err != nil {
		s.writeWalkError(w, fmt.Errorf("start: %w", err))
		return
	}
	end, err := s.resolvePoint(r.Context(), req.End)
	if err != nil {
		s.writeWalkError(w, fmt.Errorf("end: %w", err))
		return
	}

	s.logger.WithFields(log.Fields{"start": start.String(), "end": end.String()}).Info("Endpoints requested")

	if _, err := s.session.SetEndpoints(r.Context(), start, end); err != nil {
		s.writeWalkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Start(); err != nil {
		s.writeWalkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.session.Pause()
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpeedKMH *float64 `json:"speed_kmh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if req.SpeedKMH == nil {
		writeError(w, http.StatusBadRequest, "speed_kmh is required")
		return
	}

	if err := s.session.SetSpeed(walk.KMHToMPS(*req.SpeedKMH)); err != nil {
		s.writeWalkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleSetFocus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Duration string `json:"duration"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	d, err := time.ParseDuration(req.Duration)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid duration %q", req.Duration))
		return
	}

	if err := s.session.SetFocusDuration(d); err != nil {
		s.writeWalkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "updated",
		"duration": walk.FormatDuration(d),
	})
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

func (s *Server) handleGetRoute(w http.ResponseWriter, r *http.Request) {
	route, ok := s.session.Route()
	if !ok {
		writeError(w, http.StatusNotFound, walk.ErrNoRoute.Error())
		return
	}
	frame := s.session.Frame()

	fc := geojson.NewFeatureCollection()
	fc.Append(route.Feature())
	fc.Append(pointFeature("start", route.Start()))
	fc.Append(pointFeature("end", route.End()))

	walker := pointFeature("walker", frame.Position)
	walker.Properties["progress"] = frame.Progress
	walker.Properties["course"] = frame.Course
	fc.Append(walker)

	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		s.logger.WithError(err).Warn("Failed to encode route")
	}
}

func pointFeature(kind string, c walk.Coordinate) *geojson.Feature {
	f := geojson.NewFeature(c.Point())
	f.Properties["kind"] = kind
	return f
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	if s.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	c, err := s.geocoder.Search(r.Context(), query)
	if err != nil {
		s.writeWalkError(w, upstream(err))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePublishLocation(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "location updates are not accepted")
		return
	}

	var c walk.Coordinate
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return
	}
	if err := s.feed.Publish(c); err != nil {
		s.writeWalkError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Send current status immediately
	s.hub.ServeWS(w, r, &Message{Type: "status", Data: s.status()})
}

// upstream marks a geocoder transport failure as an unavailable service
func upstream(err error) error {
	if errors.Is(err, walk.ErrNotFound) || errors.Is(err, walk.ErrInvalidInput) {
		return err
	}
	return fmt.Errorf("%w: %w", walk.ErrRouteUnavailable, err)
}

// statusFor maps walk errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, walk.ErrInvalidInput),
		errors.Is(err, walk.ErrInvalidSpeed),
		errors.Is(err, walk.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, walk.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, walk.ErrStaleResult),
		errors.Is(err, walk.ErrNoRoute),
		errors.Is(err, ErrNoLocation):
		return http.StatusConflict
	case errors.Is(err, walk.ErrRouteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeWalkError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	entry := s.logger.WithError(err).WithField("status", code)
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
