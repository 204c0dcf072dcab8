package walk

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Session owns one simulation: the active endpoints, their route, and the
// clock walking it. User actions and scheduler ticks are serialized so each
// one is applied completely or not at all.
type Session struct {
	mu        sync.Mutex
	projector Projector
	acquirer  *Acquirer
	scheduler Scheduler
	renderers MultiRenderer
	logger    log.FieldLogger
	now       func() time.Time

	speed        float64 // m/s
	start, end   Coordinate
	hasEndpoints bool
	route        Route
	advisory     string
	clock        *Clock // nil until a route is acquired
	ticking      bool
	done         chan struct{}
}

// SessionOption customizes a Session
type SessionOption func(*Session)

// WithRenderers attaches renderers at construction
func WithRenderers(renderers ...ProgressRenderer) SessionOption {
	return func(s *Session) {
		s.renderers = append(s.renderers, renderers...)
	}
}

// WithLogger sets the session logger
func WithLogger(logger log.FieldLogger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithTimeSource replaces time.Now for user actions
func WithTimeSource(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// NewSession creates an idle session with no route
func NewSession(config Config, acquirer *Acquirer, scheduler Scheduler, opts ...SessionOption) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	projector, err := NewProjector(config.StepLength)
	if err != nil {
		return nil, err
	}
	if acquirer == nil {
		if acquirer, err = NewAcquirer(nil, config.RouteTimeout, nil); err != nil {
			return nil, err
		}
	}
	if scheduler == nil {
		if scheduler, err = NewTickerScheduler(config.TickRate); err != nil {
			return nil, err
		}
	}

	s := &Session{
		projector: projector,
		acquirer:  acquirer,
		scheduler: scheduler,
		logger:    log.StandardLogger(),
		now:       time.Now,
		speed:     config.SpeedMPS(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AddRenderer attaches another renderer
func (s *Session) AddRenderer(r ProgressRenderer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderers = append(s.renderers, r)
}

// SetEndpoints replaces the endpoints, drops the current route and state,
// and acquires a new route. If the endpoints change again before this
// acquisition finishes, its result is discarded with ErrStaleResult.
func (s *Session) SetEndpoints(ctx context.Context, start, end Coordinate) (Route, error) {
	if !start.Valid() || !end.Valid() || start == end {
		return Route{}, ErrInvalidInput
	}

	s.mu.Lock()
	s.stopTickingLocked()
	s.start, s.end, s.hasEndpoints = start, end, true
	s.route, s.advisory, s.clock = Route{}, "", nil
	s.done = make(chan struct{})
	frame := s.frameLocked(s.now())
	renderers := s.renderers
	s.mu.Unlock()

	renderers.Render(frame)

	route, advisory, err := s.acquirer.Acquire(ctx, start, end)
	if err != nil {
		return Route{}, err
	}

	s.mu.Lock()
	if !s.hasEndpoints || s.start != start || s.end != end {
		s.mu.Unlock()
		s.logger.WithFields(log.Fields{
			"start": start.String(),
			"end":   end.String(),
		}).Debug("Discarding stale route")
		return Route{}, ErrStaleResult
	}

	clock, err := NewClock(route.TotalLength(), s.speed)
	if err != nil {
		s.mu.Unlock()
		return Route{}, err
	}
	s.route, s.advisory, s.clock = route, advisory, clock
	frame = s.frameLocked(s.now())
	renderers = s.renderers
	s.mu.Unlock()

	renderers.Render(frame)
	return route, nil
}

// Start begins or resumes walking. A completed walk starts over.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.clock == nil {
		s.mu.Unlock()
		return ErrNoRoute
	}
	if s.clock.Running() {
		s.mu.Unlock()
		return nil
	}
	if s.clock.Complete() {
		s.done = make(chan struct{})
	}

	now := s.now()
	s.clock.Start(now)
	if err := s.startTickingLocked(); err != nil {
		s.clock.Pause()
		s.mu.Unlock()
		return err
	}
	frame := s.frameLocked(now)
	renderers := s.renderers
	s.mu.Unlock()

	s.logger.WithField("progress", FormatPercent(frame.Progress)).Info("Walk started")
	renderers.Render(frame)
	return nil
}

// Pause stops walking; no time accrues until Start
func (s *Session) Pause() {
	s.mu.Lock()
	if s.clock == nil || !s.clock.Running() {
		s.mu.Unlock()
		return
	}
	s.clock.Pause()
	s.stopTickingLocked()
	frame := s.frameLocked(s.now())
	renderers := s.renderers
	s.mu.Unlock()

	s.logger.WithField("progress", FormatPercent(frame.Progress)).Info("Walk paused")
	renderers.Render(frame)
}

// Reset returns to progress 0 on the current route
func (s *Session) Reset() {
	s.mu.Lock()
	s.stopTickingLocked()
	if s.clock != nil {
		s.clock.Reset()
	}
	s.done = make(chan struct{})
	frame := s.frameLocked(s.now())
	renderers := s.renderers
	s.mu.Unlock()

	renderers.Render(frame)
}

// Clear drops the endpoints, route and state entirely
func (s *Session) Clear() {
	s.mu.Lock()
	s.stopTickingLocked()
	s.start, s.end, s.hasEndpoints = Coordinate{}, Coordinate{}, false
	s.route, s.advisory, s.clock = Route{}, "", nil
	s.done = make(chan struct{})
	frame := s.frameLocked(s.now())
	renderers := s.renderers
	s.mu.Unlock()

	renderers.Render(frame)
}

// SetSpeed changes the walking speed in m/s. It applies from the next tick.
func (s *Session) SetSpeed(speed float64) error {
	if !positive(speed) {
		return ErrInvalidSpeed
	}

	s.mu.Lock()
	frame := s.setSpeedLocked(speed)
	renderers := s.renderers
	s.mu.Unlock()

	s.logger.WithField("speed_kmh", MPSToKMH(speed)).Info("Speed changed")
	renderers.Render(frame)
	return nil
}

// SetFocusDuration picks the speed that walks the whole route in d
func (s *Session) SetFocusDuration(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidDuration
	}

	s.mu.Lock()
	if s.clock == nil {
		s.mu.Unlock()
		return ErrNoRoute
	}
	speed := s.route.TotalLength() / d.Seconds()
	if !positive(speed) {
		s.mu.Unlock()
		return ErrInvalidDuration
	}
	frame := s.setSpeedLocked(speed)
	renderers := s.renderers
	s.mu.Unlock()

	s.logger.WithFields(log.Fields{
		"duration":  d.String(),
		"speed_kmh": MPSToKMH(speed),
	}).Info("Focus duration set")
	renderers.Render(frame)
	return nil
}

func (s *Session) setSpeedLocked(speed float64) Frame {
	s.speed = speed
	if s.clock != nil {
		_ = s.clock.SetSpeed(speed)
	}
	return s.frameLocked(s.now())
}

// Speed returns the current speed in m/s
func (s *Session) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// Route returns the active route, if any
func (s *Session) Route() (Route, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route, s.clock != nil
}

// Endpoints returns the active endpoints, if any
func (s *Session) Endpoints() (start, end Coordinate, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.start, s.end, s.hasEndpoints
}

// Frame returns a snapshot of the current state
func (s *Session) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked(s.now())
}

// Done returns a channel closed when the current walk completes
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Close stops the scheduler
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickingLocked()
}

// Tick advances the clock to now. The scheduler calls it; hosts with their
// own frame loop may call it directly.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	if s.clock == nil || !s.clock.Running() {
		s.mu.Unlock()
		return
	}

	completed := s.clock.Advance(now)
	var done chan struct{}
	if completed {
		s.stopTickingLocked()
		done = s.done
	}
	frame := s.frameLocked(now)
	renderers := s.renderers
	s.mu.Unlock()

	renderers.Render(frame)
	if completed {
		s.logger.WithField("steps", frame.StepsTaken).Info("Walk complete")
		renderers.Completed(frame)
		close(done)
	}
}

func (s *Session) startTickingLocked() error {
	if s.ticking {
		return nil
	}
	if err := s.scheduler.StartTicking(s.Tick); err != nil {
		return err
	}
	s.ticking = true
	return nil
}

func (s *Session) stopTickingLocked() {
	if !s.ticking {
		return
	}
	s.scheduler.StopTicking()
	s.ticking = false
}

func (s *Session) frameLocked(now time.Time) Frame {
	frame := Frame{Speed: s.speed, Timestamp: now}
	if s.clock == nil {
		return frame
	}

	progress := s.clock.Progress()
	frame.Projection = s.projector.Project(s.route, progress, s.speed)
	frame.Progress = progress
	frame.Running = s.clock.Running()
	frame.Complete = s.clock.Complete()
	frame.HasRoute = true
	frame.TotalLength = s.route.TotalLength()
	frame.TotalSteps = s.projector.TotalSteps(s.route)
	frame.TotalDuration = s.route.TotalLength() / s.speed
	frame.Tier = s.route.Tier()
	frame.Advisory = s.advisory
	return frame
}
