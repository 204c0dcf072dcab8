package walk

import (
	"context"
	"sync"
	"time"
)

// Scheduler is the host's frame or timer primitive. StartTicking calls tick
// repeatedly with the current time until StopTicking is called.
type Scheduler interface {
	StartTicking(tick func(now time.Time)) error
	StopTicking()
}

// TickerScheduler ticks from a goroutine driven by time.Ticker
type TickerScheduler struct {
	mu     sync.Mutex
	rate   time.Duration
	cancel context.CancelFunc
}

// NewTickerScheduler returns a scheduler ticking at rate
func NewTickerScheduler(rate time.Duration) (*TickerScheduler, error) {
	if rate <= 0 {
		return nil, ErrInvalidTickRate
	}
	return &TickerScheduler{rate: rate}, nil
}

// StartTicking starts the ticker goroutine
func (s *TickerScheduler) StartTicking(tick func(now time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.run(ctx, tick)
	return nil
}

// StopTicking stops the ticker. It is safe to call from inside tick.
func (s *TickerScheduler) StopTicking() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// Ticking reports whether the ticker goroutine is active
func (s *TickerScheduler) Ticking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *TickerScheduler) run(ctx context.Context, tick func(time.Time)) {
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			// a stop may race with a pending tick
			if ctx.Err() != nil {
				return
			}
			tick(now)
		}
	}
}

// ManualScheduler is driven by explicit Tick calls. Useful for tests and for
// hosts that own their own frame loop.
type ManualScheduler struct {
	mu   sync.Mutex
	tick func(time.Time)
}

// StartTicking records the tick function
func (m *ManualScheduler) StartTicking(tick func(now time.Time)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tick != nil {
		return ErrSchedulerRunning
	}
	m.tick = tick
	return nil
}

// StopTicking forgets the tick function
func (m *ManualScheduler) StopTicking() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick = nil
}

// Ticking reports whether a tick function is installed
func (m *ManualScheduler) Ticking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick != nil
}

// Tick delivers one tick at now and reports whether the scheduler was active
func (m *ManualScheduler) Tick(now time.Time) bool {
	m.mu.Lock()
	tick := m.tick
	m.mu.Unlock()

	if tick == nil {
		return false
	}
	tick(now)
	return true
}
