package walk

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ProgressRenderer displays frames. Any number of renderers can observe one
// session; they never mutate it.
type ProgressRenderer interface {
	Render(frame Frame)
}

// CompletionListener is implemented by renderers that react to the one-shot
// completion signal
type CompletionListener interface {
	Completed(frame Frame)
}

// RendererFunc adapts a function to ProgressRenderer
type RendererFunc func(frame Frame)

// Render calls f
func (f RendererFunc) Render(frame Frame) { f(frame) }

// MultiRenderer fans frames out to several renderers in order
type MultiRenderer []ProgressRenderer

// Render forwards frame to every renderer
func (m MultiRenderer) Render(frame Frame) {
	for _, r := range m {
		r.Render(frame)
	}
}

// Completed forwards to every renderer that listens for completion
func (m MultiRenderer) Completed(frame Frame) {
	for _, r := range m {
		if l, ok := r.(CompletionListener); ok {
			l.Completed(frame)
		}
	}
}

// LogRenderer logs a progress line at most once per interval of frame time
type LogRenderer struct {
	Logger   log.FieldLogger
	Interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewLogRenderer returns a renderer logging every interval
func NewLogRenderer(logger log.FieldLogger, interval time.Duration) *LogRenderer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogRenderer{Logger: logger, Interval: interval}
}

// Render logs the frame if the interval has elapsed
func (l *LogRenderer) Render(frame Frame) {
	if !frame.HasRoute {
		return
	}

	l.mu.Lock()
	due := l.last.IsZero() || frame.Timestamp.Sub(l.last) >= l.Interval
	if due {
		l.last = frame.Timestamp
	}
	l.mu.Unlock()

	if !due {
		return
	}
	l.Logger.WithFields(frameFields(frame)).Info("Walking")
}

// Completed logs the arrival
func (l *LogRenderer) Completed(frame Frame) {
	l.Logger.WithFields(frameFields(frame)).Info("Destination reached")
}

func frameFields(frame Frame) log.Fields {
	return log.Fields{
		"progress":  FormatPercent(frame.Progress),
		"position":  frame.Position.String(),
		"steps":     frame.StepsTaken,
		"distance":  FormatDistance(frame.DistanceCovered),
		"remaining": FormatClock(frame.Remaining()),
	}
}
