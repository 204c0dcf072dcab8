package walk

import "errors"

// Common errors returned by the walk simulator
var (
	ErrInvalidInput      = errors.New("start and end must be distinct, valid coordinates")
	ErrRouteUnavailable  = errors.New("directions service unavailable")
	ErrStaleResult       = errors.New("route discarded: endpoints changed while it was in flight")
	ErrNoRoute           = errors.New("no route has been acquired")
	ErrInvalidRoute      = errors.New("route geometry must contain at least two points with positive length")
	ErrInvalidSpeed      = errors.New("speed must be positive")
	ErrInvalidStepLength = errors.New("step length must be positive")
	ErrInvalidTimeout    = errors.New("route timeout must be positive")
	ErrInvalidTickRate   = errors.New("tick rate must be positive")
	ErrInvalidBaudRate   = errors.New("baud rate must be positive")
	ErrInvalidDuration   = errors.New("focus duration must be positive")
	ErrNotFound          = errors.New("no match found")
	ErrSchedulerRunning  = errors.New("scheduler is already ticking")
)
