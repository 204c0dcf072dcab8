package walk

import (
	"sync"

	"github.com/google/uuid"
)

// LocationProvider supplies the user's current location
type LocationProvider interface {
	Latest() (Coordinate, bool)
	Subscribe() (string, <-chan Coordinate)
	Unsubscribe(id string)
}

// LocationFeed is an owned, injectable location source. Watchers subscribe
// for updates and must unsubscribe when done.
type LocationFeed struct {
	mu          sync.RWMutex
	latest      Coordinate
	hasLatest   bool
	subscribers map[string]chan Coordinate
}

// NewLocationFeed returns an empty feed
func NewLocationFeed() *LocationFeed {
	return &LocationFeed{subscribers: make(map[string]chan Coordinate)}
}

// Publish records c as the latest location and notifies subscribers.
// A subscriber that is not keeping up misses the update.
func (f *LocationFeed) Publish(c Coordinate) error {
	if !c.Valid() {
		return ErrInvalidInput
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.latest, f.hasLatest = c, true
	for _, ch := range f.subscribers {
		select {
		case ch <- c:
		default:
		}
	}
	return nil
}

// Latest returns the most recent location
func (f *LocationFeed) Latest() (Coordinate, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.latest, f.hasLatest
}

// Subscribe registers a watcher. If a location is known it is delivered first.
func (f *LocationFeed) Subscribe() (string, <-chan Coordinate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan Coordinate, 1)
	if f.hasLatest {
		ch <- f.latest
	}
	f.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a watcher and closes its channel
func (f *LocationFeed) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ch, ok := f.subscribers[id]; ok {
		delete(f.subscribers, id)
		close(ch)
	}
}

// Subscribers returns the number of active watchers
func (f *LocationFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

// StaticLocation is a LocationProvider with a fixed location
type StaticLocation struct {
	Location Coordinate
}

// Latest returns the fixed location
func (s StaticLocation) Latest() (Coordinate, bool) { return s.Location, true }

// Subscribe returns a channel holding the fixed location
func (s StaticLocation) Subscribe() (string, <-chan Coordinate) {
	ch := make(chan Coordinate, 1)
	ch <- s.Location
	close(ch)
	return "static", ch
}

// Unsubscribe is a no-op
func (s StaticLocation) Unsubscribe(string) {}
