package walk

import "testing"

func TestLocationFeed(t *testing.T) {
	feed := NewLocationFeed()

	if _, ok := feed.Latest(); ok {
		t.Error("new feed should have no location")
	}

	id, updates := feed.Subscribe()
	if feed.Subscribers() != 1 {
		t.Errorf("Subscribers() = %d, want 1", feed.Subscribers())
	}

	here := Coordinate{Lat: 59.3293, Lon: 18.0686}
	if err := feed.Publish(here); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := <-updates; got != here {
		t.Errorf("update = %v, want %v", got, here)
	}
	if latest, ok := feed.Latest(); !ok || latest != here {
		t.Errorf("Latest() = %v, %t, want %v", latest, ok, here)
	}

	// a subscriber that is not reading does not block the feed
	feed.Publish(Coordinate{Lat: 1, Lon: 1})
	feed.Publish(Coordinate{Lat: 2, Lon: 2})

	feed.Unsubscribe(id)
	if feed.Subscribers() != 0 {
		t.Errorf("Subscribers() = %d after Unsubscribe, want 0", feed.Subscribers())
	}
	for range updates {
		// drain until closed
	}
	feed.Unsubscribe(id)

	if err := feed.Publish(Coordinate{Lat: 95, Lon: 0}); err != ErrInvalidInput {
		t.Errorf("Publish(invalid) error = %v, want ErrInvalidInput", err)
	}
}

func TestLocationFeedDeliversLatestOnSubscribe(t *testing.T) {
	feed := NewLocationFeed()
	here := Coordinate{Lat: -1.2921, Lon: 36.8219}
	feed.Publish(here)

	id, updates := feed.Subscribe()
	defer feed.Unsubscribe(id)

	if got := <-updates; got != here {
		t.Errorf("first update = %v, want %v", got, here)
	}
}

func TestStaticLocation(t *testing.T) {
	var provider LocationProvider = StaticLocation{Location: Coordinate{Lat: 3, Lon: 4}}

	if c, ok := provider.Latest(); !ok || c != (Coordinate{Lat: 3, Lon: 4}) {
		t.Errorf("Latest() = %v, %t", c, ok)
	}
	id, updates := provider.Subscribe()
	if c := <-updates; c != (Coordinate{Lat: 3, Lon: 4}) {
		t.Errorf("update = %v", c)
	}
	provider.Unsubscribe(id)
}
