package orchestrator

import "testing"

// TestTryClaimIgnoresConcurrentStart covers the "second motion-start for a
// camera already Recording is ignored" property from §8 without spinning up
// any of the gocv/mqtt/sqlite collaborators the full event task needs.
func TestTryClaimIgnoresConcurrentStart(t *testing.T) {
	o := &Orchestrator{active: make(map[string]*activeEvent)}

	first, ok := o.tryClaim("front-door")
	if !ok || first == nil {
		t.Fatalf("first claim should succeed")
	}

	second, ok := o.tryClaim("front-door")
	if ok || second != nil {
		t.Fatalf("second concurrent claim for the same camera should be refused, got ok=%v", ok)
	}

	if o.ActiveEventCount() != 1 {
		t.Fatalf("active event count = %d, want 1", o.ActiveEventCount())
	}

	o.removeActive("front-door", first)
	if o.ActiveEventCount() != 0 {
		t.Fatalf("active event count after removeActive = %d, want 0", o.ActiveEventCount())
	}

	// A new motion-start for the same camera is now free to claim.
	third, ok := o.tryClaim("front-door")
	if !ok || third == nil {
		t.Fatalf("claim after removal should succeed")
	}
}

// TestTryClaimCrossCameraIndependence covers "simultaneous events on two
// cameras both proceed; neither is ignored".
func TestTryClaimCrossCameraIndependence(t *testing.T) {
	o := &Orchestrator{active: make(map[string]*activeEvent)}

	front, ok := o.tryClaim("front-door")
	if !ok || front == nil {
		t.Fatalf("claim for front-door should succeed")
	}
	back, ok := o.tryClaim("backyard")
	if !ok || back == nil {
		t.Fatalf("claim for backyard should succeed, independent of front-door's active event")
	}
	if front == back {
		t.Fatalf("distinct cameras must get distinct activeEvent handles")
	}
	if o.ActiveEventCount() != 2 {
		t.Fatalf("active event count = %d, want 2", o.ActiveEventCount())
	}

	o.removeActive("front-door", front)
	if o.ActiveEventCount() != 1 {
		t.Fatalf("active event count after removing front-door = %d, want 1", o.ActiveEventCount())
	}
	o.removeActive("backyard", back)
	if o.ActiveEventCount() != 0 {
		t.Fatalf("active event count after both removed = %d, want 0", o.ActiveEventCount())
	}
}

// TestRemoveActiveIgnoresStaleHandle guards the race where a new event for
// the same camera has already been registered by the time an old event's
// task finishes: removeActive must not delete the newer entry when handed a
// handle that is no longer the one in the map.
func TestRemoveActiveIgnoresStaleHandle(t *testing.T) {
	o := &Orchestrator{active: make(map[string]*activeEvent)}

	stale := &activeEvent{stopRequested: make(chan struct{}), done: make(chan struct{})}
	o.eventsMu.Lock()
	o.active["front-door"] = stale
	o.eventsMu.Unlock()

	fresh, ok := &activeEvent{stopRequested: make(chan struct{}), done: make(chan struct{})}, true
	o.eventsMu.Lock()
	o.active["front-door"] = fresh
	o.eventsMu.Unlock()
	_ = ok

	// stale's own deferred cleanup runs after it was superseded: it must not
	// evict fresh's entry, only close its own done channel.
	o.removeActive("front-door", stale)
	if o.ActiveEventCount() != 1 {
		t.Fatalf("stale removeActive must not evict the fresh entry; count = %d, want 1", o.ActiveEventCount())
	}

	o.removeActive("front-door", fresh)
	if o.ActiveEventCount() != 0 {
		t.Fatalf("active event count = %d, want 0", o.ActiveEventCount())
	}
}
