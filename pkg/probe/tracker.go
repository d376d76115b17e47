package probe

import (
	"context"
	"sync"
)

// Tracker counts in-flight work of the system under test.
//
// The system wraps every piece of asynchronous work in Go (or Add/Done);
// WaitIdle blocks until the count drops to zero.
type Tracker struct {
	mu     sync.Mutex
	active int
	idle   chan struct{} // closed while active == 0
}

// NewTracker creates an idle tracker.
func NewTracker() *Tracker {
	idle := make(chan struct{})
	close(idle)
	return &Tracker{idle: idle}
}

// Add registers n units of work.
func (t *Tracker) Add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.active
	if prev+n < 0 {
		panic("probe: negative tracker count")
	}
	t.active += n
	switch {
	case prev == 0 && t.active > 0:
		t.idle = make(chan struct{})
	case prev > 0 && t.active == 0:
		close(t.idle)
	}
}

// Done finishes one unit of work.
func (t *Tracker) Done() { t.Add(-1) }

// Go runs fn on a new goroutine and tracks it until it returns.
func (t *Tracker) Go(fn func()) {
	t.Add(1)
	go func() {
		defer t.Done()
		fn()
	}()
}

// Active returns the number of units in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// WaitIdle blocks until no work is in flight or ctx is done.
//
// Work started by the last finishing unit is waited for as well: WaitIdle
// only returns once it observes a count of zero.
func (t *Tracker) WaitIdle(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.active == 0 {
			t.mu.Unlock()
			return nil
		}
		idle := t.idle
		t.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}
