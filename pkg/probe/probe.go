package probe

import (
	"context"
	"sync"
)

// Probe is a thread-safe FIFO of events emitted by the system under test.
//
// The system sends from any goroutine; the test reads with the non-blocking
// Next. A probe may be shared by several expectation timelines: every Next
// advances the same cursor, so an event is only ever handed out once.
type Probe[E any] struct {
	mu     sync.Mutex
	events []E
	closed bool
	signal chan struct{} // buffered, size 1
}

// New creates an empty probe.
func New[E any]() *Probe[E] {
	return &Probe[E]{
		events: make([]E, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Send appends an event. It returns false once the probe is closed.
func (p *Probe[E]) Send(e E) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return false
	}
	p.events = append(p.events, e)

	select {
	case p.signal <- struct{}{}:
	default:
	}
	return true
}

// Next pops the oldest pending event without blocking.
func (p *Probe[E]) Next() (E, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero E
	if len(p.events) == 0 {
		return zero, false
	}
	e := p.events[0]
	p.events[0] = zero
	if len(p.events) == 1 {
		p.events = p.events[:0]
	} else {
		p.events = p.events[1:]
	}
	return e, true
}

// Await blocks until an event is pending, the probe is closed, or ctx is
// done. It does not consume the event.
func (p *Probe[E]) Await(ctx context.Context) error {
	for {
		p.mu.Lock()
		if len(p.events) > 0 || p.closed {
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.signal:
		}
	}
}

// Len returns the number of pending events.
func (p *Probe[E]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// Close rejects further sends and wakes waiters.
func (p *Probe[E]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.signal)
}
