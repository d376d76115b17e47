package probe

import (
	"context"
	"sort"
	"sync"
	"time"
)

type timer struct {
	due time.Duration
	seq int64
	fn  func()
}

// Scheduler is a virtual clock. Scheduled callbacks never fire on their own;
// Advance moves time forward and runs every callback that became due, in due
// order, ties broken by scheduling order.
type Scheduler struct {
	mu      sync.Mutex
	now     time.Duration
	timers  []timer
	seq     int64
	tracker *Tracker
}

// NewScheduler creates a scheduler at virtual time zero. When tracker is not
// nil, Advance lets the system settle after every callback.
func NewScheduler(tracker *Tracker) *Scheduler {
	return &Scheduler{tracker: tracker}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule runs fn once virtual time has advanced by d. A non-positive d
// fires on the next Advance.
func (s *Scheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := timer{due: s.now + max(d, 0), seq: s.seq, fn: fn}
	i := sort.Search(len(s.timers), func(i int) bool {
		o := s.timers[i]
		return o.due > t.due || (o.due == t.due && o.seq > t.seq)
	})
	s.timers = append(s.timers, timer{})
	copy(s.timers[i+1:], s.timers[i:])
	s.timers[i] = t
}

// Pending returns the number of callbacks not fired yet.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Advance moves virtual time forward by d, firing due callbacks. Callbacks
// scheduled by a callback fire in the same Advance if they fall due within
// it.
func (s *Scheduler) Advance(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	target := s.now + max(d, 0)
	s.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, ok := s.popDue(target)
		if !ok {
			break
		}
		t.fn()
		if err := s.settle(ctx); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.now = target
	s.mu.Unlock()
	return s.settle(ctx)
}

func (s *Scheduler) popDue(target time.Duration) (timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.timers) == 0 || s.timers[0].due > target {
		return timer{}, false
	}
	t := s.timers[0]
	s.timers = s.timers[1:]
	s.now = t.due
	return t, true
}

func (s *Scheduler) settle(ctx context.Context) error {
	if s.tracker == nil {
		return nil
	}
	return s.tracker.WaitIdle(ctx)
}
