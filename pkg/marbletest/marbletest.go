// Package marbletest runs marble diagram tests in discrete virtual time.
//
// A Test owns input and expectation timelines and two capabilities of the
// system under test: waiting until it is idle and advancing its virtual
// clock. Run walks every tick from the earliest to the latest expected tick:
//
//  1. fire every input scheduled at the tick, concurrently
//  2. wait until the system is idle
//  3. run the positive checks of every expectation timeline, then their
//     nothing-else checks
//  4. advance virtual time when an interval was given
//
// The first failing tick ends the run.
//
//	test := marbletest.New(tracker.WaitIdle, sched.Advance)
//	_ = test.WhenDoing("a-b-c", send)
//	_ = marbletest.ExpectEvents(test, "a-b-c", out, check)
//	err := test.Run(ctx)
package marbletest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/divverence/MarbleTesting/pkg/marble"
	"github.com/divverence/MarbleTesting/pkg/match"
	"github.com/divverence/MarbleTesting/pkg/timeline"
)

var (
	// ErrNoExpectations is returned by Run when no expectation has a tick.
	ErrNoExpectations = errors.New("marbletest: no expectations registered")

	// ErrAlreadyRun is returned when a test is run or extended after Run.
	ErrAlreadyRun = errors.New("marbletest: test already run")
)

// IdleFunc blocks until every piece of work triggered so far has settled.
type IdleFunc func(ctx context.Context) error

// AdvanceFunc moves the virtual clock of the system forward and lets it
// settle.
type AdvanceFunc func(ctx context.Context, d time.Duration) error

// TickObserver is told about every finished tick.
type TickObserver func(tick int, err error)

// Option configures a Test.
type Option func(*Test)

// WithParser selects the diagram parser. Defaults to marble.Parse.
func WithParser(p marble.Parser) Option {
	return func(t *Test) { t.parse = p }
}

// WithLogger sets the logger for tick progress. Defaults to a discarding
// logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Test) { t.logger = l }
}

// WithTickObserver registers fn to be called after every tick.
func WithTickObserver(fn TickObserver) Option {
	return func(t *Test) { t.observers = append(t.observers, fn) }
}

// Test is a single marble test run. It is not reusable.
type Test struct {
	waitIdle  IdleFunc
	advance   AdvanceFunc
	parse     marble.Parser
	logger    *slog.Logger
	observers []TickObserver

	mu           sync.Mutex
	state        State
	tick         int
	inputs       []*timeline.Inputs
	expectations []*timeline.Expectations
}

// New creates a test. A nil waitIdle or advance is treated as a no-op.
func New(waitIdle IdleFunc, advance AdvanceFunc, opts ...Option) *Test {
	t := &Test{
		waitIdle: waitIdle,
		advance:  advance,
		parse:    marble.Parse,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.waitIdle == nil {
		t.waitIdle = func(context.Context) error { return nil }
	}
	if t.advance == nil {
		t.advance = func(context.Context, time.Duration) error { return nil }
	}
	return t
}

// Parser returns the parser registrations use.
func (t *Test) Parser() marble.Parser { return t.parse }

// State returns where the test is in its lifecycle.
func (t *Test) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Tick returns the tick being run, or the tick the run stopped at.
func (t *Test) Tick() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tick
}

// AddInputs registers a prepared input timeline.
func (t *Test) AddInputs(in *timeline.Inputs) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateNotStarted {
		return ErrAlreadyRun
	}
	t.inputs = append(t.inputs, in)
	return nil
}

// AddExpectations registers a prepared expectation timeline.
func (t *Test) AddExpectations(exp *timeline.Expectations) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateNotStarted {
		return ErrAlreadyRun
	}
	t.expectations = append(t.expectations, exp)
	return nil
}

// WhenDoing fires do for every marble of sequence at its tick.
func (t *Test) WhenDoing(sequence string, do timeline.Action) error {
	in, err := timeline.InputsFor(t.parse, sequence, do)
	if err != nil {
		return err
	}
	return t.AddInputs(in)
}

// Expect registers a strict expectation on untyped events.
func (t *Test) Expect(sequence string, producer timeline.Producer[any], check match.Check[any]) error {
	return ExpectEvents(t, sequence, producer, check)
}

// ExpectAtLeast registers a lenient expectation on untyped events.
func (t *Test) ExpectAtLeast(sequence string, producer timeline.Producer[any], check match.Check[any]) error {
	return ExpectEventsAtLeast(t, sequence, producer, check)
}

// Assert calls fn for every marble of sequence at its tick.
func (t *Test) Assert(sequence string, fn func(marble string) error) error {
	exp, err := timeline.Assert(t.parse, sequence, fn)
	if err != nil {
		return err
	}
	return t.AddExpectations(exp)
}

// ExpectEvents registers a strict expectation on typed events.
func ExpectEvents[E any](t *Test, sequence string, producer timeline.Producer[E], check match.Check[E]) error {
	exp, err := timeline.Expect(t.parse, sequence, producer, check)
	if err != nil {
		return err
	}
	return t.AddExpectations(exp)
}

// ExpectEventsAtLeast registers a lenient expectation on typed events.
func ExpectEventsAtLeast[E any](t *Test, sequence string, producer timeline.Producer[E], check match.Check[E]) error {
	exp, err := timeline.ExpectAtLeast(t.parse, sequence, producer, check)
	if err != nil {
		return err
	}
	return t.AddExpectations(exp)
}

// Sender is anything that accepts events, such as a probe.Probe.
type Sender[E any] interface {
	Send(e E) bool
}

// WhenSending sends build(marble) to to for every marble of sequence.
func WhenSending[E any](t *Test, sequence string, to Sender[E], build func(marble string) (E, error)) error {
	return t.WhenDoing(sequence, func(_ context.Context, m string) error {
		e, err := build(m)
		if err != nil {
			return err
		}
		if !to.Send(e) {
			return fmt.Errorf("receiver rejected event for marble %q", m)
		}
		return nil
	})
}

// Run walks all ticks without advancing virtual time.
func (t *Test) Run(ctx context.Context) error {
	return t.run(ctx, 0, false)
}

// RunWithInterval walks all ticks and advances virtual time by interval after
// each one.
func (t *Test) RunWithInterval(ctx context.Context, interval time.Duration) error {
	return t.run(ctx, interval, true)
}

func (t *Test) run(ctx context.Context, interval time.Duration, advance bool) error {
	inputs, expectations, err := t.start()
	if err != nil {
		return err
	}

	first, last, ok := bounds(expectations)
	if !ok {
		t.finish(StateFailed, 0)
		return ErrNoExpectations
	}
	t.logger.Debug("marble test started", "first_tick", first, "last_tick", last,
		"inputs", len(inputs), "expectations", len(expectations))

	for tick := first; tick <= last; tick++ {
		t.setTick(tick)
		err := t.step(ctx, tick, inputs, expectations, interval, advance)
		for _, observe := range t.observers {
			observe(tick, err)
		}
		if err != nil {
			t.logger.Debug("tick failed", "tick", tick, "error", err)
			t.finish(StateFailed, tick)
			return err
		}
		t.logger.Debug("tick passed", "tick", tick)
	}

	t.finish(StateFinished, last)
	return nil
}

func (t *Test) step(ctx context.Context, tick int, inputs []*timeline.Inputs, expectations []*timeline.Expectations, interval time.Duration, advance bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tick %d: %w", tick, err)
	}

	if err := fire(ctx, tick, inputs); err != nil {
		return err
	}
	if err := t.waitIdle(ctx); err != nil {
		return fmt.Errorf("waiting for idle at tick %d: %w", tick, err)
	}

	var first error
	for _, exp := range expectations {
		if err := exp.Verify(tick); err != nil && first == nil {
			first = err
		}
	}
	for _, exp := range expectations {
		if err := exp.VerifyNothingElse(tick); err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return first
	}

	if advance {
		if err := t.advance(ctx, interval); err != nil {
			return fmt.Errorf("advancing time after tick %d: %w", tick, err)
		}
	}
	return nil
}

// fire runs every input timeline's actions for tick concurrently.
func fire(ctx context.Context, tick int, inputs []*timeline.Inputs) error {
	errs := make([]error, len(inputs))
	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = in.RunAt(ctx, tick)
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func bounds(expectations []*timeline.Expectations) (first, last int, ok bool) {
	for _, exp := range expectations {
		f, l, has := exp.Bounds()
		if !has {
			continue
		}
		if !ok || f < first {
			first = f
		}
		if !ok || l > last {
			last = l
		}
		ok = true
	}
	return first, last, ok
}

func (t *Test) start() ([]*timeline.Inputs, []*timeline.Expectations, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateNotStarted {
		return nil, nil, ErrAlreadyRun
	}
	t.state = StateRunning
	return t.inputs, t.expectations, nil
}

func (t *Test) setTick(tick int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tick = tick
}

func (t *Test) finish(state State, tick int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.tick = tick
}
