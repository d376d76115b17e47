package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/divverence/MarbleTesting/internal/testutil"
	"github.com/divverence/MarbleTesting/pkg/marble"
	"github.com/divverence/MarbleTesting/pkg/marbletest"
	"github.com/divverence/MarbleTesting/pkg/timeline"
)

// IDGenerator produces run ids.
type IDGenerator interface {
	Generate() string
}

// Option configures a scenario run.
type Option func(*Harness)

// WithLogger sets the logger for scenario progress.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithIDGenerator sets the run id source. The default is a fixed id, which
// keeps golden reports stable.
func WithIDGenerator(g IDGenerator) Option {
	return func(h *Harness) { h.ids = g }
}

// Harness is the scenario execution engine.
// It wires a fresh mapper system to a marble test for every scenario.
type Harness struct {
	logger *slog.Logger
	ids    IDGenerator
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against its own system and probes. A failing marble
// run is reported in the result, not as an error; the error return is kept
// for scenarios that cannot be executed at all.
//
// Execution flow:
//  1. Build the mapper system and its probes
//  2. Register inputs and expectations
//  3. Walk every tick, advancing virtual time by the interval
//  4. Compare the outcome with expect_failure
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	if scenario == nil {
		return nil, errors.New("nil scenario")
	}
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		ids:    testutil.NewFixedIDGenerator(""),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	logger := h.logger.With("scenario", scenario.Name)
	result := NewResult(h.ids.Generate(), scenario.Name)
	sys := newSystem(scenario, logger)

	test := marbletest.New(sys.tracker.WaitIdle, sys.sched.Advance,
		marbletest.WithParser(scenario.Parse()),
		marbletest.WithLogger(logger),
		marbletest.WithTickObserver(result.AddTick),
	)

	if err := h.register(test, scenario, sys); err != nil {
		var pe *marble.ParseError
		if !errors.As(err, &pe) {
			return nil, err
		}
		logger.Info("scenario does not parse", "error", err)
		result.Failure = &Failure{Kind: string(FailureParse), Message: err.Error()}
	} else {
		var err error
		if interval := scenario.TickInterval(); interval > 0 {
			err = test.RunWithInterval(ctx, interval)
		} else {
			err = test.Run(ctx)
		}
		if err != nil {
			result.Failure = describe(err)
			logger.Info("marble run failed", "kind", result.Failure.Kind, "tick", test.Tick())
		} else {
			logger.Info("marble run passed", "ticks", len(result.Ticks))
		}
	}

	if left := sys.leftovers(); len(left) > 0 {
		result.Unobserved = left
	}

	evaluate(result, scenario.ExpectFailure)
	return result, nil
}

func (h *Harness) register(test *marbletest.Test, scenario *Scenario, sys *system) error {
	for i, in := range scenario.Inputs {
		if err := test.WhenDoing(in.Sequence, sys.receive); err != nil {
			return fmt.Errorf("inputs[%d]: %w", i, err)
		}
	}

	for i, exp := range scenario.Expectations {
		out := sys.probe(probeName(exp.Probe))
		var err error
		if exp.Mode == ModeAtLeast {
			err = marbletest.ExpectEventsAtLeast[string](test, exp.Sequence, out, sameMarble)
		} else {
			err = marbletest.ExpectEvents[string](test, exp.Sequence, out, sameMarble)
		}
		if err != nil {
			return fmt.Errorf("expectations[%d]: %w", i, err)
		}
	}
	return nil
}

// sameMarble accepts an event equal to the marble's name.
func sameMarble(marble, event string) error {
	if marble != event {
		return fmt.Errorf("expected %q, got %q", marble, event)
	}
	return nil
}

func describe(err error) *Failure {
	f := &Failure{
		Kind:    string(timeline.KindOf(err)),
		Message: err.Error(),
	}
	if tick, ok := timeline.TickOf(err); ok {
		f.Tick = &tick
	}
	return f
}

// evaluate decides Pass from the run's failure and the expected one.
func evaluate(result *Result, want *ExpectedFailure) {
	got := result.Failure
	switch {
	case want == nil && got == nil:
	case want == nil:
		result.AddError(got.Message)
	case got == nil:
		result.AddError(fmt.Sprintf("expected a failure of kind %s but the run passed", want.Kind))
	case got.Kind != want.Kind:
		result.AddError(fmt.Sprintf("expected a failure of kind %s, got %s: %s", want.Kind, kindOrUnknown(got.Kind), got.Message))
	case want.Tick != nil && (got.Tick == nil || *got.Tick != *want.Tick):
		result.AddError(fmt.Sprintf("expected the %s failure at tick %d, got %s", want.Kind, *want.Tick, tickOrUnknown(got.Tick)))
	}
}

func kindOrUnknown(kind string) string {
	if kind == "" {
		return "an unclassified error"
	}
	return kind
}

func tickOrUnknown(tick *int) string {
	if tick == nil {
		return "no tick"
	}
	return fmt.Sprintf("tick %d", *tick)
}
