package marbletest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverence/MarbleTesting/internal/testutil"
	"github.com/divverence/MarbleTesting/pkg/marble"
	"github.com/divverence/MarbleTesting/pkg/probe"
	"github.com/divverence/MarbleTesting/pkg/timeline"
)

func equals(marble, event string) error {
	if marble != event {
		return fmt.Errorf("expected %s, got %s", marble, event)
	}
	return nil
}

// echo wires a test whose system forwards every input marble to out.
func echo(t *testing.T, opts ...Option) (*Test, *probe.Probe[string]) {
	t.Helper()
	tracker := probe.NewTracker()
	sched := probe.NewScheduler(tracker)
	out := probe.New[string]()
	test := New(tracker.WaitIdle, sched.Advance, opts...)
	return test, out
}

func TestRun_EndToEnd(t *testing.T) {
	test, out := echo(t)
	require.NoError(t, WhenSending(test, "a-b-c", out, func(m string) (string, error) { return m, nil }))
	require.NoError(t, ExpectEvents[string](test, "a-b-c", out, equals))

	require.NoError(t, test.Run(context.Background()))
	assert.Equal(t, StateFinished, test.State())
	assert.Equal(t, 4, test.Tick())
}

func TestRun_MismatchFailsAtTick(t *testing.T) {
	test, out := echo(t)
	require.NoError(t, WhenSending(test, "a-b-c", out, func(m string) (string, error) { return m, nil }))
	require.NoError(t, ExpectEvents[string](test, "a-x-c", out, equals))

	err := test.Run(context.Background())
	require.Error(t, err)
	assert.True(t, timeline.IsAssertionFailure(err))

	var ve *timeline.VerificationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 2, ve.Time)
	assert.Equal(t, "x", ve.Marble)
	assert.Contains(t, err.Error(), "marble 'x'")

	assert.Equal(t, StateFailed, test.State())
	assert.Equal(t, 2, test.Tick())
}

func TestRun_FailFast(t *testing.T) {
	var ticks []int
	test := New(nil, nil, WithTickObserver(func(tick int, _ error) { ticks = append(ticks, tick) }))
	require.NoError(t, test.Assert("a-b-c", func(m string) error {
		if m == "b" {
			return errors.New("b is broken")
		}
		return nil
	}))

	err := test.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []int{0, 1, 2}, ticks)
}

func TestRun_AllTimelinesAttemptedBeforeFailing(t *testing.T) {
	var calls []string
	test := New(nil, nil)
	require.NoError(t, test.Assert("a", func(string) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	}))
	require.NoError(t, test.Assert("b", func(string) error {
		calls = append(calls, "second")
		return errors.New("second failed")
	}))

	err := test.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRun_SharedProbeAcrossTimelines(t *testing.T) {
	// The nothing-else check of the first timeline must not consume the
	// event the second timeline expects.
	shared := testutil.Script("a", "b")
	test := New(nil, nil)
	require.NoError(t, ExpectEvents[string](test, "a", shared, equals))
	require.NoError(t, ExpectEvents[string](test, "b", shared, equals))
	require.NoError(t, test.Run(context.Background()))
}

func TestRun_TickRangeSpansAllTimelines(t *testing.T) {
	var ticks []int
	test := New(nil, nil, WithTickObserver(func(tick int, _ error) { ticks = append(ticks, tick) }))
	require.NoError(t, test.Assert("ab^", func(string) error { return nil }))
	require.NoError(t, test.Assert("^-c", func(string) error { return nil }))

	require.NoError(t, test.Run(context.Background()))
	assert.Equal(t, []int{-2, -1, 0, 1, 2}, ticks)
}

func TestRun_NoExpectations(t *testing.T) {
	test := New(nil, nil)
	require.NoError(t, test.WhenDoing("a", func(context.Context, string) error { return nil }))
	assert.ErrorIs(t, test.Run(context.Background()), ErrNoExpectations)

	test = New(nil, nil)
	require.NoError(t, test.Assert("", func(string) error { return nil }))
	assert.ErrorIs(t, test.Run(context.Background()), ErrNoExpectations)
}

func TestRun_OnlyOnce(t *testing.T) {
	test := New(nil, nil)
	require.NoError(t, test.Assert("a", func(string) error { return nil }))
	assert.Equal(t, StateNotStarted, test.State())

	require.NoError(t, test.Run(context.Background()))
	assert.ErrorIs(t, test.Run(context.Background()), ErrAlreadyRun)
	assert.ErrorIs(t, test.Assert("b", func(string) error { return nil }), ErrAlreadyRun)
}

func TestRun_StateWhileRunning(t *testing.T) {
	var test *Test
	var seen []State
	test = New(func(context.Context) error {
		seen = append(seen, test.State())
		return nil
	}, nil)
	require.NoError(t, test.Assert("a", func(string) error { return nil }))
	require.NoError(t, test.Run(context.Background()))
	assert.Equal(t, []State{StateRunning}, seen)
	assert.Equal(t, "finished", test.State().String())
}

func TestRun_IntervalAdvancesAfterEveryTick(t *testing.T) {
	var advanced []time.Duration
	test := New(nil, func(_ context.Context, d time.Duration) error {
		advanced = append(advanced, d)
		return nil
	})
	require.NoError(t, test.Assert("a--", func(string) error { return nil }))

	require.NoError(t, test.RunWithInterval(context.Background(), time.Second))
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, advanced)

	advanced = nil
	test = New(nil, func(_ context.Context, d time.Duration) error {
		advanced = append(advanced, d)
		return nil
	})
	require.NoError(t, test.Assert("a--", func(string) error { return nil }))
	require.NoError(t, test.Run(context.Background()))
	assert.Empty(t, advanced)
}

func TestRun_DelayedEmissionWithVirtualTime(t *testing.T) {
	tracker := probe.NewTracker()
	sched := probe.NewScheduler(tracker)
	out := probe.New[string]()

	test := New(tracker.WaitIdle, sched.Advance)
	require.NoError(t, test.WhenDoing("a---", func(_ context.Context, m string) error {
		sched.Schedule(2*time.Second, func() {
			tracker.Go(func() { out.Send(m) })
		})
		return nil
	}))
	require.NoError(t, ExpectEvents[string](test, "--a-", out, equals))

	require.NoError(t, test.RunWithInterval(context.Background(), time.Second))
	assert.Equal(t, 4*time.Second, sched.Now())
}

func TestRun_IdleErrorEndsRun(t *testing.T) {
	test := New(func(context.Context) error { return errors.New("dispatcher stuck") }, nil)
	require.NoError(t, test.Assert("a", func(string) error { return nil }))

	err := test.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waiting for idle at tick 0")
	assert.Equal(t, StateFailed, test.State())
}

func TestRun_ActionErrorEndsRun(t *testing.T) {
	test := New(nil, nil)
	require.NoError(t, test.WhenDoing("-x", func(context.Context, string) error { return errors.New("send failed") }))
	require.NoError(t, ExpectEvents[string](test, "--", testutil.Script(), equals))

	err := test.Run(context.Background())
	require.Error(t, err)
	assert.True(t, timeline.IsActionError(err))
	tick, ok := timeline.TickOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, tick)
}

func TestRun_CancelledContext(t *testing.T) {
	test := New(nil, nil)
	require.NoError(t, test.Assert("a", func(string) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, test.Run(ctx), context.Canceled)
}

func TestRun_UnorderedAndOrderedGroups(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		sent     []string
		wantErr  bool
	}{
		{"unordered same order", "<ab>", []string{"a", "b"}, false},
		{"unordered reversed", "<ab>", []string{"b", "a"}, false},
		{"unordered duplicate", "<ab>", []string{"a", "a"}, true},
		{"ordered in order", "(ab)", []string{"a", "b"}, false},
		{"ordered reversed", "(ab)", []string{"b", "a"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test, out := echo(t)
			require.NoError(t, test.WhenDoing("x", func(context.Context, string) error {
				for _, e := range tt.sent {
					out.Send(e)
				}
				return nil
			}))
			require.NoError(t, ExpectEvents[string](test, tt.expected, out, equals))
			err := test.Run(context.Background())
			if tt.wantErr {
				assert.True(t, timeline.IsAssertionFailure(err), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun_MultiCharParser(t *testing.T) {
	test, out := echo(t, WithParser(marble.ParseMultiChar))
	require.NoError(t, WhenSending(test, "foo-bar", out, func(m string) (string, error) { return m, nil }))
	require.NoError(t, ExpectEvents[string](test, "foo-bar", out, equals))
	require.NoError(t, test.Run(context.Background()))
}

func TestRun_ExpectAtLeastIgnoresNoise(t *testing.T) {
	test, out := echo(t)
	require.NoError(t, WhenSending(test, "(xa)-(by)", out, func(m string) (string, error) { return m, nil }))
	require.NoError(t, ExpectEventsAtLeast[string](test, "a----b", out, equals))
	require.NoError(t, test.Run(context.Background()))
}

func TestTest_UntypedExpect(t *testing.T) {
	shared := testutil.Script("a")
	producer := timeline.ProducerFunc[any](func() (any, bool) { return shared.Next() })

	test := New(nil, nil)
	require.NoError(t, test.Expect("a", producer, func(m string, e any) error {
		return equals(m, e.(string))
	}))
	require.NoError(t, test.Run(context.Background()))
}

func TestTest_RegistrationParseError(t *testing.T) {
	test := New(nil, nil)
	err := test.WhenDoing("a)", func(context.Context, string) error { return nil })
	assert.True(t, marble.IsParseError(err, marble.ErrUnbalancedGroup))

	err = test.Assert("^^", func(string) error { return nil })
	assert.True(t, marble.IsParseError(err, marble.ErrDuplicateOriginMarker))
}
