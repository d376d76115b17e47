package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverence/MarbleTesting/internal/testutil"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func tickPtr(v int) *int { return &v }

func failedRun(id string) Run {
	return Run{
		ID:          id,
		Scenario:    "echo",
		Digest:      "3f2a",
		FailureKind: "assertion",
		FailureTick: tickPtr(2),
		Message:     "marble 'x' its assertion was not satisfied",
		Ticks: []Tick{
			{Tick: 0, Pass: true},
			{Tick: 1, Pass: true},
			{Tick: 2, Pass: false, Error: "boom"},
		},
	}
}

func TestWriteRun_RoundTrip(t *testing.T) {
	clock := testutil.NewStepClock(epoch, time.Second)
	s := createTestStore(t, WithWallClock(clock.Now))
	ctx := context.Background()
	id := testutil.NewFixedIDGenerator("").Generate()

	written, err := s.WriteRun(ctx, failedRun(id))
	require.NoError(t, err)
	assert.Equal(t, int64(1), written.Seq)
	assert.Equal(t, epoch, written.StartedAt)

	got, err := s.ReadRun(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, written, got)
	assert.False(t, got.Pass)
	assert.Equal(t, "3f2a", got.Digest)
	require.NotNil(t, got.FailureTick)
	assert.Equal(t, 2, *got.FailureTick)
	require.Len(t, got.Ticks, 3)
	assert.Equal(t, "boom", got.Ticks[2].Error)
}

func TestWriteRun_PassingRunHasNoFailureTick(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, Run{ID: "r1", Scenario: "echo", Pass: true, StartedAt: epoch})
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, got.Pass)
	assert.Nil(t, got.FailureTick)
	assert.Empty(t, got.Ticks)
	assert.NotNil(t, got.Ticks)
}

func TestWriteRun_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, Run{Scenario: "echo"})
	assert.ErrorContains(t, err, "id is required")

	_, err = s.WriteRun(ctx, Run{ID: "r1"})
	assert.ErrorContains(t, err, "scenario is required")
}

func TestWriteRun_DuplicateIDRollsBack(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.WriteRun(ctx, failedRun("dup"))
	require.NoError(t, err)

	second := failedRun("dup")
	second.Ticks = append(second.Ticks, Tick{Tick: 3, Pass: true})
	_, err = s.WriteRun(ctx, second)
	require.Error(t, err)

	got, err := s.ReadRun(ctx, "dup")
	require.NoError(t, err)
	assert.Len(t, got.Ticks, 3, "the failed write must not add ticks")
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListRuns_NewestFirst(t *testing.T) {
	clock := testutil.NewStepClock(epoch, time.Minute)
	s := createTestStore(t, WithWallClock(clock.Now))
	ctx := context.Background()

	for _, r := range []Run{
		{ID: "r1", Scenario: "echo", Pass: true},
		{ID: "r2", Scenario: "fanout", Pass: false, FailureKind: "missing_event", FailureTick: tickPtr(1)},
		{ID: "r3", Scenario: "echo", Pass: true},
	} {
		_, err := s.WriteRun(ctx, r)
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"r3", "r2", "r1"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.Equal(t, epoch.Add(2*time.Minute), runs[0].StartedAt)
	assert.Nil(t, runs[0].Ticks, "listings do not load ticks")

	runs, err = s.ListRuns(ctx, ListFilter{Scenario: "echo"})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r3", runs[0].ID)

	runs, err = s.ListRuns(ctx, ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "r3", runs[0].ID)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background(), ListFilter{Scenario: "nothing"})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestOpen_ClockResumesAfterReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, Run{ID: "first", Scenario: "echo", Pass: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	second, err := s.WriteRun(ctx, Run{ID: "second", Scenario: "echo", Pass: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Seq)

	runs, err := s.ListRuns(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, "second", runs[0].ID)
}
