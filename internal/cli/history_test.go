package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverence/MarbleTesting/internal/store"
)

// recordRuns runs the echo and extra_event scenarios once each into a fresh
// database and returns its path.
func recordRuns(t *testing.T) string {
	t.Helper()
	dir := scenarioDir(t, map[string]string{
		"echo.yaml":  echoScenario,
		"extra.yaml": extraEventScenario,
	})
	db := filepath.Join(t.TempDir(), "runs.db")

	_, _, err := executeCommand(t, "test", dir, "--db", db)
	require.Error(t, err, "extra_event fails")
	return db
}

func listRuns(t *testing.T, args ...string) []store.Run {
	t.Helper()
	stdout, _, err := executeCommand(t, append([]string{"history", "--format", "json"}, args...)...)
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   []store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestHistoryCommand_ListsRecordedRuns(t *testing.T) {
	db := recordRuns(t)

	runs := listRuns(t, "--db", db)
	require.Len(t, runs, 2)
	// findScenarioFiles walks in lexical order: echo.yaml, then extra.yaml.
	assert.Equal(t, "extra_event", runs[0].Scenario)
	assert.Equal(t, "echo", runs[1].Scenario)
	assert.Greater(t, runs[0].Seq, runs[1].Seq)

	failed := runs[0]
	assert.False(t, failed.Pass)
	assert.Equal(t, "unexpected_events", failed.FailureKind)
	require.NotNil(t, failed.FailureTick)
	assert.Equal(t, 2, *failed.FailureTick)
	assert.True(t, runs[1].Pass)
	assert.Len(t, runs[1].Digest, 64)
	assert.NotEqual(t, runs[0].Digest, runs[1].Digest)
}

func TestHistoryCommand_Filters(t *testing.T) {
	db := recordRuns(t)

	runs := listRuns(t, "--db", db, "--scenario", "echo")
	require.Len(t, runs, 1)
	assert.Equal(t, "echo", runs[0].Scenario)

	runs = listRuns(t, "--db", db, "--limit", "1")
	require.Len(t, runs, 1)
	assert.Equal(t, "extra_event", runs[0].Scenario)

	assert.Empty(t, listRuns(t, "--db", db, "--scenario", "nothing"))
}

func TestHistoryCommand_Text(t *testing.T) {
	db := recordRuns(t)

	stdout, _, err := executeCommand(t, "history", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "✗ extra_event")
	assert.Contains(t, lines[0], "unexpected_events at tick 2")
	assert.Contains(t, lines[1], "✓ echo")
}

func TestHistoryCommand_ShowRun(t *testing.T) {
	db := recordRuns(t)
	failed := listRuns(t, "--db", db, "--scenario", "extra_event")[0]

	stdout, _, err := executeCommand(t, "history", "--db", db, "--run", failed.ID)
	require.NoError(t, err)
	assert.Contains(t, stdout, failed.ID)
	assert.Contains(t, stdout, "scenario digest "+failed.Digest)
	assert.Contains(t, stdout, "unexpected events were received at time 2")
	assert.Contains(t, stdout, "✓ tick 0")
	assert.Contains(t, stdout, "✗ tick 2")

	stdout, _, err = executeCommand(t, "history", "--db", db, "--run", failed.ID, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Data store.Run `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, failed.ID, resp.Data.ID)
	require.Len(t, resp.Data.Ticks, 3)
	assert.False(t, resp.Data.Ticks[2].Pass)
}

func TestHistoryCommand_UnknownRun(t *testing.T) {
	db := recordRuns(t)

	stdout, _, err := executeCommand(t, "history", "--db", db, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, stdout, "Error [E003]")
}

func TestHistoryCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing_db_flag", []string{"history"}, "--db is required"},
		{"db_not_found", []string{"history", "--db", filepath.Join(t.TempDir(), "none.db")}, "database not found"},
		{"negative_limit", []string{"history", "--db", "x.db", "--limit", "-1"}, "--limit must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCommand(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHistoryCommand_DBFromEnvironment(t *testing.T) {
	db := recordRuns(t)
	t.Setenv("MARBLES_DB", db)

	assert.Len(t, listRuns(t), 2)
}
