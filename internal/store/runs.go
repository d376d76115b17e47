package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a run id is not stored.
var ErrNotFound = errors.New("run not found")

// Run is one recorded scenario execution.
type Run struct {
	ID          string    `json:"id"`
	Seq         int64     `json:"seq"`
	Scenario    string    `json:"scenario"`
	Digest      string    `json:"digest,omitempty"` // scenario content digest
	Pass        bool      `json:"pass"`
	FailureKind string    `json:"failure_kind,omitempty"`
	FailureTick *int      `json:"failure_tick,omitempty"`
	Message     string    `json:"message,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	Ticks       []Tick    `json:"ticks,omitempty"`
}

// Tick is the outcome of one tick of a run.
type Tick struct {
	Tick  int    `json:"tick"`
	Pass  bool   `json:"pass"`
	Error string `json:"error,omitempty"`
}

// ListFilter narrows ListRuns.
type ListFilter struct {
	// Scenario keeps only runs of this scenario when set.
	Scenario string
	// Limit caps the number of runs. Zero means no limit.
	Limit int
}

// WriteRun stores a run and its ticks in one transaction. Seq is assigned
// from the store's clock and StartedAt from its wall clock when zero; the
// stored values are returned.
func (s *Store) WriteRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("write run: id is required")
	}
	if run.Scenario == "" {
		return Run{}, fmt.Errorf("write run %s: scenario is required", run.ID)
	}

	run.Seq = s.clock.Next()
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.StartedAt = run.StartedAt.UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}
	defer tx.Rollback()

	var tick sql.NullInt64
	if run.FailureTick != nil {
		tick = sql.NullInt64{Int64: int64(*run.FailureTick), Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, scenario, digest, pass, failure_kind, failure_tick, message, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Seq,
		run.Scenario,
		run.Digest,
		run.Pass,
		run.FailureKind,
		tick,
		run.Message,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}

	for _, t := range run.Ticks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ticks (run_id, tick, pass, error)
			VALUES (?, ?, ?, ?)
		`, run.ID, t.Tick, t.Pass, t.Error)
		if err != nil {
			return Run{}, fmt.Errorf("write run %s tick %d: %w", run.ID, t.Tick, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run %s: %w", run.ID, err)
	}
	return run, nil
}

// ListRuns returns runs newest first, without their ticks.
//
// Returns an empty slice (not nil) if no run matches.
func (s *Store) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	query := `
		SELECT id, seq, scenario, digest, pass, failure_kind, failure_tick, message, started_at
		FROM runs`
	var args []any
	if filter.Scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, filter.Scenario)
	}
	query += ` ORDER BY seq DESC, id COLLATE BINARY ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns a run with its ticks in tick order.
// Returns ErrNotFound if the id is not stored.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, scenario, digest, pass, failure_kind, failure_tick, message, started_at
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, pass, error
		FROM ticks
		WHERE run_id = ?
		ORDER BY tick ASC
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	run.Ticks = []Tick{}
	for rows.Next() {
		var t Tick
		if err := rows.Scan(&t.Tick, &t.Pass, &t.Error); err != nil {
			return Run{}, fmt.Errorf("scan tick: %w", err)
		}
		run.Ticks = append(run.Ticks, t)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate ticks: %w", err)
	}
	return run, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run       Run
		tick      sql.NullInt64
		startedAt string
	)
	err := row.Scan(&run.ID, &run.Seq, &run.Scenario, &run.Digest, &run.Pass,
		&run.FailureKind, &tick, &run.Message, &startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}
	if err != nil {
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	if tick.Valid {
		v := int(tick.Int64)
		run.FailureTick = &v
	}
	run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at of run %s: %w", run.ID, err)
	}
	return run, nil
}
