package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/divverence/MarbleTesting/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	DB       string
	Scenario string
	Limit    int
	RunID    string // show one run with its ticks
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded scenario runs",
		Long: `List scenario runs recorded by "marbles test --db", newest first.

With --run, show a single run and the outcome of each of its ticks.

Exit codes:
  0 - Success
  1 - Run not found
  2 - Command error (database not found, etc.)

Examples:
  marbles history --db runs.db
  marbles history --db runs.db --scenario fanout --limit 5
  marbles history --db runs.db --run 0190a6b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "run history database (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only runs of this scenario")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs, 0 for all")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show one run by id")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	if opts.DB == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}
	// Opening would create an empty database.
	if _, err := os.Stat(opts.DB); errors.Is(err, fs.ErrNotExist) {
		if ferr := out.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.DB), nil); ferr != nil {
			return ferr
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.DB))
	}

	runs, err := store.Open(opts.DB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open run history", err)
	}
	defer runs.Close()

	ctx := commandContext(cmd)
	colors := newPalette(cmd.OutOrStdout(), opts.NoColor)

	if opts.RunID != "" {
		run, err := runs.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrNotFound) {
			if ferr := out.Error(ErrCodeNotFound, err.Error(), nil); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, "run not found", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if opts.Format == "json" {
			return out.Success(run)
		}
		return out.Success(formatRun(colors, run))
	}

	list, err := runs.ListRuns(ctx, store.ListFilter{Scenario: opts.Scenario, Limit: opts.Limit})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	opts.logger().Debug("listed runs", "count", len(list), "scenario", opts.Scenario)

	if opts.Format == "json" {
		return out.Success(list)
	}
	if len(list) == 0 {
		return out.Success("No runs recorded.")
	}
	lines := make([]string, 0, len(list))
	for _, run := range list {
		lines = append(lines, formatRunLine(colors, run))
	}
	return out.Success(strings.Join(lines, "\n"))
}

// formatRunLine renders one run as "seq ✓|✗ scenario  started  id  failure".
func formatRunLine(colors palette, run store.Run) string {
	label := fmt.Sprintf("%-20s %s  %s", run.Scenario, run.StartedAt.Format(time.RFC3339), run.ID)
	var line string
	if run.Pass {
		line = colors.Pass(label)
	} else {
		line = colors.Fail(label)
	}
	line = fmt.Sprintf("%4d %s", run.Seq, line)
	if run.FailureKind != "" {
		line += colors.Faint("  " + failureSummary(run))
	}
	return line
}

func failureSummary(run store.Run) string {
	if run.FailureTick != nil {
		return fmt.Sprintf("%s at tick %d", run.FailureKind, *run.FailureTick)
	}
	return run.FailureKind
}

// formatRun renders a run header followed by one line per tick.
func formatRun(colors palette, run store.Run) string {
	var b strings.Builder
	fmt.Fprintln(&b, formatRunLine(colors, run))
	if run.Digest != "" {
		fmt.Fprintln(&b, colors.Faint("scenario digest "+run.Digest))
	}
	if run.Message != "" {
		fmt.Fprintln(&b, run.Message)
	}
	for _, tick := range run.Ticks {
		label := fmt.Sprintf("tick %d", tick.Tick)
		if tick.Pass {
			fmt.Fprintf(&b, "  %s\n", colors.Pass(label))
			continue
		}
		fmt.Fprintf(&b, "  %s  %s\n", colors.Fail(label), tick.Error)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
