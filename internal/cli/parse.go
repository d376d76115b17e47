package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divverence/MarbleTesting/pkg/marble"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	Parser string // "single" | "multi"
}

// MomentView is the JSON shape of one parsed moment.
type MomentView struct {
	Time    int      `json:"time"`
	Pos     int      `json:"pos"`
	Kind    string   `json:"kind"`
	Marbles []string `json:"marbles"`
}

// ParseResult is the output of the parse command.
type ParseResult struct {
	Sequence string       `json:"sequence"`
	Parser   string       `json:"parser"`
	Moments  []MomentView `json:"moments"`
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <sequence>",
		Short: "Show the moments of a marble sequence",
		Long: `Parse a marble sequence and print one line per tick.

Exit codes:
  0 - Sequence parsed
  1 - Sequence is malformed
  2 - Command error

Examples:
  marbles parse "a-(bc)-<de>"
  marbles parse "foo - (bar,baz)" --parser multi
  marbles parse "--^-a" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Parser, "parser", "single", "diagram grammar (single|multi)")

	return cmd
}

func runParse(opts *ParseOptions, sequence string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	parse, ok := marble.ParserByName(opts.Parser)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown parser %q (want single or multi)", opts.Parser))
	}

	moments, err := parse(sequence)
	if err != nil {
		var pe *marble.ParseError
		if errors.As(err, &pe) {
			if ferr := out.Error(ErrCodeParse, err.Error(), map[string]any{
				"kind": string(pe.Kind),
				"pos":  pe.Pos,
			}); ferr != nil {
				return ferr
			}
			return WrapExitError(ExitFailure, "sequence does not parse", err)
		}
		return WrapExitError(ExitCommandError, "parse failed", err)
	}
	opts.logger().Debug("parsed sequence", "parser", opts.Parser, "moments", len(moments))

	result := ParseResult{
		Sequence: sequence,
		Parser:   opts.Parser,
		Moments:  make([]MomentView, 0, len(moments)),
	}
	for _, m := range moments {
		result.Moments = append(result.Moments, MomentView{
			Time:    m.Time,
			Pos:     m.Pos,
			Kind:    m.Kind.String(),
			Marbles: m.Marbles,
		})
	}

	if opts.Format == "json" {
		return out.Success(result)
	}
	return out.Success(formatMoments(moments))
}

// formatMoments renders one "tick kind diagram" line per moment.
func formatMoments(moments []marble.Moment) string {
	if len(moments) == 0 {
		return "(no moments)"
	}
	width := len(fmt.Sprint(moments[len(moments)-1].Time))
	var b strings.Builder
	for i, m := range moments {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%*d  %-15s  %s", width, m.Time, m.Kind, m)
	}
	return b.String()
}
