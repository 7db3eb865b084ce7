package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probst/tangle/internal/scenario"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Label string // optional - filter events to one task label
}

// TraceCommandResult holds the trace command's output.
type TraceCommandResult struct {
	Scenario   string                `json:"scenario"`
	Discipline string                `json:"discipline"`
	Timeline   []scenario.TraceEvent `json:"timeline"`
	Backlog    int                   `json:"backlog"`
	Pass       bool                  `json:"pass"`
	Errors     []string              `json:"errors,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario.yaml>",
		Short: "Run a scenario and print its execution timeline",
		Long: `Run a scenario and print every executed instruction in order:
seq, label, cascade token, changed keys, and effect errors. The run is
fully deterministic, so repeated invocations print identical timelines.

Exit codes:
  0 - scenario ran and all assertions held
  1 - an assertion failed
  2 - command error (unreadable or invalid scenario)

Examples:
  tangle trace scenarios/editor.yaml
  tangle trace scenarios/editor.yaml --label layout
  tangle trace scenarios/editor.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Label, "label", "", "only show events for this task label")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command, path string) error {
	s, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	res, err := scenario.Run(s)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario execution failed", err)
	}

	discipline := s.Discipline
	if discipline == "" {
		discipline = "out-of-order"
	}
	result := TraceCommandResult{
		Scenario:   s.Name,
		Discipline: discipline,
		Timeline:   filterTimeline(res.Trace, opts.Label),
		Backlog:    res.Backlog,
		Pass:       res.Pass,
		Errors:     res.Errors,
	}

	if opts.Format == "json" {
		if err := outputJSON(cmd, result); err != nil {
			return err
		}
	} else {
		outputTraceText(cmd, result, opts.Verbose)
	}

	if !res.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("%d assertion(s) failed", len(res.Errors)))
	}
	return nil
}

func filterTimeline(events []scenario.TraceEvent, label string) []scenario.TraceEvent {
	if label == "" {
		return events
	}
	var out []scenario.TraceEvent
	for _, ev := range events {
		if ev.Label == label {
			out = append(out, ev)
		}
	}
	return out
}

func outputTraceText(cmd *cobra.Command, result TraceCommandResult, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Scenario: %s (%s)\n", result.Scenario, result.Discipline)
	fmt.Fprintln(w)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no instructions executed)")
	}
	for _, ev := range result.Timeline {
		line := fmt.Sprintf("  [%d] %s", ev.Seq, ev.Label)
		if len(ev.Changed) > 0 {
			line += fmt.Sprintf("  changed=%s", strings.Join(ev.Changed, ","))
		}
		if ev.Spawned > 0 {
			line += fmt.Sprintf("  spawned=%d", ev.Spawned)
		}
		if ev.Error != "" {
			line += fmt.Sprintf("  ERROR: %s", ev.Error)
		}
		fmt.Fprintln(w, line)
		if verbose {
			fmt.Fprintf(w, "       cascade=%s priority=%d", ev.Token, ev.Priority)
			if len(ev.Reads) > 0 {
				fmt.Fprintf(w, " reads=%s", strings.Join(ev.Reads, ","))
			}
			if len(ev.Writes) > 0 {
				fmt.Fprintf(w, " writes=%s", strings.Join(ev.Writes, ","))
			}
			fmt.Fprintln(w)
			if ev.Cascade != "" {
				fmt.Fprintf(w, "       %s\n", ev.Cascade)
			}
		}
	}
	fmt.Fprintln(w)

	if result.Pass {
		fmt.Fprintf(w, "ok: %d event(s), backlog %d\n", len(result.Timeline), result.Backlog)
		return
	}
	fmt.Fprintln(w, "assertions failed:")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  - %s\n", e)
	}
}
