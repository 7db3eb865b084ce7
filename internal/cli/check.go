package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probst/tangle/internal/codec"
	"github.com/probst/tangle/internal/payload"
	"github.com/probst/tangle/internal/scenario"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Schema string // optional CUE schema file for seed/literal payloads
}

// CheckFileResult reports the outcome for one scenario file.
type CheckFileResult struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// CheckResult aggregates across all checked files.
type CheckResult struct {
	Files   []CheckFileResult `json:"files"`
	Checked int               `json:"checked"`
	Invalid int               `json:"invalid"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenario.yaml...>",
		Short: "Validate scenario files without running them",
		Long: `Parse and validate one or more scenario files.

Validation covers YAML structure (unknown fields are errors), effect
contract cross-checks (every operation must stay inside its task's
declared read/write sets), assertion types, and payload literals
(floats are rejected). With --schema, every seed component and literal
set payload must additionally conform to the given CUE schema.

Exit codes:
  0 - all files valid
  1 - at least one file invalid
  2 - command error (unreadable schema, no files given)

Examples:
  tangle check scenarios/editor.yaml
  tangle check scenarios/*.yaml --format json
  tangle check scenarios/editor.yaml --schema schemas/document.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd, args)
		},
	}

	cmd.Flags().StringVar(&opts.Schema, "schema", "", "CUE schema file for seed and literal payloads")

	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command, args []string) error {
	var sch *codec.Schema
	if opts.Schema != "" {
		source, err := os.ReadFile(opts.Schema)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read schema", err)
		}
		sch, err = codec.NewSchema(codec.JSON{}, string(source))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to compile schema", err)
		}
	}

	result := CheckResult{Checked: len(args)}
	for _, path := range args {
		fr := checkFile(path, sch)
		if !fr.Valid {
			result.Invalid++
		}
		result.Files = append(result.Files, fr)
	}

	if opts.Format == "json" {
		if err := outputJSON(cmd, result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fr := range result.Files {
			if fr.Valid {
				fmt.Fprintf(w, "ok   %s (%s)\n", fr.Path, fr.Name)
			} else {
				fmt.Fprintf(w, "FAIL %s\n", fr.Path)
				fmt.Fprintf(w, "     %s\n", fr.Error)
			}
		}
		fmt.Fprintf(w, "%d checked, %d invalid\n", result.Checked, result.Invalid)
	}

	if result.Invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenario files invalid", result.Invalid, result.Checked))
	}
	return nil
}

func checkFile(path string, sch *codec.Schema) CheckFileResult {
	s, err := scenario.Load(path)
	if err != nil {
		return CheckFileResult{Path: path, Error: err.Error()}
	}
	if sch != nil {
		if err := checkSchema(s, sch); err != nil {
			return CheckFileResult{Path: path, Name: s.Name, Error: err.Error()}
		}
	}
	return CheckFileResult{Path: path, Name: s.Name, Valid: true}
}

// checkSchema validates every seed component and every literal set
// payload against the schema. Encoding through the schema codec is the
// validation: it rejects before serializing.
func checkSchema(s *scenario.Scenario, sch *codec.Schema) error {
	validate := func(origin, k string, raw any) error {
		pv, err := payload.FromAny(raw)
		if err != nil {
			return fmt.Errorf("%s %q: %w", origin, k, err)
		}
		if _, err := sch.Encode(pv); err != nil {
			return fmt.Errorf("%s %q: %w", origin, k, err)
		}
		return nil
	}

	for k, v := range s.Seed {
		if err := validate("seed", k, v); err != nil {
			return err
		}
	}
	for _, tmpl := range collectTemplates(s) {
		for k, v := range tmpl.Effect.Set {
			if err := validate(fmt.Sprintf("task %q set", tmpl.Label), k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// collectTemplates gathers every task template a scenario can schedule.
func collectTemplates(s *scenario.Scenario) []*scenario.TaskTemplate {
	var out []*scenario.TaskTemplate
	for i := range s.Steps {
		if tt := s.Steps[i].Schedule; tt != nil {
			out = append(out, tt)
		}
	}
	for i := range s.Observers {
		for j := range s.Observers[i].Emit {
			out = append(out, &s.Observers[i].Emit[j])
		}
	}
	return out
}
