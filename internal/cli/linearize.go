package cli

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"
)

// LinearizeOptions holds flags for the linearize command.
type LinearizeOptions struct {
	*RootOptions
	Capabilities string
	Output       string // plan file path, stdout when empty
}

// LinearizeResult summarizes a linearized plan.
type LinearizeResult struct {
	Actions int    `json:"actions"`
	Plan    string `json:"plan,omitempty"`
	Output  string `json:"output,omitempty"`
}

// NewLinearizeCommand creates the linearize command.
func NewLinearizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinearizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "linearize <readable.txt>",
		Short: "Write the grounded plan forced by a schedule's encoding",
		Long: `Encode the schedule and walk its action chain, inserting the movements each
step needs. The result is checked against the domain before it is written,
in the "time: (ACTION args) [duration]" format the assemble command reads.

Example:
  sched2bt linearize ./readable.txt --capabilities ./caps.yaml -o ./plan.pddl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinearize(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Capabilities, "capabilities", "", "capability table, JSON or YAML (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output plan file")
	_ = cmd.MarkFlagRequired("capabilities")

	return cmd
}

func runLinearize(opts *LinearizeOptions, readablePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputError(formatter, "loading config", err)
	}
	ops, err := readSchedule(readablePath)
	if err != nil {
		return outputError(formatter, "reading schedule", err)
	}
	enc, err := encodeSchedule(cfg, logger, ops, opts.Capabilities)
	if err != nil {
		return outputError(formatter, "encoding schedule", err)
	}
	planText, err := linearizeEncoding(enc)
	if err != nil {
		return outputError(formatter, "linearizing plan", err)
	}
	result := LinearizeResult{Actions: bytes.Count(planText, []byte("\n"))}

	if opts.Output == "" {
		if formatter.isJSON() {
			result.Plan = string(planText)
			return formatter.Success(result)
		}
		_, err := formatter.Writer.Write(planText)
		return err
	}

	if err := writeFile(opts.Output, planText); err != nil {
		return outputError(formatter, "writing plan", err)
	}
	result.Output = opts.Output
	if formatter.isJSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %d plan action(s) to %s\n", result.Actions, opts.Output)
	return nil
}
