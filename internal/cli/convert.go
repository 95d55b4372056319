package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/schedule"
)

// ConvertOptions holds flags for the convert command.
type ConvertOptions struct {
	*RootOptions
	Output string // readable file path, stdout when empty
}

// ConvertResult summarizes a conversion.
type ConvertResult struct {
	Operations int    `json:"operations"`
	Output     string `json:"output,omitempty"`
}

// NewConvertCommand creates the convert command.
func NewConvertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConvertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "convert <solution.sol>",
		Short: "Convert raw solver output to the readable schedule",
		Long: `Parse the solver's Sijk/Cijk/Xijk records, keep the active operations and
print them ordered by start then end time.

Example:
  sched2bt convert ./solution.sol -o ./readable.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file for the readable schedule")

	return cmd
}

func runConvert(opts *ConvertOptions, solutionPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputError(formatter, "loading config", err)
	}

	ops, err := loadSchedule(cfg, logger, solutionPath)
	if err != nil {
		return outputError(formatter, "loading schedule", err)
	}
	formatter.VerboseLog("Loaded %d active operation(s) from %s", len(ops), solutionPath)

	var buf bytes.Buffer
	if err := schedule.WriteReadable(&buf, ops, cfg.Grammar); err != nil {
		return outputError(formatter, "formatting schedule", err)
	}

	if opts.Output == "" {
		if formatter.isJSON() {
			return formatter.Success(ConvertResult{Operations: len(ops)})
		}
		_, err := formatter.Writer.Write(buf.Bytes())
		return err
	}

	if err := writeFile(opts.Output, buf.Bytes()); err != nil {
		return outputError(formatter, "writing readable schedule", err)
	}
	if formatter.isJSON() {
		return formatter.Success(ConvertResult{Operations: len(ops), Output: opts.Output})
	}
	fmt.Fprintf(formatter.Writer, "✓ Converted %d operation(s) to %s\n", len(ops), opts.Output)
	return nil
}

// writeFile writes data through a temp file in the target directory and
// renames it into place.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return &ir.IOError{Op: "write", Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &ir.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &ir.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &ir.IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}
