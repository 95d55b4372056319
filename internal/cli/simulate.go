package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/engine"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/store"
)

// SimulateOptions holds flags for the simulate command.
type SimulateOptions struct {
	*RootOptions
	Database string
	Fail     []string // capabilities that report failure
	RealWait bool
}

// SimulateResult summarizes a simulated run.
type SimulateResult struct {
	RunID   string        `json:"run_id"`
	Status  string        `json:"status"`
	Ticks   int           `json:"ticks"`
	Aborted bool          `json:"aborted,omitempty"`
	Guards  []GuardResult `json:"guards"`
	Effects int           `json:"effects"`
	Facts   []string      `json:"facts"`
}

// GuardResult is the final state of one guard.
type GuardResult struct {
	Name    string   `json:"name"`
	State   string   `json:"state"`
	Effects int      `json:"effects"`
	Errors  []string `json:"errors,omitempty"`
}

// NewSimulateCommand creates the simulate command.
func NewSimulateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SimulateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "simulate <tree.json>",
		Short: "Run a tree description against simulated capabilities",
		Long: `Tick the assembled tree until its root finishes, with every capability
simulated. Guard effects are applied to the SQLite knowledge base and
logged under a fresh run id. With --real-wait, wait actions block for
their scheduled duration. Exits 1 if the tree fails.

Example:
  sched2bt simulate ./tree.json --db ./kb.db
  sched2bt simulate ./tree.json --db ./kb.db --fail close_gripper`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite knowledge base (required)")
	cmd.Flags().StringSliceVar(&opts.Fail, "fail", nil, "capability names that fail (repeatable)")
	cmd.Flags().BoolVar(&opts.RealWait, "real-wait", false, "block wait actions for their scheduled duration")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSimulate(opts *SimulateOptions, treePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputError(formatter, "loading config", err)
	}
	data, err := os.ReadFile(treePath)
	if err != nil {
		return outputError(formatter, "reading tree", &ir.IOError{Op: "read", Path: treePath, Err: err})
	}
	tree, err := assembler.Decode(data)
	if err != nil {
		return outputError(formatter, "decoding tree", err)
	}

	return simulateInto(cmd.Context(), formatter, cfg, logger, tree, opts.Database, nil, simOptions(opts.Fail, opts.RealWait))
}

// simulateInto opens the knowledge base at dbPath, seeds it, runs tree and
// reports the outcome.
func simulateInto(ctx context.Context, formatter *OutputFormatter, cfg *config.Config, logger *slog.Logger,
	tree *assembler.Tree, dbPath string, seed []ir.Fact, sim []engine.SimOption) error {
	if ctx == nil {
		ctx = context.Background()
	}
	// Store access outlives a cancelled run so the report can be read back.
	storeCtx := context.WithoutCancel(ctx)

	logger.Info("opening knowledge base", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return outputErrorCode(formatter, ErrCodeStore, "opening knowledge base", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing knowledge base", "error", closeErr)
		}
	}()
	if len(seed) > 0 {
		if err := st.Seed(storeCtx, seed); err != nil {
			return outputErrorCode(formatter, ErrCodeStore, "seeding knowledge base", err)
		}
		formatter.VerboseLog("Seeded %d fact(s)", len(seed))
	}

	rep, runErr := simulateTree(ctx, cfg, logger, tree, st, sim)
	if rep == nil {
		return outputError(formatter, "building tree", runErr)
	}

	result, err := simulateResult(storeCtx, st, rep)
	if err != nil {
		return outputErrorCode(formatter, ErrCodeStore, "reading knowledge base", err)
	}
	if runErr != nil {
		return outputErrorWithData(formatter, result, "running tree", runErr)
	}

	if formatter.isJSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		printSimulateResult(formatter, result)
	}
	if !rep.Succeeded() {
		return NewExitError(ExitFailure, fmt.Sprintf("%s: tree finished with %s", ErrCodeRunFailed, result.Status))
	}
	return nil
}

func simulateResult(ctx context.Context, st *store.Store, rep *engine.Report) (SimulateResult, error) {
	result := SimulateResult{
		RunID:   rep.RunID,
		Status:  rep.Outcome(),
		Ticks:   rep.Ticks,
		Aborted: rep.Aborted,
	}
	for _, g := range rep.Guards {
		gr := GuardResult{Name: g.Name, State: string(g.State)}
		for _, e := range g.Errors {
			gr.Errors = append(gr.Errors, e.Error())
		}
		writes, err := st.GuardEffects(ctx, rep.RunID, g.Name)
		if err != nil {
			return result, err
		}
		gr.Effects = len(writes)
		result.Guards = append(result.Guards, gr)
	}
	effects, err := st.Effects(ctx, rep.RunID)
	if err != nil {
		return result, err
	}
	result.Effects = len(effects)
	facts, err := st.Facts(ctx)
	if err != nil {
		return result, err
	}
	for _, f := range facts {
		result.Facts = append(result.Facts, ir.FormatFact(f))
	}
	return result, nil
}

func printSimulateResult(formatter *OutputFormatter, r SimulateResult) {
	mark := "✓"
	if r.Status != "success" {
		mark = "✗"
	}
	fmt.Fprintf(formatter.Writer, "%s Run %s finished with %s after %d tick(s)\n", mark, r.RunID, r.Status, r.Ticks)
	for _, g := range r.Guards {
		fmt.Fprintf(formatter.Writer, "  %-40s %-9s %d write(s)\n", g.Name, g.State, g.Effects)
		for _, e := range g.Errors {
			fmt.Fprintf(formatter.Writer, "    error: %s\n", e)
		}
	}
	fmt.Fprintf(formatter.Writer, "\n%d effect(s) logged, %d fact(s) in the knowledge base\n", r.Effects, len(r.Facts))
	for _, f := range r.Facts {
		fmt.Fprintf(formatter.Writer, "  %s\n", f)
	}
}

// outputErrorWithData reports an interrupted run together with what was
// recorded before it stopped.
func outputErrorWithData(formatter *OutputFormatter, result SimulateResult, message string, err error) error {
	if formatter.isJSON() {
		code := errorCode(err)
		_ = formatter.respond(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: code, Message: message + ": " + err.Error()},
		})
		return WrapExitError(exitCode(code), code+": "+message, err)
	}
	printSimulateResult(formatter, result)
	return outputError(formatter, message, err)
}
