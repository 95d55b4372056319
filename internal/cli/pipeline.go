package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/sched2bt/internal/compiler"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/schedule"
)

// Artifact file names written by the pipeline command.
const (
	ReadableFile = "readable.txt"
	DomainFile   = "domain.pddl"
	ProblemFile  = "problem.pddl"
	PlanFile     = "plan.pddl"
	TreeFile     = "tree.json"
	KBFile       = "kb.db"
)

// PipelineOptions holds flags for the pipeline command.
type PipelineOptions struct {
	*RootOptions
	Capabilities string
	Out          string
	Simulate     bool
	Database     string // defaults to <out>/kb.db
	Fail         []string
	RealWait     bool
}

// PipelineResult lists the artifacts of one pipeline run.
type PipelineResult struct {
	Operations int            `json:"operations"`
	Steps      int            `json:"steps"`
	Actions    int            `json:"actions"`
	Files      []string       `json:"files"`
	Tree       AssembleResult `json:"tree"`
}

// NewPipelineCommand creates the pipeline command.
func NewPipelineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PipelineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pipeline <solution.sol>",
		Short: "Run every stage from solver output to behavior tree",
		Long: `Convert, encode, linearize and assemble in one go, writing each
intermediate artifact to the output directory. With --simulate the tree
is then run against a knowledge base seeded with the problem's initial
state.

Example:
  sched2bt pipeline ./solution.sol --capabilities ./caps.yaml --out ./build
  sched2bt pipeline ./solution.sol --capabilities ./caps.yaml --out ./build --simulate`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Capabilities, "capabilities", "", "capability table, JSON or YAML (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory (required)")
	cmd.Flags().BoolVar(&opts.Simulate, "simulate", false, "run the assembled tree with simulated capabilities")
	cmd.Flags().StringVar(&opts.Database, "db", "", "knowledge base for --simulate (default <out>/kb.db)")
	cmd.Flags().StringSliceVar(&opts.Fail, "fail", nil, "capability names that fail during --simulate (repeatable)")
	cmd.Flags().BoolVar(&opts.RealWait, "real-wait", false, "block wait actions for their scheduled duration during --simulate")
	_ = cmd.MarkFlagRequired("capabilities")
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

func runPipeline(opts *PipelineOptions, solutionPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputError(formatter, "loading config", err)
	}
	if err := os.MkdirAll(opts.Out, 0o755); err != nil {
		return outputError(formatter, "creating output directory", &ir.IOError{Op: "mkdir", Path: opts.Out, Err: err})
	}
	out := func(name string) string { return filepath.Join(opts.Out, name) }
	result := PipelineResult{}

	ops, err := loadSchedule(cfg, logger, solutionPath)
	if err != nil {
		return outputError(formatter, "loading schedule", err)
	}
	var readable bytes.Buffer
	if err := schedule.WriteReadable(&readable, ops, cfg.Grammar); err != nil {
		return outputError(formatter, "formatting schedule", err)
	}
	if err := writeFile(out(ReadableFile), readable.Bytes()); err != nil {
		return outputError(formatter, "writing readable schedule", err)
	}
	result.Operations = len(ops)
	result.Files = append(result.Files, out(ReadableFile))
	formatter.VerboseLog("Loaded %d operation(s)", len(ops))

	enc, err := encodeSchedule(cfg, logger, ops, opts.Capabilities)
	if err != nil {
		return outputError(formatter, "encoding schedule", err)
	}
	if err := compiler.WriteArtifacts(enc.Render(), out(DomainFile), out(ProblemFile)); err != nil {
		return outputError(formatter, "writing domain and problem", err)
	}
	result.Steps = len(enc.Steps)
	result.Files = append(result.Files, out(DomainFile), out(ProblemFile))
	formatter.VerboseLog("Encoded %d step(s), goal %s", len(enc.Steps), ir.FormatFact(enc.Goal))

	planText, err := linearizeEncoding(enc)
	if err != nil {
		return outputError(formatter, "linearizing plan", err)
	}
	if err := writeFile(out(PlanFile), planText); err != nil {
		return outputError(formatter, "writing plan", err)
	}
	result.Actions = bytes.Count(planText, []byte("\n"))
	result.Files = append(result.Files, out(PlanFile))

	tree, err := assemblePlan(cfg, logger, bytes.NewReader(planText), out(PlanFile), enc.WaitDurations())
	if err != nil {
		return outputError(formatter, "assembling tree", err)
	}
	treeResult, data, err := assembleResult(tree)
	if err != nil {
		return outputError(formatter, "encoding tree", err)
	}
	if err := writeFile(out(TreeFile), data); err != nil {
		return outputError(formatter, "writing tree", err)
	}
	treeResult.Output = out(TreeFile)
	result.Tree = treeResult
	result.Files = append(result.Files, out(TreeFile))

	if !opts.Simulate {
		if formatter.isJSON() {
			return formatter.Success(result)
		}
		printPipelineResult(formatter, result)
		return nil
	}

	// JSON mode prints only the simulation response.
	if !formatter.isJSON() {
		printPipelineResult(formatter, result)
		fmt.Fprintln(formatter.Writer)
	}
	seed, err := initialFacts(enc)
	if err != nil {
		return outputError(formatter, "seeding knowledge base", err)
	}
	db := opts.Database
	if db == "" {
		db = out(KBFile)
	}
	return simulateInto(cmd.Context(), formatter, cfg, logger, tree, db, seed, simOptions(opts.Fail, opts.RealWait))
}

func printPipelineResult(formatter *OutputFormatter, r PipelineResult) {
	fmt.Fprintf(formatter.Writer, "✓ %d operation(s), %d step(s), %d plan action(s), %d guarded action(s)\n",
		r.Operations, r.Steps, r.Actions, r.Tree.Guards)
	for _, f := range r.Files {
		fmt.Fprintf(formatter.Writer, "  %s\n", f)
	}
}
