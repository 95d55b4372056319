package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sched2bt/internal/assembler"
)

// AssembleOptions holds flags for the assemble command.
type AssembleOptions struct {
	*RootOptions
	Output string // tree JSON path
}

// AssembleResult summarizes an assembled tree.
type AssembleResult struct {
	Guards       int      `json:"guards"`
	Capabilities []string `json:"capabilities"`
	Hash         string   `json:"hash"`
	Output       string   `json:"output,omitempty"`
}

// NewAssembleCommand creates the assemble command.
func NewAssembleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AssembleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "assemble <plan.pddl>",
		Short: "Assemble a behavior tree from a grounded plan",
		Long: `Decode the plan's pick, place, move and wait actions and assemble the
behavior tree, one guarded subtree per action in plan order. Without
--output the tree is printed; with it the canonical JSON description is
written for the simulate command.

Example:
  sched2bt assemble ./plan.pddl -o ./tree.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssemble(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file for the tree description (JSON)")

	return cmd
}

func runAssemble(opts *AssembleOptions, planPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return outputError(formatter, "loading config", err)
	}
	f, err := openInput(planPath)
	if err != nil {
		return outputError(formatter, "reading plan", err)
	}
	defer f.Close()

	tree, err := assemblePlan(cfg, logger, f, planPath, nil)
	if err != nil {
		return outputError(formatter, "assembling tree", err)
	}
	result, data, err := assembleResult(tree)
	if err != nil {
		return outputError(formatter, "encoding tree", err)
	}

	if opts.Output != "" {
		if err := writeFile(opts.Output, data); err != nil {
			return outputError(formatter, "writing tree", err)
		}
		result.Output = opts.Output
	}
	if formatter.isJSON() {
		return formatter.Success(result)
	}
	if opts.Output == "" {
		fmt.Fprint(formatter.Writer, tree.String())
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Assembled %d guarded action(s) to %s (%s)\n", result.Guards, opts.Output, result.Hash)
	formatter.VerboseLog("%s", tree.String())
	return nil
}

// assembleResult summarizes tree and returns its canonical encoding.
func assembleResult(tree *assembler.Tree) (AssembleResult, []byte, error) {
	data, err := tree.MarshalCanonical()
	if err != nil {
		return AssembleResult{}, nil, err
	}
	hash, err := tree.Hash()
	if err != nil {
		return AssembleResult{}, nil, err
	}
	return AssembleResult{
		Guards:       len(tree.Guards()),
		Capabilities: tree.Capabilities(),
		Hash:         hash,
	}, data, nil
}
