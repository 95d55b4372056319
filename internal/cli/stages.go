package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/capability"
	"github.com/roach88/sched2bt/internal/compiler"
	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/engine"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/plan"
	"github.com/roach88/sched2bt/internal/schedule"
	"github.com/roach88/sched2bt/internal/store"
)

func openInput(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ir.IOError{Op: "read", Path: path, Err: err}
	}
	return f, nil
}

// loadSchedule reads raw solver output.
func loadSchedule(cfg *config.Config, logger *slog.Logger, path string) ([]ir.OperationInterval, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return schedule.NewLoader(cfg, schedule.WithLogger(logger)).Load(f, path)
}

// readSchedule reads a readable schedule written by convert.
func readSchedule(path string) ([]ir.OperationInterval, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ops, err := schedule.ParseReadable(f, path)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return nil, &ir.EmptyResultError{Stage: "readable schedule", Reason: "no operations in " + path}
	}
	return ops, nil
}

// encodeSchedule resolves capabilities and encodes ops.
func encodeSchedule(cfg *config.Config, logger *slog.Logger, ops []ir.OperationInterval, capabilitiesPath string) (*compiler.Encoding, error) {
	table, err := capability.Load(capabilitiesPath)
	if err != nil {
		return nil, err
	}
	return compiler.NewEncoder(cfg, table, compiler.WithLogger(logger)).Encode(ops)
}

// linearizeEncoding renders the forced plan of enc.
func linearizeEncoding(enc *compiler.Encoding) ([]byte, error) {
	lines, err := compiler.Linearize(enc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := compiler.WritePlan(&buf, lines); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// assemblePlan decodes a grounded plan and assembles its tree. waits may
// be nil, in which case undated waits use the configured default.
func assemblePlan(cfg *config.Config, logger *slog.Logger, r io.Reader, source string, waits map[string]float64) (*assembler.Tree, error) {
	opts := []plan.Option{plan.WithLogger(logger)}
	if waits != nil {
		opts = append(opts, plan.WithWaitDurations(waits))
	}
	decoded, err := plan.NewDecoder(cfg, opts...).Decode(r, source)
	if err != nil {
		return nil, err
	}
	if len(decoded.Skipped) > 0 {
		logger.Warn("plan lines skipped", "source", source, "count", len(decoded.Skipped))
	}
	actions := plan.Filter(decoded.Actions, logger)
	return assembler.New(cfg, assembler.WithLogger(logger)).Assemble(actions)
}

// initialFacts converts the problem's initial state to knowledge-base facts.
func initialFacts(enc *compiler.Encoding) ([]ir.Fact, error) {
	facts := make([]ir.Fact, 0, len(enc.Problem.Init))
	for _, a := range enc.Problem.Init {
		f, err := a.Fact()
		if err != nil {
			return nil, fmt.Errorf("initial state: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// simOptions configures the simulated capabilities: the named ones fail,
// and wait leaves block for real when realWait is set.
func simOptions(fail []string, realWait bool) []engine.SimOption {
	opts := []engine.SimOption{engine.FailOn(fail...)}
	if realWait {
		opts = append(opts, engine.WithRealWait())
	}
	return opts
}

// simulateTree runs tree against st with simulated capabilities. Seq
// numbers continue after the highest already logged in st. The run is
// cancelled on SIGINT or SIGTERM.
func simulateTree(parent context.Context, cfg *config.Config, logger *slog.Logger, tree *assembler.Tree, st *store.Store, sim []engine.SimOption) (*engine.Report, error) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	last, err := st.MaxSeq(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	prog, err := engine.Build(ctx, tree, engine.Simulated(sim...), store.NewRecorder(st),
		engine.WithClock(engine.NewClockAt(last)),
		engine.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return engine.NewRunner(prog,
		engine.WithTickPeriod(cfg.TickPeriod()),
		engine.WithRunnerLogger(logger)).Run(ctx)
}
