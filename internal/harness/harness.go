package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/capability"
	"github.com/roach88/sched2bt/internal/compiler"
	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/engine"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/plan"
	"github.com/roach88/sched2bt/internal/schedule"
	"github.com/roach88/sched2bt/internal/store"
	"github.com/roach88/sched2bt/internal/testutil"
)

// runTimeout bounds the simulated run of one scenario.
const runTimeout = 10 * time.Second

// Run executes a scenario with the default configuration and checks its
// expectations. Pipeline errors are recorded on Result.Err and checked
// against expect.error; the returned error is reserved for misuse.
func Run(sc *Scenario) (*Result, error) {
	if sc == nil {
		return nil, fmt.Errorf("nil scenario")
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	res := NewResult()
	res.Err = runPipeline(sc, config.Default(), logger, res)
	check(sc, res)
	return res, nil
}

func runPipeline(sc *Scenario, cfg *config.Config, logger *slog.Logger, res *Result) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	ops, err := schedule.NewLoader(cfg, schedule.WithLogger(logger)).
		Load(strings.NewReader(sc.Solution), sc.Name+".sol")
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	res.Operations = ops

	enc, err := compiler.NewEncoder(cfg, capability.New(sc.Capabilities), compiler.WithLogger(logger)).Encode(ops)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	res.Encoding = enc
	res.Artifacts = enc.Render()

	lines, err := compiler.Linearize(enc)
	if err != nil {
		return fmt.Errorf("linearize: %w", err)
	}
	var buf bytes.Buffer
	if err := compiler.WritePlan(&buf, lines); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	res.Plan = buf.String()

	decoded, err := plan.NewDecoder(cfg, plan.WithLogger(logger), plan.WithWaitDurations(enc.WaitDurations())).
		Decode(&buf, sc.Name+".plan")
	if err != nil {
		return fmt.Errorf("decode plan: %w", err)
	}
	res.Actions = plan.Filter(decoded.Actions, logger)

	tree, err := assembler.New(cfg, assembler.WithLogger(logger)).Assemble(res.Actions)
	if err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	res.Tree = tree

	st, err := store.Open(":memory:")
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	var seed []ir.Fact
	for _, a := range enc.Problem.Init {
		f, err := a.Fact()
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		seed = append(seed, f)
	}
	if err := st.Seed(ctx, seed); err != nil {
		return err
	}

	prog, err := engine.Build(ctx, tree, engine.Simulated(engine.FailOn(sc.Fail...)), store.NewRecorder(st),
		engine.WithRunIDs(testutil.NewFixedRunIDGenerator(sc.RunID)),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	rep, err := engine.NewRunner(prog, engine.WithTickPeriod(time.Millisecond)).Run(ctx)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	res.Report = rep

	if res.Effects, err = st.Effects(ctx, rep.RunID); err != nil {
		return err
	}
	facts, err := st.Facts(ctx)
	if err != nil {
		return err
	}
	for _, f := range facts {
		res.FinalFacts = append(res.FinalFacts, ir.FormatFact(f))
	}
	replayed, err := store.Replay(seed, res.Effects)
	if err != nil {
		return err
	}
	for _, f := range replayed {
		res.Replayed = append(res.Replayed, ir.FormatFact(f))
	}
	return nil
}

// check compares res against the scenario's expectations.
func check(sc *Scenario, res *Result) {
	exp := sc.Expect

	if exp.Error != "" {
		if res.Err == nil {
			res.AddError("expected error containing %q, pipeline succeeded", exp.Error)
		} else if !strings.Contains(res.Err.Error(), exp.Error) {
			res.AddError("expected error containing %q, got %q", exp.Error, res.Err.Error())
		}
		return
	}
	if res.Err != nil {
		res.AddError("pipeline failed: %v", res.Err)
		return
	}

	if exp.Operations != nil && *exp.Operations != len(res.Operations) {
		res.AddError("operations: expected %d, got %d", *exp.Operations, len(res.Operations))
	}
	if exp.Steps != nil {
		var got []string
		for _, s := range res.Encoding.Steps {
			got = append(got, s.Name)
		}
		expectList(res, "steps", exp.Steps, got)
	}
	if exp.Goal != "" {
		if got := ir.FormatFact(res.Encoding.Goal); got != exp.Goal {
			res.AddError("goal: expected %s, got %s", exp.Goal, got)
		}
	}
	if exp.Plan != nil {
		var got []string
		for _, a := range res.Actions {
			got = append(got, string(a.Kind))
		}
		expectList(res, "plan", exp.Plan, got)
	}
	if exp.Guards != nil {
		var got []string
		for _, g := range res.Report.Guards {
			got = append(got, string(g.State))
		}
		expectList(res, "guards", exp.Guards, got)
	}
	if exp.Status != "" {
		if got := res.Report.Outcome(); got != exp.Status {
			res.AddError("status: expected %s, got %s", exp.Status, got)
		}
	}
	if exp.FinalFacts != nil {
		expectList(res, "final_facts", exp.FinalFacts, res.FinalFacts)
	}
	expectList(res, "replayed effect log", res.FinalFacts, res.Replayed)
}

func expectList(res *Result, field string, want, got []string) {
	if !slices.Equal(want, got) {
		res.AddError("%s: expected %v, got %v", field, want, got)
	}
}
