package engine

import (
	"context"
	"fmt"
	"sync"

	bt "github.com/joeycumines/go-behaviortree"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/ir"
)

// GuardState is the lifecycle of an EffectGuard.
type GuardState string

const (
	GuardPending   GuardState = "pending"
	GuardSucceeded GuardState = "succeeded"
	GuardFailed    GuardState = "failed"
)

// EffectOp is the kind of a knowledge-base write.
type EffectOp string

const (
	EffectAdd    EffectOp = "add"
	EffectRemove EffectOp = "remove"
)

// Effect is one knowledge-base write issued by a guard.
type Effect struct {
	RunID string
	Seq   int64
	Guard string
	Op    EffectOp
	Fact  ir.Fact
}

// KnowledgeStore receives guard effects. Apply must be idempotent per
// fact: adding a present fact or removing an absent one is not an error.
type KnowledgeStore interface {
	Apply(ctx context.Context, e Effect) error
}

// EffectGuard wraps a subtree and writes its declared facts once the
// subtree reaches a terminal status. It then latches: later ticks return
// the same status without ticking the child again.
//
// Write errors are logged and kept on the guard. They are not retried and
// do not change the status the guard reports.
type EffectGuard struct {
	prog    *Program
	name    string
	effects assembler.Effects

	mu     sync.Mutex
	state  GuardState
	errors []error
}

// Name returns the guard's node name.
func (g *EffectGuard) Name() string { return g.name }

// State returns the current lifecycle state.
func (g *EffectGuard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Errors returns the knowledge-store errors recorded while applying effects.
func (g *EffectGuard) Errors() []error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]error(nil), g.errors...)
}

// Tick implements bt.Tick.
func (g *EffectGuard) Tick(children []bt.Node) (bt.Status, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case GuardSucceeded:
		return bt.Success, nil
	case GuardFailed:
		return bt.Failure, nil
	}
	if len(children) != 1 {
		return bt.Failure, fmt.Errorf("guard %q: expected 1 child, got %d", g.name, len(children))
	}

	status, err := children[0].Tick()
	if err != nil {
		status = bt.Failure
	}
	switch status {
	case bt.Success:
		g.apply(EffectAdd, g.effects.SuccessAdd)
		g.apply(EffectRemove, g.effects.SuccessRemove)
		g.state = GuardSucceeded
	case bt.Failure:
		g.apply(EffectRemove, g.effects.FailureRemove)
		g.apply(EffectAdd, g.effects.FailureAdd)
		g.state = GuardFailed
	default:
		return status, nil
	}
	g.prog.logger.Debug("guard finished", "run_id", g.prog.runID, "guard", g.name, "state", g.state)
	return status, err
}

// apply writes facts in order. Writes outlive cancellation of the run so
// a drain tick can still record its effects.
func (g *EffectGuard) apply(op EffectOp, facts []ir.Fact) {
	ctx := context.WithoutCancel(g.prog.ctx)
	for _, f := range facts {
		e := Effect{RunID: g.prog.runID, Seq: g.prog.clock.Next(), Guard: g.name, Op: op, Fact: f}
		if err := g.prog.kb.Apply(ctx, e); err != nil {
			g.prog.logger.Error("knowledge store write failed",
				"run_id", g.prog.runID, "guard", g.name, "op", op, "fact", ir.FormatFact(f), "error", err)
			g.errors = append(g.errors, err)
		}
	}
}
