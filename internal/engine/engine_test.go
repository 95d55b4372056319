package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bt "github.com/joeycumines/go-behaviortree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

type memKB struct {
	mu     sync.Mutex
	facts  map[string]bool
	log    []Effect
	failOn string
}

func newMemKB(seed ...ir.Fact) *memKB {
	kb := &memKB{facts: make(map[string]bool)}
	for _, f := range seed {
		kb.facts[ir.FormatFact(f)] = true
	}
	return kb
}

func (m *memKB) Apply(_ context.Context, e Effect) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ir.FormatFact(e.Fact)
	if key == m.failOn {
		return errors.New("disk full")
	}
	m.log = append(m.log, e)
	switch e.Op {
	case EffectAdd:
		m.facts[key] = true
	case EffectRemove:
		delete(m.facts, key)
	}
	return nil
}

func (m *memKB) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.facts {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func formatted(facts ...ir.Fact) []string {
	out := make([]string, len(facts))
	for i, f := range facts {
		out[i] = ir.FormatFact(f)
	}
	sort.Strings(out)
	return out
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func cellTree(t *testing.T) *assembler.Tree {
	t.Helper()
	tree, err := assembler.New(config.Default(), assembler.WithLogger(discard())).Assemble([]ir.PlannedAction{
		{Key: "MOVE_TO_0_000", Kind: ir.ActionMoveTo, Agent: "AGENT_R", From: "LOC_BASE", To: "LOC_WORKSTATION"},
		{Key: "PICK_OP11_1_000", Kind: ir.ActionPick, Agent: "AGENT_R", Tool: "TOOL_OP11", Location: "LOC_WORKSTATION", OpKey: "OP11"},
		{Key: "PLACE_OP11_2_000", Kind: ir.ActionPlace, Agent: "AGENT_R", Tool: "TOOL_OP11", OpKey: "OP11"},
		{Key: "WAIT_1_3_000", Kind: ir.ActionWait, Agent: "AGENT_R", Duration: 10},
	})
	require.NoError(t, err)
	return tree
}

func cellKB() *memKB {
	return newMemKB(ir.At{Agent: "agent_r", Location: "loc_base"}, ir.ToolAt{Tool: "tool_op11", Location: "loc_workstation"})
}

func run(t *testing.T, tree *assembler.Tree, caps Registry, kb KnowledgeStore) (*Program, *Report) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prog, err := Build(ctx, tree, caps, kb, WithRunIDs(NewFixedGenerator("run-1")), WithLogger(discard()))
	require.NoError(t, err)
	rep, err := NewRunner(prog, WithTickPeriod(time.Millisecond)).Run(ctx)
	require.NoError(t, err)
	return prog, rep
}

func guardStates(rep *Report) []GuardState {
	var out []GuardState
	for _, g := range rep.Guards {
		out = append(out, g.State)
	}
	return out
}

func TestRunSucceeds(t *testing.T) {
	kb := cellKB()
	_, rep := run(t, cellTree(t), Simulated(), kb)

	assert.True(t, rep.Succeeded())
	assert.False(t, rep.Aborted)
	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, []GuardState{GuardSucceeded, GuardSucceeded, GuardSucceeded, GuardSucceeded}, guardStates(rep))

	assert.Equal(t, formatted(
		ir.At{Agent: "agent_r", Location: "loc_workstation"},
		ir.Arrived{Destination: "loc_workstation"},
		ir.ToolAt{Tool: "tool_op11", Location: "loc_workstation"},
		ir.PickDone{Operation: "op11"},
		ir.PlaceDone{Operation: "op11"},
		ir.WaitDone{Agent: "agent_r"},
	), kb.snapshot())

	require.Len(t, kb.log, 9)
	for i, e := range kb.log {
		assert.Equal(t, int64(i+1), e.Seq)
		assert.Equal(t, "run-1", e.RunID)
	}
	assert.Equal(t, "MoveDecorator_MOVE_TO_0_000", kb.log[0].Guard)
}

func TestRunAppliesFailureEffects(t *testing.T) {
	kb := cellKB()
	_, rep := run(t, cellTree(t), Simulated(FailOn(assembler.CapCloseGripper)), kb)

	assert.Equal(t, bt.Failure, rep.Status)
	assert.Equal(t, []GuardState{GuardSucceeded, GuardFailed, GuardPending, GuardPending}, guardStates(rep))
	assert.Equal(t, formatted(
		ir.At{Agent: "agent_r", Location: "loc_workstation"},
		ir.Arrived{Destination: "loc_workstation"},
		ir.ToolAt{Tool: "tool_op11", Location: "loc_base"},
	), kb.snapshot())

	// failure: remove before add
	pick := kb.log[3:]
	require.Len(t, pick, 2)
	assert.Equal(t, EffectRemove, pick[0].Op)
	assert.Equal(t, EffectAdd, pick[1].Op)
}

func TestRunDetectionFallsBackToObserve(t *testing.T) {
	var checks, observes atomic.Int32
	caps := Simulated()
	caps[assembler.CapCheckMarker] = CapabilityFunc(func(context.Context, map[string]string) error {
		if checks.Add(1) == 1 {
			return errors.New("marker not visible")
		}
		return nil
	})
	caps[assembler.CapObserveTable] = CapabilityFunc(func(context.Context, map[string]string) error {
		observes.Add(1)
		return nil
	})

	_, rep := run(t, cellTree(t), caps, cellKB())
	assert.True(t, rep.Succeeded())
	assert.Equal(t, int32(2), checks.Load())
	assert.Equal(t, int32(1), observes.Load())
}

func TestGuardLatchesAfterFinish(t *testing.T) {
	kb := cellKB()
	prog, rep := run(t, cellTree(t), Simulated(), kb)
	require.True(t, rep.Succeeded())
	n := len(kb.log)

	for i := 0; i < 3; i++ {
		status, err := prog.Root().Tick()
		require.NoError(t, err)
		assert.Equal(t, bt.Success, status)
	}
	assert.Len(t, kb.log, n, "effects applied more than once")
}

func TestKnowledgeStoreErrorsAreRecorded(t *testing.T) {
	kb := cellKB()
	kb.failOn = ir.FormatFact(ir.PickDone{Operation: "op11"})
	_, rep := run(t, cellTree(t), Simulated(), kb)

	assert.True(t, rep.Succeeded(), "write errors must not change status")
	require.Len(t, rep.Guards[1].Errors, 1)
	assert.Equal(t, GuardSucceeded, rep.Guards[1].State)
	assert.Empty(t, rep.Guards[0].Errors)
}

func TestBuildRejectsUnknownCapability(t *testing.T) {
	caps := Simulated()
	delete(caps, assembler.CapFinalGrasp)

	_, err := Build(context.Background(), cellTree(t), caps, cellKB(), WithLogger(discard()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrResolution))
	assert.True(t, ir.IsFatal(err))
}

func TestBuildRejectsInvalidTree(t *testing.T) {
	tree := &assembler.Tree{Root: &assembler.Node{Kind: assembler.KindSequence, Name: "empty"}}
	_, err := Build(context.Background(), tree, Simulated(), cellKB(), WithLogger(discard()))
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, ErrCodeInvalidTree, re.Code)
}

func TestAbortDrainsFinishedWork(t *testing.T) {
	tree, err := assembler.New(config.Default(), assembler.WithLogger(discard())).Assemble([]ir.PlannedAction{
		{Key: "MOVE_TO_0", Kind: ir.ActionMoveTo, Agent: "agent_r", From: "loc_base", To: "loc_workstation"},
		{Key: "WAIT_1", Kind: ir.ActionWait, Agent: "agent_r", Duration: 1},
	})
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	caps := Simulated()
	caps[assembler.CapMoveBase] = CapabilityFunc(func(context.Context, map[string]string) error {
		close(started)
		<-release
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	kb := newMemKB(ir.At{Agent: "agent_r", Location: "loc_base"})
	prog, err := Build(ctx, tree, caps, kb, WithRunIDs(NewFixedGenerator("run-abort")), WithLogger(discard()))
	require.NoError(t, err)

	type result struct {
		rep *Report
		err error
	}
	done := make(chan result, 1)
	go func() {
		rep, err := NewRunner(prog, WithTickPeriod(time.Millisecond)).Run(ctx)
		done <- result{rep, err}
	}()

	<-started
	cancel()
	close(release)

	var res result
	select {
	case res = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	require.Error(t, res.err)
	assert.True(t, IsAborted(res.err))
	assert.ErrorIs(t, res.err, context.Canceled)
	assert.True(t, res.rep.Aborted)
	assert.Equal(t, []GuardState{GuardSucceeded, GuardPending}, guardStates(res.rep))
	assert.Equal(t, formatted(ir.At{Agent: "agent_r", Location: "loc_workstation"}, ir.Arrived{Destination: "loc_workstation"}), kb.snapshot())
}

func TestWaitCapability(t *testing.T) {
	require.NoError(t, Wait.Invoke(context.Background(), map[string]string{"duration": "0.001"}))

	err := Wait.Invoke(context.Background(), map[string]string{"duration": "soon"})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait.Invoke(ctx, map[string]string{"duration": "60"}), context.Canceled)
}

func TestSimulatedRealWait(t *testing.T) {
	ctx := context.Background()
	params := map[string]string{"duration": "0.05"}

	start := time.Now()
	require.NoError(t, Simulated(WithRealWait())[assembler.CapWait].Invoke(ctx, params))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	assert.Error(t, Simulated(WithRealWait())[assembler.CapWait].Invoke(ctx, map[string]string{"duration": "soon"}))
	assert.NoError(t, Simulated()[assembler.CapWait].Invoke(ctx, map[string]string{"duration": "soon"}),
		"instant stub ignores the duration")
	assert.Error(t, Simulated(WithRealWait(), FailOn(assembler.CapWait))[assembler.CapWait].Invoke(ctx, params))
}
