package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sched2bt/internal/assembler"
	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/engine"
	"github.com/roach88/sched2bt/internal/ir"
	"github.com/roach88/sched2bt/internal/testutil"
)

func TestRecorder_ApplyWritesFactAndLog(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	rec := NewRecorder(s)

	f := ir.Holding{Agent: "agent_r", Tool: "tool_op11"}
	require.NoError(t, rec.Apply(ctx, engine.Effect{RunID: "r", Seq: 1, Guard: "g", Op: engine.EffectAdd, Fact: f}))
	require.NoError(t, rec.Apply(ctx, engine.Effect{RunID: "r", Seq: 2, Guard: "g", Op: engine.EffectRemove, Fact: f}))

	has, err := s.Has(ctx, f)
	require.NoError(t, err)
	assert.False(t, has)

	log, err := s.Effects(ctx, "r")
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "add", log[0].Op)
	assert.Equal(t, "remove", log[1].Op)

	err = rec.Apply(ctx, engine.Effect{RunID: "r", Seq: 3, Guard: "g", Op: "toggle", Fact: f})
	assert.Error(t, err)
	log, err = s.Effects(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, log, 2, "rejected effect must not be logged")
}

func TestRecorder_BacksEngineRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Seed(ctx, []ir.Fact{
		ir.At{Agent: "agent_r", Location: "loc_base"},
		ir.ToolAt{Tool: "tool_op11", Location: "loc_workstation"},
	}))

	tree, err := assembler.New(config.Default(), assembler.WithLogger(logger)).Assemble([]ir.PlannedAction{
		{Key: "MOVE_TO_0_000", Kind: ir.ActionMoveTo, Agent: "agent_r", From: "loc_base", To: "loc_workstation"},
		{Key: "PICK_OP11_1_000", Kind: ir.ActionPick, Agent: "agent_r", Tool: "tool_op11", Location: "loc_workstation", OpKey: "OP11"},
	})
	require.NoError(t, err)

	prog, err := engine.Build(ctx, tree, engine.Simulated(), NewRecorder(s),
		engine.WithRunIDs(testutil.NewFixedRunIDGenerator("run-kb")),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithLogger(logger))
	require.NoError(t, err)
	rep, err := engine.NewRunner(prog, engine.WithTickPeriod(time.Millisecond)).Run(ctx)
	require.NoError(t, err)
	require.True(t, rep.Succeeded())

	log, err := s.Effects(ctx, "run-kb")
	require.NoError(t, err)
	require.Len(t, log, 5)
	for i, e := range log {
		assert.Equal(t, int64(i+1), e.Seq)
	}

	facts, err := s.Facts(ctx)
	require.NoError(t, err)
	var got []string
	for _, f := range facts {
		got = append(got, ir.FormatFact(f))
	}
	assert.Equal(t, []string{
		"(at agent_r loc_workstation)",
		"(holding agent_r tool_op11)",
		"(move_to_loc_workstation_done)",
		"(pick_op11_done)",
		"(tool_at tool_op11 loc_workstation)",
	}, got)
}
