package plan

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sched2bt/internal/config"
	"github.com/roach88/sched2bt/internal/ir"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func decode(t *testing.T, input string, opts ...Option) *Result {
	t.Helper()
	opts = append([]Option{WithLogger(discard)}, opts...)
	res, err := NewDecoder(config.Default(), opts...).Decode(strings.NewReader(input), "plan.pddl")
	require.NoError(t, err)
	return res
}

func TestDecodePickLine(t *testing.T) {
	res := decode(t, "5.00: (PICK AGENT_R TOOL_OP11 LOC_WORKSTATION) [10.00]\n")
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ir.PlannedAction{
		Key:       "PICK_5_00",
		Name:      "PICK",
		Timestamp: 5.0,
		Kind:      ir.ActionPick,
		Agent:     "AGENT_R",
		Tool:      "TOOL_OP11",
		Location:  "LOC_WORKSTATION",
		OpKey:     "OP11",
		Duration:  10.0,
	}, res.Actions[0])
}

func TestDecodeKeepsWideOperationIDs(t *testing.T) {
	res := decode(t, `1.000: (pick_op110 agent_r tool_op110 loc_workstation) [1.000]
2.000: (place agent_r tool_op110 loc_workstation) [1.000]
3.000: (pick_op1203_co agent_r tool_op1203_co loc_workstation) [1.000]
`)
	require.Len(t, res.Actions, 3)
	assert.Equal(t, "OP110", res.Actions[0].OpKey)
	assert.Equal(t, "OP110", res.Actions[1].OpKey, "recovered from the tool name")
	assert.Equal(t, "OP1203_CO", res.Actions[2].OpKey)
}

func TestDecodePlanFile(t *testing.T) {
	f, err := os.Open(filepath.Join("testdata", "plan.pddl"))
	require.NoError(t, err)
	defer f.Close()

	res, err := NewDecoder(config.Default(), WithLogger(discard), WithWaitDurations(map[string]float64{"WAIT_1": 8})).
		Decode(f, "plan.pddl")
	require.NoError(t, err)

	var keys []string
	for _, a := range res.Actions {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{
		"MOVE_TO_0_000",
		"MOVE_TO_1_000",
		"PICK_OP11_2_000",
		"PLACE_OP11_3_000",
		"WAIT_1_4_000",
		"PICK_OP22_CO_12_000",
		"PLACE_13_000",
	}, keys)

	place := res.Actions[3]
	assert.Equal(t, ir.ActionPlace, place.Kind)
	assert.Empty(t, place.Location, "two-parameter place has no location")
	assert.Equal(t, "OP11", place.OpKey)

	assert.Equal(t, 8.0, res.Actions[4].Duration)
	assert.Equal(t, "OP22_CO", res.Actions[5].OpKey)
	assert.Equal(t, "OP22_CO", res.Actions[6].OpKey, "recovered from the tool name")

	// malformed move, unresolvable op key, unknown action
	require.Len(t, res.Skipped, 3)
	for _, err := range res.Skipped {
		assert.True(t, errors.Is(err, ir.ErrParse))
	}
	assert.Contains(t, res.Skipped[0].Error(), "wants 3 parameters")
	assert.Contains(t, res.Skipped[1].Error(), "wrench")
	assert.Contains(t, res.Skipped[2].Error(), "unknown action TELEPORT")
}

func TestDecodeWaitDefaultDuration(t *testing.T) {
	res := decode(t, "0.0: (wait agent_r) [0.001]\n")
	assert.Equal(t, 10.0, res.Actions[0].Duration)
}

func TestDecodeOptionalDuration(t *testing.T) {
	res := decode(t, "3: (move_to agent_r loc_base loc_1)\n")
	require.Len(t, res.Actions, 1)
	assert.Equal(t, "MOVE_TO_3", res.Actions[0].Key)
	assert.Zero(t, res.Actions[0].Duration)
}

func TestDecodeOrdersByTimestamp(t *testing.T) {
	res := decode(t, "2.0: (wait_2 agent_r)\n1.0: (wait_1 agent_r)\n")
	assert.Equal(t, "WAIT_1_1_0", res.Actions[0].Key)
}

func TestDecodeDuplicateKeySkipped(t *testing.T) {
	res := decode(t, "1.0: (wait_1 agent_r)\n1.0: (wait_1 agent_r)\n")
	assert.Len(t, res.Actions, 1)
	assert.Len(t, res.Skipped, 1)
}

func TestDecodeNoRecognizedActions(t *testing.T) {
	tests := []string{
		"",
		"; only comments\n",
		"0.0: (fly agent_r)\n0.5: (move_to agent_r)\n",
	}
	for _, input := range tests {
		_, err := NewDecoder(config.Default(), WithLogger(discard)).Decode(strings.NewReader(input), "empty.pddl")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ir.ErrParse))
	}
}

func TestFilterDropsDegenerateMoves(t *testing.T) {
	in := []ir.PlannedAction{
		{Key: "MOVE_TO_0", Kind: ir.ActionMoveTo, From: "loc_base", To: "loc_workstation"},
		{Key: "MOVE_TO_1", Kind: ir.ActionMoveTo, From: "loc_workstation", To: "LOC_WORKSTATION"},
		{Key: "WAIT_2", Kind: ir.ActionWait},
	}
	out := Filter(in, discard)
	require.Len(t, out, 2)
	assert.Equal(t, "MOVE_TO_0", out[0].Key)
	assert.Equal(t, "WAIT_2", out[1].Key)
	assert.Len(t, in, 3)
}
