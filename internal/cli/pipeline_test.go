package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sched2bt/internal/assembler"
)

func TestPipelineWritesEveryArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")

	out, _, err := execute(t, "pipeline", testdata("two_jobs.sol"),
		"--capabilities", testdata("capabilities.yaml"), "--out", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 3 operation(s), 3 step(s), 5 plan action(s), 4 guarded action(s)")

	for _, name := range []string{ReadableFile, DomainFile, ProblemFile, PlanFile, TreeFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.NoFileExists(t, filepath.Join(dir, KBFile))

	plan, err := os.ReadFile(filepath.Join(dir, PlanFile))
	require.NoError(t, err)
	want, err := os.ReadFile(testdata("plan.pddl"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(plan))
}

func TestPipelineWaitUsesScheduledGap(t *testing.T) {
	dir := t.TempDir()
	build := filepath.Join(dir, "build")
	_, _, err := execute(t, "pipeline", testdata("two_jobs.sol"),
		"--capabilities", testdata("capabilities.yaml"), "--out", build)
	require.NoError(t, err)

	staged := filepath.Join(dir, "staged.json")
	_, _, err = execute(t, "assemble", filepath.Join(build, PlanFile), "-o", staged)
	require.NoError(t, err)

	assert.Equal(t, "8", waitDuration(t, filepath.Join(build, TreeFile)), "gap between 12 and 20")
	assert.Equal(t, "10", waitDuration(t, staged), "plan alone falls back to the configured default")
}

func waitDuration(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tree, err := assembler.Decode(data)
	require.NoError(t, err)

	var duration string
	tree.Walk(func(n *assembler.Node, _ int) {
		if n.Capability == assembler.CapWait {
			duration, _ = n.Param("duration")
		}
	})
	return duration
}

func TestPipelineSimulateSeedsInitialState(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")

	out, _, err := execute(t, "--config", fastConfig, "--format", "json", "pipeline", testdata("two_jobs.sol"),
		"--capabilities", testdata("capabilities.yaml"), "--out", dir, "--simulate")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, KBFile))

	var resp simulateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "success", resp.Data.Status)
	assert.Equal(t, []string{
		"(at agent_r loc_workstation)",
		"(can_operate tool_op11 op11)",
		"(move_to_loc_workstation_done)",
		"(pick_op11_done)",
		"(place_op11_done)",
		"(tool_at tool_op11 loc_workstation)",
		"(wait_done agent_r)",
	}, resp.Data.Facts)
}

func TestPipelineSimulateFailure(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "custom.db")

	_, _, err := execute(t, "--config", fastConfig, "pipeline", testdata("two_jobs.sol"),
		"--capabilities", testdata("capabilities.yaml"), "--out", filepath.Join(dir, "build"),
		"--simulate", "--db", db, "--fail", "close_gripper")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.FileExists(t, db)
}

func TestPipelineNoRobotOperations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "build")

	out, _, err := execute(t, "--format", "json", "pipeline", testdata("human_only.sol"),
		"--capabilities", testdata("capabilities.yaml"), "--out", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, ErrCodeEmptyResult, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no operations on robot resources")
	assert.FileExists(t, filepath.Join(dir, ReadableFile))
	assert.NoFileExists(t, filepath.Join(dir, DomainFile))
}

func TestErrorCodeClassification(t *testing.T) {
	_, _, err := execute(t, "assemble", testdata("missing.pddl"))
	require.Error(t, err)
	assert.Equal(t, ErrCodeIO, errorCode(err))
}
