package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readableFixture converts the two-job solution into dir.
func readableFixture(t *testing.T, dir string) string {
	t.Helper()
	readable := filepath.Join(dir, "readable.txt")
	_, _, err := execute(t, "convert", testdata("two_jobs.sol"), "-o", readable)
	require.NoError(t, err)
	return readable
}

func TestEncodeWritesDomainAndProblem(t *testing.T) {
	dir := t.TempDir()
	readable := readableFixture(t, dir)
	domain := filepath.Join(dir, "domain.pddl")
	problem := filepath.Join(dir, "problem.pddl")

	out, _, err := execute(t, "encode", readable,
		"--capabilities", testdata("capabilities.yaml"),
		"--domain", domain, "--problem", problem)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Encoded 3 step(s), goal (at agent_r loc_2)")

	want, err := os.ReadFile(filepath.Join("..", "compiler", "testdata", "two_jobs_domain.golden"))
	require.NoError(t, err)
	got, err := os.ReadFile(domain)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	want, err = os.ReadFile(filepath.Join("..", "compiler", "testdata", "two_jobs_problem.golden"))
	require.NoError(t, err)
	got, err = os.ReadFile(problem)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestEncodeJSON(t *testing.T) {
	dir := t.TempDir()
	readable := readableFixture(t, dir)

	out, _, err := execute(t, "--format", "json", "encode", readable,
		"--capabilities", testdata("capabilities.yaml"),
		"--domain", filepath.Join(dir, "d.pddl"), "--problem", filepath.Join(dir, "p.pddl"))
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   EncodeResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"OP11", "wait_1", "OP21_CO"}, resp.Data.Steps)
	assert.NotEmpty(t, resp.Data.DomainHash)
	assert.NotEqual(t, resp.Data.DomainHash, resp.Data.ProblemHash)
}

func TestEncodeNoRobotOperations(t *testing.T) {
	dir := t.TempDir()
	readable := filepath.Join(dir, "readable.txt")
	_, _, err := execute(t, "convert", testdata("human_only.sol"), "-o", readable)
	require.NoError(t, err)
	domain := filepath.Join(dir, "domain.pddl")

	out, _, err := execute(t, "encode", readable,
		"--capabilities", testdata("capabilities.yaml"),
		"--domain", domain, "--problem", filepath.Join(dir, "problem.pddl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeEmptyResult+"]")
	assert.NoFileExists(t, domain)
}

func TestEncodeMissingCapabilities(t *testing.T) {
	dir := t.TempDir()
	readable := readableFixture(t, dir)

	out, _, err := execute(t, "encode", readable,
		"--capabilities", filepath.Join(dir, "missing.yaml"),
		"--domain", filepath.Join(dir, "d.pddl"), "--problem", filepath.Join(dir, "p.pddl"))
	require.Error(t, err)
	assert.Contains(t, out, "Error ["+ErrCodeIO+"]")
}

func TestLinearizeMatchesForcedPlan(t *testing.T) {
	dir := t.TempDir()
	readable := readableFixture(t, dir)

	out, _, err := execute(t, "linearize", readable, "--capabilities", testdata("capabilities.yaml"))
	require.NoError(t, err)

	want, err := os.ReadFile(testdata("plan.pddl"))
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestLinearizeToFile(t *testing.T) {
	dir := t.TempDir()
	readable := readableFixture(t, dir)
	planPath := filepath.Join(dir, "plan.pddl")

	out, _, err := execute(t, "linearize", readable, "--capabilities", testdata("capabilities.yaml"), "-o", planPath)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Wrote 5 plan action(s)")
	assert.FileExists(t, planPath)
}
