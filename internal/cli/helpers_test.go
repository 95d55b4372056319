package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

// fastConfig overrides the tick period so simulated runs finish quickly.
var fastConfig = filepath.Join("testdata", "fast.yaml")

// execute runs a fresh root command with args and returns stdout and
// stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}
