package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sched2bt", cmd.Use)
	assert.Contains(t, cmd.Long, "behavior tree")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"convert", "encode", "linearize", "assemble", "simulate", "pipeline"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestRequiredFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"encode", []string{"capabilities"}},
		{"linearize", []string{"capabilities"}},
		{"simulate", []string{"db"}},
		{"pipeline", []string{"capabilities", "out"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			cmd := NewRootCommand()
			sub, _, err := cmd.Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				flag := sub.Flags().Lookup(name)
				require.NotNil(t, flag, "flag %s", name)
				assert.Equal(t, []string{"true"}, flag.Annotations[cobra.BashCompOneRequiredFlag])
			}
		})
	}
}

func TestOutputFlagShorthand(t *testing.T) {
	for _, name := range []string{"convert", "linearize", "assemble"} {
		cmd := NewRootCommand()
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		flag := sub.Flags().Lookup("output")
		require.NotNil(t, flag, name)
		assert.Equal(t, "o", flag.Shorthand, name)
	}
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "yaml", "convert", filepath.Join("testdata", "two_jobs.sol")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
