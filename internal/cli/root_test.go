package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dragboard", cmd.Use)
	assert.Contains(t, cmd.Short, "drag-and-drop")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"validate", "run", "replay", "test", "trace"}

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

func TestCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
	}{
		{"run", []string{"db", "board", "input"}},
		{"replay", []string{"db", "session"}},
		{"trace", []string{"db", "session", "type"}},
		{"test", []string{"update", "filter", "golden"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "flag --%s", name)
			}
		})
	}
}

func TestFormatValidation(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "validate", "board.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootLoadsConfig(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)
	cfgPath := writeFile(t, dir, "dragboard.yaml", "log:\n  level: warn\n")

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", cfgPath, "validate", boardPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓")
}

func TestRootRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)

	tests := map[string]string{
		"missing file":  filepath.Join(dir, "nope.yaml"),
		"unknown field": writeFile(t, dir, "bad.yaml", "engine:\n  sticky: true\n"),
	}
	for name, cfgPath := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := NewRootCommand()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs([]string{"--config", cfgPath, "validate", boardPath})

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "failed to load config")
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
