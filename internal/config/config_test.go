package config

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/layout"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Engine.CommitUnchanged)
	assert.True(t, cfg.Engine.StickyTarget)
	assert.Equal(t, layout.Default(), cfg.Layout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Log.File)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("DRAGBOARD_TEST_LOGDIR", "/var/log/dragboard")

	cfg, err := Load(filepath.Join("testdata", "dragboard.yaml"))
	require.NoError(t, err)

	assert.False(t, cfg.Engine.CommitUnchanged)
	assert.False(t, cfg.Engine.StickyTarget)

	assert.Equal(t, 240.0, cfg.Layout.ColumnWidth)
	// unset metrics keep their defaults
	assert.Equal(t, layout.Default().CardHeight, cfg.Layout.CardHeight)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/log/dragboard/dragboard.log", cfg.Log.File)
	assert.Equal(t, 5, cfg.Log.MaxBackups)
	assert.Equal(t, 10, cfg.Log.MaxSizeMB)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "empty document", yaml: ""},
		{name: "engine only", yaml: "engine:\n  sticky_target: false\n"},
		{name: "unknown field", yaml: "engine:\n  stickiness: true\n", wantErr: "field stickiness not found"},
		{name: "bad level", yaml: "log:\n  level: loud\n", wantErr: "unknown log level"},
		{name: "negative rotation", yaml: "log:\n  max_backups: -1\n", wantErr: "must not be negative"},
		{name: "bad layout", yaml: "layout:\n  column_width: -5\n", wantErr: "layout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
		})
	}
}

func TestParse_EngineKeysOverrideDefaults(t *testing.T) {
	cfg, err := Parse([]byte("engine:\n  sticky_target: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Engine.StickyTarget)
	assert.True(t, cfg.Engine.CommitUnchanged, "unset keys keep their defaults")

	cfg, err = Parse([]byte("engine:\n  commit_unchanged: false\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Engine.StickyTarget)
	assert.False(t, cfg.Engine.CommitUnchanged)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("trace")
	assert.Error(t, err)
}
