package cli

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/config"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/store"
)

// recordedJournal runs two gestures into a new journal: a settled move
// (run-1) and a cancelled drag (run-2).
func recordedJournal(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)
	dbPath := filepath.Join(dir, "board.db")

	input := moveC2ToB + `{"type":"drag_start","id":"c1"}
{"type":"drag_cancel"}
`
	_, err := runInput(t, "text", boardPath, dbPath, input)
	require.NoError(t, err)
	return dbPath
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := execute(t, NewReplayCommand, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, NewReplayCommand, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found")

	out, err = execute(t, NewReplayCommand, "json", "--db", dbPath)
	require.NoError(t, err)
	var result ReplayResult
	status, _ := decodeData(t, out, &result)
	assert.Equal(t, "ok", status)
	assert.Equal(t, 0, result.TotalSessions)
	assert.True(t, result.AllMatch)
}

func TestReplayReproducesJournal(t *testing.T) {
	dbPath := recordedJournal(t)

	out, err := execute(t, NewReplayCommand, "text", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 2 session(s)")
	assert.Contains(t, out, "✓ Session: run-1 (c2)")
	assert.Contains(t, out, "settled: 3 event(s), 1 commit(s)")
	assert.Contains(t, out, "✓ Session: run-2 (c1)")
	assert.Contains(t, out, "cancelled: 2 event(s), 0 commit(s)")
	assert.Contains(t, out, "✓ All sessions reproduced")
}

func TestReplaySingleSessionJSON(t *testing.T) {
	dbPath := recordedJournal(t)

	out, err := execute(t, NewReplayCommand, "json", "--db", dbPath, "--session", "run-1")
	require.NoError(t, err)

	var result ReplayResult
	status, _ := decodeData(t, out, &result)
	assert.Equal(t, "ok", status)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, ReplaySessionResult{
		Session: "run-1",
		Dragged: "c2",
		Outcome: store.OutcomeSettled,
		Events:  3,
		Commits: 1,
		Match:   true,
	}, result.Sessions[0])
}

func TestReplayDetectsTamperedCommit(t *testing.T) {
	dbPath := recordedJournal(t)

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`UPDATE commits SET new_index = 7 WHERE session = 'run-1'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, NewReplayCommand, "text", "--db", dbPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Session: run-1")
	assert.Contains(t, out, "Mismatch: commits differ")
	assert.Contains(t, out, "✓ Session: run-2")
	assert.Contains(t, out, "✗ Replay verification failed")

	out, err = execute(t, NewReplayCommand, "json", "--db", dbPath)
	require.Error(t, err)
	var result ReplayResult
	status, cliErr := decodeData(t, out, &result)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, ErrCodeReplayMismatch, cliErr.Code)
	assert.False(t, result.AllMatch)
}

func TestReplayUsesRecordedPolicy(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)
	dbPath := filepath.Join(dir, "board.db")

	cfg := config.Default()
	cfg.Engine.CommitUnchanged = false
	cfg.Engine.StickyTarget = false

	cmd := silentCommand()
	cmd.SetIn(strings.NewReader(`{"type":"drag_start","id":"c1"}
{"type":"drag_move","x":100,"y":65}
{"type":"drag_end","x":100,"y":65}
`))
	require.NoError(t, runEngine(&RunOptions{
		RootOptions: &RootOptions{Format: "text", Config: cfg},
		Database:    dbPath,
		Board:       boardPath,
		Input:       "-",
		Tokens:      engine.NewSequenceGenerator("run"),
	}, cmd))

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	rec, err := st.ReadSession(context.Background(), "run-1")
	require.NoError(t, err)
	require.NoError(t, st.Close())
	assert.Equal(t, store.Policy{CommitUnchanged: false, StickyTarget: false}, rec.Policy)
	assert.Empty(t, rec.Commits, "an unchanged drop is not committed")

	// Replay runs with the default config, which commits unchanged drops.
	out, err := execute(t, NewReplayCommand, "text", "--db", dbPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ Session: run-1 (c1)")
	assert.Contains(t, out, "✓ All sessions reproduced")
}

func TestReplayUnknownSession(t *testing.T) {
	dbPath := recordedJournal(t)

	_, err := execute(t, NewReplayCommand, "text", "--db", dbPath, "--session", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
