package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/store"
)

func TestRunMissingFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
		flag string
	}{
		{"db", []string{"--board", "board.cue"}, "db"},
		{"board", []string{"--db", "board.db"}, "board"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, NewRunCommand, "text", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "required flag")
			assert.Contains(t, err.Error(), tt.flag)
		})
	}
}

func TestRunMovesCardAndJournals(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)
	dbPath := filepath.Join(dir, "board.db")

	out, err := runInput(t, "text", boardPath, dbPath, moveC2ToB)
	require.NoError(t, err)

	assert.Contains(t, out, "→ move c2 colA → colB at 0")
	assert.Contains(t, out, "Run Summary: 3 event(s), 1 session(s), 1 commit(s), 0 diagnostic(s)")
	assert.Contains(t, out, "colA: [c1 c3]")
	assert.Contains(t, out, "colB: [c2]")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "run-1", sessions[0].Token)
	assert.Equal(t, "c2", sessions[0].Dragged)
	assert.Equal(t, store.OutcomeSettled, sessions[0].Outcome)
}

func TestRunJSONOutput(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)

	out, err := runInput(t, "json", boardPath, filepath.Join(dir, "board.db"), moveC2ToB)
	require.NoError(t, err)
	assert.NotContains(t, out, "→", "live output is text only")

	var summary RunSummary
	status, _ := decodeData(t, out, &summary)
	assert.Equal(t, "ok", status)

	assert.Equal(t, 3, summary.Events)
	assert.Equal(t, 1, summary.Sessions)
	assert.Equal(t, []store.CommitRecord{
		{Session: "run-1", Op: store.OpMove, Item: "c2", From: "colA", To: "colB", Index: 0},
	}, summary.Commits)
	assert.Equal(t, []board.ItemID{"c1", "c3"}, summary.Final.Items["colA"])
	assert.Equal(t, []board.ItemID{"c2"}, summary.Final.Items["colB"])
	assert.NotEmpty(t, summary.FinalHash)
}

func TestRunCancelsDragLeftOpen(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)
	dbPath := filepath.Join(dir, "board.db")

	input := `{"type":"drag_start","id":"c1"}
{"type":"drag_move","x":320,"y":65}
`
	out, err := runInput(t, "json", boardPath, dbPath, input)
	require.NoError(t, err)

	var summary RunSummary
	decodeData(t, out, &summary)

	// start, move, and the cancel issued at end of input
	assert.Equal(t, 3, summary.Events)
	assert.Empty(t, summary.Commits)
	assert.Equal(t, []board.ItemID{"c1", "c2", "c3"}, summary.Final.Items["colA"])
	assert.Empty(t, summary.Final.Items["colB"])

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, store.OutcomeCancelled, sessions[0].Outcome)
}

func TestRunReportsRejectedEvents(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)

	input := `{"type":"drag_end","x":10,"y":10}
{"type":"drag_start","id":"ghost"}
{"type":"drag_wiggle"}
`
	out, err := runInput(t, "text", boardPath, filepath.Join(dir, "board.db"), input)
	require.NoError(t, err)

	assert.Contains(t, out, "! [1] NOT_ACTIVE")
	assert.Contains(t, out, "! [2] UNKNOWN_ITEM")
	assert.Contains(t, out, "! [3] UNKNOWN_EVENT")
	assert.Contains(t, out, "3 event(s), 0 session(s), 0 commit(s), 3 diagnostic(s)")
}

func TestRunResumesSeqAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)
	dbPath := filepath.Join(dir, "board.db")

	_, err := runInput(t, "text", boardPath, dbPath, moveC2ToB)
	require.NoError(t, err)

	// Tokens restart with a fresh generator, so the second run needs its own
	// prefix to keep session rows distinct.
	input := `{"type":"drag_start","id":"c3"}
{"type":"drag_cancel"}
`
	err = runEngine(&RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Database:    dbPath,
		Board:       boardPath,
		Input:       writeFile(t, dir, "second.jsonl", input),
		Tokens:      engine.NewSequenceGenerator("again"),
	}, silentCommand())
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	sessions, err := st.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "again-1", sessions[1].Token)
	assert.Equal(t, int64(4), sessions[1].StartSeq)
}

func TestRunInvalidInput(t *testing.T) {
	dir := t.TempDir()
	boardPath := writeFile(t, dir, "board.cue", twoColumnBoard)

	_, err := runInput(t, "text", boardPath, filepath.Join(dir, "board.db"), `{"type":"drag_start","id":"c1"}
not json
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid input")
	assert.Contains(t, err.Error(), "event 2")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunMissingBoard(t *testing.T) {
	dir := t.TempDir()

	_, err := runInput(t, "text", filepath.Join(dir, "missing.cue"), filepath.Join(dir, "board.db"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load board")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
