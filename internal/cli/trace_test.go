package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/store"
)

func TestTraceMissingFlags(t *testing.T) {
	_, err := execute(t, NewTraceCommand, "text", "--db", "board.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session")
}

func TestTraceText(t *testing.T) {
	dbPath := recordedJournal(t)

	out, err := execute(t, NewTraceCommand, "text", "--db", dbPath, "--session", "run-1")
	require.NoError(t, err)

	assert.Contains(t, out, "Trace for Session: run-1")
	assert.Contains(t, out, "Dragged: c2")
	assert.Contains(t, out, "Status: settled (seq 1-3)")
	assert.Contains(t, out, "[1] drag_start c2")
	assert.Contains(t, out, "[2] drag_move @(320, 65)")
	assert.Contains(t, out, "[3] drag_end @(320, 65)")
	assert.Contains(t, out, "→ move c2 colA → colB at 0")
	assert.Contains(t, out, "Moves:       1")
	assert.NotContains(t, out, "=== Initial Board ===")
}

func TestTraceJSON(t *testing.T) {
	dbPath := recordedJournal(t)

	out, err := execute(t, NewTraceCommand, "json", "--db", dbPath, "--session", "run-2")
	require.NoError(t, err)

	var result TraceResult
	status, _ := decodeData(t, out, &result)
	assert.Equal(t, "ok", status)

	assert.Equal(t, "run-2", result.Session.Token)
	assert.Equal(t, store.OutcomeCancelled, result.Session.Outcome)
	require.Len(t, result.Timeline, 2)
	assert.Equal(t, engine.EventDragStart, result.Timeline[0].Type)
	assert.Equal(t, engine.EventDragCancel, result.Timeline[1].Type)
	assert.Empty(t, result.Commits)
	assert.True(t, result.Stats.IsComplete)

	// run-1 had already moved c2 when run-2 started
	assert.Equal(t, []board.ItemID{"c2"}, result.Initial.Items["colB"])
	require.NotNil(t, result.Final)
	assert.True(t, result.Initial.Equal(*result.Final))
}

func TestTraceTypeFilter(t *testing.T) {
	dbPath := recordedJournal(t)

	out, err := execute(t, NewTraceCommand, "json", "--db", dbPath, "--session", "run-1", "--type", "drag_end")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, out, &result)
	require.Len(t, result.Timeline, 1)
	assert.Equal(t, int64(3), result.Timeline[0].Seq)
	assert.Equal(t, 3, result.Stats.Events, "stats cover the whole session")
}

func TestTraceUnknownSession(t *testing.T) {
	dbPath := recordedJournal(t)

	out, err := execute(t, NewTraceCommand, "text", "--db", dbPath, "--session", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "No session found: missing")
}

func TestBuildTrace_DiagnosticsFollowTheirEvent(t *testing.T) {
	rec := &store.Recording{
		SessionRecord: store.SessionRecord{Token: "s-1", Dragged: "i1", StartSeq: 1},
		Events: []engine.Event{
			{Seq: 1, Type: engine.EventDragStart, ID: "i1"},
			{Seq: 2, Type: engine.EventDragStart, ID: "i2"},
		},
		Diagnostics: []engine.Diagnostic{
			{Seq: 2, Code: engine.CodeReentrantDragStart, Message: "busy", Item: "i2"},
		},
	}

	result := buildTrace(rec, "")
	require.Len(t, result.Timeline, 3)
	assert.Equal(t, "event", result.Timeline[0].Kind)
	assert.Equal(t, "event", result.Timeline[1].Kind)
	assert.Equal(t, "diagnostic", result.Timeline[2].Kind)
	assert.Equal(t, engine.CodeReentrantDragStart, result.Timeline[2].Code)
	assert.False(t, result.Stats.IsComplete)
	assert.Equal(t, "unfinished", sessionStatus(result.Session))
}
