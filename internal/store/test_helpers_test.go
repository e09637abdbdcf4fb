package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/collision"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/layout"
	"github.com/roach88/dragboard/internal/testutil"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// journaledEngine wires an engine to a journal on s, the way the CLI does.
func journaledEngine(t *testing.T, s *Store, initial board.State, prefix string) (*engine.Engine, *Journal) {
	t.Helper()
	return journaledEngineWith(t, s, initial, prefix, DefaultPolicy())
}

// journaledEngineWith is journaledEngine for an engine running under policy.
func journaledEngineWith(t *testing.T, s *Store, initial board.State, prefix string, policy Policy) (*engine.Engine, *Journal) {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	j := NewJournal(context.Background(), s, policy, logger)
	e := engine.New(testutil.MustBoard(t, initial), engine.NewMoveCommitter(j, policy.CommitUnchanged),
		engine.WithObserver(j),
		engine.WithStickyTarget(policy.StickyTarget),
		engine.WithTokenGenerator(engine.NewSequenceGenerator(prefix)),
		engine.WithLogger(logger),
	)
	return e, j
}

// dragTo runs start, move and end at (x, y) on the default grid.
func dragTo(t *testing.T, e *engine.Engine, id string, x, y float64) engine.Outcome {
	t.Helper()
	grid := layout.Default()
	p := collision.Point{X: x, Y: y}

	s, err := e.DragStart(id)
	require.NoError(t, err)
	_, _, err = e.DragMove(grid.Geometry(e.Snapshot(), p), grid.DraggedAt(p, s.IsContainer))
	require.NoError(t, err)
	out, err := e.DragEnd(grid.Geometry(e.Snapshot(), p))
	require.NoError(t, err)
	return out
}
