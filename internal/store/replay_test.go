package store

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/testutil"
)

func replayOpts() ReplayOptions {
	return ReplayOptions{Logger: slog.New(slog.DiscardHandler)}
}

func TestReplay_ReproducesSession(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e, j := journaledEngine(t, s, testutil.ThreeInA(), "s")

	dragTo(t, e, "i2", 320, 65)
	dragTo(t, e, "i3", 100, 50)
	require.NoError(t, j.Err())

	for _, token := range []string{"s-1", "s-2"} {
		res, err := s.ReplaySession(ctx, token, replayOpts())
		require.NoError(t, err)
		assert.True(t, res.Match, "session %s: %s", token, res.Mismatch)
		assert.Empty(t, res.Mismatch)
		require.Len(t, res.Commits, 1)
		assert.Equal(t, token, res.Commits[0].Session)
	}
}

func TestReplay_CancelledSessionHasNoCommits(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e, j := journaledEngine(t, s, testutil.ThreeInA(), "s")

	_, err := e.DragStart("i1")
	require.NoError(t, err)
	_, err = e.DragCancel()
	require.NoError(t, err)
	require.NoError(t, j.Err())

	res, err := s.ReplaySession(ctx, "s-1", replayOpts())
	require.NoError(t, err)
	assert.True(t, res.Match, res.Mismatch)
	assert.Empty(t, res.Commits)
}

func TestReplay_DetectsTamperedCommits(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e, j := journaledEngine(t, s, testutil.ThreeInA(), "s")

	dragTo(t, e, "i2", 320, 65)
	require.NoError(t, j.Err())

	rec, err := s.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	rec.Commits[0].Index = 3

	res, err := Replay(rec, replayOpts())
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Contains(t, res.Mismatch, "commits differ")
}

func TestReplay_DetectsTamperedFinalHash(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e, j := journaledEngine(t, s, testutil.ThreeInA(), "s")

	dragTo(t, e, "i2", 320, 65)
	require.NoError(t, j.Err())

	rec, err := s.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	rec.FinalHash = "0000000000000000"

	res, err := Replay(rec, replayOpts())
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Contains(t, res.Mismatch, "final board hash differs")
}

func TestReplay_UnfinishedSessionNeverMatches(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e, j := journaledEngine(t, s, testutil.ThreeInA(), "s")

	_, err := e.DragStart("i1")
	require.NoError(t, err)
	require.NoError(t, j.Err())

	res, err := s.ReplaySession(ctx, "s-1", replayOpts())
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Contains(t, res.Mismatch, "did not finish")
}

func TestReplay_UsesRecordedPolicy(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	policy := Policy{CommitUnchanged: false, StickyTarget: false}
	e, j := journaledEngineWith(t, s, testutil.ThreeInA(), "s", policy)

	// i1 dropped on its own slot: unchanged, so nothing is committed.
	out := dragTo(t, e, "i1", 100, 65)
	require.False(t, out.Changed)
	// A drop outside every region cancels without sticky targets.
	out = dragTo(t, e, "i2", 1000, 1000)
	require.True(t, out.Cancelled)
	require.NoError(t, j.Err())

	for _, token := range []string{"s-1", "s-2"} {
		rec, err := s.ReadSession(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, policy, rec.Policy)
		assert.Empty(t, rec.Commits)

		res, err := Replay(rec, replayOpts())
		require.NoError(t, err)
		assert.True(t, res.Match, "session %s: %s", token, res.Mismatch)
	}
}

func TestReplay_PolicyChangesOutcome(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	e, j := journaledEngineWith(t, s, testutil.ThreeInA(), "s", Policy{CommitUnchanged: false})
	dragTo(t, e, "i1", 100, 65)
	require.NoError(t, j.Err())

	rec, err := s.ReadSession(ctx, "s-1")
	require.NoError(t, err)
	rec.Policy.CommitUnchanged = true

	res, err := Replay(rec, replayOpts())
	require.NoError(t, err)
	assert.False(t, res.Match)
	assert.Contains(t, res.Mismatch, "commits differ")
}
