package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/canon"
	"github.com/roach88/dragboard/internal/engine"
)

// ReplayResult compares a re-driven session with its recording.
type ReplayResult struct {
	Session   string         `json:"session"`
	Match     bool           `json:"match"`
	Mismatch  string         `json:"mismatch,omitempty"`
	Commits   []CommitRecord `json:"commits"`
	FinalHash string         `json:"final_hash"`
}

// ReplayOptions configures Replay. The engine policy is not an option: it
// comes from the recording.
type ReplayOptions struct {
	Logger *slog.Logger
}

// commitRecorder collects the replayed engine's persister calls.
type commitRecorder struct {
	session string
	commits []CommitRecord
}

func (r *commitRecorder) OnReorder(container board.ContainerID, item board.ItemID, newIndex int) {
	r.commits = append(r.commits, CommitRecord{Session: r.session, Op: OpReorder, Item: item, To: container, Index: newIndex})
}

func (r *commitRecorder) OnMove(item board.ItemID, from, to board.ContainerID, newIndex int) {
	r.commits = append(r.commits, CommitRecord{Session: r.session, Op: OpMove, Item: item, From: from, To: to, Index: newIndex})
}

// Replay re-drives a recorded session through a fresh engine seeded with the
// session's initial board and recorded policy. The session token and seq
// numbering are pinned to the recording, so a deterministic engine reproduces the same commits
// and the same final board hash.
//
// Unfinished sessions replay but never match: there is no final board to
// compare against.
func Replay(rec *Recording, opts ReplayOptions) (*ReplayResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b, err := board.New(rec.Initial)
	if err != nil {
		return nil, fmt.Errorf("replay %s: initial board: %w", rec.Token, err)
	}

	cr := &commitRecorder{session: rec.Token}
	e := engine.New(b, engine.NewMoveCommitter(cr, rec.Policy.CommitUnchanged),
		engine.WithTokenGenerator(engine.NewFixedGenerator(rec.Token)),
		engine.WithClock(engine.NewClockAt(rec.StartSeq-1)),
		engine.WithStickyTarget(rec.Policy.StickyTarget),
		engine.WithLogger(logger),
	)

	for _, ev := range rec.Events {
		// Rejections were rejections when recorded too; the comparison
		// below is what decides the match.
		if err := e.Handle(ev); err != nil {
			logger.Debug("replayed event rejected", "seq", ev.Seq, "type", ev.Type, "error", err)
		}
	}

	hash, err := canon.BoardHash(e.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rec.Token, err)
	}

	res := &ReplayResult{
		Session:   rec.Token,
		Commits:   cr.commits,
		FinalHash: hash,
	}
	if res.Commits == nil {
		res.Commits = []CommitRecord{}
	}

	switch {
	case !rec.Finished():
		res.Mismatch = "session did not finish when recorded"
	case !slices.Equal(res.Commits, rec.Commits):
		res.Mismatch = fmt.Sprintf("commits differ: recorded %d, replayed %d", len(rec.Commits), len(res.Commits))
	case hash != rec.FinalHash:
		res.Mismatch = fmt.Sprintf("final board hash differs: recorded %s, replayed %s", short(rec.FinalHash), short(hash))
	default:
		res.Match = true
	}
	return res, nil
}

// ReplaySession reads session token from s and replays it.
func (s *Store) ReplaySession(ctx context.Context, token string, opts ReplayOptions) (*ReplayResult, error) {
	rec, err := s.ReadSession(ctx, token)
	if err != nil {
		return nil, err
	}
	return Replay(rec, opts)
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
