package store

import (
	"context"
	"fmt"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/canon"
	"github.com/roach88/dragboard/internal/engine"
)

// Session outcomes.
const (
	OutcomeSettled   = "settled"
	OutcomeCancelled = "cancelled"
	OutcomeCorrupt   = "corrupt"
)

// Commit ops.
const (
	OpReorder = "reorder"
	OpMove    = "move"
)

// CommitRecord is one persister notification. Reorders leave From empty.
type CommitRecord struct {
	Session string            `json:"session"`
	Op      string            `json:"op"`
	Item    board.ItemID      `json:"item"`
	From    board.ContainerID `json:"from,omitempty"`
	To      board.ContainerID `json:"to"`
	Index   int               `json:"index"`
}

// Policy is the engine configuration a session was recorded under. Replay
// rebuilds the engine from it.
type Policy struct {
	CommitUnchanged bool `json:"commit_unchanged"`
	StickyTarget    bool `json:"sticky_target"`
}

// DefaultPolicy matches engine.New with a committer that reports unchanged
// drops.
func DefaultPolicy() Policy {
	return Policy{CommitUnchanged: true, StickyTarget: true}
}

// BeginSession records the start of a drag session with the board as it was
// at drag start and the policy the engine runs under. Rewriting an existing
// token is a no-op.
func (s *Store) BeginSession(ctx context.Context, token, dragged string, seq int64, initial board.State, policy Policy) error {
	blob, err := marshalCBOR(initial.Clone())
	if err != nil {
		return fmt.Errorf("begin session: encode board: %w", err)
	}
	hash, err := canon.BoardHash(initial)
	if err != nil {
		return fmt.Errorf("begin session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, dragged, start_seq, initial_board, initial_hash, commit_unchanged, sticky_target)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, dragged, seq, blob, hash, policy.CommitUnchanged, policy.StickyTarget)
	if err != nil {
		return fmt.Errorf("begin session %s: %w", token, err)
	}
	return nil
}

// EndSession records how a session ended and the board it left behind.
func (s *Store) EndSession(ctx context.Context, token string, seq int64, outcome string, final board.State) error {
	blob, err := marshalCBOR(final.Clone())
	if err != nil {
		return fmt.Errorf("end session: encode board: %w", err)
	}
	hash, err := canon.BoardHash(final)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET end_seq = ?, outcome = ?, final_board = ?, final_hash = ?
		WHERE token = ?
	`, seq, outcome, blob, hash, token)
	if err != nil {
		return fmt.Errorf("end session %s: %w", token, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("end session %s: %w", token, ErrNotFound)
	}
	return nil
}

// WriteEvent appends one input event. Events rejected while no session was
// active are stored without a session.
func (s *Store) WriteEvent(ctx context.Context, ev engine.Event) error {
	payload, err := marshalCBOR(ev)
	if err != nil {
		return fmt.Errorf("write event: encode: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (session, seq, type, payload)
		VALUES (?, ?, ?, ?)
	`, nullable(ev.Session), ev.Seq, string(ev.Type), payload)
	if err != nil {
		return fmt.Errorf("write event %d: %w", ev.Seq, err)
	}
	return nil
}

// WriteCommit appends one persister notification.
func (s *Store) WriteCommit(ctx context.Context, c CommitRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commits (session, op, item, from_container, to_container, new_index)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.Session, c.Op, string(c.Item), string(c.From), string(c.To), c.Index)
	if err != nil {
		return fmt.Errorf("write commit: %w", err)
	}
	return nil
}

// WriteDiagnostic appends one diagnostic.
func (s *Store) WriteDiagnostic(ctx context.Context, d engine.Diagnostic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO diagnostics (session, seq, code, message, item, container, fatal)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, nullable(d.Session), d.Seq, string(d.Code), d.Message, d.Item, string(d.Container), d.Fatal)
	if err != nil {
		return fmt.Errorf("write diagnostic: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
