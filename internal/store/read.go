package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/engine"
)

// ErrNotFound is returned when a session token is not in the journal.
var ErrNotFound = errors.New("session not found")

// SessionRecord summarizes one journaled session.
type SessionRecord struct {
	Token       string `json:"token"`
	Dragged     string `json:"dragged"`
	StartSeq    int64  `json:"start_seq"`
	EndSeq      int64  `json:"end_seq,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
	InitialHash string `json:"initial_hash"`
	FinalHash   string `json:"final_hash,omitempty"`
	Policy      Policy `json:"policy"`
}

// Finished reports whether the session reached Idle before the journal
// was closed.
func (r SessionRecord) Finished() bool {
	return r.Outcome != ""
}

// Recording is everything the journal holds about one session.
type Recording struct {
	SessionRecord
	Initial     board.State         `json:"initial"`
	Final       *board.State        `json:"final,omitempty"`
	Events      []engine.Event      `json:"events"`
	Commits     []CommitRecord      `json:"commits"`
	Diagnostics []engine.Diagnostic `json:"diagnostics"`
}

// ListSessions returns every session in the order they started.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, dragged, start_seq, end_seq, outcome, initial_hash, final_hash, commit_unchanged, sticky_target
		FROM sessions
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []SessionRecord{}
	for rows.Next() {
		r, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Query runs a read-only query against the journal tables.
// Used by the scenario harness for final_state assertions.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// LastSeq returns the highest seq recorded in the journal, or 0 when it is
// empty. A host resuming a journal starts its clock here so seqs keep
// increasing across runs.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM events
			UNION ALL
			SELECT seq FROM diagnostics
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (SessionRecord, error) {
	var (
		r         SessionRecord
		endSeq    sql.NullInt64
		outcome   sql.NullString
		finalHash sql.NullString
	)
	if err := row.Scan(&r.Token, &r.Dragged, &r.StartSeq, &endSeq, &outcome, &r.InitialHash, &finalHash,
		&r.Policy.CommitUnchanged, &r.Policy.StickyTarget); err != nil {
		return r, err
	}
	r.EndSeq = endSeq.Int64
	r.Outcome = outcome.String
	r.FinalHash = finalHash.String
	return r, nil
}

// ReadSession returns the full recording of session token.
// Returns ErrNotFound if the token is unknown.
func (s *Store) ReadSession(ctx context.Context, token string) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, dragged, start_seq, end_seq, outcome, initial_hash, final_hash, commit_unchanged, sticky_target
		FROM sessions
		WHERE token = ?
	`, token)
	summary, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read session %s: %w", token, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", token, err)
	}

	rec := &Recording{SessionRecord: summary}
	if err := s.readBoards(ctx, rec); err != nil {
		return nil, err
	}
	if rec.Events, err = s.readEvents(ctx, token); err != nil {
		return nil, err
	}
	if rec.Commits, err = s.readCommits(ctx, token); err != nil {
		return nil, err
	}
	if rec.Diagnostics, err = s.readDiagnostics(ctx, token); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Store) readBoards(ctx context.Context, rec *Recording) error {
	var initial, final []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT initial_board, final_board FROM sessions WHERE token = ?`, rec.Token,
	).Scan(&initial, &final)
	if err != nil {
		return fmt.Errorf("read boards: %w", err)
	}
	if err := unmarshalCBOR(initial, &rec.Initial); err != nil {
		return fmt.Errorf("decode initial board: %w", err)
	}
	if final != nil {
		var st board.State
		if err := unmarshalCBOR(final, &st); err != nil {
			return fmt.Errorf("decode final board: %w", err)
		}
		rec.Final = &st
	}
	return nil
}

// readEvents returns the session's events in seq order.
func (s *Store) readEvents(ctx context.Context, token string) ([]engine.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []engine.Event{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev engine.Event
		if err := unmarshalCBOR(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) readCommits(ctx context.Context, token string) ([]CommitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, op, item, from_container, to_container, new_index
		FROM commits
		WHERE session = ?
		ORDER BY id ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query commits: %w", err)
	}
	defer rows.Close()

	commits := []CommitRecord{}
	for rows.Next() {
		var c CommitRecord
		if err := rows.Scan(&c.Session, &c.Op, &c.Item, &c.From, &c.To, &c.Index); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}
	return commits, nil
}

func (s *Store) readDiagnostics(ctx context.Context, token string) ([]engine.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, code, message, item, container, fatal
		FROM diagnostics
		WHERE session = ?
		ORDER BY seq ASC, id ASC
	`, token)
	if err != nil {
		return nil, fmt.Errorf("query diagnostics: %w", err)
	}
	defer rows.Close()

	diags := []engine.Diagnostic{}
	for rows.Next() {
		var (
			d       engine.Diagnostic
			session sql.NullString
		)
		if err := rows.Scan(&session, &d.Seq, &d.Code, &d.Message, &d.Item, &d.Container, &d.Fatal); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Session = session.String
		diags = append(diags, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate diagnostics: %w", err)
	}
	return diags, nil
}
