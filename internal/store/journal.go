package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/engine"
)

// Journal records an engine into a Store. It is both the engine's Observer
// (events, session boundaries, diagnostics) and its Persister (commits):
//
//	j := store.NewJournal(ctx, s, store.DefaultPolicy(), logger)
//	e := engine.New(b, engine.NewMoveCommitter(j, true), engine.WithObserver(j))
//
// The policy is stored with every session so replay can rebuild the same
// engine. It must describe the engine the journal observes.
//
// Observer and Persister methods cannot return errors. The first write
// failure is kept and returned by Err; later notifications are dropped so the
// journal never holds a partial session after a gap.
type Journal struct {
	ctx    context.Context
	store  *Store
	logger *slog.Logger
	policy Policy

	mu      sync.Mutex
	current string
	fatal   bool
	err     error
}

var (
	_ engine.Observer  = (*Journal)(nil)
	_ engine.Persister = (*Journal)(nil)
)

// NewJournal creates a journal writing to s for an engine running under
// policy.
func NewJournal(ctx context.Context, s *Store, policy Policy, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{ctx: ctx, store: s, policy: policy, logger: logger}
}

// Err returns the first write failure, if any.
func (j *Journal) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Event records an input event.
func (j *Journal) Event(ev engine.Event) {
	j.write("event", func() error { return j.store.WriteEvent(j.ctx, ev) })
}

// Transition opens a session row on entering Active and closes it on
// returning to Idle.
func (j *Journal) Transition(t engine.Transition) {
	switch t.To {
	case engine.StateActive:
		j.mu.Lock()
		j.current, j.fatal = t.Session, false
		j.mu.Unlock()

		initial := board.State{}
		if t.Board != nil {
			initial = *t.Board
		}
		j.write("session start", func() error {
			return j.store.BeginSession(j.ctx, t.Session, t.Dragged, t.Seq, initial, j.policy)
		})

	case engine.StateIdle:
		j.mu.Lock()
		outcome := OutcomeSettled
		switch {
		case j.fatal:
			outcome = OutcomeCorrupt
		case t.From == engine.StateCancelled:
			outcome = OutcomeCancelled
		}
		j.current = ""
		j.mu.Unlock()

		final := board.State{}
		if t.Board != nil {
			final = *t.Board
		}
		j.write("session end", func() error {
			return j.store.EndSession(j.ctx, t.Session, t.Seq, outcome, final)
		})
	}
}

// Evaluation is not journaled: replay recomputes every evaluation.
func (j *Journal) Evaluation(engine.Evaluation) {}

// Diagnostic records a diagnostic and remembers fatal ones for the session
// outcome.
func (j *Journal) Diagnostic(d engine.Diagnostic) {
	if d.Fatal {
		j.mu.Lock()
		j.fatal = true
		j.mu.Unlock()
	}
	j.write("diagnostic", func() error { return j.store.WriteDiagnostic(j.ctx, d) })
}

// OnReorder records a same-container commit for the current session.
func (j *Journal) OnReorder(container board.ContainerID, item board.ItemID, newIndex int) {
	j.commit(CommitRecord{Op: OpReorder, Item: item, To: container, Index: newIndex})
}

// OnMove records a cross-container commit for the current session.
func (j *Journal) OnMove(item board.ItemID, from, to board.ContainerID, newIndex int) {
	j.commit(CommitRecord{Op: OpMove, Item: item, From: from, To: to, Index: newIndex})
}

func (j *Journal) commit(c CommitRecord) {
	j.mu.Lock()
	c.Session = j.current
	j.mu.Unlock()
	j.write("commit", func() error { return j.store.WriteCommit(j.ctx, c) })
}

func (j *Journal) write(what string, fn func() error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	if err := fn(); err != nil {
		j.err = err
		j.logger.Error("journal write failed", "record", what, "error", err)
	}
}
