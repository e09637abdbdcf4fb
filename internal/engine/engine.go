package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/collision"
)

// Source is the host's source of truth for the board. When configured, the
// engine reloads the board from it at every drag start, so a session always
// begins from the state the host last persisted.
type Source interface {
	Load() (board.State, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (board.State, error)

// Load calls f().
func (f SourceFunc) Load() (board.State, error) { return f() }

// Engine is the drag session state machine.
//
// The engine owns one ordering store and at most one drag session. Input
// events mutate the store optimistically while the gesture crosses
// containers, settle in-container reorders on drop, and hand exactly one
// Commit to the Committer per settled gesture. Cancelled gestures restore the
// snapshot taken at drag start and commit nothing.
//
// Thread-safety model:
//   - Every operation is serialized by an internal mutex, so the engine is
//     safe to call from any goroutine.
//   - Input adapters that produce events on several goroutines should still
//     funnel them through a Loop so that they are handled in arrival order.
//   - Committer, Observer and Source run while the engine is locked and must
//     not call back into it.
type Engine struct {
	mu sync.Mutex

	board     *board.Board
	committer Committer
	observer  Observer
	tokens    TokenGenerator
	source    Source
	logger    *slog.Logger
	clock     Sequencer
	resolver  *collision.Resolver

	state   State
	session *Session
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver installs o. Use Observers to install several.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithTokenGenerator replaces the UUIDv7 session token generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithSource reloads the board from s at every drag start.
func WithSource(s Source) Option {
	return func(e *Engine) {
		e.source = s
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithStickyTarget sets whether evaluations that find no region reuse the
// last target of the session. Default: true. With it off, dropping outside
// every region cancels; with it on, only a session that never found a
// target cancels there.
func WithStickyTarget(sticky bool) Option {
	return func(e *Engine) {
		e.resolver = collision.NewResolver(sticky)
	}
}

// WithClock sets the logical clock. Replay uses it to resume numbering.
func WithClock(c Sequencer) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an idle engine over b. c may be nil when the host only watches
// the engine through an Observer.
func New(b *board.Board, c Committer, opts ...Option) *Engine {
	e := &Engine{
		board:     b,
		committer: c,
		observer:  NopObserver{},
		tokens:    UUIDv7Generator{},
		logger:    slog.Default(),
		clock:     NewClock(),
		resolver:  collision.NewResolver(true),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.committer == nil {
		e.committer = CommitterFunc(func(Commit) {})
	}
	return e
}

// Board returns the ordering store the engine mutates.
func (e *Engine) Board() *board.Board {
	return e.board
}

// State returns the current lifecycle state. Outside of observer callbacks
// this is always StateIdle or StateActive.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Session returns a copy of the active session.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// Order returns the current order of container c (board.ColumnsID for the
// column order).
func (e *Engine) Order(c board.ContainerID) ([]board.ItemID, error) {
	return e.board.Order(c)
}

// ContainerOrder returns the current column order.
func (e *Engine) ContainerOrder() []board.ContainerID {
	return e.board.ContainerOrder()
}

// Snapshot returns a deep copy of the board.
func (e *Engine) Snapshot() board.State {
	return e.board.Snapshot()
}

// Seed replaces the board with s and clears any corruption. Seeding while a
// session is active is rejected: the session's snapshot would no longer
// describe the board.
func (e *Engine) Seed(s board.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return &Error{Code: CodeSessionActive, Message: "cannot seed the board during a drag", Session: e.session.Token}
	}
	if err := e.board.Reset(s); err != nil {
		return &Error{Code: CodeResyncFailed, Message: "seed board", Err: err}
	}
	e.logger.Debug("board seeded", "columns", len(s.Columns), "items", s.ItemCount())
	return nil
}

// Handle dispatches one input event. It is the entry point used by Loop and
// by replay; the typed DragStart/DragMove/DragEnd/DragCancel methods are
// equivalent.
func (e *Engine) Handle(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.process(ev, func(seq int64) error {
		switch ev.Type {
		case EventDragStart:
			_, err := e.dragStart(seq, ev.ID)
			return err
		case EventDragMove:
			_, _, err := e.dragMove(seq, ev.Geometry, ev.Dragged)
			return err
		case EventDragEnd:
			_, err := e.dragEnd(seq, ev.Geometry)
			return err
		case EventDragCancel:
			_, err := e.dragCancel(seq)
			return err
		default:
			return e.diagnose(seq, CodeUnknownEvent, fmt.Sprintf("unknown event type %q", ev.Type), ev.ID, "", false, nil)
		}
	})
}

// DragStart begins a session for id, which names an item or, for column
// drags, a column.
func (e *Engine) DragStart(id string) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s Session
	err := e.process(StartEvent(id), func(seq int64) error {
		var err error
		s, err = e.dragStart(seq, id)
		return err
	})
	return s, err
}

// DragMove evaluates the geometry of one pointer move. dragged is the dragged
// element's translated rectangle. It returns the candidate target, if any.
func (e *Engine) DragMove(g collision.Geometry, dragged collision.Rect) (collision.Target, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		t     collision.Target
		found bool
	)
	err := e.process(MoveEvent(g, dragged), func(seq int64) error {
		var err error
		t, found, err = e.dragMove(seq, g, dragged)
		return err
	})
	return t, found, err
}

// DragEnd settles the session with the geometry at release, or cancels it
// when no target is found. The dragged rectangle of the last move is carried
// along with the pointer.
func (e *Engine) DragEnd(g collision.Geometry) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out Outcome
	err := e.process(EndEvent(g), func(seq int64) error {
		var err error
		out, err = e.dragEnd(seq, g)
		return err
	})
	return out, err
}

// DragCancel aborts the session and restores the board to its state at drag
// start.
func (e *Engine) DragCancel() (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out Outcome
	err := e.process(CancelEvent(), func(seq int64) error {
		var err error
		out, err = e.dragCancel(seq)
		return err
	})
	return out, err
}

// process stamps ev, runs fn, and reports ev to the observer once the
// session it belongs to is known. Caller holds mu.
func (e *Engine) process(ev Event, fn func(seq int64) error) error {
	ev.Seq = e.clock.Next()
	ev.Session = ""
	if e.session != nil {
		ev.Session = e.session.Token
	}

	err := fn(ev.Seq)

	if ev.Session == "" && e.session != nil {
		ev.Session = e.session.Token
	}
	e.observer.Event(ev)
	return err
}

func (e *Engine) dragStart(seq int64, id string) (Session, error) {
	if e.state != StateIdle {
		return Session{}, e.diagnose(seq, CodeReentrantDragStart,
			fmt.Sprintf("drag start for %q while %q is being dragged", id, e.session.Dragged), id, "", false, nil)
	}

	if e.source != nil {
		st, err := e.source.Load()
		if err == nil {
			err = e.board.Reset(st)
		}
		if err != nil {
			return Session{}, e.diagnose(seq, CodeResyncFailed, "reload board from source", id, "", false, err)
		}
	}

	if e.board.Corrupt() {
		return Session{}, e.diagnose(seq, CodeBoardCorrupt, "board must be resynchronized before dragging", id, "", false, nil)
	}

	s := &Session{Dragged: id}
	if idx, ok := e.board.ColumnIndex(board.ContainerID(id)); ok {
		s.IsContainer = true
		s.Origin = board.ColumnsID
		s.OriginIndex = idx
	} else if c, idx, ok := e.board.Locate(board.ItemID(id)); ok {
		s.Origin = c
		s.OriginIndex = idx
	} else {
		return Session{}, e.diagnose(seq, CodeUnknownItem, fmt.Sprintf("drag start for unknown id %q", id), id, "", false, nil)
	}

	s.Token = e.tokens.Generate()
	s.snapshot = e.board.Snapshot()
	e.resolver.Reset()
	e.session = s

	start := s.snapshot
	e.transition(seq, StateActive, &start)

	e.logger.Debug("drag started",
		"session", s.Token,
		"dragged", id,
		"origin", s.Origin,
		"index", s.OriginIndex,
		"seq", seq,
	)
	return *s, nil
}

func (e *Engine) dragMove(seq int64, g collision.Geometry, dragged collision.Rect) (collision.Target, bool, error) {
	if e.state != StateActive {
		return collision.Target{}, false, e.diagnose(seq, CodeNotActive, "drag move without an active session", "", "", false, nil)
	}
	s := e.session
	s.Rect = dragged
	s.pointer, s.hasPointer = g.Pointer, g.HasPointer

	t, found := e.resolver.Resolve(e.board, s.active(), g)
	ev := Evaluation{Seq: seq, Session: s.Token, Target: t, Found: found}
	if !found {
		s.Target = nil
		e.observer.Evaluation(ev)
		return t, false, nil
	}
	s.Target = &t

	// Column drags and in-container hovers are settled on drop.
	if !s.IsContainer {
		cur, _, ok := e.board.Locate(board.ItemID(s.Dragged))
		if ok && cur != t.Container {
			if err := e.board.MoveBetweenContainers(board.ItemID(s.Dragged), cur, t.Container, t.Index); err != nil {
				e.observer.Evaluation(ev)
				return t, true, e.diagnose(seq, codeFromBoard(err), "optimistic move", s.Dragged, t.Container, false, err)
			}
			s.Moves++
			ev.Applied = true
			e.logger.Debug("optimistic move",
				"session", s.Token,
				"item", s.Dragged,
				"from", cur,
				"to", t.Container,
				"index", t.Index,
				"via", t.Via,
			)
		}
	}

	e.observer.Evaluation(ev)
	return t, true, nil
}

func (e *Engine) dragEnd(seq int64, g collision.Geometry) (Outcome, error) {
	if e.state != StateActive {
		return Outcome{}, e.diagnose(seq, CodeNotActive, "drag end without an active session", "", "", false, nil)
	}
	s := e.session
	s.follow(g)

	t, found := e.resolver.Resolve(e.board, s.active(), g)
	e.observer.Evaluation(Evaluation{Seq: seq, Session: s.Token, Target: t, Found: found})
	if !found {
		return e.cancel(seq, "no drop target")
	}
	s.Target = &t

	e.transition(seq, StateSettling, nil)

	if err := e.settle(s, t); err != nil {
		e.diagnose(seq, codeFromBoard(err), "settle drop", s.Dragged, t.Container, false, err)
		out, cerr := e.cancel(seq, "settle failed")
		if cerr != nil {
			return out, cerr
		}
		return out, &Error{Code: codeFromBoard(err), Message: "settle drop", Session: s.Token, Err: err}
	}

	c := e.classify(s)
	e.committer.Commit(c)

	e.logger.Info("drag settled",
		"session", s.Token,
		"dragged", s.Dragged,
		"from", c.From,
		"to", c.To,
		"index", c.Index,
		"changed", c.Changed,
		"seq", seq,
	)

	e.finish(seq)
	return Outcome{Commit: c}, nil
}

// settle applies the final mutation for target t.
func (e *Engine) settle(s *Session, t collision.Target) error {
	if s.IsContainer {
		_, err := e.board.MoveContainer(board.ContainerID(s.Dragged), t.Index)
		return err
	}

	item := board.ItemID(s.Dragged)
	cur, _, ok := e.board.Locate(item)
	if !ok {
		return &board.Error{Code: board.ErrCodeUnknownItem, Message: "dragged item vanished", Item: item}
	}
	if cur != t.Container {
		if err := e.board.MoveBetweenContainers(item, cur, t.Container, t.Index); err != nil {
			return err
		}
		s.Moves++
		return nil
	}
	_, err := e.board.MoveWithinContainer(cur, item, t.Index)
	return err
}

// classify compares where the dragged entity ended with where it started.
func (e *Engine) classify(s *Session) Commit {
	c := Commit{Session: s.Token, Item: s.Dragged, From: s.Origin}
	if s.IsContainer {
		idx, _ := e.board.ColumnIndex(board.ContainerID(s.Dragged))
		c.To = board.ColumnsID
		c.Index = idx
	} else {
		c.To, c.Index, _ = e.board.Locate(board.ItemID(s.Dragged))
	}
	c.Changed = c.To != c.From || c.Index != s.OriginIndex
	return c
}

func (e *Engine) dragCancel(seq int64) (Outcome, error) {
	if e.state != StateActive {
		return Outcome{}, e.diagnose(seq, CodeNotActive, "drag cancel without an active session", "", "", false, nil)
	}
	return e.cancel(seq, "cancelled")
}

// cancel restores the session snapshot and returns to Idle. If the snapshot
// no longer fits the board, the session is cleared anyway and the board is
// left corrupt.
func (e *Engine) cancel(seq int64, reason string) (Outcome, error) {
	s := e.session
	e.transition(seq, StateCancelled, nil)

	out := Outcome{
		Commit:    Commit{Session: s.Token, Item: s.Dragged, From: s.Origin, To: s.Origin, Index: s.OriginIndex},
		Cancelled: true,
		Reason:    reason,
	}

	if err := e.board.Restore(s.snapshot); err != nil {
		out.Corrupt = true
		derr := e.diagnose(seq, CodeRestoreFailure, "restore drag-start snapshot", s.Dragged, s.Origin, true, err)
		e.finish(seq)
		return out, derr
	}

	e.logger.Info("drag cancelled",
		"session", s.Token,
		"dragged", s.Dragged,
		"reason", reason,
		"moves", s.Moves,
		"seq", seq,
	)

	e.finish(seq)
	return out, nil
}

// finish clears the session and returns to Idle.
func (e *Engine) finish(seq int64) {
	end := e.board.Snapshot()
	e.transition(seq, StateIdle, &end)
	e.session = nil
}

func (e *Engine) transition(seq int64, to State, b *board.State) {
	t := Transition{Seq: seq, From: e.state, To: to, Board: b}
	if e.session != nil {
		t.Session = e.session.Token
		t.Dragged = e.session.Dragged
	}
	e.state = to
	e.observer.Transition(t)
}

// diagnose reports a diagnostic and returns it as an *Error.
func (e *Engine) diagnose(seq int64, code Code, msg, item string, container board.ContainerID, fatal bool, cause error) *Error {
	d := Diagnostic{
		Seq:       seq,
		Code:      code,
		Message:   msg,
		Item:      item,
		Container: container,
		Fatal:     fatal,
	}
	if cause != nil {
		d.Message = fmt.Sprintf("%s: %v", msg, cause)
	}
	if e.session != nil {
		d.Session = e.session.Token
	}
	e.observer.Diagnostic(d)

	level := slog.LevelWarn
	if fatal {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "drag diagnostic",
		"code", code,
		"message", d.Message,
		"session", d.Session,
		"item", item,
		"seq", seq,
	)

	return &Error{Code: code, Message: msg, Session: d.Session, Err: cause}
}
