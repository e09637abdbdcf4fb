package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/boardspec"
	"github.com/roach88/dragboard/internal/collision"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/layout"
	"github.com/roach88/dragboard/internal/store"
	"github.com/roach88/dragboard/internal/testutil"
)

// Options configures RunWithOptions. The zero value is what Run uses.
type Options struct {
	// Store journals the run. Nil runs against a fresh in-memory store.
	Store *store.Store

	// Tokens generates session tokens. Nil uses <token_prefix>-1, -2, ...
	// A store shared by several scenarios needs globally unique tokens.
	Tokens engine.TokenGenerator

	// Logger receives engine logs. Nil discards them.
	Logger *slog.Logger
}

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock against the real drag engine,
// journaling every session into a store.
type Harness struct {
	store     *store.Store
	engine    *engine.Engine
	journal   *store.Journal
	clock     *testutil.DeterministicClock
	grid      layout.Config
	persister *testutil.RecordingPersister
	result    *Result
	logger    *slog.Logger

	// members is the board every step must conserve: the initial board, or
	// the last seeded one.
	members board.State
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the initial board (inline or CUE board file) and the grid
// 3. Execute steps, checking each step's expect clause and conservation
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, and errors
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(context.Background(), scenario, Options{})
}

// RunWithOptions is Run with an explicit store, token generator and logger.
func RunWithOptions(ctx context.Context, scenario *Scenario, opts Options) (*Result, error) {
	st := opts.Store
	if st == nil {
		mem, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer mem.Close()
		st = mem
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	initial, grid, err := loadBoard(scenario)
	if err != nil {
		return nil, err
	}
	b, err := board.New(initial)
	if err != nil {
		return nil, fmt.Errorf("initial board: %w", err)
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = engine.NewSequenceGenerator(scenario.tokenPrefix())
	}

	clock := testutil.NewDeterministicClock()

	h := &Harness{
		store:     st,
		journal:   store.NewJournal(ctx, st, scenario.policy(), logger),
		clock:     clock,
		grid:      grid,
		persister: testutil.NewRecordingPersister(),
		result:    NewResult(),
		logger:    logger,
		members:   initial,
	}
	tr := &tracer{result: h.result, clock: clock}

	h.engine = engine.New(b,
		engine.NewMoveCommitter(engine.Persisters{h.persister, h.journal, tr}, scenario.commitUnchanged()),
		engine.WithObserver(engine.Observers{h.journal, tr}),
		engine.WithTokenGenerator(tokens),
		engine.WithClock(clock),
		engine.WithStickyTarget(scenario.stickyTarget()),
		engine.WithLogger(logger),
	)

	for i, step := range scenario.Steps {
		h.executeStep(i, step)
	}

	if err := h.journal.Err(); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}

	h.result.Final = h.engine.Snapshot()

	actx := &AssertionContext{
		Store:     st,
		Ctx:       ctx,
		Persister: h.persister,
		Final:     h.result.Final,
	}
	for _, errMsg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(errMsg)
	}

	return h.result, nil
}

// loadBoard returns the scenario's initial board and grid.
func loadBoard(s *Scenario) (board.State, layout.Config, error) {
	grid := layout.Default()
	var initial board.State

	if s.Board != nil {
		initial = s.Board.Clone()
	} else {
		def, err := boardspec.LoadFile(s.BoardFile)
		if err != nil {
			return board.State{}, grid, fmt.Errorf("board file: %w", err)
		}
		initial = def.State
		if def.Layout != nil {
			grid = *def.Layout
		}
	}

	if s.Layout != nil {
		grid = s.Layout.Merge(grid)
	}
	return initial, grid, nil
}

// stepResult is what a step produced, for its expect clause.
type stepResult struct {
	err     error
	found   bool
	target  collision.Target
	outcome engine.Outcome
	hasMove bool
	hasOut  bool
}

// executeStep runs one step. Failures are recorded in the result; later
// steps still run so one scenario reports every mismatch.
func (h *Harness) executeStep(i int, step Step) {
	var r stepResult

	switch step.Op {
	case OpStart:
		_, r.err = h.engine.DragStart(step.ID)

	case OpMove:
		g, rect := h.geometry(step.At)
		r.target, r.found, r.err = h.engine.DragMove(g, rect)
		r.hasMove = true

	case OpEnd:
		g, _ := h.geometry(step.At)
		r.outcome, r.err = h.engine.DragEnd(g)
		r.hasOut = true

	case OpCancel:
		r.outcome, r.err = h.engine.DragCancel()
		r.hasOut = true

	case OpSeed:
		r.err = h.engine.Seed(step.Board.Clone())
		if r.err == nil {
			h.members = step.Board.Clone()
		}
	}

	h.checkStep(i, step, r)
	h.checkConservation(i, step)

	h.logger.Debug("step completed",
		"step", i,
		"op", step.Op,
		"state", h.engine.State(),
		"error", r.err,
	)
}

// geometry lays out the current board. A nil point yields a pointerless
// geometry.
func (h *Harness) geometry(at *collision.Point) (collision.Geometry, collision.Rect) {
	snap := h.engine.Snapshot()
	if at == nil {
		return collision.Geometry{Regions: h.grid.Regions(snap)}, collision.Rect{}
	}
	s, _ := h.engine.Session()
	return h.grid.Geometry(snap, *at), h.grid.DraggedAt(*at, s.IsContainer)
}

func (h *Harness) checkStep(i int, step Step, r stepResult) {
	exp := step.Expect
	prefix := fmt.Sprintf("step %d (%s)", i, step.Op)

	if exp == nil || exp.Error == "" {
		if r.err != nil {
			h.result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, r.err))
		}
	} else if got := engine.CodeOf(r.err); string(got) != exp.Error {
		h.result.AddError(fmt.Sprintf("%s: expected error %s, got %q (%v)", prefix, exp.Error, got, r.err))
	}
	if exp == nil {
		return
	}

	container, index := "", 0
	switch {
	case r.hasMove:
		container, index = string(r.target.Container), r.target.Index
	case r.hasOut:
		container, index = string(r.outcome.To), r.outcome.Index
	}

	if exp.Found != nil && r.hasMove && *exp.Found != r.found {
		h.result.AddError(fmt.Sprintf("%s: expected found=%t, got %t", prefix, *exp.Found, r.found))
	}
	if exp.Container != "" && exp.Container != container {
		h.result.AddError(fmt.Sprintf("%s: expected container %q, got %q", prefix, exp.Container, container))
	}
	if exp.Index != nil && *exp.Index != index {
		h.result.AddError(fmt.Sprintf("%s: expected index %d, got %d", prefix, *exp.Index, index))
	}
	if exp.Changed != nil && *exp.Changed != r.outcome.Changed {
		h.result.AddError(fmt.Sprintf("%s: expected changed=%t, got %t", prefix, *exp.Changed, r.outcome.Changed))
	}
	if exp.Cancelled != nil && *exp.Cancelled != r.outcome.Cancelled {
		h.result.AddError(fmt.Sprintf("%s: expected cancelled=%t, got %t", prefix, *exp.Cancelled, r.outcome.Cancelled))
	}
}

// checkConservation verifies that no step created, lost or duplicated an
// item or column.
func (h *Harness) checkConservation(i int, step Step) {
	snap := h.engine.Snapshot()
	if err := snap.Validate(); err != nil {
		h.result.AddError(fmt.Sprintf("step %d (%s): board invalid: %v", i, step.Op, err))
		return
	}
	if !snap.SameMembers(h.members) {
		h.result.AddError(fmt.Sprintf("step %d (%s): items or columns not conserved", i, step.Op))
	}
}

// tracer turns observer notifications and persister calls into trace
// events.
type tracer struct {
	result  *Result
	clock   *testutil.DeterministicClock
	session string
}

var (
	_ engine.Observer  = (*tracer)(nil)
	_ engine.Persister = (*tracer)(nil)
)

func (t *tracer) Event(ev engine.Event) {
	var args map[string]any
	switch ev.Type {
	case engine.EventDragStart:
		args = map[string]any{"id": ev.ID}
	case engine.EventDragMove, engine.EventDragEnd:
		if ev.Geometry.HasPointer {
			args = map[string]any{"x": ev.Geometry.Pointer.X, "y": ev.Geometry.Pointer.Y}
		}
	}
	t.result.AddTrace(ev.Seq, KindEvent, string(ev.Type), ev.Session, args)
}

func (t *tracer) Transition(tr engine.Transition) {
	switch tr.To {
	case engine.StateActive:
		t.session = tr.Session
	case engine.StateIdle:
		t.session = ""
	}
	t.result.AddTrace(tr.Seq, KindTransition, string(tr.To), tr.Session, map[string]any{"from": string(tr.From)})
}

func (t *tracer) Evaluation(ev engine.Evaluation) {
	if !ev.Found {
		t.result.AddTrace(ev.Seq, KindEvaluation, "none", ev.Session, nil)
		return
	}
	args := map[string]any{
		"container": string(ev.Target.Container),
		"index":     ev.Target.Index,
	}
	if ev.Target.Sibling != "" {
		args["sibling"] = ev.Target.Sibling
	}
	if ev.Applied {
		args["applied"] = true
	}
	t.result.AddTrace(ev.Seq, KindEvaluation, string(ev.Target.Via), ev.Session, args)
}

func (t *tracer) Diagnostic(d engine.Diagnostic) {
	var args map[string]any
	if d.Item != "" {
		args = map[string]any{"item": d.Item}
	}
	if d.Fatal {
		if args == nil {
			args = map[string]any{}
		}
		args["fatal"] = true
	}
	t.result.AddTrace(d.Seq, KindDiagnostic, string(d.Code), d.Session, args)
}

func (t *tracer) OnReorder(container board.ContainerID, item board.ItemID, newIndex int) {
	t.result.AddTrace(t.clock.Current(), KindCommit, testutil.OpReorder, t.session, map[string]any{
		"item":  string(item),
		"to":    string(container),
		"index": newIndex,
	})
}

func (t *tracer) OnMove(item board.ItemID, from, to board.ContainerID, newIndex int) {
	t.result.AddTrace(t.clock.Current(), KindCommit, testutil.OpMove, t.session, map[string]any{
		"item":  string(item),
		"from":  string(from),
		"to":    string(to),
		"index": newIndex,
	})
}
