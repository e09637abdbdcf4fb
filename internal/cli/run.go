package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/boardspec"
	"github.com/roach88/dragboard/internal/canon"
	"github.com/roach88/dragboard/internal/collision"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/layout"
	"github.com/roach88/dragboard/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Board    string
	Input    string // "-" or empty reads stdin

	// Tokens allows overriding the session token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens engine.TokenGenerator
}

// PointerInput is one line of run input. Move and end carry the pointer
// position; the run command lays out the board around it.
type PointerInput struct {
	Type engine.EventType `json:"type"`
	ID   string           `json:"id,omitempty"`
	X    *float64         `json:"x,omitempty"`
	Y    *float64         `json:"y,omitempty"`
}

// RunSummary is what a run did to the board.
type RunSummary struct {
	Events      int                  `json:"events"`
	Sessions    int                  `json:"sessions"`
	Diagnostics int                  `json:"diagnostics"`
	Commits     []store.CommitRecord `json:"commits"`
	Final       board.State          `json:"final"`
	FinalHash   string               `json:"final_hash"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the engine from a stream of pointer events",
		Long: `Load a CUE board, start the single-writer drag loop and feed it pointer
events, one JSON object per line:

  {"type":"drag_start","id":"c2"}
  {"type":"drag_move","x":330,"y":65}
  {"type":"drag_end","x":330,"y":65}
  {"type":"drag_cancel"}

Every session is journaled into the SQLite database (created if it doesn't
exist). A drag still active when the input ends is cancelled.

Example:
  dragboard run --db ./board.db --board ./boards/sprint.cue < gestures.jsonl
  dragboard run --db ./board.db --board ./boards/sprint.cue --input gestures.jsonl --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Board, "board", "", "path to CUE board definition (required)")
	_ = cmd.MarkFlagRequired("board")
	cmd.Flags().StringVar(&opts.Input, "input", "-", "pointer event file, - for stdin")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	cfg := opts.config()
	logger := opts.logger()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	def, err := boardspec.LoadFile(opts.Board)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load board", err)
	}
	grid := cfg.Layout
	if def.Layout != nil {
		grid = *def.Layout
	}

	input, closeInput, err := openInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open input", err)
	}
	defer closeInput()

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Seqs continue from the journal's last run.
	last, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	b, err := board.New(def.State)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid board", err)
	}

	tokens := opts.Tokens
	if tokens == nil {
		tokens = engine.UUIDv7Generator{}
	}

	var live io.Writer
	if !formatter.JSON() {
		live = formatter.Writer
	}
	monitor := newRunMonitor(live)

	// The journal outlives ctx so a shutdown never leaves half a row behind.
	policy := store.Policy{
		CommitUnchanged: cfg.Engine.CommitUnchanged,
		StickyTarget:    cfg.Engine.StickyTarget,
	}
	journal := store.NewJournal(context.WithoutCancel(ctx), st, policy, logger)
	eng := engine.New(b,
		engine.NewMoveCommitter(engine.Persisters{journal, monitor}, policy.CommitUnchanged),
		engine.WithObserver(engine.Observers{journal, monitor}),
		engine.WithTokenGenerator(tokens),
		engine.WithStickyTarget(policy.StickyTarget),
		engine.WithClock(engine.NewClockAt(last)),
		engine.WithLogger(logger),
	)
	loop := engine.NewLoop(eng)

	feedErr := make(chan error, 1)
	go func() {
		feedErr <- feed(ctx, json.NewDecoder(input), eng, loop, grid, monitor.handled, logger)
		loop.Stop()
	}()

	logger.Info("drag loop started", "board", opts.Board, "db", opts.Database, "start_seq", last+1)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	select {
	case err := <-feedErr:
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid input", err)
		}
	default:
		// Interrupted while the feeder was blocked reading.
	}

	if err := journal.Err(); err != nil {
		return WrapExitError(ExitCommandError, "journal write failed", err)
	}

	summary := monitor.summary
	summary.Final = eng.Snapshot()
	if summary.FinalHash, err = canon.BoardHash(summary.Final); err != nil {
		return WrapExitError(ExitCommandError, "failed to hash board", err)
	}
	if summary.Commits == nil {
		summary.Commits = []store.CommitRecord{}
	}

	logger.Info("drag loop stopped", "events", summary.Events, "sessions", summary.Sessions)

	if formatter.JSON() {
		return formatter.Success(summary)
	}
	outputRunText(formatter.Writer, summary)
	return nil
}

// openInput returns the reader for path and a func to release it.
func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// feed decodes pointer input and hands it to the loop one event at a time.
// Each event's geometry is taken from the board as the previous event left
// it, so feed waits for the engine to report an event before reading the
// next one.
func feed(ctx context.Context, dec *json.Decoder, eng *engine.Engine, loop *engine.Loop, grid layout.Config, handled <-chan struct{}, logger *slog.Logger) error {
	send := func(ev engine.Event) bool {
		if !loop.Enqueue(ev) {
			return false
		}
		select {
		case <-handled:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for n := 1; ; n++ {
		var in PointerInput
		if err := dec.Decode(&in); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("event %d: %w", n, err)
		}
		if !send(toEvent(in, eng, grid)) {
			return nil
		}
	}

	if eng.State() == engine.StateActive {
		logger.Warn("input ended during a drag, cancelling")
		send(engine.CancelEvent())
	}
	return nil
}

// toEvent lays out the current board around the pointer. Unknown types are
// passed through for the engine to reject.
func toEvent(in PointerInput, eng *engine.Engine, grid layout.Config) engine.Event {
	switch in.Type {
	case engine.EventDragStart:
		return engine.StartEvent(in.ID)
	case engine.EventDragCancel:
		return engine.CancelEvent()
	case engine.EventDragMove, engine.EventDragEnd:
		snap := eng.Snapshot()
		g := collision.Geometry{Regions: grid.Regions(snap)}
		var rect collision.Rect
		if in.X != nil && in.Y != nil {
			p := collision.Point{X: *in.X, Y: *in.Y}
			s, _ := eng.Session()
			g = grid.Geometry(snap, p)
			rect = grid.DraggedAt(p, s.IsContainer)
		}
		if in.Type == engine.EventDragEnd {
			return engine.EndEvent(g)
		}
		return engine.MoveEvent(g, rect)
	default:
		return engine.Event{Type: in.Type, ID: in.ID}
	}
}

// runMonitor counts what the engine did and, in text mode, prints commits
// and diagnostics as they happen. Every method runs on the loop goroutine.
type runMonitor struct {
	live    io.Writer
	handled chan struct{}
	session string
	summary RunSummary
}

var (
	_ engine.Observer  = (*runMonitor)(nil)
	_ engine.Persister = (*runMonitor)(nil)
)

func newRunMonitor(live io.Writer) *runMonitor {
	return &runMonitor{live: live, handled: make(chan struct{}, 1)}
}

func (m *runMonitor) Event(engine.Event) {
	m.summary.Events++
	select {
	case m.handled <- struct{}{}:
	default:
	}
}

func (m *runMonitor) Transition(t engine.Transition) {
	if t.To == engine.StateActive {
		m.summary.Sessions++
		m.session = t.Session
	}
}

func (m *runMonitor) Evaluation(engine.Evaluation) {}

func (m *runMonitor) Diagnostic(d engine.Diagnostic) {
	m.summary.Diagnostics++
	if m.live != nil {
		fmt.Fprintf(m.live, "! [%d] %s: %s\n", d.Seq, d.Code, d.Message)
	}
}

func (m *runMonitor) OnReorder(container board.ContainerID, item board.ItemID, newIndex int) {
	m.record(store.CommitRecord{Session: m.session, Op: store.OpReorder, Item: item, To: container, Index: newIndex})
}

func (m *runMonitor) OnMove(item board.ItemID, from, to board.ContainerID, newIndex int) {
	m.record(store.CommitRecord{Session: m.session, Op: store.OpMove, Item: item, From: from, To: to, Index: newIndex})
}

func (m *runMonitor) record(c store.CommitRecord) {
	m.summary.Commits = append(m.summary.Commits, c)
	if m.live != nil {
		fmt.Fprintln(m.live, formatCommit(c))
	}
}

// formatCommit renders a commit as one line of text.
func formatCommit(c store.CommitRecord) string {
	if c.Op == store.OpMove {
		return fmt.Sprintf("→ move %s %s → %s at %d", c.Item, c.From, c.To, c.Index)
	}
	return fmt.Sprintf("→ reorder %s in %s to %d", c.Item, c.To, c.Index)
}

// outputRunText outputs the run summary as text.
func outputRunText(w io.Writer, summary RunSummary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Run Summary: %d event(s), %d session(s), %d commit(s), %d diagnostic(s)\n",
		summary.Events, summary.Sessions, len(summary.Commits), summary.Diagnostics)
	writeBoard(w, summary.Final)
}

// writeBoard prints one line per column followed by the column order.
func writeBoard(w io.Writer, s board.State) {
	for _, c := range s.Columns {
		items := make([]string, len(s.Items[c]))
		for i, id := range s.Items[c] {
			items[i] = string(id)
		}
		fmt.Fprintf(w, "  %s: [%s]\n", c, strings.Join(items, " "))
	}
}
