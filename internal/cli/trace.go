package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/collision"
	"github.com/roach88/dragboard/internal/engine"
	"github.com/roach88/dragboard/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string
	Type     string // optional - filter events to one type
}

// TraceEntry is a single line in the trace timeline: an input event or a
// diagnostic raised while handling one.
type TraceEntry struct {
	Seq     int64            `json:"seq"`
	Kind    string           `json:"kind"` // "event" or "diagnostic"
	Type    engine.EventType `json:"type,omitempty"`
	ID      string           `json:"id,omitempty"`
	Pointer *collision.Point `json:"pointer,omitempty"`
	Code    engine.Code      `json:"code,omitempty"`
	Message string           `json:"message,omitempty"`
	Fatal   bool             `json:"fatal,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session  store.SessionRecord  `json:"session"`
	Initial  board.State          `json:"initial"`
	Final    *board.State         `json:"final,omitempty"`
	Timeline []TraceEntry         `json:"timeline"`
	Commits  []store.CommitRecord `json:"commits"`
	Stats    TraceStats           `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Events      int  `json:"events"`
	Moves       int  `json:"moves"`
	Commits     int  `json:"commits"`
	Diagnostics int  `json:"diagnostics"`
	IsComplete  bool `json:"is_complete"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journal of one drag session",
		Long: `Show everything the journal holds about one drag session.

The output includes:
- Timeline: input events and diagnostics in seq order
- Commits: what the session handed to the persister
- Boards: the board at drag start and, once settled or cancelled, at the end

Examples:
  dragboard trace --db ./board.db --session 0190a7c4-...
  dragboard trace --db ./board.db --session 0190a7c4-... --type drag_end
  dragboard trace --db ./board.db --session 0190a7c4-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session token to trace (required)")
	_ = cmd.MarkFlagRequired("session")
	cmd.Flags().StringVar(&opts.Type, "type", "", "filter events to one type (drag_start, drag_move, ...)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rec, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, store.ErrNotFound) {
		if formatter.JSON() {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session %s not found", opts.Session), nil)
		} else {
			fmt.Fprintf(formatter.Writer, "No session found: %s\n", opts.Session)
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("session %s not found", opts.Session))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	result := buildTrace(rec, engine.EventType(opts.Type))

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// buildTrace merges events and diagnostics into one seq-ordered timeline.
// When typeFilter is set, only events of that type and the diagnostics
// raised at their seqs are kept.
func buildTrace(rec *store.Recording, typeFilter engine.EventType) TraceResult {
	timeline := []TraceEntry{}
	kept := make(map[int64]bool)
	moves := 0

	for _, ev := range rec.Events {
		if ev.Type == engine.EventDragMove {
			moves++
		}
		if typeFilter != "" && ev.Type != typeFilter {
			continue
		}
		kept[ev.Seq] = true

		entry := TraceEntry{Seq: ev.Seq, Kind: "event", Type: ev.Type, ID: ev.ID}
		if ev.Geometry.HasPointer {
			p := ev.Geometry.Pointer
			entry.Pointer = &p
		}
		timeline = append(timeline, entry)
	}

	for _, d := range rec.Diagnostics {
		if typeFilter != "" && !kept[d.Seq] {
			continue
		}
		timeline = append(timeline, TraceEntry{
			Seq:     d.Seq,
			Kind:    "diagnostic",
			ID:      d.Item,
			Code:    d.Code,
			Message: d.Message,
			Fatal:   d.Fatal,
		})
	}

	// Diagnostics share their event's seq and follow it.
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Seq < timeline[j].Seq
	})

	commits := rec.Commits
	if commits == nil {
		commits = []store.CommitRecord{}
	}

	return TraceResult{
		Session:  rec.SessionRecord,
		Initial:  rec.Initial,
		Final:    rec.Final,
		Timeline: timeline,
		Commits:  commits,
		Stats: TraceStats{
			Events:      len(rec.Events),
			Moves:       moves,
			Commits:     len(rec.Commits),
			Diagnostics: len(rec.Diagnostics),
			IsComplete:  rec.Finished(),
		},
	}
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Session: %s\n", result.Session.Token)
	fmt.Fprintf(w, "Dragged: %s\n", result.Session.Dragged)
	fmt.Fprintf(w, "Status: %s\n", sessionStatus(result.Session))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, entry := range result.Timeline {
		formatTraceEntry(w, entry, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Commits ===")
	if len(result.Commits) == 0 {
		fmt.Fprintln(w, "  (no commits)")
	}
	for _, c := range result.Commits {
		fmt.Fprintf(w, "  %s\n", formatCommit(c))
	}
	fmt.Fprintln(w)

	if verbose {
		fmt.Fprintln(w, "=== Initial Board ===")
		writeBoard(w, result.Initial)
		if result.Final != nil {
			fmt.Fprintln(w, "=== Final Board ===")
			writeBoard(w, *result.Final)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Events:      %d\n", result.Stats.Events)
	fmt.Fprintf(w, "  Moves:       %d\n", result.Stats.Moves)
	fmt.Fprintf(w, "  Commits:     %d\n", result.Stats.Commits)
	fmt.Fprintf(w, "  Diagnostics: %d\n", result.Stats.Diagnostics)

	return nil
}

// formatTraceEntry formats a single timeline entry for text output.
func formatTraceEntry(w io.Writer, entry TraceEntry, verbose bool) {
	switch entry.Kind {
	case "event":
		fmt.Fprintf(w, "  [%d] %s", entry.Seq, entry.Type)
		if entry.ID != "" {
			fmt.Fprintf(w, " %s", entry.ID)
		}
		if entry.Pointer != nil {
			fmt.Fprintf(w, " @(%g, %g)", entry.Pointer.X, entry.Pointer.Y)
		}
		fmt.Fprintln(w)

	case "diagnostic":
		fmt.Fprintf(w, "  [%d] ! %s", entry.Seq, entry.Code)
		if entry.Fatal {
			fmt.Fprint(w, " (fatal)")
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "       %s\n", entry.Message)
		}
	}
}

// sessionStatus returns a human-readable status for a session.
func sessionStatus(s store.SessionRecord) string {
	if !s.Finished() {
		return "unfinished"
	}
	return fmt.Sprintf("%s (seq %d-%d)", s.Outcome, s.StartSeq, s.EndSeq)
}
