package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dragboard/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session  string `json:"session"`
	Dragged  string `json:"dragged"`
	Outcome  string `json:"outcome,omitempty"`
	Events   int    `json:"events"`
	Commits  int    `json:"commits"`
	Match    bool   `json:"match"`
	Mismatch string `json:"mismatch,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []ReplaySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllMatch      bool                  `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Re-drive every journaled session through a fresh engine and compare the
result with the recording.

Each session starts from the board recorded at its drag start, with the
recorded session token and seq numbering. A session matches when it produces
the same commits and the same final board hash. Sessions that never finished
(the recording process died mid-drag) never match.

Each session is replayed under the engine policy (commit_unchanged,
sticky_target) it was recorded with; --config does not change it.

Exit codes:
  0 - All sessions match
  1 - At least one session did not reproduce
  2 - Command error (database not found, unknown session, etc.)

Examples:
  dragboard replay --db ./board.db
  dragboard replay --db ./board.db --session 0190a7c4-...
  dragboard replay --db ./board.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
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

	var tokens []string
	if opts.Session != "" {
		tokens = []string{opts.Session}
	} else {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		for _, s := range sessions {
			tokens = append(tokens, s.Token)
		}
	}

	result := ReplayResult{
		Sessions:      make([]ReplaySessionResult, 0, len(tokens)),
		TotalSessions: len(tokens),
		AllMatch:      true,
	}

	if len(tokens) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No sessions found in database.")
		return nil
	}

	replayOpts := store.ReplayOptions{Logger: opts.logger()}

	for _, token := range tokens {
		formatter.VerboseLog("Replaying session %s", token)

		sr, err := replaySession(ctx, st, token, replayOpts)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return WrapExitError(ExitCommandError, fmt.Sprintf("session %s", token), err)
			}
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", token), err)
		}

		result.Sessions = append(result.Sessions, sr)
		if !sr.Match {
			result.AllMatch = false
		}
	}

	if formatter.JSON() {
		if !result.AllMatch {
			return formatter.Failure(ErrCodeReplayMismatch, "replay verification failed", result)
		}
		return formatter.Success(result)
	}

	return outputReplayText(formatter, result)
}

// replaySession reads one session and replays it.
func replaySession(ctx context.Context, st *store.Store, token string, opts store.ReplayOptions) (ReplaySessionResult, error) {
	rec, err := st.ReadSession(ctx, token)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	res, err := store.Replay(rec, opts)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	return ReplaySessionResult{
		Session:  token,
		Dragged:  rec.Dragged,
		Outcome:  rec.Outcome,
		Events:   len(rec.Events),
		Commits:  len(rec.Commits),
		Match:    res.Match,
		Mismatch: res.Mismatch,
	}, nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n", result.TotalSessions)
	fmt.Fprintln(w)

	for _, s := range result.Sessions {
		status := "✓"
		if !s.Match {
			status = "✗"
		}

		fmt.Fprintf(w, "%s Session: %s (%s)\n", status, s.Session, s.Dragged)

		outcome := s.Outcome
		if outcome == "" {
			outcome = "unfinished"
		}
		if formatter.Verbose {
			fmt.Fprintf(w, "  Outcome: %s\n", outcome)
			fmt.Fprintf(w, "  Events:  %d\n", s.Events)
			fmt.Fprintf(w, "  Commits: %d\n", s.Commits)
		} else {
			fmt.Fprintf(w, "  %s: %d event(s), %d commit(s)\n", outcome, s.Events, s.Commits)
		}

		if !s.Match {
			fmt.Fprintf(w, "  Mismatch: %s\n", s.Mismatch)
		}
		fmt.Fprintln(w)
	}

	if result.AllMatch {
		fmt.Fprintln(w, "✓ All sessions reproduced")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	// Replay mismatch = exit code 1
	return NewExitError(ExitFailure, "replay verification failed")
}
