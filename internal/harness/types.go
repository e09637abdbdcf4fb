package harness

import "github.com/roach88/dragboard/internal/board"

// TraceEvent is one observer notification or persister call, in the order
// the engine produced it.
//
// Action is "<kind>:<name>", for example "event:drag_start",
// "transition:active", "evaluation:pointer", "diagnostic:NOT_ACTIVE" or
// "commit:move".
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Action  string         `json:"action"`
	Session string         `json:"session,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
}

// Trace event kinds.
const (
	KindEvent      = "event"
	KindTransition = "transition"
	KindEvaluation = "evaluation"
	KindDiagnostic = "diagnostic"
	KindCommit     = "commit"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every notification in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the board after the last step.
	Final board.State `json:"final"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends one trace event.
func (r *Result) AddTrace(seq int64, kind, name, session string, args map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     seq,
		Action:  kind + ":" + name,
		Session: session,
		Args:    args,
	})
}
