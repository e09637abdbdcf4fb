package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/collision"
	"github.com/roach88/dragboard/internal/layout"
	"github.com/roach88/dragboard/internal/store"
	"github.com/roach88/dragboard/internal/testutil"
)

// Scenario defines a drag conformance scenario.
// A scenario seeds a board, drives a sequence of drag events through the
// engine, and asserts on the resulting trace, commits and final order.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Board is the initial board, inline.
	Board *board.State `yaml:"board,omitempty"`

	// BoardFile is a CUE board definition, used when Board is absent.
	// Relative paths resolve against the scenario file's directory.
	BoardFile string `yaml:"board_file,omitempty"`

	// Layout overrides the synthetic grid. Zero fields keep the board
	// file's layout, or the default grid.
	Layout *layout.Config `yaml:"layout,omitempty"`

	// CommitUnchanged forwards gestures that end where they started to the
	// persister. Defaults to true.
	CommitUnchanged *bool `yaml:"commit_unchanged,omitempty"`

	// StickyTarget keeps the last target when an evaluation finds nothing.
	// Defaults to true.
	StickyTarget *bool `yaml:"sticky_target,omitempty"`

	// TokenPrefix names sessions <prefix>-1, <prefix>-2, ...
	// Defaults to "drag".
	TokenPrefix string `yaml:"token_prefix,omitempty"`

	// Steps are the input events, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace, commits, order and journal.
	Assertions []Assertion `yaml:"assertions"`
}

// Step ops.
const (
	OpStart  = "start"
	OpMove   = "move"
	OpEnd    = "end"
	OpCancel = "cancel"
	OpSeed   = "seed"
)

// Step is one input event.
type Step struct {
	// Op is start, move, end, cancel or seed.
	Op string `yaml:"op"`

	// ID is the dragged item or column (start only).
	ID string `yaml:"id,omitempty"`

	// At is the pointer position. Required for move; an end without it is
	// a drop from a device with no pointer.
	At *collision.Point `yaml:"at,omitempty"`

	// Board replaces the board (seed only).
	Board *board.State `yaml:"board,omitempty"`

	// Expect checks this step's result. Without it the step must succeed.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// StepExpect checks a single step. Unset fields are not checked.
type StepExpect struct {
	// Error is the expected error code, e.g. NOT_ACTIVE.
	Error string `yaml:"error,omitempty"`

	// Found, Container and Index check a move's target, or an end's
	// resulting position.
	Found     *bool  `yaml:"found,omitempty"`
	Container string `yaml:"container,omitempty"`
	Index     *int   `yaml:"index,omitempty"`

	// Changed and Cancelled check an end or cancel outcome.
	Changed   *bool `yaml:"changed,omitempty"`
	Cancelled *bool `yaml:"cancelled,omitempty"`
}

// Assertion validates trace, order, commits or journal state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": Check an action appears in trace with args
	// - "trace_order": Check actions appear in order
	// - "trace_count": Check an action appears exactly N times
	// - "final_order": Check a container's final order
	// - "commits": Check the exact persister calls
	// - "final_state": Query a journal table and verify expected values
	Type string `yaml:"type"`

	// Action is "<kind>:<name>" (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected action arguments (trace_contains).
	// Subset match - only specified fields are validated.
	Args map[string]any `yaml:"args,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// Container and Items give the expected order (final_order). Use
	// "$columns" for the column order.
	Container string   `yaml:"container,omitempty"`
	Items     []string `yaml:"items,omitempty"`

	// Calls are the expected persister calls (commits).
	Calls []testutil.Call `yaml:"calls,omitempty"`

	// Table, Where and Expect query the journal (final_state).
	Table  string         `yaml:"table,omitempty"`
	Where  map[string]any `yaml:"where,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalOrder    = "final_order"
	AssertCommits       = "commits"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. A relative board_file
// resolves against the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving board_file relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. basePath resolves a relative
// board_file; empty leaves it relative to the working directory.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.BoardFile != "" && !filepath.IsAbs(scenario.BoardFile) && basePath != "" {
		scenario.BoardFile = filepath.Join(basePath, scenario.BoardFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) commitUnchanged() bool {
	return s.CommitUnchanged == nil || *s.CommitUnchanged
}

func (s *Scenario) stickyTarget() bool {
	return s.StickyTarget == nil || *s.StickyTarget
}

// policy is the engine policy the scenario runs under, as journaled.
func (s *Scenario) policy() store.Policy {
	return store.Policy{CommitUnchanged: s.commitUnchanged(), StickyTarget: s.stickyTarget()}
}

func (s *Scenario) tokenPrefix() string {
	if s.TokenPrefix == "" {
		return "drag"
	}
	return s.TokenPrefix
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Board == nil && s.BoardFile == "":
		return fmt.Errorf("one of board or board_file is required")
	case s.Board != nil && s.BoardFile != "":
		return fmt.Errorf("board and board_file are mutually exclusive")
	case s.Board != nil:
		if err := s.Board.Validate(); err != nil {
			return fmt.Errorf("board: %w", err)
		}
	default:
		if _, err := os.Stat(s.BoardFile); os.IsNotExist(err) {
			return &BoardNotFoundError{Scenario: s.Name, Path: s.BoardFile}
		}
	}

	if s.Layout != nil {
		if err := s.Layout.Merge(layout.Default()).Validate(); err != nil {
			return err
		}
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	switch st.Op {
	case OpStart:
		if st.ID == "" {
			return fmt.Errorf("steps[%d]: id is required for start", index)
		}
	case OpMove:
		if st.At == nil {
			return fmt.Errorf("steps[%d]: at is required for move", index)
		}
	case OpEnd, OpCancel:
	case OpSeed:
		if st.Board == nil {
			return fmt.Errorf("steps[%d]: board is required for seed", index)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalOrder:
		if a.Container == "" {
			return fmt.Errorf("assertions[%d]: container is required for final_order", index)
		}
	case AssertCommits:
		// No calls means no commits were expected.
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
