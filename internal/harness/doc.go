// Package harness runs drag scenarios against the real engine.
//
// A scenario seeds a board, replays a list of drag steps through the engine
// on the synthetic layout grid, and checks the outcome: every step's
// expected result, item and column conservation after every step, and the
// scenario's assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: move_to_empty_column
//	description: "Dragging a card over an empty column moves it there"
//	board:
//	  columns: [A, B]
//	  items: { A: [i1, i2, i3], B: [] }
//	steps:
//	  - op: start
//	    id: i2
//	  - op: move
//	    at: { x: 320, y: 65 }
//	    expect: { found: true, container: B, index: 0 }
//	  - op: end
//	    at: { x: 320, y: 65 }
//	    expect: { changed: true }
//	assertions:
//	  - type: commits
//	    calls:
//	      - { op: move, item: i2, from: A, to: B, index: 0 }
//	  - type: final_order
//	    container: B
//	    items: [i2]
//
// board_file may replace board with a CUE board definition (see
// internal/boardspec).
//
// # Assertion Types
//
//   - trace_contains: an action appears in the trace with matching args
//   - trace_order: actions appear in the specified order
//   - trace_count: an action appears exactly N times
//   - final_order: a container (or "$columns") ends in the given order
//   - commits: the persister saw exactly these calls
//   - final_state: queries a journal table and verifies expected values
//
// Trace actions are "<kind>:<name>": event:drag_move, transition:settling,
// evaluation:pointer, diagnostic:NOT_ACTIVE, commit:reorder.
//
// # Deterministic Testing
//
// Every scenario runs with a fresh testutil.DeterministicClock, sequential
// session tokens (drag-1, drag-2, ...) and an in-memory journal, so traces
// are identical across runs and can be compared against golden files.
package harness
