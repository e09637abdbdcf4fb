// Package engine implements the drag session state machine.
//
// An Engine owns one board.Board and runs at most one drag session at a time:
//
//	Idle → Active → Settling → Idle      drop on a target
//	Idle → Active → Cancelled → Idle     cancel, or drop with no target
//
// Event flow:
//  1. drag_start records the dragged id, its origin, and a snapshot of the board.
//  2. drag_move asks the collision.Resolver for a target. When the target lies
//     in another container the item is moved there at once (optimistic move).
//     Same-container targets are only remembered.
//  3. drag_end resolves once more, applies the final in-container reorder,
//     classifies the gesture against its origin, and hands exactly one Commit
//     to the Committer.
//  4. drag_cancel (or a drop with no target) restores the snapshot and commits
//     nothing.
//
// Column drags share the machine; their container is the synthetic
// board.ColumnsID sequence and they never move optimistically.
//
// Every input event is stamped with a seq from the logical Clock. Observers
// see the event, each state transition, each collision evaluation, and every
// Diagnostic under that seq. NEVER use wall-clock time to order them.
//
// Loop puts a FIFO queue in front of the engine so that input adapters on
// other goroutines are handled in arrival order by a single writer.
package engine
