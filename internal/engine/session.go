package engine

import (
	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/collision"
)

// State is the lifecycle state of the drag engine.
//
//	Idle → Active → Settling → Idle      (drop on a target)
//	Idle → Active → Cancelled → Idle     (cancel, or drop with no target)
//
// Settling and Cancelled are transient: they are entered and left within a
// single event and are only visible to observers.
type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateSettling  State = "settling"
	StateCancelled State = "cancelled"
)

// Session describes the drag in progress.
type Session struct {
	Token string `json:"token"`

	// Dragged is the item id, or the column id for column drags.
	Dragged     string `json:"dragged"`
	IsContainer bool   `json:"is_container"`

	// Origin is where the drag started. It never changes during a session;
	// for column drags it is board.ColumnsID.
	Origin      board.ContainerID `json:"origin"`
	OriginIndex int               `json:"origin_index"`

	// Rect is the last dragged rectangle reported by drag_move.
	Rect collision.Rect `json:"rect"`

	// Target is the current candidate, if any evaluation produced one.
	Target *collision.Target `json:"target,omitempty"`

	// Moves counts the optimistic cross-container mutations applied so far.
	Moves int `json:"moves"`

	snapshot board.State

	// pointer is the pointer position of the last drag_move, if it had one.
	pointer    collision.Point
	hasPointer bool
}

// follow translates Rect by the pointer's travel since the last move. Drop
// events carry no dragged rectangle of their own.
func (s *Session) follow(g collision.Geometry) {
	if !g.HasPointer {
		return
	}
	if s.hasPointer {
		s.Rect = s.Rect.Translate(g.Pointer.X-s.pointer.X, g.Pointer.Y-s.pointer.Y)
	}
	s.pointer, s.hasPointer = g.Pointer, true
}

func (s *Session) active() collision.Active {
	return collision.Active{ID: s.Dragged, IsContainer: s.IsContainer, Rect: s.Rect}
}

// Transition records one state change for observers.
type Transition struct {
	Seq     int64  `json:"seq"`
	Session string `json:"session"`
	From    State  `json:"from"`
	To      State  `json:"to"`
	Dragged string `json:"dragged"`
	// Board is the ordering state when entering Active and when returning
	// to Idle. Nil for the transient steps in between.
	Board *board.State `json:"board,omitempty"`
}

// Evaluation records one collision evaluation for observers.
type Evaluation struct {
	Seq     int64            `json:"seq"`
	Session string           `json:"session"`
	Target  collision.Target `json:"target"`
	Found   bool             `json:"found"`
	// Applied is set when the evaluation caused an optimistic
	// cross-container move.
	Applied bool `json:"applied"`
}

// Outcome is the result of a finished gesture.
type Outcome struct {
	Commit
	Cancelled bool   `json:"cancelled"`
	Reason    string `json:"reason,omitempty"`
	// Corrupt is set when the rollback of a cancelled session failed.
	Corrupt bool `json:"corrupt,omitempty"`
}
