package engine

import "github.com/roach88/dragboard/internal/board"

// Commit is the single notification produced by a settled gesture.
//
// From is the session's origin container and To the container the dragged
// entity ended in. Column drags use board.ColumnsID for both. Changed reports
// whether the container or the index actually differs from the origin.
type Commit struct {
	Session string            `json:"session,omitempty"`
	Item    string            `json:"item"`
	From    board.ContainerID `json:"from"`
	To      board.ContainerID `json:"to"`
	Index   int               `json:"index"`
	Changed bool              `json:"changed"`
}

// CrossContainer reports whether the gesture moved the item to another
// container.
func (c Commit) CrossContainer() bool {
	return c.From != c.To
}

// Committer receives exactly one Commit per settled gesture and none for
// cancelled ones. The engine does not wait on or observe the outcome.
type Committer interface {
	Commit(c Commit)
}

// CommitterFunc adapts a function to Committer.
type CommitterFunc func(c Commit)

// Commit calls f(c).
func (f CommitterFunc) Commit(c Commit) { f(c) }

// Persister is the external data layer. Both calls are advisory: the
// implementation persists the change (for example with an HTTP PATCH) and
// owns reconciling the board if persistence later fails.
//
// Persister methods run on the engine's goroutine. Implementations that do
// slow I/O should hand the work off and return.
type Persister interface {
	// OnReorder reports a same-container reorder.
	OnReorder(container board.ContainerID, item board.ItemID, newIndex int)
	// OnMove reports a cross-container move.
	OnMove(item board.ItemID, from, to board.ContainerID, newIndex int)
}

// MoveCommitter routes commits to a Persister: same-container commits become
// OnReorder, cross-container commits become OnMove.
type MoveCommitter struct {
	persister       Persister
	commitUnchanged bool
}

// NewMoveCommitter creates a MoveCommitter. With commitUnchanged false,
// gestures that end where they started are not forwarded.
func NewMoveCommitter(p Persister, commitUnchanged bool) *MoveCommitter {
	return &MoveCommitter{persister: p, commitUnchanged: commitUnchanged}
}

// Commit implements Committer.
func (m *MoveCommitter) Commit(c Commit) {
	if !c.Changed && !m.commitUnchanged {
		return
	}
	if c.CrossContainer() {
		m.persister.OnMove(board.ItemID(c.Item), c.From, c.To, c.Index)
		return
	}
	m.persister.OnReorder(c.To, board.ItemID(c.Item), c.Index)
}

// Persisters fans every notification out to each persister in order.
type Persisters []Persister

func (ps Persisters) OnReorder(container board.ContainerID, item board.ItemID, newIndex int) {
	for _, p := range ps {
		p.OnReorder(container, item, newIndex)
	}
}

func (ps Persisters) OnMove(item board.ItemID, from, to board.ContainerID, newIndex int) {
	for _, p := range ps {
		p.OnMove(item, from, to, newIndex)
	}
}
