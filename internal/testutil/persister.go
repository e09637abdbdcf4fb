package testutil

import (
	"sync"

	"github.com/roach88/dragboard/internal/board"
)

// Call ops recorded by RecordingPersister.
const (
	OpReorder = "reorder"
	OpMove    = "move"
)

// Call is one persister notification. Reorders leave From empty and carry
// the container in To.
type Call struct {
	Op    string            `yaml:"op" json:"op"`
	Item  board.ItemID      `yaml:"item" json:"item"`
	From  board.ContainerID `yaml:"from,omitempty" json:"from,omitempty"`
	To    board.ContainerID `yaml:"to" json:"to"`
	Index int               `yaml:"index" json:"index"`
}

// RecordingPersister records every OnReorder and OnMove call in order. It
// satisfies engine.Persister.
type RecordingPersister struct {
	mu    sync.Mutex
	calls []Call
}

// NewRecordingPersister creates an empty recorder.
func NewRecordingPersister() *RecordingPersister {
	return &RecordingPersister{}
}

// OnReorder records a same-container reorder.
func (p *RecordingPersister) OnReorder(container board.ContainerID, item board.ItemID, newIndex int) {
	p.record(Call{Op: OpReorder, Item: item, To: container, Index: newIndex})
}

// OnMove records a cross-container move.
func (p *RecordingPersister) OnMove(item board.ItemID, from, to board.ContainerID, newIndex int) {
	p.record(Call{Op: OpMove, Item: item, From: from, To: to, Index: newIndex})
}

func (p *RecordingPersister) record(c Call) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, c)
}

// Calls returns a copy of the recorded calls.
func (p *RecordingPersister) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset forgets every recorded call.
func (p *RecordingPersister) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}
