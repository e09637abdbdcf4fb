package engine

import (
	"sync"

	"github.com/roach88/dragboard/internal/collision"
)

// EventType distinguishes the input adapter's events.
type EventType string

const (
	// EventDragStart starts a session for Event.ID.
	EventDragStart EventType = "drag_start"
	// EventDragMove carries the current geometry and dragged rectangle.
	EventDragMove EventType = "drag_move"
	// EventDragEnd carries the geometry at release.
	EventDragEnd EventType = "drag_end"
	// EventDragCancel aborts the session (escape, window blur, ...).
	EventDragCancel EventType = "drag_cancel"
)

// Event is one input from the host's input adapter. Seq and Session are
// assigned by the engine when the event is handled; values set by the sender
// are replaced.
type Event struct {
	Seq      int64              `json:"seq" cbor:"seq"`
	Session  string             `json:"session,omitempty" cbor:"s,omitempty"`
	Type     EventType          `json:"type" cbor:"t"`
	ID       string             `json:"id,omitempty" cbor:"id,omitempty"`
	Geometry collision.Geometry `json:"geometry" cbor:"g"`
	Dragged  collision.Rect     `json:"dragged" cbor:"d"`
}

// StartEvent returns a drag_start event for id.
func StartEvent(id string) Event {
	return Event{Type: EventDragStart, ID: id}
}

// MoveEvent returns a drag_move event.
func MoveEvent(g collision.Geometry, dragged collision.Rect) Event {
	return Event{Type: EventDragMove, Geometry: g, Dragged: dragged}
}

// EndEvent returns a drag_end event.
func EndEvent(g collision.Geometry) Event {
	return Event{Type: EventDragEnd, Geometry: g}
}

// CancelEvent returns a drag_cancel event.
func CancelEvent() Event {
	return Event{Type: EventDragCancel}
}

// eventQueue is a FIFO queue of input events.
//
// Input adapters may enqueue from any goroutine (a UI thread, a websocket
// reader); the Loop dequeues from exactly one. The queue is unbounded so a
// burst of pointer moves never blocks the sender.
//
// A buffered signal channel lets the Loop wait with context cancellation.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false once the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	e := q.events[0]

	// Drop the geometry reference held by the backing array.
	q.events[0] = Event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close stops accepting events and wakes the waiter.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
