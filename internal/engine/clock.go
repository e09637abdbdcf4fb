package engine

import "sync/atomic"

// Sequencer hands out the seq stamped on each input event. Clock is the
// production implementation; tests may substitute a resettable one.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is the logical clock that stamps every input event with a strictly
// increasing seq. Traces and journals order by seq, never by wall time, so a
// replayed session yields the same numbering as the original run.
//
// Clock is safe for concurrent use, though only the engine's goroutine
// normally advances it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose first Next returns start+1.
// Replay uses it to resume numbering where a journaled session began.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last seq handed out, without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
