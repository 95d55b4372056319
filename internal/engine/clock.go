package engine

import "sync/atomic"

// SeqSource hands out strictly increasing sequence numbers.
// Implemented by Clock and testutil.DeterministicClock.
type SeqSource interface {
	Next() int64
}

// Clock is a monotonic logical clock used to order effect writes.
//
// Safe for concurrent use, although guards are only ticked from the
// runner goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, for appending to an
// effect log that already holds entries.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
