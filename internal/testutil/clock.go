package testutil

import "sync/atomic"

// SeqClock hands out run sequence numbers starting after a fixed base.
// It satisfies store.Clock, so runs saved in a test get seq values that do
// not depend on what the cache already holds.
type SeqClock struct {
	base int64
	seq  atomic.Int64
}

// NewSeqClock returns a clock whose first Next() is base+1.
func NewSeqClock(base int64) *SeqClock {
	c := &SeqClock{base: base}
	c.seq.Store(base)
	return c
}

// Next returns the next sequence number. Safe for concurrent use.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Last returns the most recent value handed out, or base if none.
func (c *SeqClock) Last() int64 {
	return c.seq.Load()
}

// Rewind restarts the clock at its base.
func (c *SeqClock) Rewind() {
	c.seq.Store(c.base)
}
