package xevent

import "sync"

// TimeBase is the controller's time-unit counter. Every read and write goes
// through the same critical section, so a tick landing mid-read can never
// produce a torn or stale value.
//
// The counter wraps at math.MaxUint32. Due-time comparisons that span the
// wrap are not handled.
type TimeBase struct {
	mu  sync.Mutex
	now uint32
}

// NewTimeBase returns a time base starting at start.
func NewTimeBase(start uint32) *TimeBase {
	return &TimeBase{now: start}
}

// Now returns the current time unit.
func (tb *TimeBase) Now() uint32 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.now
}

// Set overwrites the counter.
func (tb *TimeBase) Set(t uint32) {
	tb.mu.Lock()
	tb.now = t
	tb.mu.Unlock()
}

// Tick advances the counter by one unit and returns the new value.
func (tb *TimeBase) Tick() uint32 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.now++
	return tb.now
}
