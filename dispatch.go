package xevent

import "math"

// Tick advances the time base by one unit and runs one dispatch pass. It is
// the only entry point a tick source calls. Concurrent calls serialize; a
// callback must not call Tick.
func (c *Controller) Tick() {
	if c.closed.Load() {
		return
	}
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	if c.closed.Load() {
		return
	}

	now := c.timebase.Tick()
	c.metrics.ticks.Add(1)

	start := c.clock.Now()
	for i := range c.slots {
		c.dispatchSlot(i, now)
	}
	c.recordDispatchTime(c.clock.Since(start).Nanoseconds())
}

// dispatchSlot handles one slot of the pass. The slot is inspected and
// updated under mu; callbacks run after mu is released.
func (c *Controller) dispatchSlot(i int, now uint32) {
	c.mu.Lock()
	s := &c.slots[i]
	if s.free || s.stopping || s.time > now {
		c.mu.Unlock()
		return
	}

	if !s.infinite && s.inc >= s.count {
		stop, id, arg := c.beginRemoveLocked(i)
		c.mu.Unlock()
		c.finishRemove(i, id, arg, stop, now, Exhausted)
		return
	}

	var skipped uint32
	if s.period > 0 {
		s.time, skipped = catchUp(s.time, s.period, now)
	}
	id := c.idLocked(i)

	if !s.enabled {
		due := s.time
		c.mu.Unlock()
		if skipped > 0 {
			c.metrics.skippedPeriods.Add(uint64(skipped))
			c.notify(Notification{Type: CaughtUp, ID: id, Now: now, Time: due, Skipped: skipped})
		}
		return
	}

	var start Callback
	first := s.inc == 0
	if first {
		start = s.start
	}
	cb, arg, due := s.callback, s.arg, s.time
	if s.inc < math.MaxUint32 {
		s.inc++
	}
	inc := s.inc
	c.mu.Unlock()

	if skipped > 0 {
		c.metrics.skippedPeriods.Add(uint64(skipped))
		c.notify(Notification{Type: CaughtUp, ID: id, Now: now, Time: due, Inc: inc, Arg: arg, Skipped: skipped})
	}
	if first {
		c.invoke(Invocation{ID: id, Kind: CallbackStart, Arg: arg, Now: now}, start)
		c.metrics.started.Add(1)
		c.notify(Notification{Type: Started, ID: id, Now: now, Time: due, Inc: inc, Arg: arg})

		// the start callback may have removed or disabled the event
		c.mu.Lock()
		live := c.validLocked(id) && c.slots[i].enabled
		c.mu.Unlock()
		if !live {
			return
		}
	}
	c.invoke(Invocation{ID: id, Kind: CallbackMain, Arg: arg, Now: now}, cb)
	c.metrics.fired.Add(1)
	c.notify(Notification{Type: Fired, ID: id, Now: now, Time: due, Inc: inc, Arg: arg})
}

// catchUp returns the first time strictly after now reachable from t in
// whole periods, and how many of those periods were passed over without a
// firing. Requires t <= now and period > 0.
func catchUp(t, period, now uint32) (next uint32, skipped uint32) {
	steps := uint64(now-t)/uint64(period) + 1
	n := uint64(t) + steps*uint64(period)
	// past MaxUint32 the due time wraps, like the time base itself
	return uint32(n & math.MaxUint32), uint32(steps - 1)
}
