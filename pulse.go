package xevent

// Pulse pairs are two chained recurring events sharing a period: the first
// fires on at the base schedule, the second fires off onDuration later. The
// second half is placed with the offset primitive, from the first half's live
// due time. onDuration must be smaller than period; nothing checks it.
//
// Both halves start disabled. Allocation is all-or-nothing: when the second
// half does not fit, the first is released without passing through the stop
// path and both ids are invalid.

// AddPulseUsingTime builds a pulse pair whose first on-edge is at time.
func (c *Controller) AddPulseUsingTime(on, off Callback, time, period, onDuration, count uint32, arg int) EventIDPair {
	first := c.AddRecurringEventUsingTime(on, time, period, count, arg)
	if !c.Valid(first) {
		return c.invalidPair(first.TimeStart)
	}
	second := c.AddRecurringEventUsingOffset(off, first, onDuration, period, count, arg)
	return c.settlePair(first, second)
}

func (c *Controller) AddPulseUsingDelay(on, off Callback, delay, period, onDuration, count uint32, arg int) EventIDPair {
	return c.AddPulseUsingTime(on, off, c.timebase.Now()+delay, period, onDuration, count, arg)
}

// AddPulseUsingOffset anchors the pair's first on-edge at origin's current
// due time plus offset.
func (c *Controller) AddPulseUsingOffset(on, off Callback, origin EventID, offset, period, onDuration, count uint32, arg int) EventIDPair {
	t, ok := c.originTime(origin, offset)
	if !ok {
		inv := c.rejectOrigin(origin)
		return c.invalidPair(inv.TimeStart)
	}
	return c.AddPulseUsingTime(on, off, t, period, onDuration, count, arg)
}

// AddInfinitePulseUsingTime builds a pulse pair that repeats until removed.
func (c *Controller) AddInfinitePulseUsingTime(on, off Callback, time, period, onDuration uint32, arg int) EventIDPair {
	first := c.AddInfiniteRecurringEventUsingTime(on, time, period, arg)
	if !c.Valid(first) {
		return c.invalidPair(first.TimeStart)
	}
	second := c.AddInfiniteRecurringEventUsingOffset(off, first, onDuration, period, arg)
	return c.settlePair(first, second)
}

func (c *Controller) AddInfinitePulseUsingDelay(on, off Callback, delay, period, onDuration uint32, arg int) EventIDPair {
	return c.AddInfinitePulseUsingTime(on, off, c.timebase.Now()+delay, period, onDuration, arg)
}

func (c *Controller) AddInfinitePulseUsingOffset(on, off Callback, origin EventID, offset, period, onDuration uint32, arg int) EventIDPair {
	t, ok := c.originTime(origin, offset)
	if !ok {
		inv := c.rejectOrigin(origin)
		return c.invalidPair(inv.TimeStart)
	}
	return c.AddInfinitePulseUsingTime(on, off, t, period, onDuration, arg)
}

func (c *Controller) settlePair(first, second EventID) EventIDPair {
	if c.Valid(second) {
		return EventIDPair{First: first, Second: second}
	}
	c.discard(first)
	return c.invalidPair(first.TimeStart)
}
