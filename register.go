package xevent

// register claims the lowest free slot and fills it. New events are always
// disabled so the caller can attach start/stop callbacks before they go live.
func (c *Controller) register(cb Callback, time, period, count uint32, infinite bool, arg int) EventID {
	timeStart := c.timebase.Now()
	if cb == nil || c.closed.Load() {
		c.metrics.rejected.Add(1)
		return c.invalidID(timeStart)
	}

	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		c.metrics.rejected.Add(1)
		return c.invalidID(timeStart)
	}
	i := c.findFreeSlotLocked()
	if i == len(c.slots) {
		c.mu.Unlock()
		c.metrics.rejected.Add(1)
		c.notify(Notification{Type: CapacityExhausted, ID: c.invalidID(timeStart), Now: timeStart, Time: time, Arg: arg})
		return c.invalidID(timeStart)
	}
	s := &c.slots[i]
	gen := s.generation + 1
	*s = slot{
		timeStart:  timeStart,
		time:       time,
		period:     period,
		count:      count,
		infinite:   infinite,
		arg:        arg,
		generation: gen,
		callback:   cb,
	}
	id := c.idLocked(i)
	c.mu.Unlock()

	c.metrics.registered.Add(1)
	c.notify(Notification{Type: Registered, ID: id, Now: timeStart, Time: time, Arg: arg})
	return id
}

// originTime reads the origin's live due time, not its registered one, so
// chained events follow any catch-up the origin has gone through.
func (c *Controller) originTime(origin EventID, offset uint32) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validLocked(origin) {
		return 0, false
	}
	return c.slots[origin.Index].time + offset, true
}

func (c *Controller) rejectOrigin(origin EventID) EventID {
	now := c.timebase.Now()
	c.metrics.rejected.Add(1)
	c.metrics.invalidHandle.Add(1)
	c.notify(Notification{Type: InvalidHandle, ID: origin, Now: now})
	return c.invalidID(now)
}

// AddEvent schedules a one-shot event at time 0, due on the next tick.
func (c *Controller) AddEvent(cb Callback, arg int) EventID {
	return c.AddEventUsingTime(cb, 0, arg)
}

// AddRecurringEvent schedules count firings every period, starting on the next tick.
func (c *Controller) AddRecurringEvent(cb Callback, period, count uint32, arg int) EventID {
	return c.AddRecurringEventUsingTime(cb, 0, period, count, arg)
}

// AddInfiniteRecurringEvent schedules a firing every period, starting on the next tick.
func (c *Controller) AddInfiniteRecurringEvent(cb Callback, period uint32, arg int) EventID {
	return c.AddInfiniteRecurringEventUsingTime(cb, 0, period, arg)
}

// AddEventUsingTime schedules a one-shot event at an absolute time.
func (c *Controller) AddEventUsingTime(cb Callback, time uint32, arg int) EventID {
	return c.register(cb, time, 0, 1, false, arg)
}

// AddRecurringEventUsingTime schedules up to count firings at time,
// time+period, time+2*period and so on.
func (c *Controller) AddRecurringEventUsingTime(cb Callback, time, period, count uint32, arg int) EventID {
	return c.register(cb, time, period, count, false, arg)
}

// AddInfiniteRecurringEventUsingTime schedules firings every period from time
// until the event is removed.
func (c *Controller) AddInfiniteRecurringEventUsingTime(cb Callback, time, period uint32, arg int) EventID {
	return c.register(cb, time, period, 0, true, arg)
}

func (c *Controller) AddEventUsingDelay(cb Callback, delay uint32, arg int) EventID {
	return c.AddEventUsingTime(cb, c.timebase.Now()+delay, arg)
}

func (c *Controller) AddRecurringEventUsingDelay(cb Callback, delay, period, count uint32, arg int) EventID {
	return c.AddRecurringEventUsingTime(cb, c.timebase.Now()+delay, period, count, arg)
}

func (c *Controller) AddInfiniteRecurringEventUsingDelay(cb Callback, delay, period uint32, arg int) EventID {
	return c.AddInfiniteRecurringEventUsingTime(cb, c.timebase.Now()+delay, period, arg)
}

// AddEventUsingOffset schedules a one-shot event offset from origin's current
// due time. An invalid origin yields the invalid id.
func (c *Controller) AddEventUsingOffset(cb Callback, origin EventID, offset uint32, arg int) EventID {
	t, ok := c.originTime(origin, offset)
	if !ok {
		return c.rejectOrigin(origin)
	}
	return c.AddEventUsingTime(cb, t, arg)
}

func (c *Controller) AddRecurringEventUsingOffset(cb Callback, origin EventID, offset, period, count uint32, arg int) EventID {
	t, ok := c.originTime(origin, offset)
	if !ok {
		return c.rejectOrigin(origin)
	}
	return c.AddRecurringEventUsingTime(cb, t, period, count, arg)
}

func (c *Controller) AddInfiniteRecurringEventUsingOffset(cb Callback, origin EventID, offset, period uint32, arg int) EventID {
	t, ok := c.originTime(origin, offset)
	if !ok {
		return c.rejectOrigin(origin)
	}
	return c.AddInfiniteRecurringEventUsingTime(cb, t, period, arg)
}
