package xevent

// beginRemoveLocked marks slot i as stopping and returns what the stop
// callback needs. The slot stays claimed until finishRemove, so no other
// remover or the dispatch pass can run its stop callback a second time.
func (c *Controller) beginRemoveLocked(i int) (Callback, EventID, int) {
	s := &c.slots[i]
	s.stopping = true
	s.enabled = false
	return s.stop, c.idLocked(i), s.arg
}

// finishRemove runs the stop callback synchronously, then frees the slot.
func (c *Controller) finishRemove(i int, id EventID, arg int, stop Callback, now uint32, kind NotificationType) {
	c.invoke(Invocation{ID: id, Kind: CallbackStop, Arg: arg, Now: now}, stop)

	c.mu.Lock()
	gen := c.slots[i].generation
	c.slots[i] = slot{free: true, arg: -1, generation: gen}
	c.mu.Unlock()

	if kind == Exhausted {
		c.metrics.exhausted.Add(1)
	} else {
		c.metrics.stopped.Add(1)
	}
	c.notify(Notification{Type: kind, ID: id, Now: now, Arg: arg})
}

// discard frees a slot the caller never received a handle for. No stop
// callback can be bound yet, so it skips the stop path and its telemetry.
func (c *Controller) discard(id EventID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validLocked(id) {
		return
	}
	gen := c.slots[id.Index].generation
	c.slots[id.Index] = slot{free: true, arg: -1, generation: gen}
}

func (c *Controller) rejectHandle(id EventID) {
	c.metrics.invalidHandle.Add(1)
	c.notify(Notification{Type: InvalidHandle, ID: id, Now: c.timebase.Now()})
}

func (c *Controller) setEnabled(id EventID, enabled bool) bool {
	c.mu.Lock()
	if !c.validLocked(id) {
		c.mu.Unlock()
		c.rejectHandle(id)
		return false
	}
	s := &c.slots[id.Index]
	s.enabled = enabled
	due, arg := s.time, s.arg
	c.mu.Unlock()

	typ := Disabled
	if enabled {
		typ = Enabled
	}
	c.notify(Notification{Type: typ, ID: id, Now: c.timebase.Now(), Time: due, Arg: arg})
	return true
}

// Enable lets the dispatch pass fire the event. Returns false, changing
// nothing, when id is invalid or stale.
func (c *Controller) Enable(id EventID) bool { return c.setEnabled(id, true) }

// Disable stops the event from firing. Its schedule keeps pace with the time
// base, but it never completes by count and so is never reclaimed on its own.
func (c *Controller) Disable(id EventID) bool { return c.setEnabled(id, false) }

// Remove runs the event's stop callback, if any, exactly once and frees the
// slot. id is invalid afterwards.
func (c *Controller) Remove(id EventID) bool {
	c.mu.Lock()
	if !c.validLocked(id) {
		c.mu.Unlock()
		c.rejectHandle(id)
		return false
	}
	stop, _, arg := c.beginRemoveLocked(id.Index)
	c.mu.Unlock()

	c.finishRemove(id.Index, id, arg, stop, c.timebase.Now(), Stopped)
	return true
}

func (c *Controller) EnablePair(p EventIDPair) {
	c.Enable(p.First)
	c.Enable(p.Second)
}

func (c *Controller) DisablePair(p EventIDPair) {
	c.Disable(p.First)
	c.Disable(p.Second)
}

// RemovePair removes each half independently, so one stale half does not
// keep the other alive.
func (c *Controller) RemovePair(p EventIDPair) {
	c.Remove(p.First)
	c.Remove(p.Second)
}

func (c *Controller) setEnabledAt(index int, enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.slots) {
		return false
	}
	s := &c.slots[index]
	if s.free || s.stopping {
		return false
	}
	s.enabled = enabled
	return true
}

// EnableAt enables whatever occupies slot index, without a handle check.
func (c *Controller) EnableAt(index int) bool { return c.setEnabledAt(index, true) }

// DisableAt disables whatever occupies slot index, without a handle check.
func (c *Controller) DisableAt(index int) bool { return c.setEnabledAt(index, false) }

// RemoveAt removes whatever occupies slot index, without a handle check.
func (c *Controller) RemoveAt(index int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.slots) {
		c.mu.Unlock()
		return false
	}
	s := &c.slots[index]
	if s.free || s.stopping {
		c.mu.Unlock()
		return false
	}
	stop, id, arg := c.beginRemoveLocked(index)
	c.mu.Unlock()

	c.finishRemove(index, id, arg, stop, c.timebase.Now(), Stopped)
	return true
}

// RemoveAllEvents removes every slot by index and returns how many were occupied.
func (c *Controller) RemoveAllEvents() int {
	n := 0
	for i := range c.slots {
		if c.RemoveAt(i) {
			n++
		}
	}
	return n
}

func (c *Controller) attach(id EventID, cb Callback, kind CallbackKind) bool {
	c.mu.Lock()
	if !c.validLocked(id) {
		c.mu.Unlock()
		c.rejectHandle(id)
		return false
	}
	s := &c.slots[id.Index]
	if kind == CallbackStart {
		s.start = cb
	} else {
		s.stop = cb
	}
	c.mu.Unlock()
	return true
}

// AddStartCallback binds cb to run once, just before the first enabled firing.
func (c *Controller) AddStartCallback(id EventID, cb Callback) bool {
	return c.attach(id, cb, CallbackStart)
}

// AddStopCallback binds cb to run once, when the slot is reclaimed by
// Remove or by exhaustion.
func (c *Controller) AddStopCallback(id EventID, cb Callback) bool {
	return c.attach(id, cb, CallbackStop)
}

func (c *Controller) AddStartCallbackPair(p EventIDPair, cb Callback) {
	c.AddStartCallback(p.First, cb)
	c.AddStartCallback(p.Second, cb)
}

func (c *Controller) AddStopCallbackPair(p EventIDPair, cb Callback) {
	c.AddStopCallback(p.First, cb)
	c.AddStopCallback(p.Second, cb)
}

// SetEventArgToEventIndex rewrites the event's argument to its slot index.
func (c *Controller) SetEventArgToEventIndex(id EventID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validLocked(id) {
		return false
	}
	c.slots[id.Index].arg = id.Index
	return true
}

func (c *Controller) eventLocked(i int) Event {
	s := &c.slots[i]
	if s.free {
		e := emptyEvent()
		e.Generation = s.generation
		return e
	}
	return Event{
		Free:          false,
		Enabled:       s.enabled,
		Infinite:      s.infinite,
		TimeStart:     s.timeStart,
		Time:          s.time,
		Period:        s.period,
		Count:         s.count,
		Inc:           s.inc,
		Arg:           s.arg,
		Generation:    s.generation,
		Callback:      s.callback,
		StartCallback: s.start,
		StopCallback:  s.stop,
	}
}

// GetEvent returns a copy of the event id refers to, or the empty record
// when id is invalid.
func (c *Controller) GetEvent(id EventID) Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.validLocked(id) {
		return emptyEvent()
	}
	return c.eventLocked(id.Index)
}

// GetEventAt returns a copy of slot index, or the empty record when out of range.
func (c *Controller) GetEventAt(index int) Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.slots) {
		return emptyEvent()
	}
	return c.eventLocked(index)
}

func (c *Controller) countLocked() (occupied, active int) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.free {
			continue
		}
		occupied++
		if s.enabled {
			active++
		}
	}
	return occupied, active
}

// CountActiveEvents counts slots that are occupied and enabled.
func (c *Controller) CountActiveEvents() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, active := c.countLocked()
	return active
}

// ActiveEvents reports whether any event is occupied and enabled.
func (c *Controller) ActiveEvents() bool { return c.CountActiveEvents() > 0 }

// Snapshot copies the whole table under one lock.
func (c *Controller) Snapshot() Snapshot {
	now := c.timebase.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	occupied, active := c.countLocked()
	events := make([]Event, len(c.slots))
	for i := range c.slots {
		events[i] = c.eventLocked(i)
	}
	return Snapshot{
		Now:      now,
		Capacity: len(c.slots),
		Occupied: occupied,
		Active:   active,
		Events:   events,
	}
}
