package xevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(int) {}

func TestRegister_FillsLowestFreeSlotDisabled(t *testing.T) {
	c, rec := newTestController(t, 3)
	c.SetTime(7)

	id := c.AddRecurringEventUsingTime(noop, 20, 5, 4, 99)
	require.True(t, c.Valid(id))
	assert.Equal(t, 0, id.Index)
	assert.Equal(t, uint32(7), id.TimeStart)

	e := c.GetEvent(id)
	assert.False(t, e.Free)
	assert.False(t, e.Enabled)
	assert.False(t, e.Infinite)
	assert.Equal(t, uint32(20), e.Time)
	assert.Equal(t, uint32(5), e.Period)
	assert.Equal(t, uint32(4), e.Count)
	assert.Equal(t, uint32(0), e.Inc)
	assert.Equal(t, 99, e.Arg)
	assert.NotNil(t, e.Callback)

	regs := rec.of(Registered)
	require.Len(t, regs, 1)
	assert.Equal(t, id, regs[0].ID)
}

func TestRegister_CapacityExhausted(t *testing.T) {
	c, rec := newTestController(t, 3)

	seen := map[int]bool{}
	for i := 0; i < 3; i++ {
		id := c.AddEvent(noop, i)
		require.True(t, c.Valid(id))
		seen[id.Index] = true
	}
	assert.Len(t, seen, 3)

	id := c.AddEvent(noop, 3)
	assert.False(t, c.Valid(id))
	assert.Equal(t, 3, id.Index)
	assert.Equal(t, emptyEvent(), c.GetEvent(id))
	assert.Len(t, rec.of(CapacityExhausted), 1)
	assert.Equal(t, uint64(1), c.GetMetrics().Rejected)

	// a failed registration leaves the table untouched
	assert.Equal(t, 3, c.Snapshot().Occupied)
}

func TestRegister_ReusesFreedSlotWithNewGeneration(t *testing.T) {
	c, _ := newTestController(t, 3)
	a := c.AddEvent(noop, 0)
	b := c.AddEvent(noop, 1)
	c.AddEvent(noop, 2)

	require.True(t, c.Remove(b))
	d := c.AddEvent(noop, 3)

	assert.Equal(t, b.Index, d.Index)
	assert.Equal(t, b.TimeStart, d.TimeStart)
	assert.NotEqual(t, b.Generation, d.Generation)
	assert.False(t, c.Valid(b))
	assert.True(t, c.Valid(d))
	assert.True(t, c.Valid(a))

	// the stale handle must not reach the new occupant
	assert.False(t, c.Enable(b))
	assert.False(t, c.GetEvent(d).Enabled)

	require.True(t, c.Enable(d))
	before := c.GetEvent(d)
	assert.False(t, c.Disable(b))
	assert.False(t, c.Remove(b))
	assert.False(t, c.AddStopCallback(b, noop))
	assert.True(t, c.Valid(d))
	after := c.GetEvent(d)
	assert.True(t, after.Enabled)
	assert.Equal(t, 3, after.Arg)
	assert.Equal(t, before.Generation, after.Generation)
	assert.Nil(t, after.StopCallback)
}

func TestRegister_TimeZeroVariants(t *testing.T) {
	c, _ := newTestController(t, 3)
	c.SetTime(10)

	one := c.AddEvent(noop, 0)
	rec := c.AddRecurringEvent(noop, 4, 2, 0)
	inf := c.AddInfiniteRecurringEvent(noop, 3, 0)

	assert.Equal(t, uint32(0), c.GetEvent(one).Time)
	assert.Equal(t, uint32(1), c.GetEvent(one).Count)
	assert.Equal(t, uint32(4), c.GetEvent(rec).Period)
	assert.True(t, c.GetEvent(inf).Infinite)
	assert.Equal(t, uint32(0), c.GetEvent(inf).Count)
}

func TestRegister_UsingDelay(t *testing.T) {
	c, _ := newTestController(t, 3)
	c.SetTime(100)

	a := c.AddEventUsingDelay(noop, 5, 0)
	b := c.AddRecurringEventUsingDelay(noop, 10, 3, 2, 0)
	d := c.AddInfiniteRecurringEventUsingDelay(noop, 0, 1, 0)

	assert.Equal(t, uint32(105), c.GetEvent(a).Time)
	assert.Equal(t, uint32(100), c.GetEvent(a).TimeStart)
	assert.Equal(t, uint32(110), c.GetEvent(b).Time)
	assert.Equal(t, uint32(100), c.GetEvent(d).Time)
}

func TestRegister_UsingOffset(t *testing.T) {
	c, _ := newTestController(t, 4)

	origin := c.AddRecurringEventUsingTime(noop, 50, 10, 3, 0)
	a := c.AddEventUsingOffset(noop, origin, 10, 0)
	b := c.AddRecurringEventUsingOffset(noop, origin, 3, 10, 3, 0)
	d := c.AddInfiniteRecurringEventUsingOffset(noop, origin, 0, 10, 0)

	assert.Equal(t, uint32(60), c.GetEvent(a).Time)
	assert.Equal(t, uint32(53), c.GetEvent(b).Time)
	assert.Equal(t, uint32(50), c.GetEvent(d).Time)
}

func TestRegister_OffsetFollowsOriginCatchUp(t *testing.T) {
	c, _ := newTestController(t, 3)
	origin := c.AddInfiniteRecurringEventUsingTime(noop, 5, 10, 0)
	tickN(c, 7)

	// origin has moved on to 15
	a := c.AddEventUsingOffset(noop, origin, 2, 0)
	assert.Equal(t, uint32(17), c.GetEvent(a).Time)
}

func TestRegister_InvalidOrigin(t *testing.T) {
	c, rec := newTestController(t, 3)
	origin := c.AddEvent(noop, 0)
	require.True(t, c.Remove(origin))

	id := c.AddEventUsingOffset(noop, origin, 1, 0)
	assert.False(t, c.Valid(id))
	assert.Equal(t, c.Capacity(), id.Index)
	assert.Len(t, rec.of(InvalidHandle), 1)

	bogus := EventID{Index: 42}
	assert.False(t, c.Valid(c.AddRecurringEventUsingOffset(noop, bogus, 1, 1, 1, 0)))
	assert.False(t, c.Valid(c.AddInfiniteRecurringEventUsingOffset(noop, bogus, 1, 1, 0)))
	assert.Equal(t, 0, c.Snapshot().Occupied)
}

func TestRegister_NilCallbackRejected(t *testing.T) {
	c, _ := newTestController(t, 2)
	id := c.AddEvent(nil, 0)
	assert.False(t, c.Valid(id))
	assert.Equal(t, 0, c.Snapshot().Occupied)
}
