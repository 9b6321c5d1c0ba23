package xevent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefault_Nil(t *testing.T) {
	assert.Panics(t, func() { SetDefault(nil) })
}

func TestFacade(t *testing.T) {
	c, _ := newTestController(t, 4)
	SetDefault(c)
	assert.Same(t, c, Default())

	var on, off []uint32
	var shots int
	id := AddEventUsingDelay(func(int) { shots++ }, 2, 0)
	require.True(t, Enable(id))
	rid := AddRecurringEventUsingDelay(noop, 1, 1, 1, 0)
	assert.True(t, Disable(rid))
	assert.True(t, Remove(rid))

	inf := AddInfiniteRecurringEventUsingDelay(noop, 1, 1, 0)
	p := AddPulseUsingDelay(
		func(int) { on = append(on, Now()) },
		func(int) { off = append(off, Now()) },
		1, 4, 2, 2, 0,
	)
	require.True(t, c.ValidPair(p))
	EnablePair(p)

	for i := 0; i < 8; i++ {
		Tick()
	}
	assert.Equal(t, 1, shots)
	assert.Equal(t, []uint32{1, 5}, on)
	assert.Equal(t, []uint32{3, 7}, off)

	RemovePair(p)
	assert.False(t, c.ValidPair(p))
	assert.True(t, c.Valid(inf))
	require.NoError(t, c.Close(context.Background()))
}
