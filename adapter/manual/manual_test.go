package manual

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trickstertwo/xevent"
)

func TestAdvance_BeforeStartDeliversNothing(t *testing.T) {
	s := New()
	assert.Equal(t, 0, s.Advance(3))
	assert.Zero(t, s.Delivered())
}

func TestAdvance_DrivesController(t *testing.T) {
	src := New()
	c, err := xevent.NewControllerBuilder().
		WithCapacity(4).
		WithObserverPool(0, 0).
		WithTickSourceInstance(src).
		Build()
	require.NoError(t, err)
	defer c.Close(context.Background())

	var fired []uint32
	id := c.AddRecurringEventUsingDelay(func(int) { fired = append(fired, c.Now()) }, 2, 3, 3, 0)
	require.True(t, c.Enable(id))
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, 10, src.Advance(10))
	assert.Equal(t, []uint32{2, 5, 8}, fired)
	assert.Equal(t, uint32(10), c.Now())
	// exhausted events are reclaimed on the pass after their last firing
	assert.True(t, c.Valid(id))

	src.Advance(1)
	assert.False(t, c.Valid(id))
	assert.Equal(t, uint64(11), src.Delivered())
}

func TestAdvance_StopsWithContext(t *testing.T) {
	src := New()
	ctx, cancel := context.WithCancel(context.Background())
	var n int
	require.NoError(t, src.Start(ctx, func() { n++ }))
	assert.Error(t, src.Start(ctx, func() {}))

	assert.Equal(t, 2, src.Advance(2))
	cancel()
	assert.Equal(t, 0, src.Advance(2))

	require.NoError(t, src.Stop())
	assert.Equal(t, 0, src.Advance(1))
	assert.Equal(t, 2, n)
}

func TestRegistered(t *testing.T) {
	s, err := xevent.NewTickSource(SourceName, nil)
	require.NoError(t, err)
	assert.IsType(t, &Source{}, s)
}
