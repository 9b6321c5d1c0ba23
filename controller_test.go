package xevent

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects notifications; safe for use from the tick goroutine.
type recorder struct {
	mu sync.Mutex
	ns []Notification
}

func (r *recorder) OnNotification(n Notification) {
	r.mu.Lock()
	r.ns = append(r.ns, n)
	r.mu.Unlock()
}

func (r *recorder) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.ns))
	copy(out, r.ns)
	return out
}

func (r *recorder) of(t NotificationType) []Notification {
	var out []Notification
	for _, n := range r.all() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// newTestController builds a controller whose observers run inline so
// notifications are visible as soon as the call that raised them returns.
func newTestController(t *testing.T, capacity int) (*Controller, *recorder) {
	t.Helper()
	rec := &recorder{}
	c, err := NewControllerBuilder().
		WithCapacity(capacity).
		WithObserverPool(0, 0).
		WithObserver(rec).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, rec
}

func tickN(c *Controller, n int) {
	for i := 0; i < n; i++ {
		c.Tick()
	}
}

func TestTimeBase(t *testing.T) {
	tb := NewTimeBase(5)
	assert.Equal(t, uint32(5), tb.Now())
	assert.Equal(t, uint32(6), tb.Tick())

	tb.Set(^uint32(0))
	assert.Equal(t, uint32(0), tb.Tick())
}

func TestTimeBase_ConcurrentTicks(t *testing.T) {
	tb := NewTimeBase(0)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tb.Tick()
				_ = tb.Now()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(8000), tb.Now())
}

func TestController_InitialState(t *testing.T) {
	c, _ := newTestController(t, 4)
	assert.Equal(t, 4, c.Capacity())
	assert.Equal(t, uint32(0), c.Now())
	assert.False(t, c.ActiveEvents())

	for i := 0; i < 4; i++ {
		e := c.GetEventAt(i)
		assert.True(t, e.Free)
		assert.Equal(t, -1, e.Arg)
	}
	assert.Equal(t, emptyEvent(), c.GetEventAt(4))
	assert.Equal(t, emptyEvent(), c.GetEventAt(-1))
}

func TestController_SetTimeLeavesScheduleAlone(t *testing.T) {
	c, _ := newTestController(t, 2)
	id := c.AddEventUsingTime(func(int) {}, 50, 0)
	c.SetTime(40)
	assert.Equal(t, uint32(40), c.Now())
	assert.Equal(t, uint32(50), c.GetEvent(id).Time)
}

func TestController_StartWithoutSource(t *testing.T) {
	c, _ := newTestController(t, 2)
	assert.ErrorIs(t, c.Start(context.Background()), ErrNoTickSource)
}

func TestController_CloseRemovesEverything(t *testing.T) {
	c, rec := newTestController(t, 4)

	stops := 0
	for i := 0; i < 3; i++ {
		id := c.AddInfiniteRecurringEventUsingDelay(func(int) {}, 1, 1, i)
		require.True(t, c.AddStopCallback(id, func(int) { stops++ }))
	}

	require.NoError(t, c.Close(context.Background()))
	require.NoError(t, c.Close(context.Background()))

	assert.Equal(t, 3, stops)
	assert.Len(t, rec.of(Stopped), 3)
	assert.Equal(t, 0, c.Snapshot().Occupied)

	id := c.AddEvent(func(int) {}, 0)
	assert.False(t, c.Valid(id))
	assert.Equal(t, c.Capacity(), id.Index)

	now := c.Now()
	c.Tick()
	assert.Equal(t, now, c.Now())

	assert.Equal(t, "unhealthy", c.Health(context.Background()).Status)
	assert.ErrorIs(t, c.Start(context.Background()), ErrControllerClosed)
}

func TestController_CloseRacingRegistrationLeavesNothing(t *testing.T) {
	for round := 0; round < 50; round++ {
		c, _ := newTestController(t, 64)

		var stops atomic.Int32
		var registered atomic.Int32
		start := make(chan struct{})
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				for i := 0; i < 16; i++ {
					id := c.AddInfiniteRecurringEventUsingDelay(func(int) {}, 1, 1, i)
					if !c.Valid(id) {
						continue
					}
					registered.Add(1)
					c.AddStopCallback(id, func(int) { stops.Add(1) })
				}
			}()
		}

		close(start)
		require.NoError(t, c.Close(context.Background()))
		wg.Wait()

		assert.Equal(t, 0, c.Snapshot().Occupied, "round %d", round)
		assert.LessOrEqual(t, stops.Load(), registered.Load())
	}
}

func TestController_Health(t *testing.T) {
	c, _ := newTestController(t, 2)
	assert.Equal(t, "healthy", c.Health(context.Background()).Status)

	c.AddEvent(func(int) {}, 0)
	c.AddEvent(func(int) {}, 0)
	h := c.Health(context.Background())
	assert.Equal(t, "degraded", h.Status)
	assert.Equal(t, "event table full", h.Message)
	assert.Equal(t, 2, h.Metrics.Occupied)
}

func TestController_Metrics(t *testing.T) {
	c, _ := newTestController(t, 2)

	id := c.AddRecurringEventUsingDelay(func(int) {}, 1, 1, 2, 0)
	c.Enable(id)
	c.AddEvent(func(int) {}, 0)
	c.AddEvent(func(int) {}, 0) // rejected: full
	tickN(c, 3)

	m := c.GetMetrics()
	assert.Equal(t, uint64(3), m.Ticks)
	assert.Equal(t, uint64(2), m.Fired)
	assert.Equal(t, uint64(1), m.Started)
	assert.Equal(t, uint64(1), m.Exhausted)
	assert.Equal(t, uint64(2), m.Registered)
	assert.Equal(t, uint64(1), m.Rejected)
	assert.Equal(t, 2, m.Capacity)
	assert.Equal(t, 1, m.Occupied)
	assert.Equal(t, 0, m.Active)
	assert.GreaterOrEqual(t, m.AvgDispatchTimeMs, 0.0)
}

func TestController_RemoveObserver(t *testing.T) {
	c, rec := newTestController(t, 2)
	c.RemoveObserver(rec)
	c.AddEvent(func(int) {}, 0)
	assert.Empty(t, rec.all())
}

func TestController_ObserverPoolDelivers(t *testing.T) {
	rec := &recorder{}
	c, closeFn, err := New(func(b *ControllerBuilder) {
		b.WithCapacity(2).WithObserverPool(1, 16).WithObserver(rec)
	})
	require.NoError(t, err)

	c.AddEvent(func(int) {}, 0)
	require.NoError(t, closeFn())

	// Close drains the pool: registration and the Stopped from Close are both in
	types := make([]NotificationType, 0)
	for _, n := range rec.all() {
		types = append(types, n.Type)
	}
	assert.Equal(t, []NotificationType{Registered, Stopped}, types)
}
