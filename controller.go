package xevent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// Controller owns a fixed-size event table and the time base that drives it.
//
// Concurrency discipline: every slot mutation, whether it comes from the
// registration/lifecycle API or from the dispatch pass, happens inside mu.
// Callbacks and synchronous observers run with mu released so they may call
// back into the controller. Tick is serialized by tickMu.
type Controller struct {
	mu    sync.Mutex
	slots []slot

	tickMu   sync.Mutex
	timebase *TimeBase

	clock       xclock.Clock
	logger      *xlog.Logger
	middlewares []Middleware
	source      TickSource
	tickPeriod  time.Duration

	observerPool *ObserverPool
	observersMu  sync.RWMutex
	observers    []Observer

	metrics *controllerMetrics

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
	cancel    context.CancelFunc
}

type slot struct {
	free     bool
	enabled  bool
	infinite bool
	// stopping marks a slot whose stop callback is running; it is freed once
	// the callback returns and is invisible to every other operation meanwhile.
	stopping bool

	timeStart  uint32
	time       uint32
	period     uint32
	count      uint32
	inc        uint32
	arg        int
	generation uint32

	callback Callback
	start    Callback
	stop     Callback
}

// controllerMetrics uses lock-free atomics so the tick path never waits on telemetry.
type controllerMetrics struct {
	ticks          atomic.Uint64
	fired          atomic.Uint64
	started        atomic.Uint64
	stopped        atomic.Uint64
	exhausted      atomic.Uint64
	registered     atomic.Uint64
	rejected       atomic.Uint64
	invalidHandle  atomic.Uint64
	skippedPeriods atomic.Uint64
	panics         atomic.Uint64
	dispatchNs     atomic.Int64
}

func newController(capacity int, start uint32) *Controller {
	c := &Controller{
		slots:    make([]slot, capacity),
		timebase: NewTimeBase(start),
		clock:    xclock.Default(),
		logger:   xlog.Default(),
		metrics:  &controllerMetrics{},
	}
	for i := range c.slots {
		c.slots[i] = slot{free: true, arg: -1}
	}
	c.RemoveAllEvents()
	return c
}

// Capacity returns the fixed number of slots.
func (c *Controller) Capacity() int { return len(c.slots) }

// Now returns the current time unit.
func (c *Controller) Now() uint32 { return c.timebase.Now() }

// SetTime overwrites the time base. Scheduled times are left alone; events
// that fall behind are caught up on the next tick.
func (c *Controller) SetTime(t uint32) { c.timebase.Set(t) }

func (c *Controller) findFreeSlotLocked() int {
	i := 0
	for i < len(c.slots) && !c.slots[i].free {
		i++
	}
	return i
}

func (c *Controller) validLocked(id EventID) bool {
	if id.Index < 0 || id.Index >= len(c.slots) {
		return false
	}
	s := &c.slots[id.Index]
	return !s.free && !s.stopping &&
		s.timeStart == id.TimeStart &&
		s.generation == id.Generation
}

func (c *Controller) idLocked(i int) EventID {
	s := &c.slots[i]
	return EventID{Index: i, TimeStart: s.timeStart, Generation: s.generation}
}

func (c *Controller) invalidID(timeStart uint32) EventID {
	return EventID{Index: len(c.slots), TimeStart: timeStart}
}

func (c *Controller) invalidPair(timeStart uint32) EventIDPair {
	return EventIDPair{First: c.invalidID(timeStart), Second: c.invalidID(timeStart)}
}

// Valid reports whether id still refers to a live event: index in range,
// matching creation stamp and generation, slot not free.
func (c *Controller) Valid(id EventID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(id)
}

// ValidPair reports whether both halves of p are valid.
func (c *Controller) ValidPair(p EventIDPair) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validLocked(p.First) && c.validLocked(p.Second)
}

// invoke runs cb through the middleware chain. Panic recovery always sits
// closest to the callback.
func (c *Controller) invoke(inv Invocation, cb Callback) {
	if cb == nil {
		return
	}
	base := RecoveryMiddleware(c.reportPanic)(func(inv Invocation) { cb(inv.Arg) })
	Chain(base, c.middlewares...)(inv)
}

func (c *Controller) reportPanic(inv Invocation, err error) {
	c.metrics.panics.Add(1)
	c.notify(Notification{Type: CallbackPanic, ID: inv.ID, Now: inv.Now, Arg: inv.Arg, Err: err})
}

func (c *Controller) reportSlow(inv Invocation, d time.Duration) {
	c.notify(Notification{Type: SlowCallback, ID: inv.ID, Now: inv.Now, Arg: inv.Arg, Duration: d})
}

// Start hands Tick to the configured tick source. Without a source the host
// is expected to call Tick itself and Start returns ErrNoTickSource.
func (c *Controller) Start(ctx context.Context) error {
	if c.closed.Load() {
		return ErrControllerClosed
	}
	if c.source == nil {
		return ErrNoTickSource
	}
	if c.started.Swap(true) {
		return ErrAlreadyStarted
	}
	sctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	if err := c.source.Start(sctx, c.Tick); err != nil {
		cancel()
		c.started.Store(false)
		return err
	}
	c.logger.Debug().Str("capacity", itoa(len(c.slots))).Msg("xevent: controller started")
	return nil
}

// Close stops the tick source, waits for an in-flight dispatch pass, removes
// every event (firing stop callbacks) and drains the observer pool.
// Idempotent.
func (c *Controller) Close(ctx context.Context) error {
	var closeErr error

	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		if c.source != nil && c.started.Load() {
			if err := c.source.Stop(); err != nil {
				c.logger.Error().Err(err).Msg("xevent: tick source stop failed")
				closeErr = err
			}
		}

		// under mu, so a register that already holds the lock finishes its
		// claim before RemoveAllEvents scans, and every later one sees closed
		c.mu.Lock()
		c.closed.Store(true)
		c.mu.Unlock()

		// wait out a pass that began before closed was set
		c.tickMu.Lock()
		c.tickMu.Unlock()

		c.RemoveAllEvents()

		if c.observerPool != nil {
			timeout := 5 * time.Second
			if dl, ok := ctx.Deadline(); ok {
				timeout = time.Until(dl)
			}
			if err := c.observerPool.Close(timeout); err != nil {
				c.logger.Warn().Err(err).Msg("xevent: observer pool shutdown timeout")
				closeErr = err
			}
		}
	})

	return closeErr
}

// GetMetrics returns current controller metrics.
func (c *Controller) GetMetrics() Metrics {
	c.mu.Lock()
	occupied, active := c.countLocked()
	c.mu.Unlock()

	var dropped uint64
	if c.observerPool != nil {
		dropped = c.observerPool.Stats().Dropped
	}
	return Metrics{
		Ticks:             c.metrics.ticks.Load(),
		Fired:             c.metrics.fired.Load(),
		Started:           c.metrics.started.Load(),
		Stopped:           c.metrics.stopped.Load(),
		Exhausted:         c.metrics.exhausted.Load(),
		Registered:        c.metrics.registered.Load(),
		Rejected:          c.metrics.rejected.Load(),
		InvalidHandle:     c.metrics.invalidHandle.Load(),
		SkippedPeriods:    c.metrics.skippedPeriods.Load(),
		Panics:            c.metrics.panics.Load(),
		EventsDropped:     dropped,
		Capacity:          len(c.slots),
		Occupied:          occupied,
		Active:            active,
		AvgDispatchTimeMs: float64(c.metrics.dispatchNs.Load()) / 1e6,
	}
}

// Health reports "unhealthy" once closed, "degraded" when the table is full
// or a dispatch pass takes longer than a tick period.
func (c *Controller) Health(ctx context.Context) HealthStatus {
	if c.closed.Load() {
		return HealthStatus{
			Status:    "unhealthy",
			Timestamp: c.clock.Now(),
			Message:   "controller is closed",
		}
	}

	metrics := c.GetMetrics()
	status := "healthy"
	msg := ""

	if metrics.Occupied >= metrics.Capacity {
		status = "degraded"
		msg = "event table full"
	}
	if c.tickPeriod > 0 && time.Duration(c.metrics.dispatchNs.Load()) > c.tickPeriod {
		status = "degraded"
		msg = "dispatch slower than tick period"
	}

	return HealthStatus{
		Status:    status,
		Metrics:   metrics,
		Timestamp: c.clock.Now(),
		Message:   msg,
	}
}

// AddObserver registers an observer (thread-safe).
func (c *Controller) AddObserver(obs Observer) {
	if obs == nil {
		return
	}
	c.observersMu.Lock()
	c.observers = append(c.observers, obs)
	c.observersMu.Unlock()
}

// RemoveObserver removes an observer previously passed to AddObserver. The
// observer must be of a comparable type (pointer or plain struct); an
// ObserverFunc cannot be removed.
func (c *Controller) RemoveObserver(obs Observer) {
	if obs == nil {
		return
	}
	if _, ok := obs.(ObserverFunc); ok {
		return
	}
	c.observersMu.Lock()
	defer c.observersMu.Unlock()

	for i, o := range c.observers {
		if o == obs {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			break
		}
	}
}

// notify hands n to the observer pool, or calls observers inline when the
// controller was built without one. Never call with mu held.
func (c *Controller) notify(n Notification) {
	c.observersMu.RLock()
	if len(c.observers) == 0 {
		c.observersMu.RUnlock()
		return
	}
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.observersMu.RUnlock()

	if c.observerPool != nil {
		c.observerPool.Notify(n, observers)
		return
	}
	for _, o := range observers {
		o.OnNotification(n)
	}
}

// recordDispatchTime keeps an exponential moving average of pass duration.
func (c *Controller) recordDispatchTime(ns int64) {
	const alpha = 0.2
	current := c.metrics.dispatchNs.Load()
	if current == 0 {
		c.metrics.dispatchNs.Store(ns)
		return
	}
	c.metrics.dispatchNs.Store(int64(float64(ns)*alpha + float64(current)*(1-alpha)))
}
