package xevent

import (
	"context"
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xlog"
)

// ControllerBuilder constructs Controller instances (Builder pattern).
type ControllerBuilder struct {
	capacity   int
	startTime  uint32
	tickPeriod time.Duration

	sourceName string
	sourceCfg  map[string]any
	sourceInst TickSource

	middlewares  []Middleware
	observers    []Observer
	logger       *xlog.Logger
	clock        xclock.Clock
	slowCallback time.Duration

	poolWorkers int
	poolBuffer  int
}

// NewControllerBuilder returns a builder populated from Defaults.
func NewControllerBuilder() *ControllerBuilder {
	return (&ControllerBuilder{}).WithConfig(Defaults())
}

// WithConfig applies every field of cfg.
func (cb *ControllerBuilder) WithConfig(cfg Config) *ControllerBuilder {
	cb.capacity = cfg.Capacity
	cb.startTime = cfg.StartTime
	cb.tickPeriod = cfg.TickPeriod
	cb.poolWorkers = cfg.ObserverWorkers
	cb.poolBuffer = cfg.ObserverBuffer
	cb.slowCallback = cfg.SlowCallback
	if cfg.TickSource != "" {
		cb.sourceName = cfg.TickSource
		cb.sourceCfg = cfg.TickSourceConfig
	}
	return cb
}

func (cb *ControllerBuilder) WithCapacity(n int) *ControllerBuilder {
	cb.capacity = n
	return cb
}

func (cb *ControllerBuilder) WithStartTime(t uint32) *ControllerBuilder {
	cb.startTime = t
	return cb
}

// WithTickPeriod sets the wall-clock length of one time unit. It feeds tick
// sources that take a period and the health check.
func (cb *ControllerBuilder) WithTickPeriod(d time.Duration) *ControllerBuilder {
	if d > 0 {
		cb.tickPeriod = d
	}
	return cb
}

func (cb *ControllerBuilder) WithTickSource(name string, cfg map[string]any) *ControllerBuilder {
	cb.sourceName = name
	cb.sourceCfg = cfg
	return cb
}

// WithTickSourceInstance accepts a ready TickSource (e.g. from an adapter constructor).
func (cb *ControllerBuilder) WithTickSourceInstance(s TickSource) *ControllerBuilder {
	cb.sourceInst = s
	return cb
}

func (cb *ControllerBuilder) WithMiddleware(mw ...Middleware) *ControllerBuilder {
	if len(mw) == 0 {
		return cb
	}
	cb.middlewares = append(cb.middlewares, mw...)
	return cb
}

func (cb *ControllerBuilder) WithObserver(obs ...Observer) *ControllerBuilder {
	for _, o := range obs {
		if o != nil {
			cb.observers = append(cb.observers, o)
		}
	}
	return cb
}

func (cb *ControllerBuilder) WithLogger(l *xlog.Logger) *ControllerBuilder {
	cb.logger = l
	return cb
}

func (cb *ControllerBuilder) WithClock(c xclock.Clock) *ControllerBuilder {
	cb.clock = c
	return cb
}

// WithSlowCallback reports callbacks running longer than d as SlowCallback
// notifications. Zero disables the check.
func (cb *ControllerBuilder) WithSlowCallback(d time.Duration) *ControllerBuilder {
	cb.slowCallback = d
	return cb
}

// WithObserverPool configures asynchronous observer delivery. workers <= 0
// makes observers run inline on the tick path.
func (cb *ControllerBuilder) WithObserverPool(workers, bufferSize int) *ControllerBuilder {
	cb.poolWorkers = workers
	cb.poolBuffer = bufferSize
	return cb
}

func (cb *ControllerBuilder) Build() (*Controller, error) {
	if cb.capacity < 1 {
		return nil, fmt.Errorf("xevent: %w, got %d", ErrInvalidCapacity, cb.capacity)
	}

	var src TickSource
	var err error
	switch {
	case cb.sourceInst != nil:
		src = cb.sourceInst
	case cb.sourceName != "":
		src, err = NewTickSource(cb.sourceName, cb.sourceConfig())
		if err != nil {
			return nil, err
		}
	}

	c := newController(cb.capacity, cb.startTime)
	if cb.clock != nil {
		c.clock = cb.clock
	}
	if cb.logger != nil {
		c.logger = cb.logger
	}
	c.source = src
	c.tickPeriod = cb.tickPeriod
	c.middlewares = append([]Middleware(nil), cb.middlewares...)
	if cb.slowCallback > 0 {
		c.middlewares = append(c.middlewares, SlowCallbackMiddleware(c.clock, cb.slowCallback, c.reportSlow))
	}

	if cb.poolWorkers > 0 {
		c.observerPool = NewObserverPool(context.Background(), cb.poolWorkers, cb.poolBuffer)
	}

	hasLoggingObserver := false
	for _, o := range cb.observers {
		if _, ok := o.(LoggingObserver); ok {
			hasLoggingObserver = true
			break
		}
	}
	if !hasLoggingObserver && c.logger != nil {
		c.AddObserver(NewLoggingObserver(c.logger))
	}
	for _, o := range cb.observers {
		c.AddObserver(o)
	}

	return c, nil
}

// sourceConfig copies the tick source config, filling "period" from the
// builder's tick period when the caller did not set one.
func (cb *ControllerBuilder) sourceConfig() map[string]any {
	m := make(map[string]any, len(cb.sourceCfg)+1)
	for k, v := range cb.sourceCfg {
		m[k] = v
	}
	if _, ok := m["period"]; !ok && cb.tickPeriod > 0 {
		m["period"] = cb.tickPeriod
	}
	return m
}

// New constructs a Controller via Builder and returns a close func for convenience.
func New(init func(b *ControllerBuilder)) (*Controller, func() error, error) {
	b := NewControllerBuilder()
	if init != nil {
		init(b)
	}
	c, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() error { return c.Close(context.Background()) }
	return c, closeFn, nil
}
