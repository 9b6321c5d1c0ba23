package ticker

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xevent"
	"github.com/trickstertwo/xlog"
)

// Use builds a Controller driven by a wall-clock ticker and sets it as the
// default. The controller is not started; call Start when ready.
//
// Example:
//
//	c := ticker.Use(ticker.Config{Period: time.Millisecond},
//	    ticker.WithCapacity(64),
//	    ticker.WithLogger(logger),
//	)
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Close(context.Background())
func Use(cfg Config, opts ...Option) *xevent.Controller {
	cb := xevent.NewControllerBuilder().
		WithTickPeriod(cfg.Period).
		WithTickSource(SourceName, cfg.toMap())

	for _, o := range opts {
		if o != nil {
			o(cb)
		}
	}

	c, err := cb.Build()
	if err != nil {
		panic(fmt.Errorf("ticker.Use: %w", err))
	}

	xevent.SetDefault(c)
	return c
}

// Option configures the xevent.Controller when calling Use.
type Option func(*xevent.ControllerBuilder)

// WithCapacity sets the event table size (default: 32).
func WithCapacity(n int) Option {
	return func(b *xevent.ControllerBuilder) { b.WithCapacity(n) }
}

// WithStartTime sets the initial time unit.
func WithStartTime(t uint32) Option {
	return func(b *xevent.ControllerBuilder) { b.WithStartTime(t) }
}

// WithLogger injects a custom xlog logger.
func WithLogger(l *xlog.Logger) Option {
	return func(b *xevent.ControllerBuilder) { b.WithLogger(l) }
}

// WithClock injects a custom xclock clock.
func WithClock(c xclock.Clock) Option {
	return func(b *xevent.ControllerBuilder) { b.WithClock(c) }
}

// WithMiddleware adds callback middlewares.
func WithMiddleware(mw ...xevent.Middleware) Option {
	return func(b *xevent.ControllerBuilder) { b.WithMiddleware(mw...) }
}

// WithObserver attaches observers for controller notifications.
func WithObserver(obs ...xevent.Observer) Option {
	return func(b *xevent.ControllerBuilder) { b.WithObserver(obs...) }
}

// WithObserverPool configures async observer delivery.
func WithObserverPool(workers, bufferSize int) Option {
	return func(b *xevent.ControllerBuilder) { b.WithObserverPool(workers, bufferSize) }
}

// WithSlowCallback reports callbacks that run longer than d.
func WithSlowCallback(d time.Duration) Option {
	return func(b *xevent.ControllerBuilder) { b.WithSlowCallback(d) }
}
