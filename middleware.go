package xevent

import (
	"fmt"
	"time"

	"github.com/trickstertwo/xclock"
)

// RecoveryMiddleware keeps a panicking callback from taking down the tick
// goroutine. The panic is converted into an error wrapping ErrCallbackPanic
// and handed to onPanic.
func RecoveryMiddleware(onPanic func(inv Invocation, err error)) Middleware {
	return func(next Handler) Handler {
		return func(inv Invocation) {
			defer func() {
				if r := recover(); r != nil && onPanic != nil {
					onPanic(inv, fmt.Errorf("%w: %v", ErrCallbackPanic, r))
				}
			}()
			next(inv)
		}
	}
}

// SlowCallbackMiddleware reports invocations that take longer than threshold.
// Callbacks share the tick budget, so anything approaching the tick period
// delays every later slot in the pass.
func SlowCallbackMiddleware(clk xclock.Clock, threshold time.Duration, onSlow func(inv Invocation, d time.Duration)) Middleware {
	if threshold <= 0 || onSlow == nil {
		return func(next Handler) Handler { return next }
	}
	if clk == nil {
		clk = xclock.Default()
	}
	return func(next Handler) Handler {
		return func(inv Invocation) {
			start := clk.Now()
			next(inv)
			if d := clk.Since(start); d > threshold {
				onSlow(inv, d)
			}
		}
	}
}

// KindFilter applies mw only to invocations of the given kinds.
func KindFilter(mw Middleware, kinds ...CallbackKind) Middleware {
	return func(next Handler) Handler {
		wrapped := mw(next)
		return func(inv Invocation) {
			for _, k := range kinds {
				if inv.Kind == k {
					wrapped(inv)
					return
				}
			}
			next(inv)
		}
	}
}

// Chain composes middlewares around a handler in order.
func Chain(h Handler, mws ...Middleware) Handler {
	if len(mws) == 0 {
		return h
	}
	wrapped := h
	// Apply in reverse so that first middleware wraps last.
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
