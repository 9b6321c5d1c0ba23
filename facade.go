package xevent

import (
	"fmt"
	"sync"
)

var (
	defaultController   *Controller
	defaultControllerMu sync.Mutex
)

// Default returns the process-wide singleton Controller, building one from
// Defaults on first use. The default has no tick source: the host drives it
// with Tick unless an adapter's Use installed a different one.
func Default() *Controller {
	defaultControllerMu.Lock()
	defer defaultControllerMu.Unlock()

	if defaultController != nil {
		return defaultController
	}

	c, err := NewControllerBuilder().Build()
	if err != nil {
		panic(fmt.Sprintf("xevent: failed to initialize default controller: %v", err))
	}
	defaultController = c
	return defaultController
}

// SetDefault replaces the process-wide default Controller.
func SetDefault(c *Controller) {
	if c == nil {
		panic("xevent: SetDefault called with nil Controller")
	}
	defaultControllerMu.Lock()
	defaultController = c
	defaultControllerMu.Unlock()
}

// Tick advances the default controller by one time unit.
func Tick() { Default().Tick() }

// Now returns the default controller's current time unit.
func Now() uint32 { return Default().Now() }

// AddEventUsingDelay is the Facade using the default controller.
func AddEventUsingDelay(cb Callback, delay uint32, arg int) EventID {
	return Default().AddEventUsingDelay(cb, delay, arg)
}

// AddRecurringEventUsingDelay is the Facade using the default controller.
func AddRecurringEventUsingDelay(cb Callback, delay, period, count uint32, arg int) EventID {
	return Default().AddRecurringEventUsingDelay(cb, delay, period, count, arg)
}

// AddInfiniteRecurringEventUsingDelay is the Facade using the default controller.
func AddInfiniteRecurringEventUsingDelay(cb Callback, delay, period uint32, arg int) EventID {
	return Default().AddInfiniteRecurringEventUsingDelay(cb, delay, period, arg)
}

// AddPulseUsingDelay is the Facade using the default controller.
func AddPulseUsingDelay(on, off Callback, delay, period, onDuration, count uint32, arg int) EventIDPair {
	return Default().AddPulseUsingDelay(on, off, delay, period, onDuration, count, arg)
}

// Enable is the Facade using the default controller.
func Enable(id EventID) bool { return Default().Enable(id) }

// Disable is the Facade using the default controller.
func Disable(id EventID) bool { return Default().Disable(id) }

// Remove is the Facade using the default controller.
func Remove(id EventID) bool { return Default().Remove(id) }

// EnablePair is the Facade using the default controller.
func EnablePair(p EventIDPair) { Default().EnablePair(p) }

// RemovePair is the Facade using the default controller.
func RemovePair(p EventIDPair) { Default().RemovePair(p) }
