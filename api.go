package xevent

import (
	"context"
)

// Handler runs one callback invocation. Middlewares wrap it.
type Handler func(inv Invocation)

// Middleware composes concerns around every callback the controller invokes.
type Middleware func(next Handler) Handler

// TickSource is the Strategy interface for whatever drives the time base.
// Start must not block: the source calls tick once per time unit from its
// own goroutine, never concurrently with itself, until ctx is done or Stop
// is called.
type TickSource interface {
	Start(ctx context.Context, tick func()) error
	Stop() error
}

// Codec is the Strategy for encoding notifications and snapshots on the wire.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// Observer receives controller notifications. Implementations should be non-blocking.
type Observer interface {
	OnNotification(n Notification)
}

// HealthChecker provides health status for production monitoring.
type HealthChecker interface {
	Health(ctx context.Context) HealthStatus
}

// API represents the complete xevent surface.
type API interface {
	Now() uint32
	SetTime(t uint32)
	Tick()

	AddEvent(cb Callback, arg int) EventID
	AddRecurringEvent(cb Callback, period, count uint32, arg int) EventID
	AddInfiniteRecurringEvent(cb Callback, period uint32, arg int) EventID
	AddEventUsingTime(cb Callback, time uint32, arg int) EventID
	AddRecurringEventUsingTime(cb Callback, time, period, count uint32, arg int) EventID
	AddInfiniteRecurringEventUsingTime(cb Callback, time, period uint32, arg int) EventID
	AddEventUsingDelay(cb Callback, delay uint32, arg int) EventID
	AddRecurringEventUsingDelay(cb Callback, delay, period, count uint32, arg int) EventID
	AddInfiniteRecurringEventUsingDelay(cb Callback, delay, period uint32, arg int) EventID
	AddEventUsingOffset(cb Callback, origin EventID, offset uint32, arg int) EventID
	AddRecurringEventUsingOffset(cb Callback, origin EventID, offset, period, count uint32, arg int) EventID
	AddInfiniteRecurringEventUsingOffset(cb Callback, origin EventID, offset, period uint32, arg int) EventID

	AddPulseUsingTime(on, off Callback, time, period, onDuration, count uint32, arg int) EventIDPair
	AddPulseUsingDelay(on, off Callback, delay, period, onDuration, count uint32, arg int) EventIDPair
	AddPulseUsingOffset(on, off Callback, origin EventID, offset, period, onDuration, count uint32, arg int) EventIDPair
	AddInfinitePulseUsingTime(on, off Callback, time, period, onDuration uint32, arg int) EventIDPair
	AddInfinitePulseUsingDelay(on, off Callback, delay, period, onDuration uint32, arg int) EventIDPair
	AddInfinitePulseUsingOffset(on, off Callback, origin EventID, offset, period, onDuration uint32, arg int) EventIDPair

	Valid(id EventID) bool
	ValidPair(p EventIDPair) bool
	Enable(id EventID) bool
	Disable(id EventID) bool
	Remove(id EventID) bool
	EnablePair(p EventIDPair)
	DisablePair(p EventIDPair)
	RemovePair(p EventIDPair)
	EnableAt(index int) bool
	DisableAt(index int) bool
	RemoveAt(index int) bool
	RemoveAllEvents() int
	AddStartCallback(id EventID, cb Callback) bool
	AddStopCallback(id EventID, cb Callback) bool
	AddStartCallbackPair(p EventIDPair, cb Callback)
	AddStopCallbackPair(p EventIDPair, cb Callback)
	SetEventArgToEventIndex(id EventID) bool
	GetEvent(id EventID) Event
	GetEventAt(index int) Event
	CountActiveEvents() int
	ActiveEvents() bool
	Snapshot() Snapshot

	Start(ctx context.Context) error
	Close(ctx context.Context) error
	GetMetrics() Metrics
	Health(ctx context.Context) HealthStatus
	AddObserver(obs Observer)
	RemoveObserver(obs Observer)
}

var _ API = (*Controller)(nil)
var _ HealthChecker = (*Controller)(nil)
