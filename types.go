package xevent

import (
	"time"
)

// Callback is the unit of behavior bound to an event. It receives the event's
// stored argument and must not block.
type Callback func(arg int)

// EventID identifies one event instance. Index selects the slot; TimeStart and
// Generation distinguish the instance from earlier or later occupants of the
// same slot. An id whose Index equals the controller capacity is the invalid id.
type EventID struct {
	Index      int    `json:"index"`
	TimeStart  uint32 `json:"time_start"`
	Generation uint32 `json:"generation"`
}

// EventIDPair holds the two halves of a pulse pair.
type EventIDPair struct {
	First  EventID `json:"first"`
	Second EventID `json:"second"`
}

// Event is a read-only copy of one slot of the event table.
type Event struct {
	Free       bool   `json:"free"`
	Enabled    bool   `json:"enabled"`
	Infinite   bool   `json:"infinite"`
	TimeStart  uint32 `json:"time_start"`
	Time       uint32 `json:"time"`
	Period     uint32 `json:"period"`
	Count      uint32 `json:"count"`
	Inc        uint32 `json:"inc"`
	Arg        int    `json:"arg"`
	Generation uint32 `json:"generation"`

	Callback      Callback `json:"-"`
	StartCallback Callback `json:"-"`
	StopCallback  Callback `json:"-"`
}

// emptyEvent is what a freed slot looks like and what queries return for
// invalid handles.
func emptyEvent() Event {
	return Event{Free: true, Arg: -1}
}

// CallbackKind tells middlewares which of an event's callbacks is running.
type CallbackKind string

const (
	CallbackMain  CallbackKind = "callback"
	CallbackStart CallbackKind = "start"
	CallbackStop  CallbackKind = "stop"
)

// Invocation describes a single callback call made by the controller.
type Invocation struct {
	ID   EventID
	Kind CallbackKind
	Arg  int
	Now  uint32
}

// NotificationType enumerates controller lifecycle notifications for observers.
type NotificationType string

const (
	Registered        NotificationType = "registered"
	CapacityExhausted NotificationType = "capacity_exhausted"
	Enabled           NotificationType = "enabled"
	Disabled          NotificationType = "disabled"
	Started           NotificationType = "started"
	Fired             NotificationType = "fired"
	CaughtUp          NotificationType = "caught_up"
	Stopped           NotificationType = "stopped"
	Exhausted         NotificationType = "exhausted"
	InvalidHandle     NotificationType = "invalid_handle"
	CallbackPanic     NotificationType = "callback_panic"
	SlowCallback      NotificationType = "slow_callback"
)

// Notification carries telemetry for observers.
type Notification struct {
	Type     NotificationType
	ID       EventID
	Now      uint32 // controller time when the notification was raised
	Time     uint32 // event's next due time
	Inc      uint32
	Arg      int
	Skipped  uint32 // periods passed over by catch-up without firing
	Duration time.Duration
	Err      error

	// Internal: attached for async dispatch
	observers []Observer
}

// PoolStats returns telemetry about the observer pool.
type PoolStats struct {
	Dropped      uint64
	Processed    uint64
	ActiveEvents int
	Workers      int
	BufferSize   int
}

// Metrics defines observable telemetry for the controller.
type Metrics struct {
	Ticks          uint64
	Fired          uint64
	Started        uint64
	Stopped        uint64
	Exhausted      uint64
	Registered     uint64
	Rejected       uint64
	InvalidHandle  uint64
	SkippedPeriods uint64
	Panics         uint64
	EventsDropped  uint64

	Capacity int
	Occupied int
	Active   int

	AvgDispatchTimeMs float64
}

// HealthStatus indicates controller health for production monitoring.
type HealthStatus struct {
	Status    string // "healthy", "degraded", "unhealthy"
	Metrics   Metrics
	Timestamp time.Time
	Message   string
}

// Snapshot is a consistent copy of the whole event table.
type Snapshot struct {
	Now      uint32  `json:"now"`
	Capacity int     `json:"capacity"`
	Occupied int     `json:"occupied"`
	Active   int     `json:"active"`
	Events   []Event `json:"events"`
}
