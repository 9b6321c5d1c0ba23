package xevent

import (
	"errors"
	"fmt"
)

type ErrUnknownTickSource struct{ name string }

func (e ErrUnknownTickSource) Error() string { return fmt.Sprintf("unknown tick source: %s", e.name) }

var (
	ErrInvalidCapacity             = errors.New("xevent: capacity must be >= 1")
	ErrControllerClosed            = errors.New("xevent: controller is closed")
	ErrAlreadyStarted              = errors.New("xevent: controller already started")
	ErrNoTickSource                = errors.New("xevent: no tick source configured")
	ErrObserverPoolShutdownTimeout = errors.New("xevent: observer pool shutdown timeout")
	ErrCallbackPanic               = errors.New("xevent: callback panic")
)
