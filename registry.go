package xevent

import (
	"errors"
	"sync"
)

// TickSourceFactory constructs tick sources from a config blob.
type TickSourceFactory func(cfg map[string]any) (TickSource, error)

var (
	tickSourceRegistryMu sync.RWMutex
	tickSourceRegistry   = map[string]TickSourceFactory{}
)

// RegisterTickSource registers a tick source adapter under name. Adapters
// call it from init.
func RegisterTickSource(name string, factory TickSourceFactory) error {
	if name == "" {
		return errors.New("tick source name must not be empty")
	}
	if factory == nil {
		return errors.New("tick source factory must not be nil")
	}
	tickSourceRegistryMu.Lock()
	tickSourceRegistry[name] = factory
	tickSourceRegistryMu.Unlock()
	return nil
}

// NewTickSource constructs a registered tick source by name with config.
func NewTickSource(name string, cfg map[string]any) (TickSource, error) {
	tickSourceRegistryMu.RLock()
	f, ok := tickSourceRegistry[name]
	tickSourceRegistryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownTickSource{name: name}
	}
	return f(cfg)
}
