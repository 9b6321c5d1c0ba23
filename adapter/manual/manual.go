// Package manual provides a tick source that only advances when told to.
// Simulations and tests use it to step a controller deterministically
// through the same Start/Stop path a wall-clock source takes.
package manual

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/trickstertwo/xevent"
)

const SourceName = "manual"

func init() {
	if err := xevent.RegisterTickSource(SourceName, func(map[string]any) (xevent.TickSource, error) {
		return New(), nil
	}); err != nil {
		panic(fmt.Errorf("xevent/manual: failed to register tick source: %w", err))
	}
}

type Source struct {
	mu        sync.Mutex
	tick      func()
	ctx       context.Context
	delivered atomic.Uint64
}

func New() *Source { return &Source{} }

func (s *Source) Start(ctx context.Context, tick func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tick != nil {
		return fmt.Errorf("xevent/manual: source already running")
	}
	s.tick = tick
	s.ctx = ctx
	return nil
}

func (s *Source) Stop() error {
	s.mu.Lock()
	s.tick = nil
	s.ctx = nil
	s.mu.Unlock()
	return nil
}

// Advance delivers up to n ticks and returns how many were delivered. It
// delivers nothing before Start, after Stop, or once the start context is done.
func (s *Source) Advance(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := 0
	for ; done < n; done++ {
		if s.tick == nil || s.ctx.Err() != nil {
			break
		}
		s.tick()
		s.delivered.Add(1)
	}
	return done
}

// Delivered returns the total number of ticks delivered.
func (s *Source) Delivered() uint64 { return s.delivered.Load() }
