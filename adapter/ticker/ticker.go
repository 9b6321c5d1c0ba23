package ticker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trickstertwo/xevent"
)

const SourceName = "ticker"

func init() {
	if err := xevent.RegisterTickSource(SourceName, func(cfg map[string]any) (xevent.TickSource, error) {
		return New(ConfigFromMap(cfg))
	}); err != nil {
		panic(fmt.Errorf("xevent/ticker: failed to register tick source: %w", err))
	}
}

var ErrRunning = errors.New("xevent/ticker: source already running")

// Config controls the wall-clock tick source.
type Config struct {
	// Period is the length of one time unit (default: 1ms).
	Period time.Duration
}

// Defaults returns a 1ms period.
func Defaults() Config {
	return Config{Period: time.Millisecond}
}

func (c Config) Validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("config: period must be > 0, got %v", c.Period)
	}
	return nil
}

func ConfigFromMap(m map[string]any) Config {
	c := Defaults()
	if v, ok := xevent.MapDuration(m, "period"); ok && v > 0 {
		c.Period = v
	}
	return c
}

// toMap converts Config to the generic map expected by the source factory.
func (c Config) toMap() map[string]any {
	return map[string]any{
		"period": c.Period,
	}
}

// Source calls tick once per Period from its own goroutine. Ticks that the
// controller is too slow to take are dropped by time.Ticker; the controller's
// catch-up absorbs them.
type Source struct {
	cfg Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	ticks atomic.Uint64
}

func New(cfg Config) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{cfg: cfg}, nil
}

func (s *Source) Start(ctx context.Context, tick func()) error {
	if tick == nil {
		return errors.New("xevent/ticker: tick func must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrRunning
	}

	lctx, cancel := context.WithCancel(ctx)
	t := time.NewTicker(s.cfg.Period)
	done := make(chan struct{})

	s.running = true
	s.cancel = cancel
	s.done = done

	go s.loop(lctx, t, tick, done)
	return nil
}

func (s *Source) loop(ctx context.Context, t *time.Ticker, tick func(), done chan struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
			s.ticks.Add(1)
		}
	}
}

// Stop halts the loop and waits for an in-flight tick to return. Safe to
// call more than once.
func (s *Source) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// Ticks returns how many ticks the source has delivered.
func (s *Source) Ticks() uint64 { return s.ticks.Load() }

// Period returns the configured tick period.
func (s *Source) Period() time.Duration { return s.cfg.Period }
