package xevent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// ObserverPool moves observer work off the tick path. Notify never blocks:
// when the buffer is full the notification is dropped and counted.
//
// With a single worker, observers see notifications in the order the
// controller raised them.
type ObserverPool struct {
	ch        chan *Notification
	workers   int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closed    atomic.Bool
	dropped   atomic.Uint64
	processed atomic.Uint64
}

// NewObserverPool starts workers goroutines reading from a buffer of
// bufferSize notifications.
func NewObserverPool(ctx context.Context, workers, bufferSize int) *ObserverPool {
	if workers < 1 {
		workers = 1
	}
	if bufferSize < 1 {
		bufferSize = 1024
	}

	poolCtx, cancel := context.WithCancel(ctx)
	op := &ObserverPool{
		ch:      make(chan *Notification, bufferSize),
		workers: workers,
		ctx:     poolCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		op.wg.Add(1)
		go op.worker()
	}

	return op
}

// Notify queues n for the given observers.
func (op *ObserverPool) Notify(n Notification, observers []Observer) {
	if len(observers) == 0 || op.closed.Load() {
		return
	}
	n.observers = observers

	select {
	case op.ch <- &n:
	default:
		op.dropped.Add(1)
	}
}

func (op *ObserverPool) worker() {
	defer op.wg.Done()
	for {
		select {
		case <-op.ctx.Done():
			// drain what is already queued
			for {
				select {
				case n := <-op.ch:
					op.dispatch(n)
				default:
					return
				}
			}
		case n := <-op.ch:
			op.dispatch(n)
		}
	}
}

// dispatch calls every observer for one notification. An observer panic is
// swallowed so it cannot kill the worker.
func (op *ObserverPool) dispatch(n *Notification) {
	if n == nil {
		return
	}
	for _, obs := range n.observers {
		if obs == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			obs.OnNotification(*n)
		}()
	}
	op.processed.Add(1)
}

// Close stops accepting notifications and waits up to timeout for the
// workers to drain the buffer.
func (op *ObserverPool) Close(timeout time.Duration) error {
	if op.closed.Swap(true) {
		return nil
	}

	op.cancel()

	done := make(chan struct{})
	go func() {
		op.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrObserverPoolShutdownTimeout
	}
}

// Stats returns current pool statistics.
func (op *ObserverPool) Stats() PoolStats {
	return PoolStats{
		Dropped:      op.dropped.Load(),
		Processed:    op.processed.Load(),
		ActiveEvents: len(op.ch),
		Workers:      op.workers,
		BufferSize:   cap(op.ch),
	}
}
