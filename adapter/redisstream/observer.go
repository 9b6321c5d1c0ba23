package redisstream

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trickstertwo/xclock"
	"github.com/trickstertwo/xevent"
)

// Field constants (avoid typos/allocs)
const (
	fieldType       = "type"
	fieldPayload    = "payload"
	fieldProducedAt = "producedAt" // int64 ns
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("redisstream: observer closed")

// Record is the exported form of one xevent.Notification.
type Record struct {
	StreamID   string `json:"-"`
	Type       string `json:"type"`
	Index      int    `json:"index"`
	TimeStart  uint32 `json:"time_start"`
	Generation uint32 `json:"generation"`
	Now        uint32 `json:"now"`
	Time       uint32 `json:"time"`
	Inc        uint32 `json:"inc"`
	Arg        int    `json:"arg"`
	Skipped    uint32 `json:"skipped,omitempty"`
	DurationNs int64  `json:"duration_ns,omitempty"`
	Err        string `json:"err,omitempty"`
}

// RecordOf converts a notification to its exported form.
func RecordOf(n xevent.Notification) Record {
	r := Record{
		Type:       string(n.Type),
		Index:      n.ID.Index,
		TimeStart:  n.ID.TimeStart,
		Generation: n.ID.Generation,
		Now:        n.Now,
		Time:       n.Time,
		Inc:        n.Inc,
		Arg:        n.Arg,
		Skipped:    n.Skipped,
		DurationNs: n.Duration.Nanoseconds(),
	}
	if n.Err != nil {
		r.Err = n.Err.Error()
	}
	return r
}

// Observer appends controller notifications to a Redis stream. Register it
// on a controller with an ObserverPool: every notification costs a round trip.
type Observer struct {
	cfg        Config
	client     redis.UniversalClient
	ownsClient bool
	codec      xevent.Codec
	clock      xclock.Clock
	types      map[xevent.NotificationType]struct{}

	closed atomic.Bool

	published     atomic.Uint64
	filtered      atomic.Uint64
	publishErrors atomic.Uint64
}

// Stats reports exporter counters.
type Stats struct {
	Published     uint64
	Filtered      uint64
	PublishErrors uint64
}

// NewObserver dials Redis and verifies the connection. Unset fields of cfg
// take their Defaults.
func NewObserver(cfg Config) (*Observer, error) {
	cfg = ConfigFromMap(cfg.toMap())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		PoolSize:     4,
		MinIdleConns: 1,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{
			MinVersion:    tls.VersionTLS12,
			ServerName:    cfg.TLSServerName,
			Renegotiation: tls.RenegotiateNever,
		}
	}

	client := redis.NewClient(opts)
	if err := ping(client); err != nil {
		_ = client.Close()
		return nil, err
	}

	o, err := newObserver(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	o.ownsClient = true
	return o, nil
}

// NewObserverWithClient wraps an existing client. Close leaves the client open.
func NewObserverWithClient(client redis.UniversalClient, cfg Config) (*Observer, error) {
	if client == nil {
		return nil, errors.New("redisstream: client must not be nil")
	}
	cfg = ConfigFromMap(cfg.toMap())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newObserver(client, cfg)
}

func newObserver(client redis.UniversalClient, cfg Config) (*Observer, error) {
	codec, err := xevent.NewCodec(cfg.Codec)
	if err != nil {
		return nil, err
	}
	o := &Observer{
		cfg:    cfg,
		client: client,
		codec:  codec,
		clock:  xclock.Default(),
	}
	if len(cfg.Types) > 0 {
		o.types = make(map[xevent.NotificationType]struct{}, len(cfg.Types))
		for _, t := range cfg.Types {
			o.types[t] = struct{}{}
		}
	}
	return o, nil
}

// OnNotification exports n. Write errors are counted, not returned.
func (o *Observer) OnNotification(n xevent.Notification) {
	if o.closed.Load() {
		return
	}
	if !o.accepts(n.Type) {
		o.filtered.Add(1)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Timeout)
	defer cancel()
	_ = o.Publish(ctx, n)
}

func (o *Observer) accepts(t xevent.NotificationType) bool {
	if o.types == nil {
		return true
	}
	_, ok := o.types[t]
	return ok
}

// Publish appends notifications to the stream with XADD, pipelined for batches.
// The type filter is not applied here.
func (o *Observer) Publish(ctx context.Context, ns ...xevent.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	if o.closed.Load() {
		return ErrClosed
	}

	pipe := o.client.Pipeline()
	producedAt := o.clock.Now().UnixNano()

	for _, n := range ns {
		payload, err := o.codec.Marshal(RecordOf(n))
		if err != nil {
			o.publishErrors.Add(uint64(len(ns)))
			return fmt.Errorf("redisstream: encode %s: %w", n.Type, err)
		}
		args := &redis.XAddArgs{
			Stream: o.cfg.Stream,
			ID:     "*",
			Values: map[string]any{
				fieldType:       string(n.Type),
				fieldPayload:    payload,
				fieldProducedAt: producedAt,
			},
		}
		// Approximate trimming to keep stream bounded
		if o.cfg.MaxLenApprox > 0 {
			args.MaxLen = o.cfg.MaxLenApprox
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		o.publishErrors.Add(uint64(len(ns)))
		return err
	}
	o.published.Add(uint64(len(ns)))
	return nil
}

// Tail returns up to n of the most recent records, newest first.
func (o *Observer) Tail(ctx context.Context, n int64) ([]Record, error) {
	msgs, err := o.client.XRevRangeN(ctx, o.cfg.Stream, "+", "-", n).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[fieldPayload].(string)
		if !ok {
			continue
		}
		rec, err := xevent.Decode[Record](o.codec, []byte(raw))
		if err != nil {
			return nil, fmt.Errorf("redisstream: decode %s: %w", m.ID, err)
		}
		rec.StreamID = m.ID
		out = append(out, rec)
	}
	return out, nil
}

// Stats returns exporter counters.
func (o *Observer) Stats() Stats {
	return Stats{
		Published:     o.published.Load(),
		Filtered:      o.filtered.Load(),
		PublishErrors: o.publishErrors.Load(),
	}
}

// Close stops exporting. The client is closed only if NewObserver created it.
func (o *Observer) Close(_ context.Context) error {
	if o.closed.Swap(true) {
		return nil
	}
	if o.ownsClient {
		return o.client.Close()
	}
	return nil
}

func ping(c *redis.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := c.Ping(ctx).Result()
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("redis ping timeout: %w", err)
		}
		return err
	}

	if strings.ToUpper(res) != "PONG" {
		return fmt.Errorf("unexpected redis ping result: %s", res)
	}
	return nil
}
