// Package redisstream exports xevent controller notifications to a Redis
// stream so they can be inspected or consumed outside the process.
//
// Each notification becomes one stream entry:
//   - type: notification type ("fired", "stopped", ...)
//   - payload: the Record, encoded with the configured codec
//   - producedAt: wall-clock unix nanoseconds
//
// Minimal config keys:
//   - addr: "host:port" (default "127.0.0.1:6379")
//   - stream: stream key (default "xevent")
//   - max_len_approx: approximate MAXLEN trim (default 0 = unbounded)
//   - types: notification types to export (default all)
//   - timeout: per-write timeout (default 2s)
//
// Example:
//
//	obs, err := redisstream.NewObserver(redisstream.Config{
//	    Addr:   "localhost:6379",
//	    Stream: "pulse-events",
//	    Types:  []xevent.NotificationType{xevent.Started, xevent.Stopped},
//	})
//	c, _ := xevent.NewControllerBuilder().WithObserver(obs).Build()
package redisstream
