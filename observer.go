package xevent

import (
	"strconv"

	"github.com/trickstertwo/xlog"
	"golang.org/x/time/rate"
)

// ObserverFunc is an Adapter that lets a plain function satisfy Observer.
type ObserverFunc func(n Notification)

func (f ObserverFunc) OnNotification(n Notification) { f(n) }

// LoggingObserver is an Adapter that emits notifications via xlog. Warn-level
// lines go through Limiter when one is set, so a runaway registration loop
// cannot flood the log.
type LoggingObserver struct {
	Logger  *xlog.Logger
	Limiter *rate.Limiter
}

// NewLoggingObserver returns a LoggingObserver allowing ten warnings per
// second with bursts of ten.
func NewLoggingObserver(l *xlog.Logger) LoggingObserver {
	return LoggingObserver{Logger: l, Limiter: rate.NewLimiter(rate.Limit(10), 10)}
}

func (o LoggingObserver) OnNotification(n Notification) {
	if o.Logger == nil {
		return
	}
	lg := o.Logger.With(
		xlog.Str("type", string(n.Type)),
		xlog.Str("index", itoa(n.ID.Index)),
		xlog.Str("time_start", utoa(n.ID.TimeStart)),
		xlog.Str("now", utoa(n.Now)),
		xlog.Str("arg", itoa(n.Arg)),
	)
	switch n.Type {
	case CapacityExhausted, CallbackPanic, SlowCallback:
		if o.Limiter != nil && !o.Limiter.Allow() {
			return
		}
		if n.Duration > 0 {
			lg = lg.With(xlog.Dur("duration", n.Duration))
		}
		if n.Err != nil {
			lg.Warn().Err(n.Err).Msg("xevent notification")
			return
		}
		lg.Warn().Msg("xevent notification")
	default:
		if n.Skipped > 0 {
			lg = lg.With(xlog.Str("skipped", utoa(n.Skipped)))
		}
		lg.Debug().Msg("xevent notification")
	}
}

func itoa(i int) string { return strconv.Itoa(i) }

func utoa(u uint32) string { return strconv.FormatUint(uint64(u), 10) }
