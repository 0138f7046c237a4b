// Package progress rate-limits byte-count progress callbacks and guarantees
// a single terminal notification.
package progress

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultInterval is the minimum time between non-final callbacks.
const DefaultInterval = 100 * time.Millisecond

// Func receives progress updates. total is 0 when the input size is unknown.
type Func func(consumed, total int64, final bool)

// Reporter forwards Update calls to a Func at most once per interval and
// makes exactly one final call from Finish. A nil *Reporter is a no-op.
type Reporter struct {
	fn       Func
	total    int64
	interval time.Duration
	now      func() time.Time
	log      *slog.Logger

	mu       sync.Mutex
	last     time.Time
	consumed int64
	finished bool
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(r *Reporter) { r.interval = d }
}

// WithLogger sets the logger used to report callback panics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.log = l
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// New returns a Reporter for an input of total bytes. A nil fn yields a nil
// Reporter.
func New(fn Func, total int64, opts ...Option) *Reporter {
	if fn == nil {
		return nil
	}
	r := &Reporter{
		fn:       fn,
		total:    total,
		interval: DefaultInterval,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.last = r.now()
	return r
}

// Update records consumed bytes and calls the Func if the interval elapsed.
func (r *Reporter) Update(consumed int64) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.consumed = consumed
	t := r.now()
	if t.Sub(r.last) < r.interval {
		return
	}
	r.last = t
	r.call(consumed, false)
}

// Finish makes the final call. Later calls do nothing.
func (r *Reporter) Finish() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished {
		return
	}
	r.finished = true
	r.call(r.consumed, true)
}

func (r *Reporter) call(consumed int64, final bool) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("progress callback panicked", "panic", p)
		}
	}()
	r.fn(consumed, r.total, final)
}

// Writer returns a Func that renders a one-line status to w, rewriting the
// line with a carriage return until the final call ends it.
func Writer(w io.Writer) Func {
	return func(consumed, total int64, final bool) {
		end := "\r"
		if final {
			end = "\n"
		}
		if total <= 0 {
			fmt.Fprintf(w, "Progress: %s%s", humanize.IBytes(uint64(consumed)), end)
			return
		}
		pct := consumed * 100 / total
		if final {
			pct = 100
		}
		fmt.Fprintf(w, "Progress: %d%% (%s / %s)%s", pct,
			humanize.IBytes(uint64(consumed)), humanize.IBytes(uint64(total)), end)
	}
}
