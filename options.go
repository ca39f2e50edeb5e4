package remotemem

import (
	"time"

	"github.com/hupe1980/remotemem/cache"
)

// NoTimeout keeps cached lines valid forever. This is the default.
const NoTimeout = cache.NoTimeout

type options struct {
	sets      int
	linebytes int
	timeout   time.Duration
	stats     bool
	logger    *Logger
	metrics   MetricsCollector
}

func defaultOptions() options {
	return options{
		sets:      8,
		linebytes: 32,
		timeout:   NoTimeout,
		stats:     true,
		logger:    NoopLogger(),
		metrics:   NoopMetricsCollector{},
	}
}

// Option configures a CachedHandler at construction time.
type Option func(*options)

// WithSets sets the number of cache line slots (default 8).
//
// Too many slots slow down the linear search, too few fail to hold the
// working set. The pool is fixed for the life of the handler.
func WithSets(n int) Option {
	return func(o *options) {
		o.sets = n
	}
}

// WithLineBytes sets the cache line size in bytes (default 32). Must be a
// power of two.
//
// A good line size is 2-4 times the per-transaction overhead of the link:
// overly long lines fetch bytes nobody looks at, overly short ones pay too
// much overhead per byte.
func WithLineBytes(n int) Option {
	return func(o *options) {
		o.linebytes = n
	}
}

// WithTimeout sets the freshness deadline: NoTimeout (the default) keeps
// lines forever, 0 disables caching entirely, a positive duration expires
// each line that long after its last full fill. Expiry is checked lazily
// at lookup time; there is no background sweeper.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithoutStats disables the hit/miss/timeout counters.
func WithoutStats() Option {
	return func(o *options) {
		o.stats = false
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector. The default is a no-op.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}
