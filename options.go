package activo

import (
	"time"
)

type options struct {
	logger               *Logger
	collector            Collector
	housekeepingInterval time.Duration
	syncPollInterval     time.Duration
	closeTimeout         time.Duration
	initialCapacity      int
}

// Option configures store construction.
type Option func(*options)

// WithLogger configures structured logging. Pass nil to keep the
// default no-op logger.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCollector configures a metrics collector for monitoring
// operations. Pass nil to keep the default no-op collector.
func WithCollector(c Collector) Option {
	return func(o *options) {
		if c != nil {
			o.collector = c
		}
	}
}

// WithHousekeepingInterval configures how often the background loop
// polls for flush-due state. Default 15s.
func WithHousekeepingInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.housekeepingInterval = d
		}
	}
}

// WithSyncPollInterval configures the bounded re-check interval of
// SyncWithVersion and SyncWithDurableVersion. Default 400ms.
func WithSyncPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.syncPollInterval = d
		}
	}
}

// WithCloseTimeout bounds how long Close waits for the flush worker to
// drain. Default 2s.
func WithCloseTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.closeTimeout = d
		}
	}
}

// WithInitialCapacity pre-sizes the uid→slot map. Default 5000.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.initialCapacity = n
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:               NoopLogger(),
		collector:            NoopCollector{},
		housekeepingInterval: 15 * time.Second,
		syncPollInterval:     400 * time.Millisecond,
		closeTimeout:         2 * time.Second,
		initialCapacity:      5000,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
