package voicelink

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/voicelink/voicelink/docstore"
	"github.com/voicelink/voicelink/media"
)

// Default configuration values.
const (
	// DefaultOperationTimeout bounds every store call made by the service.
	// The underlying stores apply their own tighter timeouts as well.
	DefaultOperationTimeout = 15 * time.Second

	// DefaultMaxConcurrentSends caps in-flight message sends per service.
	DefaultMaxConcurrentSends = 10

	// DefaultListLimit is the default page size for listings.
	DefaultListLimit = 50

	// DefaultMaxListLimit is the hard cap on listing page size.
	DefaultMaxListLimit = 200
)

// options holds service configuration.
type options struct {
	store  docstore.Store
	media  media.FileStore
	logger *slog.Logger

	operationTimeout   time.Duration
	maxConcurrentSends int
	defaultListLimit   int
	maxListLimit       int

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// now is swapped in tests to control message timestamps.
	now func() time.Time
}

// Option configures the service.
type Option func(*options)

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		operationTimeout:   DefaultOperationTimeout,
		maxConcurrentSends: DefaultMaxConcurrentSends,
		defaultListLimit:   DefaultListLimit,
		maxListLimit:       DefaultMaxListLimit,
		now:                time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithStore sets the document store backend (required).
func WithStore(store docstore.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithMediaStore sets the file store used for voice note payloads.
// Without one, SendVoice returns ErrMediaStoreNotConfigured; Send with a
// caller-provided URL still works.
func WithMediaStore(fs media.FileStore) Option {
	return func(o *options) {
		o.media = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithOperationTimeout bounds every store call issued by the service.
func WithOperationTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.operationTimeout = d
		}
	}
}

// WithMaxConcurrentSends caps in-flight sends. Additional senders block
// until a slot frees up or their context is canceled.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// WithListLimits sets the default and maximum page sizes for listings.
func WithListLimits(defaultLimit, maxLimit int) Option {
	return func(o *options) {
		if defaultLimit > 0 {
			o.defaultListLimit = defaultLimit
		}
		if maxLimit > 0 {
			o.maxListLimit = maxLimit
		}
	}
}

// WithTracing enables OpenTelemetry tracing. A nil provider uses the global one.
func WithTracing(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracingEnabled = true
		o.tracerProvider = tp
	}
}

// WithMetrics enables OpenTelemetry metrics. A nil provider uses the global one.
func WithMetrics(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.metricsEnabled = true
		o.meterProvider = mp
	}
}

// withClock overrides the time source. Test hook.
func withClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
