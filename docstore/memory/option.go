package memory

import (
	"log/slog"
	"time"

	"github.com/voicelink/voicelink/retry"
)

type declaredIndex struct {
	collection string
	field      string
}

// options holds memory store configuration.
type options struct {
	logger  *slog.Logger
	indexes []declaredIndex
	txRetry retry.Config
}

// Option configures the memory store.
type Option func(*options)

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger: slog.Default(),
		txRetry: retry.Config{
			MaxRetries:     5,
			InitialBackoff: 5 * time.Millisecond,
			MaxBackoff:     100 * time.Millisecond,
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIndex declares an index on (collection, field) at construction time,
// enabling FindWhereOrdered for that combination.
func WithIndex(collection, field string) Option {
	return func(o *options) {
		o.indexes = append(o.indexes, declaredIndex{collection: collection, field: field})
	}
}

// WithTransactionRetry overrides the retry policy for transaction conflicts.
func WithTransactionRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.txRetry = cfg
	}
}
