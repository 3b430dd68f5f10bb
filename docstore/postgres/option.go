package postgres

import (
	"log/slog"
	"time"

	"github.com/voicelink/voicelink/retry"
)

// Default configuration values.
const (
	DefaultTable     = "documents"
	DefaultTimeout   = 10 * time.Second
	DefaultTxTimeout = 30 * time.Second
)

type declaredIndex struct {
	collection string
	field      string
}

// options holds PostgreSQL store configuration.
type options struct {
	table     string
	timeout   time.Duration
	txTimeout time.Duration
	logger    *slog.Logger
	indexes   []declaredIndex
	txRetry   retry.Config
}

func newOptions(opts ...Option) *options {
	o := &options{
		table:     DefaultTable,
		timeout:   DefaultTimeout,
		txTimeout: DefaultTxTimeout,
		logger:    slog.Default(),
		txRetry:   retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a PostgreSQL store.
type Option func(*options)

// WithTable sets the document table name.
func WithTable(name string) Option {
	return func(o *options) {
		if name != "" {
			o.table = name
		}
	}
}

// WithTimeout sets the per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithTransactionTimeout sets the timeout for RunTransaction, covering all
// retry attempts.
func WithTransactionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.txTimeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithIndex declares an expression index on (collection, field), created
// during Connect(). Unlike other backends these are advisory; ordered
// queries work without them.
func WithIndex(collection, field string) Option {
	return func(o *options) {
		o.indexes = append(o.indexes, declaredIndex{collection: collection, field: field})
	}
}

// WithTransactionRetry overrides the retry policy for serialization failures.
func WithTransactionRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.txRetry = cfg
	}
}
