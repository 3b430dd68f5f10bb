package mongo

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	DefaultDatabase  = "voicelink"
	DefaultTimeout   = 10 * time.Second
	DefaultTxTimeout = 30 * time.Second
)

type declaredIndex struct {
	collection string
	field      string
}

// options holds MongoDB store configuration.
type options struct {
	database  string
	timeout   time.Duration
	txTimeout time.Duration
	logger    *slog.Logger
	indexes   []declaredIndex
}

func newOptions(opts ...Option) *options {
	o := &options{
		database:  DefaultDatabase,
		timeout:   DefaultTimeout,
		txTimeout: DefaultTxTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a MongoDB store.
type Option func(*options)

// WithDatabase sets the database name.
func WithDatabase(name string) Option {
	return func(o *options) {
		if name != "" {
			o.database = name
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
// attempts the driver makes.
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

// WithIndex declares a single-field index on (collection, field), created
// during Connect(). Ordered queries require the orderBy field to have been
// declared here.
func WithIndex(collection, field string) Option {
	return func(o *options) {
		o.indexes = append(o.indexes, declaredIndex{collection: collection, field: field})
	}
}
