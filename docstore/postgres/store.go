// Package postgres provides a PostgreSQL implementation of docstore.Store.
//
// Documents are stored as jsonb rows in a single table keyed by
// (collection, key). PostgreSQL can sort any jsonb expression without a
// precomputed index, so FindWhereOrdered never returns ErrIndexMissing; the
// declared indexes only exist to keep ordered queries fast.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/voicelink/voicelink/docstore"
)

// Compile-time check
var _ docstore.Store = (*Store)(nil)

// Store implements docstore.Store using PostgreSQL.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new PostgreSQL store with the provided database connection.
// Call Connect() to initialize the schema and indexes.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL store from a standard sql.DB connection.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return docstore.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: db is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to PostgreSQL", "table", s.opts.table)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return docstore.ErrNotConnected
	}
	return nil
}

// ensureSchema creates the document table and declared expression indexes.
func (s *Store) ensureSchema(ctx context.Context) error {
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			collection VARCHAR(255) NOT NULL,
			key VARCHAR(255) NOT NULL,
			fields JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, key)
		)`, s.opts.table)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	for _, idx := range s.opts.indexes {
		createIndex := fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_%s_%s_idx ON %s ((fields->>'%s')) WHERE collection = '%s'`,
			s.opts.table, idx.collection, idx.field, s.opts.table, idx.field, idx.collection,
		)
		if _, err := s.db.ExecContext(ctx, createIndex); err != nil {
			return fmt.Errorf("create index on %s.%s: %w", idx.collection, idx.field, err)
		}
	}
	return nil
}
