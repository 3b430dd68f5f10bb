package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/voicelink/voicelink/docstore"
	"github.com/voicelink/voicelink/retry"
)

// PostgreSQL error codes that indicate transaction contention.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// SetMerge upserts fields into a document, preserving fields not listed.
func (s *Store) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if key == "" {
		return docstore.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return setMergeExec(ctx, s.db, s.opts.table, collection, key, fields)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setMergeExec(ctx context.Context, db execer, table, collection, key string, fields map[string]any) error {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("postgres encode fields: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (collection, key, fields, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (collection, key)
		DO UPDATE SET fields = %s.fields || EXCLUDED.fields, updated_at = NOW()`,
		table, table)

	if _, err := db.ExecContext(ctx, query, collection, key, encoded); err != nil {
		return fmt.Errorf("postgres set merge: %w", err)
	}
	return nil
}

// UpdateFields updates fields on an existing document.
func (s *Store) UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if key == "" {
		return docstore.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	return updateFieldsExec(ctx, s.db, s.opts.table, collection, key, fields)
}

func updateFieldsExec(ctx context.Context, db execer, table, collection, key string, fields map[string]any) error {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("postgres encode fields: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s SET fields = fields || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND key = $2`, table)

	result, err := db.ExecContext(ctx, query, collection, key, encoded)
	if err != nil {
		return fmt.Errorf("postgres update: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
	}
	return nil
}

// Delete removes a document. Missing documents are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if key == "" {
		return docstore.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND key = $2`, s.opts.table)
	if _, err := s.db.ExecContext(ctx, query, collection, key); err != nil {
		return fmt.Errorf("postgres delete: %w", err)
	}
	return nil
}

// RunTransaction executes fn inside a SERIALIZABLE transaction.
//
// Serialization failures (40001) and deadlocks (40P01) are mapped to
// docstore.ErrConflict and retried with backoff. Errors from fn roll the
// transaction back without retrying.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.txTimeout)
	defer cancel()

	cfg := s.opts.txRetry
	cfg.IsRetryable = docstore.IsConflict

	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		return s.runTransactionOnce(ctx, fn)
	})
}

func (s *Store) runTransactionOnce(ctx context.Context, fn func(tx docstore.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("postgres begin: %w", err)
	}

	tx := &txn{store: s, tx: sqlTx}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
		}
		return fmt.Errorf("postgres commit: %w", err)
	}
	return nil
}

// txn routes transactional reads and writes through the open sql transaction.
type txn struct {
	store *Store
	tx    *sqlx.Tx
}

var _ docstore.Tx = (*txn)(nil)

func (t *txn) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if key == "" {
		return docstore.Document{}, docstore.ErrInvalidKey
	}

	query := fmt.Sprintf(`SELECT fields FROM %s WHERE collection = $1 AND key = $2`, t.store.opts.table)

	var raw []byte
	err := t.tx.GetContext(ctx, &raw, query, collection, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return docstore.Document{}, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
		}
		if isConflictError(err) {
			return docstore.Document{}, fmt.Errorf("%w: %v", docstore.ErrConflict, err)
		}
		return docstore.Document{}, fmt.Errorf("postgres tx get: %w", err)
	}
	return decodeDocument(key, raw)
}

func (t *txn) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	if err := setMergeExec(ctx, t.tx, t.store.opts.table, collection, key, fields); err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
		}
		return err
	}
	return nil
}

func (t *txn) UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	if err := updateFieldsExec(ctx, t.tx, t.store.opts.table, collection, key, fields); err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
		}
		return err
	}
	return nil
}

func (t *txn) Delete(ctx context.Context, collection, key string) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND key = $2`, t.store.opts.table)
	if _, err := t.tx.ExecContext(ctx, query, collection, key); err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
		}
		return fmt.Errorf("postgres tx delete: %w", err)
	}
	return nil
}

// isConflictError reports whether err is a retryable contention error.
func isConflictError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == codeSerializationFailure || string(pqErr.Code) == codeDeadlockDetected
	}
	return false
}
