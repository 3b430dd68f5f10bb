package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voicelink/voicelink/docstore"
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

	_, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M(fields)},
		mongoopts.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo set merge: %w", err)
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

	result, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M(fields)},
	)
	if err != nil {
		return fmt.Errorf("mongo update: %w", err)
	}
	if result.MatchedCount == 0 {
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

	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo delete: %w", err)
	}
	return nil
}

// RunTransaction executes fn inside a MongoDB multi-document transaction.
//
// The driver retries transient transaction errors internally; write
// conflicts that survive those retries are mapped to docstore.ErrConflict.
// Errors returned by fn abort the transaction and are returned as-is.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.txTimeout)
	defer cancel()

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(&txn{store: s, sc: sc})
	})
	if err != nil {
		if isConflictError(err) {
			return fmt.Errorf("%w: %v", docstore.ErrConflict, err)
		}
		return err
	}
	return nil
}

// txn routes transactional reads and writes through the session context.
type txn struct {
	store *Store
	sc    mongo.SessionContext
}

var _ docstore.Tx = (*txn)(nil)

func (t *txn) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if key == "" {
		return docstore.Document{}, docstore.ErrInvalidKey
	}

	var raw bson.M
	err := t.store.db.Collection(collection).FindOne(t.sc, bson.M{"_id": key}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
		}
		return docstore.Document{}, fmt.Errorf("mongo tx find one: %w", err)
	}
	return fromBSON(raw), nil
}

func (t *txn) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	_, err := t.store.db.Collection(collection).UpdateOne(t.sc,
		bson.M{"_id": key},
		bson.M{"$set": bson.M(fields)},
		mongoopts.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo tx set merge: %w", err)
	}
	return nil
}

func (t *txn) UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	result, err := t.store.db.Collection(collection).UpdateOne(t.sc,
		bson.M{"_id": key},
		bson.M{"$set": bson.M(fields)},
	)
	if err != nil {
		return fmt.Errorf("mongo tx update: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
	}
	return nil
}

func (t *txn) Delete(ctx context.Context, collection, key string) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	if _, err := t.store.db.Collection(collection).DeleteOne(t.sc, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongo tx delete: %w", err)
	}
	return nil
}

// isConflictError reports whether the transaction failed due to contention.
func isConflictError(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.HasErrorLabel("TransientTransactionError") ||
			cmdErr.HasErrorLabel("UnknownTransactionCommitResult")
	}
	return false
}
