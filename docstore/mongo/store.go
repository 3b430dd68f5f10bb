// Package mongo provides a MongoDB implementation of docstore.Store.
//
// Each docstore collection maps to a MongoDB collection; the document key is
// stored as _id. Ordered queries are executed with an index hint so that a
// missing index surfaces as docstore.ErrIndexMissing instead of silently
// falling back to an unindexed sort.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/voicelink/voicelink/docstore"
)

// Store implements docstore.Store using MongoDB.
type Store struct {
	client    *mongo.Client
	db        *mongo.Database
	opts      *options
	connected int32
	logger    *slog.Logger
}

// Ensure Store implements docstore.Store.
var _ docstore.Store = (*Store)(nil)

// New creates a new MongoDB store with the provided client.
// Call Connect() to initialize the database and indexes.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		client: client,
		opts:   o,
		logger: o.logger,
	}
}

// Connect pings the server and creates declared indexes.
func (s *Store) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 1 {
		return docstore.ErrAlreadyConnected
	}

	if s.client == nil {
		return fmt.Errorf("mongo: client is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}

	s.db = s.client.Database(s.opts.database)

	if err := s.ensureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	atomic.StoreInt32(&s.connected, 1)
	s.logger.Info("connected to MongoDB", "database", s.opts.database)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the MongoDB client.
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

// ensureIndexes creates single-field indexes declared via WithIndex.
// Index names follow the driver default (field_1) so ordered queries can
// hint them by name.
func (s *Store) ensureIndexes(ctx context.Context) error {
	byCollection := make(map[string][]mongo.IndexModel)
	for _, idx := range s.opts.indexes {
		byCollection[idx.collection] = append(byCollection[idx.collection], mongo.IndexModel{
			Keys: bson.D{bson.E{Key: idx.field, Value: 1}},
		})
	}

	for collection, models := range byCollection {
		if _, err := s.db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("collection %s: %w", collection, err)
		}
	}
	return nil
}

// fromBSON converts a raw BSON document into a docstore.Document.
// The _id field becomes the document key and is removed from Fields.
func fromBSON(raw bson.M) docstore.Document {
	doc := docstore.Document{Fields: make(map[string]any, len(raw))}
	for k, v := range raw {
		if k == "_id" {
			if id, ok := v.(string); ok {
				doc.Key = id
			}
			continue
		}
		doc.Fields[k] = normalizeBSON(v)
	}
	return doc
}

// normalizeBSON flattens driver container types into plain Go values so the
// rest of the codebase never sees bson primitives.
func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeBSON(e)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case int32:
		return int64(t)
	default:
		return v
	}
}
