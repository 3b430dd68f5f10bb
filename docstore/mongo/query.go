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

// Server error codes that indicate a usable index does not exist.
const (
	codeBadValue             = 2   // hint names a nonexistent index
	codeNoQueryExecutionPlan = 291 // no viable plan for the hinted query
)

// Get retrieves a document by key.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if err := s.checkConnected(); err != nil {
		return docstore.Document{}, err
	}
	if key == "" {
		return docstore.Document{}, docstore.ErrInvalidKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return docstore.Document{}, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
		}
		return docstore.Document{}, fmt.Errorf("mongo find one: %w", err)
	}
	return fromBSON(raw), nil
}

// FindWhere returns all documents matching every condition.
func (s *Store) FindWhere(ctx context.Context, collection string, conds []docstore.Condition) ([]docstore.Document, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateConditions(conds); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	cursor, err := s.db.Collection(collection).Find(ctx, buildFilter(conds))
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	return drainCursor(ctx, cursor)
}

// FindWhereOrdered returns matching documents sorted by orderBy.
//
// The query hints the single-field index on orderBy; if that index was never
// created the server rejects the query and ErrIndexMissing is returned. This
// keeps index requirements explicit instead of letting the server fall back
// to an in-memory sort with its own result size limits.
func (s *Store) FindWhereOrdered(ctx context.Context, collection string, conds []docstore.Condition, orderBy string, order docstore.SortOrder, limit int) ([]docstore.Document, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := docstore.ValidateConditions(conds); err != nil {
		return nil, err
	}
	if orderBy == "" {
		return nil, fmt.Errorf("%w: empty order field", docstore.ErrInvalidCondition)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	findOpts := mongoopts.Find().
		SetSort(sortSpec(orderBy, order)).
		SetHint(orderBy + "_1")
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, buildFilter(conds), findOpts)
	if err != nil {
		if isIndexError(err) {
			return nil, fmt.Errorf("%w: %s ordered by %s", docstore.ErrIndexMissing, collection, orderBy)
		}
		return nil, fmt.Errorf("mongo find ordered: %w", err)
	}
	return drainCursor(ctx, cursor)
}

// sortSpec builds the sort document for an ordered query. The document key
// is a secondary sort in the same direction so documents with equal values
// in the order field come back in a fixed order rather than whatever order
// the server happens to scan them in.
func sortSpec(orderBy string, order docstore.SortOrder) bson.D {
	dir := 1
	if order == docstore.SortDesc {
		dir = -1
	}
	return bson.D{
		bson.E{Key: orderBy, Value: dir},
		bson.E{Key: "_id", Value: dir},
	}
}

// buildFilter converts conditions into a MongoDB filter document.
func buildFilter(conds []docstore.Condition) bson.M {
	filter := bson.M{}
	for _, c := range conds {
		switch c.Op {
		case docstore.OpEqual:
			filter[c.Field] = c.Value
		case docstore.OpGreaterOrEqual:
			filter[c.Field] = mergeRange(filter[c.Field], "$gte", c.Value)
		case docstore.OpLessOrEqual:
			filter[c.Field] = mergeRange(filter[c.Field], "$lte", c.Value)
		}
	}
	return filter
}

// mergeRange combines range operators on the same field ($gte + $lte).
func mergeRange(existing any, op string, value any) bson.M {
	m, ok := existing.(bson.M)
	if !ok {
		m = bson.M{}
	}
	m[op] = value
	return m
}

func drainCursor(ctx context.Context, cursor *mongo.Cursor) ([]docstore.Document, error) {
	defer cursor.Close(ctx)

	var docs []docstore.Document
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("mongo decode: %w", err)
		}
		docs = append(docs, fromBSON(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo cursor: %w", err)
	}
	return docs, nil
}

// isIndexError reports whether the server rejected a query because the
// hinted index does not exist.
func isIndexError(err error) bool {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) {
		return srvErr.HasErrorCode(codeBadValue) || srvErr.HasErrorCode(codeNoQueryExecutionPlan)
	}
	return false
}
