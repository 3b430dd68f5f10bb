package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/voicelink/voicelink/docstore"
)

// FindWhere returns all documents matching every condition, in unspecified order.
func (s *Store) FindWhere(ctx context.Context, collection string, conds []docstore.Condition) ([]docstore.Document, error) {
	if err := s.checkReady("FindWhere"); err != nil {
		return nil, err
	}
	if err := docstore.ValidateConditions(conds); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(collection, conds), nil
}

// FindWhereOrdered returns matching documents sorted by orderBy.
// The (collection, orderBy) index must have been declared, mirroring backends
// that refuse ordered queries without a precomputed index.
func (s *Store) FindWhereOrdered(ctx context.Context, collection string, conds []docstore.Condition, orderBy string, order docstore.SortOrder, limit int) ([]docstore.Document, error) {
	if err := s.checkReady("FindWhereOrdered"); err != nil {
		return nil, err
	}
	if err := docstore.ValidateConditions(conds); err != nil {
		return nil, err
	}
	if orderBy == "" {
		return nil, fmt.Errorf("%w: empty order field", docstore.ErrInvalidCondition)
	}
	if order == 0 {
		order = docstore.SortAsc
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.indexes[indexKey(collection, orderBy)] {
		return nil, fmt.Errorf("%w: %s ordered by %s", docstore.ErrIndexMissing, collection, orderBy)
	}

	docs := s.findLocked(collection, conds)
	sortDocuments(docs, orderBy, order)
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// findLocked requires s.mu held (read or write).
func (s *Store) findLocked(collection string, conds []docstore.Condition) []docstore.Document {
	var out []docstore.Document
	for _, doc := range s.data[collection] {
		if docstore.MatchesAll(doc, conds) {
			out = append(out, doc.Clone())
		}
	}
	return out
}

// sortDocuments sorts by the named field. Documents missing the field sort
// first in ascending order. Ties break by key for determinism.
func sortDocuments(docs []docstore.Document, field string, order docstore.SortOrder) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi, iok := docs[i].Fields[field]
		vj, jok := docs[j].Fields[field]

		var cmp int
		switch {
		case !iok && !jok:
			cmp = 0
		case !iok:
			cmp = -1
		case !jok:
			cmp = 1
		default:
			c, ok := docstore.CompareValues(vi, vj)
			if ok {
				cmp = c
			}
		}
		if cmp == 0 {
			if docs[i].Key < docs[j].Key {
				cmp = -1
			} else if docs[i].Key > docs[j].Key {
				cmp = 1
			}
		}
		if order == docstore.SortDesc {
			return cmp > 0
		}
		return cmp < 0
	})
}
