package voicelink

import (
	"context"
	"sort"

	"github.com/voicelink/voicelink/docstore"
)

// orderedQuery describes an ordered, limited listing. Every listing in the
// service (messages, unread counts, reports, name search) is expressed as
// one of these and executed through queryWithFallback.
type orderedQuery struct {
	Collection string
	Conditions []docstore.Condition
	OrderBy    string
	Order      docstore.SortOrder
	Limit      int // 0 means no limit
}

// queryWithFallback executes q, preferring the store's indexed ordered path.
//
// When the store reports a missing index — and only then — it falls back to
// an unordered full scan of the matching documents, reapplies the ordering
// in memory, and truncates to the limit. The two paths return identical
// sequences for any data set. Every other error, including failures of the
// scan itself, propagates to the caller unchanged.
//
// The second return value reports whether the fallback path served the query.
func queryWithFallback[T any](ctx context.Context, s *service, q orderedQuery, decode func(docstore.Document) T) ([]T, bool, error) {
	docs, err := s.store.FindWhereOrdered(ctx, q.Collection, q.Conditions, q.OrderBy, q.Order, q.Limit)
	if err == nil {
		return decodeAll(docs, decode), false, nil
	}
	if !docstore.IsIndexMissing(err) {
		return nil, false, err
	}

	s.logger.Warn("ordered query lacks index, falling back to full scan",
		"collection", q.Collection,
		"order_by", q.OrderBy,
	)

	docs, err = s.store.FindWhere(ctx, q.Collection, q.Conditions)
	if err != nil {
		return nil, true, err
	}

	sortByField(docs, q.OrderBy, q.Order)
	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return decodeAll(docs, decode), true, nil
}

// sortByField orders documents by lexical comparison of the named field
// rendered as a string; absent or non-string values sort as the empty
// string. Ties break by document key so the order is deterministic.
func sortByField(docs []docstore.Document, field string, order docstore.SortOrder) {
	sort.SliceStable(docs, func(i, j int) bool {
		vi := docs[i].GetString(field)
		vj := docs[j].GetString(field)
		if vi == vj {
			if order == docstore.SortDesc {
				return docs[i].Key > docs[j].Key
			}
			return docs[i].Key < docs[j].Key
		}
		if order == docstore.SortDesc {
			return vi > vj
		}
		return vi < vj
	})
}

func decodeAll[T any](docs []docstore.Document, decode func(docstore.Document) T) []T {
	out := make([]T, len(docs))
	for i, doc := range docs {
		out[i] = decode(doc)
	}
	return out
}
