package memory

import (
	"context"
	"fmt"

	"github.com/voicelink/voicelink/docstore"
	"github.com/voicelink/voicelink/retry"
)

// RunTransaction executes fn atomically using optimistic concurrency control.
//
// Reads record the version of every document they touch; commit re-checks
// those versions under the write lock and applies all staged writes only if
// none changed. On a version mismatch the transaction returns
// docstore.ErrConflict and is retried with backoff. Errors returned by fn
// abort the transaction without retrying.
func (s *Store) RunTransaction(ctx context.Context, fn func(tx docstore.Tx) error) error {
	if err := s.checkReady("RunTransaction"); err != nil {
		return err
	}

	cfg := s.opts.txRetry
	cfg.IsRetryable = docstore.IsConflict

	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		tx := &txn{store: s, reads: make(map[string]uint64)}
		if err := fn(tx); err != nil {
			return err
		}
		return s.commit(tx)
	})
}

type txWriteKind int

const (
	txSetMerge txWriteKind = iota
	txUpdate
	txDelete
)

type txWrite struct {
	kind       txWriteKind
	collection string
	key        string
	fields     map[string]any
}

// txn stages reads and writes for one transaction attempt.
// Reads observe committed state only; staged writes become visible on commit.
type txn struct {
	store  *Store
	reads  map[string]uint64
	writes []txWrite
}

var _ docstore.Tx = (*txn)(nil)

func (t *txn) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if key == "" {
		return docstore.Document{}, docstore.ErrInvalidKey
	}

	t.store.mu.RLock()
	defer t.store.mu.RUnlock()

	t.reads[indexKey(collection, key)] = t.store.versionLocked(collection, key)
	return t.store.getLocked(collection, key)
}

func (t *txn) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	t.writes = append(t.writes, txWrite{kind: txSetMerge, collection: collection, key: key, fields: fields})
	return nil
}

func (t *txn) UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	t.writes = append(t.writes, txWrite{kind: txUpdate, collection: collection, key: key, fields: fields})
	return nil
}

func (t *txn) Delete(ctx context.Context, collection, key string) error {
	if key == "" {
		return docstore.ErrInvalidKey
	}
	t.writes = append(t.writes, txWrite{kind: txDelete, collection: collection, key: key})
	return nil
}

// commit validates read versions and applies staged writes atomically.
func (s *Store) commit(t *txn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for readKey, version := range t.reads {
		collection, key := splitIndexKey(readKey)
		if s.versionLocked(collection, key) != version {
			return fmt.Errorf("%w: %s/%s modified concurrently", docstore.ErrConflict, collection, key)
		}
	}

	// Validate before applying so a failed transaction leaves no partial writes.
	for _, w := range t.writes {
		if w.kind == txUpdate {
			if _, ok := s.data[w.collection][w.key]; !ok {
				return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, w.collection, w.key)
			}
		}
	}

	for _, w := range t.writes {
		switch w.kind {
		case txSetMerge:
			s.setMergeLocked(w.collection, w.key, w.fields)
		case txUpdate:
			if err := s.updateFieldsLocked(w.collection, w.key, w.fields); err != nil {
				return err
			}
		case txDelete:
			delete(s.data[w.collection], w.key)
			s.bumpVersionLocked(w.collection, w.key)
		}
	}
	return nil
}

func splitIndexKey(k string) (collection, key string) {
	for i := 0; i < len(k); i++ {
		if k[i] == '\x00' {
			return k[:i], k[i+1:]
		}
	}
	return k, ""
}
