// Package memory provides an in-memory implementation of docstore.Store.
//
// The memory store is intended for tests and local development. It supports
// the full Store contract including optimistic transactions, and two features
// the real backends do not need: a declared-index registry so ordered-query
// fallback paths can be exercised, and per-method error injection so callers
// can test their degraded modes.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/voicelink/voicelink/docstore"
)

// Store implements docstore.Store with in-process maps.
type Store struct {
	mu        sync.RWMutex
	data      map[string]map[string]docstore.Document // collection -> key -> document
	versions  map[string]map[string]uint64            // collection -> key -> write version
	indexes   map[string]bool                         // "collection\x00field" -> declared
	injected  map[string]error                        // method name -> injected error
	connected int32
	logger    *slog.Logger
	opts      *options
}

// Ensure Store implements docstore.Store.
var _ docstore.Store = (*Store)(nil)

// New creates a new in-memory store.
func New(opts ...Option) *Store {
	o := newOptions(opts...)
	s := &Store{
		data:     make(map[string]map[string]docstore.Document),
		versions: make(map[string]map[string]uint64),
		indexes:  make(map[string]bool),
		injected: make(map[string]error),
		logger:   o.logger,
		opts:     o,
	}
	for _, idx := range o.indexes {
		s.indexes[indexKey(idx.collection, idx.field)] = true
	}
	return s
}

// Connect marks the store as connected.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return docstore.ErrAlreadyConnected
	}
	s.logger.Debug("memory store connected")
	return nil
}

// Close marks the store as disconnected. Data is retained so a test can
// reconnect and observe the same documents.
func (s *Store) Close(ctx context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// DeclareIndex registers an index on (collection, field), enabling
// FindWhereOrdered for that combination.
func (s *Store) DeclareIndex(collection, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[indexKey(collection, field)] = true
}

// DropIndex removes a declared index. Subsequent ordered queries on the
// combination return docstore.ErrIndexMissing.
func (s *Store) DropIndex(collection, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, indexKey(collection, field))
}

// InjectError makes the named method ("Get", "FindWhere", "FindWhereOrdered",
// "SetMerge", "UpdateFields", "Delete", "RunTransaction") fail with err until
// cleared with a nil err.
func (s *Store) InjectError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.injected, method)
		return
	}
	s.injected[method] = err
}

func (s *Store) checkReady(method string) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return docstore.ErrNotConnected
	}
	s.mu.RLock()
	err := s.injected[method]
	s.mu.RUnlock()
	return err
}

// Get retrieves a document by key.
func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if err := s.checkReady("Get"); err != nil {
		return docstore.Document{}, err
	}
	if key == "" {
		return docstore.Document{}, docstore.ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getLocked(collection, key)
}

// getLocked requires s.mu held (read or write).
func (s *Store) getLocked(collection, key string) (docstore.Document, error) {
	doc, ok := s.data[collection][key]
	if !ok {
		return docstore.Document{}, fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
	}
	return doc.Clone(), nil
}

// SetMerge writes fields into a document, creating it if absent.
func (s *Store) SetMerge(ctx context.Context, collection, key string, fields map[string]any) error {
	if err := s.checkReady("SetMerge"); err != nil {
		return err
	}
	if key == "" {
		return docstore.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setMergeLocked(collection, key, fields)
	return nil
}

func (s *Store) setMergeLocked(collection, key string, fields map[string]any) {
	coll := s.data[collection]
	if coll == nil {
		coll = make(map[string]docstore.Document)
		s.data[collection] = coll
	}
	doc, ok := coll[key]
	if !ok {
		doc = docstore.Document{Key: key, Fields: make(map[string]any, len(fields))}
	} else {
		doc = doc.Clone()
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	coll[key] = doc
	s.bumpVersionLocked(collection, key)
}

// UpdateFields updates fields on an existing document.
func (s *Store) UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error {
	if err := s.checkReady("UpdateFields"); err != nil {
		return err
	}
	if key == "" {
		return docstore.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateFieldsLocked(collection, key, fields)
}

func (s *Store) updateFieldsLocked(collection, key string, fields map[string]any) error {
	coll := s.data[collection]
	doc, ok := coll[key]
	if !ok {
		return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, collection, key)
	}
	doc = doc.Clone()
	for k, v := range fields {
		doc.Fields[k] = v
	}
	coll[key] = doc
	s.bumpVersionLocked(collection, key)
	return nil
}

// Delete removes a document. Missing documents are ignored.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := s.checkReady("Delete"); err != nil {
		return err
	}
	if key == "" {
		return docstore.ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], key)
	s.bumpVersionLocked(collection, key)
	return nil
}

func (s *Store) bumpVersionLocked(collection, key string) {
	vers := s.versions[collection]
	if vers == nil {
		vers = make(map[string]uint64)
		s.versions[collection] = vers
	}
	vers[key]++
}

func (s *Store) versionLocked(collection, key string) uint64 {
	return s.versions[collection][key]
}

func indexKey(collection, field string) string {
	return collection + "\x00" + field
}
