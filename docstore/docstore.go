// Package docstore defines the document store abstraction used by voicelink.
//
// A Store persists schemaless documents grouped into named collections and
// supports filtered queries, field-level updates, and atomic
// read-modify-write transactions. Implementations exist for MongoDB
// (production), PostgreSQL (jsonb-backed), and an in-memory store for tests.
package docstore

import "context"

// Store is the interface all document store backends implement.
//
// Implementations must be safe for concurrent use. Every method that talks
// to a backend takes a context; implementations apply their own per-operation
// timeout on top of it.
type Store interface {
	// Connect establishes the connection to the backend and prepares
	// collections and indexes. Returns ErrAlreadyConnected if called twice.
	Connect(ctx context.Context) error

	// Close releases the connection. Safe to call on a store that never
	// connected.
	Close(ctx context.Context) error

	// Get retrieves a single document by key.
	// Returns ErrNotFound if no document with the key exists.
	Get(ctx context.Context, collection, key string) (Document, error)

	// FindWhere returns all documents in the collection matching every
	// condition, in backend-defined order.
	FindWhere(ctx context.Context, collection string, conds []Condition) ([]Document, error)

	// FindWhereOrdered returns documents matching every condition, sorted by
	// orderBy in the given direction. A limit of 0 means no limit.
	//
	// Backends that require a precomputed index for the (conds, orderBy)
	// combination return ErrIndexMissing when that index does not exist.
	// Callers that need ordered results without index guarantees should use
	// the fallback engine in the root package.
	FindWhereOrdered(ctx context.Context, collection string, conds []Condition, orderBy string, order SortOrder, limit int) ([]Document, error)

	// SetMerge writes fields into the document with the given key, creating
	// the document if it does not exist and preserving fields not listed.
	SetMerge(ctx context.Context, collection, key string, fields map[string]any) error

	// UpdateFields updates fields on an existing document.
	// Returns ErrNotFound if the document does not exist.
	UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error

	// Delete removes a document. Deleting a missing document is a no-op.
	Delete(ctx context.Context, collection, key string) error

	// RunTransaction executes fn atomically. All reads through tx observe a
	// consistent snapshot and all writes are applied together on commit, or
	// not at all. If fn returns an error the transaction is aborted and the
	// error is returned unwrapped.
	//
	// Backends may retry fn on contention, so fn must be idempotent.
	// Returns ErrConflict (possibly wrapped) when the transaction cannot be
	// committed after retries.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx provides read and write access within a transaction.
// A Tx is only valid for the duration of the RunTransaction callback.
type Tx interface {
	// Get retrieves a document within the transaction.
	// Returns ErrNotFound if no document with the key exists.
	Get(ctx context.Context, collection, key string) (Document, error)

	// SetMerge stages a merge-write, creating the document if needed.
	SetMerge(ctx context.Context, collection, key string, fields map[string]any) error

	// UpdateFields stages a field update on an existing document.
	// Returns ErrNotFound if the document does not exist.
	UpdateFields(ctx context.Context, collection, key string, fields map[string]any) error

	// Delete stages a document deletion.
	Delete(ctx context.Context, collection, key string) error
}
