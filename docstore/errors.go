package docstore

import "errors"

// Sentinel errors for the docstore package.
var (
	// ErrNotFound is returned when a document cannot be found.
	ErrNotFound = errors.New("docstore: not found")

	// ErrIndexMissing is returned by FindWhereOrdered when the backend
	// requires a precomputed index for the query and none exists.
	ErrIndexMissing = errors.New("docstore: index missing")

	// ErrConflict is returned when a transaction cannot be committed due to
	// concurrent modification of the documents it read.
	ErrConflict = errors.New("docstore: transaction conflict")

	// ErrInvalidCondition is returned when a query condition is malformed.
	ErrInvalidCondition = errors.New("docstore: invalid condition")

	// ErrInvalidKey is returned when an empty or malformed document key is provided.
	ErrInvalidKey = errors.New("docstore: invalid key")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("docstore: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("docstore: already connected")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsIndexMissing(err error) bool {
	return errors.Is(err, ErrIndexMissing)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
