package voicelink

import (
	"errors"
	"fmt"

	"github.com/voicelink/voicelink/docstore"
)

// Sentinel errors for the voicelink package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding docstore-level errors where applicable,
// so errors.Is(err, voicelink.ErrNotFound) will match both service-level
// and store-level "not found" errors.
var (
	// ErrNotFound is returned when an account, message, or report cannot be found.
	// Wraps docstore.ErrNotFound for consistent error checking.
	ErrNotFound = fmt.Errorf("voicelink: %w", docstore.ErrNotFound)

	// ErrStoreRequired is returned when no document store is configured.
	ErrStoreRequired = errors.New("voicelink: store is required")

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps docstore.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("voicelink: %w", docstore.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps docstore.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("voicelink: %w", docstore.ErrAlreadyConnected)

	// ErrInvalidAccount is returned for account validation failures.
	ErrInvalidAccount = errors.New("voicelink: invalid account")

	// ErrInvalidMessage is returned for message validation failures.
	ErrInvalidMessage = errors.New("voicelink: invalid message")

	// ErrInvalidReport is returned for report validation failures.
	ErrInvalidReport = errors.New("voicelink: invalid report")

	// ErrSelfMessage is returned when sender and recipient are the same account.
	ErrSelfMessage = errors.New("voicelink: cannot message yourself")

	// ErrTransactionFailed is returned when an atomic account update could not
	// be committed after the store's own retries. The caller must treat the
	// update as not applied.
	// Wraps docstore.ErrConflict for consistent error checking.
	ErrTransactionFailed = fmt.Errorf("voicelink: transaction failed: %w", docstore.ErrConflict)

	// ErrMediaStoreNotConfigured is returned when a voice upload is attempted
	// without a configured media store.
	ErrMediaStoreNotConfigured = errors.New("voicelink: media store not configured")
)

// IsNotFound reports whether err represents a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, docstore.ErrNotFound)
}
