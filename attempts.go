package voicelink

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voicelink/voicelink/docstore"
)

// LockState is the lockout state of an account after a tracker operation.
type LockState struct {
	// Attempts is the failure counter value. Capped at LockThreshold.
	Attempts int

	// Locked reports whether the account is locked out.
	Locked bool
}

// RecordFailure atomically advances the failure counter for an account.
//
// The read-increment-write cycle runs inside a store transaction, so
// concurrent calls for the same account serialize and no increment is lost.
// An already locked account absorbs further failures silently: the call
// succeeds and returns the current state without writing. If the store
// cannot commit the transaction after its own retries, the error propagates —
// the caller must know the increment may not have applied.
func (s *service) RecordFailure(ctx context.Context, accountID string) (LockState, error) {
	if err := s.checkConnected(); err != nil {
		return LockState{}, err
	}
	if err := validateID("account", accountID); err != nil {
		return LockState{}, err
	}
	return s.recordFailure(ctx, accountID)
}

// RecordFailureByEmail resolves the account by email and records a failure
// against it. A missing account is reported as ErrNotFound, not created.
func (s *service) RecordFailureByEmail(ctx context.Context, email string) (LockState, error) {
	if err := s.checkConnected(); err != nil {
		return LockState{}, err
	}
	if err := validateEmail(email); err != nil {
		return LockState{}, err
	}

	account, err := s.GetAccountByEmail(ctx, email)
	if err != nil {
		return LockState{}, err
	}
	return s.recordFailure(ctx, account.ID)
}

func (s *service) recordFailure(ctx context.Context, accountID string) (state LockState, err error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.RecordFailure",
		attribute.String("account_id", accountID))
	defer func() { end(err) }()

	start := time.Now()
	var justLocked bool

	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, txErr := tx.Get(ctx, collectionAccounts, accountID)
		if txErr != nil {
			return txErr
		}
		account := accountFromDocument(doc)

		// A locked account absorbs further failures without writing.
		if account.Blocked {
			state = LockState{Attempts: account.LoginAttempts, Locked: true}
			justLocked = false
			return nil
		}

		attempts := account.LoginAttempts + 1
		locked := attempts >= LockThreshold

		fields := map[string]any{fieldLoginAttempts: attempts}
		if locked {
			fields[fieldBlocked] = true
		}
		if txErr := tx.UpdateFields(ctx, collectionAccounts, accountID, fields); txErr != nil {
			return txErr
		}

		state = LockState{Attempts: attempts, Locked: locked}
		justLocked = locked
		return nil
	})
	err = s.mapLockoutError(err, accountID)

	s.otel.recordLockout(ctx, "record_failure", time.Since(start), justLocked && err == nil, err)
	if err != nil {
		return LockState{}, err
	}

	if justLocked {
		s.logger.Warn("account locked after repeated login failures",
			"account_id", accountID,
			"attempts", state.Attempts,
		)
	}
	return state, nil
}

// ResetAttempts clears the failure counter after a successful login.
// Resetting a locked account is a silent no-op: only AdminUnlock may clear
// a lock. Runs transactionally for the same reason RecordFailure does.
func (s *service) ResetAttempts(ctx context.Context, accountID string) (err error) {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateID("account", accountID); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.ResetAttempts",
		attribute.String("account_id", accountID))
	defer func() { end(err) }()

	start := time.Now()

	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, txErr := tx.Get(ctx, collectionAccounts, accountID)
		if txErr != nil {
			return txErr
		}
		account := accountFromDocument(doc)

		if account.Blocked {
			return nil
		}
		if account.LoginAttempts == 0 {
			return nil
		}
		return tx.UpdateFields(ctx, collectionAccounts, accountID, map[string]any{
			fieldLoginAttempts: 0,
		})
	})
	err = s.mapLockoutError(err, accountID)

	s.otel.recordLockout(ctx, "reset", time.Since(start), false, err)
	return err
}

// AdminUnlock unconditionally resets the counter and clears the lock.
// This is the only transition out of the locked state. It is a plain
// overwrite, not a transaction: the outcome does not depend on prior state.
func (s *service) AdminUnlock(ctx context.Context, accountID string) (err error) {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateID("account", accountID); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.AdminUnlock",
		attribute.String("account_id", accountID))
	defer func() { end(err) }()

	start := time.Now()

	err = s.store.UpdateFields(ctx, collectionAccounts, accountID, map[string]any{
		fieldLoginAttempts: 0,
		fieldBlocked:       false,
	})
	err = s.mapLockoutError(err, accountID)

	s.otel.recordLockout(ctx, "admin_unlock", time.Since(start), false, err)
	if err == nil {
		s.logger.Info("account unlocked by admin", "account_id", accountID)
	}
	return err
}

// IsLocked reports the account's lock state. Point read, no transaction.
func (s *service) IsLocked(ctx context.Context, accountID string) (bool, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return false, err
	}
	return account.Blocked, nil
}

// mapLockoutError translates store errors into service sentinels.
func (s *service) mapLockoutError(err error, accountID string) error {
	switch {
	case err == nil:
		return nil
	case docstore.IsNotFound(err):
		return fmt.Errorf("%w: account %s", ErrNotFound, accountID)
	case docstore.IsConflict(err):
		return fmt.Errorf("%w: account %s: %v", ErrTransactionFailed, accountID, err)
	default:
		return err
	}
}
