package voicelink

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voicelink/voicelink/docstore"
)

// namePrefixUpperBound closes the range for prefix search: every string with
// the given prefix sorts at or below prefix + U+F8FF.
const namePrefixUpperBound = "\uf8ff"

// UpsertAccount creates or updates a profile.
//
// The lockout fields are only seeded on first creation; an upsert over an
// existing account merges profile fields and leaves the counter and lock
// untouched, so a profile edit can never unlock an account.
func (s *service) UpsertAccount(ctx context.Context, account Account) (err error) {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateAccount(account); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.UpsertAccount",
		attribute.String("account_id", account.ID))
	defer func() { end(err) }()

	fields := account.fields()
	delete(fields, fieldLoginAttempts)
	delete(fields, fieldBlocked)

	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		_, txErr := tx.Get(ctx, collectionAccounts, account.ID)
		if txErr != nil {
			if !docstore.IsNotFound(txErr) {
				return txErr
			}
			// First creation seeds the lockout state.
			fields[fieldLoginAttempts] = 0
			fields[fieldBlocked] = false
		}
		return tx.SetMerge(ctx, collectionAccounts, account.ID, fields)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("account upserted", "account_id", account.ID)
	return nil
}

// GetAccount retrieves an account by ID.
func (s *service) GetAccount(ctx context.Context, accountID string) (Account, error) {
	if err := s.checkConnected(); err != nil {
		return Account{}, err
	}
	if err := validateID("account", accountID); err != nil {
		return Account{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	doc, err := s.store.Get(ctx, collectionAccounts, accountID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return Account{}, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
		}
		return Account{}, err
	}
	return accountFromDocument(doc), nil
}

// GetAccountByEmail retrieves an account by its unique email.
func (s *service) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	if err := s.checkConnected(); err != nil {
		return Account{}, err
	}
	if err := validateEmail(email); err != nil {
		return Account{}, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	docs, err := s.store.FindWhere(ctx, collectionAccounts, []docstore.Condition{
		docstore.Eq(fieldEmail, email),
	})
	if err != nil {
		return Account{}, err
	}
	if len(docs) == 0 {
		return Account{}, fmt.Errorf("%w: account with email %s", ErrNotFound, email)
	}
	return accountFromDocument(docs[0]), nil
}

// SearchAccountsByName lists accounts whose display name starts with prefix,
// ordered by name. Served by the fallback engine: a missing name index
// degrades to a scan with identical results.
func (s *service) SearchAccountsByName(ctx context.Context, prefix string, limit int) (accounts []Account, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if prefix == "" {
		return nil, fmt.Errorf("%w: empty name prefix", ErrInvalidAccount)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.SearchAccountsByName")
	defer func() { end(err) }()

	start := time.Now()

	accounts, fellBack, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionAccounts,
		Conditions: []docstore.Condition{
			docstore.Gte(fieldName, prefix),
			docstore.Lte(fieldName, prefix+namePrefixUpperBound),
		},
		OrderBy: fieldName,
		Order:   docstore.SortAsc,
		Limit:   s.clampLimit(limit),
	}, accountFromDocument)

	s.otel.recordQuery(ctx, collectionAccounts, time.Since(start), fellBack, err)
	return accounts, err
}

// ListAccounts lists accounts ordered by display name. Served by the
// fallback engine.
func (s *service) ListAccounts(ctx context.Context, limit int) (accounts []Account, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.ListAccounts")
	defer func() { end(err) }()

	start := time.Now()

	accounts, fellBack, err := queryWithFallback(ctx, s, orderedQuery{
		Collection: collectionAccounts,
		OrderBy:    fieldName,
		Order:      docstore.SortAsc,
		Limit:      s.clampLimit(limit),
	}, accountFromDocument)

	s.otel.recordQuery(ctx, collectionAccounts, time.Since(start), fellBack, err)
	return accounts, err
}

// ProfileUpdate is a partial profile change. Nil pointer fields and nil
// slices are left untouched.
type ProfileUpdate struct {
	Name        *string
	Bio         *string
	PhotoURL    *string
	BioSoundURL *string
	Interests   []string
	Hobbies     []string

	// LoginAttempts resets the failure counter, typically to 0 after a
	// successful login. Silently ignored when the account is locked.
	LoginAttempts *int
}

// fields returns the document fields the update touches. The lock flag is
// deliberately absent: nothing here can ever unlock an account.
func (u ProfileUpdate) fields(locked bool) map[string]any {
	fields := make(map[string]any)
	if u.Name != nil {
		fields[fieldName] = *u.Name
	}
	if u.Bio != nil {
		fields[fieldBio] = *u.Bio
	}
	if u.PhotoURL != nil {
		fields[fieldPhotoURL] = *u.PhotoURL
	}
	if u.BioSoundURL != nil {
		fields[fieldBioSoundURL] = *u.BioSoundURL
	}
	if u.Interests != nil {
		fields[fieldInterests] = u.Interests
	}
	if u.Hobbies != nil {
		fields[fieldHobbies] = u.Hobbies
	}
	if u.LoginAttempts != nil && !locked {
		fields[fieldLoginAttempts] = *u.LoginAttempts
	}
	return fields
}

// UpdateProfile applies a partial profile update and returns the result.
func (s *service) UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) (Account, error) {
	return s.applyProfileUpdate(ctx, "voicelink.UpdateProfile", accountID, update, false)
}

// CompleteOnboarding applies the update and marks onboarding finished.
func (s *service) CompleteOnboarding(ctx context.Context, accountID string, update ProfileUpdate) (Account, error) {
	return s.applyProfileUpdate(ctx, "voicelink.CompleteOnboarding", accountID, update, true)
}

func (s *service) applyProfileUpdate(ctx context.Context, spanName, accountID string, update ProfileUpdate, finishOnboarding bool) (account Account, err error) {
	if err := s.checkConnected(); err != nil {
		return Account{}, err
	}
	if err := validateID("account", accountID); err != nil {
		return Account{}, err
	}
	if update.Name != nil && len(*update.Name) > MaxNameLength {
		return Account{}, fmt.Errorf("%w: name exceeds %d bytes", ErrInvalidAccount, MaxNameLength)
	}
	if update.LoginAttempts != nil && *update.LoginAttempts < 0 {
		return Account{}, fmt.Errorf("%w: negative login attempts", ErrInvalidAccount)
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, spanName,
		attribute.String("account_id", accountID))
	defer func() { end(err) }()

	err = s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, txErr := tx.Get(ctx, collectionAccounts, accountID)
		if txErr != nil {
			return txErr
		}
		current := accountFromDocument(doc)

		fields := update.fields(current.Locked())
		if update.LoginAttempts != nil && current.Locked() {
			s.logger.Warn("ignoring login attempt reset on locked account",
				"account_id", accountID)
		}
		if finishOnboarding {
			fields[fieldOnboardingComplete] = true
		}
		if len(fields) == 0 {
			account = current
			return nil
		}
		if txErr := tx.UpdateFields(ctx, collectionAccounts, accountID, fields); txErr != nil {
			return txErr
		}

		account = current
		for k, v := range fields {
			account = applyAccountField(account, k, v)
		}
		return nil
	})
	if err != nil {
		if docstore.IsNotFound(err) {
			return Account{}, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
		}
		return Account{}, err
	}
	return account, nil
}

// applyAccountField mirrors a single field write onto a decoded account.
func applyAccountField(a Account, field string, value any) Account {
	switch field {
	case fieldName:
		a.Name, _ = value.(string)
	case fieldBio:
		a.Bio, _ = value.(string)
	case fieldPhotoURL:
		a.PhotoURL, _ = value.(string)
	case fieldBioSoundURL:
		a.BioSoundURL, _ = value.(string)
	case fieldInterests:
		a.Interests, _ = value.([]string)
	case fieldHobbies:
		a.Hobbies, _ = value.([]string)
	case fieldLoginAttempts:
		if n, ok := value.(int); ok {
			a.LoginAttempts = n
		}
	case fieldOnboardingComplete:
		a.OnboardingComplete, _ = value.(bool)
	}
	return a
}
