// Package voicelink implements the persistence core of a voice messaging
// social app: accounts with login lockout tracking, direct messages with
// chat summaries, and moderation reports, all stored in a pluggable
// document store.
package voicelink

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/voicelink/voicelink/docstore"
	"github.com/voicelink/voicelink/media"
)

// Service lifecycle states.
const (
	stateNew int32 = iota
	stateConnected
	stateClosed
)

// ServiceHealth provides health and state information about the service.
type ServiceHealth interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
}

// AccountDirectory provides account lookup and profile upserts.
type AccountDirectory interface {
	// UpsertAccount creates or updates a profile. A new account starts with
	// zero login attempts and unlocked; upserting an existing account never
	// touches its lockout state.
	UpsertAccount(ctx context.Context, account Account) error
	// GetAccount retrieves an account by ID.
	GetAccount(ctx context.Context, accountID string) (Account, error)
	// GetAccountByEmail retrieves an account by its unique email.
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	// SearchAccountsByName lists accounts whose display name starts with
	// prefix, ordered by name.
	SearchAccountsByName(ctx context.Context, prefix string, limit int) ([]Account, error)
	// ListAccounts lists accounts ordered by display name.
	ListAccounts(ctx context.Context, limit int) ([]Account, error)
	// UpdateProfile applies a partial profile update. Nil fields in the
	// update are left untouched. Lockout state is out of reach: attempts
	// only change through the LockoutTracker and nothing here ever touches
	// the lock flag.
	UpdateProfile(ctx context.Context, accountID string, update ProfileUpdate) (Account, error)
	// CompleteOnboarding applies the update and marks onboarding finished.
	CompleteOnboarding(ctx context.Context, accountID string, update ProfileUpdate) (Account, error)
}

// SocialGraph maintains follower/following edges between accounts.
type SocialGraph interface {
	// Follow adds target to follower's following list and follower to
	// target's followers list. The two writes are independent; a failure
	// between them can leave a one-sided edge.
	Follow(ctx context.Context, followerID, targetID string) error
	// Unfollow removes the edge in both directions.
	Unfollow(ctx context.Context, followerID, targetID string) error
	// MutualFollowers lists the accounts that the given account follows and
	// is followed by. Edges pointing at deleted accounts are skipped.
	MutualFollowers(ctx context.Context, accountID string) ([]Account, error)
}

// LockoutTracker owns the login failure counter and lock state machine.
type LockoutTracker interface {
	// RecordFailure atomically increments the failure counter and locks the
	// account at the threshold. Recording against an already locked account
	// is a silent no-op.
	RecordFailure(ctx context.Context, accountID string) (LockState, error)
	// RecordFailureByEmail is RecordFailure keyed by email.
	RecordFailureByEmail(ctx context.Context, email string) (LockState, error)
	// ResetAttempts clears the counter after a successful login.
	// A locked account is left untouched; only AdminUnlock clears a lock.
	ResetAttempts(ctx context.Context, accountID string) error
	// AdminUnlock unconditionally resets the counter and clears the lock.
	AdminUnlock(ctx context.Context, accountID string) error
	// IsLocked reports the account's lock state.
	IsLocked(ctx context.Context, accountID string) (bool, error)
}

// Messenger provides direct message operations.
type Messenger interface {
	// Send persists a message whose payload was already uploaded.
	Send(ctx context.Context, senderID, recipientID, mediaURL string) (Message, error)
	// SendVoice uploads the voice payload to the media store, then sends a
	// message referencing it.
	SendVoice(ctx context.Context, senderID, recipientID, filename, contentType string, content io.Reader) (Message, error)
	// GetMessage retrieves a message by ID.
	GetMessage(ctx context.Context, messageID string) (Message, error)
	// MarkRead transitions a message to read. Already-read messages are a no-op.
	MarkRead(ctx context.Context, messageID string) error
	// ChatMessages lists the conversation between two participants in
	// ascending timestamp order.
	ChatMessages(ctx context.Context, participantA, participantB string, limit int) ([]Message, error)
	// UnreadMessages lists unread messages addressed to the recipient,
	// newest first.
	UnreadMessages(ctx context.Context, recipientID string, limit int) ([]Message, error)
	// ChatSummary computes the last-message/unread view of a conversation
	// for the requesting participant. Best-effort: a store failure yields an
	// empty summary with Degraded set instead of an error.
	ChatSummary(ctx context.Context, requesterID, otherID string) (ChatSummary, error)
}

// Reporter provides moderation report operations.
type Reporter interface {
	// FileReport records a pending moderation report against a voice message.
	FileReport(ctx context.Context, voiceID, reporterID, reason, note string) (Report, error)
	// PendingReports lists pending reports, oldest first.
	PendingReports(ctx context.Context, limit int) ([]Report, error)
	// ReportsForVoice lists all reports against a voice message, newest first.
	ReportsForVoice(ctx context.Context, voiceID string, limit int) ([]Report, error)
	// UpdateReportStatus moves a report to a new status.
	UpdateReportStatus(ctx context.Context, reportID, status string) error
	// DeleteReport removes a report.
	DeleteReport(ctx context.Context, reportID string) error
}

// Service is the voicelink persistence core.
//
// Composed of:
//   - ServiceHealth: health and state queries
//   - AccountDirectory: account lookup, upserts, and profile updates
//   - SocialGraph: follower/following edges
//   - LockoutTracker: login failure counting and locking
//   - Messenger: direct messages and chat summaries
//   - Reporter: moderation reports
type Service interface {
	ServiceHealth
	AccountDirectory
	SocialGraph
	LockoutTracker
	Messenger
	Reporter

	// Connect establishes the connection to the document store.
	Connect(ctx context.Context) error
	// Close closes the connection. The service cannot be reused afterwards.
	Close(ctx context.Context) error
}

// service implements Service.
type service struct {
	opts    *options
	store   docstore.Store
	media   media.FileStore
	logger  *slog.Logger
	otel    *otelInstrumentation
	sendSem *semaphore.Weighted
	state   atomic.Int32
}

var _ Service = (*service)(nil)

// NewService creates a new service. A document store is required; everything
// else has defaults. Call Connect() before use.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}

	instr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, err
	}

	return &service{
		opts:    o,
		store:   o.store,
		media:   o.media,
		logger:  o.logger,
		otel:    instr,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}, nil
}

// Connect connects the underlying document store.
func (s *service) Connect(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateNew, stateConnected) {
		return ErrAlreadyConnected
	}

	if err := s.store.Connect(ctx); err != nil {
		s.state.Store(stateNew)
		return err
	}

	s.logger.Info("voicelink service connected")
	return nil
}

// Close disconnects the store. Idempotent.
func (s *service) Close(ctx context.Context) error {
	if !s.state.CompareAndSwap(stateConnected, stateClosed) {
		return nil
	}
	return s.store.Close(ctx)
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return s.state.Load() == stateConnected
}

func (s *service) checkConnected() error {
	if s.state.Load() != stateConnected {
		return ErrNotConnected
	}
	return nil
}

// opContext bounds a store operation with the configured timeout.
func (s *service) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.operationTimeout)
}

// clampLimit applies the default and maximum page sizes.
func (s *service) clampLimit(limit int) int {
	if limit <= 0 {
		return s.opts.defaultListLimit
	}
	if limit > s.opts.maxListLimit {
		return s.opts.maxListLimit
	}
	return limit
}
