package voicelink

import (
	"context"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voicelink/voicelink/docstore"
)

// Follow adds target to follower's following list and follower to target's
// followers list.
//
// The two documents are updated in separate transactions, so a failure
// between them can leave a one-sided edge. Retrying the call converges:
// both updates are idempotent.
func (s *service) Follow(ctx context.Context, followerID, targetID string) (err error) {
	if err := s.checkFollowArgs(followerID, targetID); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.Follow",
		attribute.String("follower_id", followerID),
		attribute.String("target_id", targetID))
	defer func() { end(err) }()

	if err = s.checkAccountsExist(ctx, followerID, targetID); err != nil {
		return err
	}

	if err = s.updateEdge(ctx, followerID, fieldFollowing, targetID, true); err != nil {
		return err
	}
	if err = s.updateEdge(ctx, targetID, fieldFollowers, followerID, true); err != nil {
		return err
	}

	s.logger.Debug("follow edge added", "follower_id", followerID, "target_id", targetID)
	return nil
}

// Unfollow removes the edge in both directions. Unfollowing an account that
// was never followed is a no-op.
func (s *service) Unfollow(ctx context.Context, followerID, targetID string) (err error) {
	if err := s.checkFollowArgs(followerID, targetID); err != nil {
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.Unfollow",
		attribute.String("follower_id", followerID),
		attribute.String("target_id", targetID))
	defer func() { end(err) }()

	if err = s.checkAccountsExist(ctx, followerID, targetID); err != nil {
		return err
	}

	if err = s.updateEdge(ctx, followerID, fieldFollowing, targetID, false); err != nil {
		return err
	}
	if err = s.updateEdge(ctx, targetID, fieldFollowers, followerID, false); err != nil {
		return err
	}

	s.logger.Debug("follow edge removed", "follower_id", followerID, "target_id", targetID)
	return nil
}

// MutualFollowers lists the accounts the given account follows and is
// followed by. Edges pointing at accounts that no longer exist are skipped.
func (s *service) MutualFollowers(ctx context.Context, accountID string) (accounts []Account, err error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := validateID("account", accountID); err != nil {
		return nil, err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	ctx, end := s.otel.startSpan(ctx, "voicelink.MutualFollowers",
		attribute.String("account_id", accountID))
	defer func() { end(err) }()

	doc, err := s.store.Get(ctx, collectionAccounts, accountID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return nil, fmt.Errorf("%w: account %s", ErrNotFound, accountID)
		}
		return nil, err
	}
	account := accountFromDocument(doc)

	mutual := make([]string, 0, len(account.Following))
	for _, id := range account.Following {
		if slices.Contains(account.Followers, id) {
			mutual = append(mutual, id)
		}
	}
	slices.Sort(mutual)

	accounts = make([]Account, 0, len(mutual))
	for _, id := range mutual {
		mdoc, err := s.store.Get(ctx, collectionAccounts, id)
		if err != nil {
			if docstore.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		accounts = append(accounts, accountFromDocument(mdoc))
	}
	return accounts, nil
}

func (s *service) checkFollowArgs(followerID, targetID string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := validateID("account", followerID); err != nil {
		return err
	}
	if err := validateID("account", targetID); err != nil {
		return err
	}
	if followerID == targetID {
		return fmt.Errorf("%w: cannot follow self", ErrInvalidAccount)
	}
	return nil
}

// checkAccountsExist verifies both endpoints before touching either edge.
func (s *service) checkAccountsExist(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if _, err := s.store.Get(ctx, collectionAccounts, id); err != nil {
			if docstore.IsNotFound(err) {
				return fmt.Errorf("%w: account %s", ErrNotFound, id)
			}
			return err
		}
	}
	return nil
}

// updateEdge adds or removes a single ID in one account's edge list.
// Runs in its own transaction so concurrent edge updates never lose writes.
func (s *service) updateEdge(ctx context.Context, accountID, field, memberID string, add bool) error {
	return s.store.RunTransaction(ctx, func(tx docstore.Tx) error {
		doc, err := tx.Get(ctx, collectionAccounts, accountID)
		if err != nil {
			return err
		}

		edges := doc.GetStringSlice(field)
		if add {
			if slices.Contains(edges, memberID) {
				return nil
			}
			edges = append(edges, memberID)
		} else {
			i := slices.Index(edges, memberID)
			if i < 0 {
				return nil
			}
			edges = slices.Delete(slices.Clone(edges), i, i+1)
		}
		return tx.UpdateFields(ctx, collectionAccounts, accountID, map[string]any{field: edges})
	})
}
