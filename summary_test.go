package voicelink

import (
	"context"
	"errors"
	"testing"
)

func TestChatSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("last message and unread count", func(t *testing.T) {
		svc, _ := setupTestService(t)
		defer svc.Close(ctx)

		m1, _ := svc.Send(ctx, "alice", "bob", "s3://b/1")
		m2, _ := svc.Send(ctx, "bob", "alice", "s3://b/2")
		m3, _ := svc.Send(ctx, "alice", "bob", "s3://b/3")
		_ = m2
		if err := svc.MarkRead(ctx, m1.ID); err != nil {
			t.Fatalf("mark read: %v", err)
		}

		// Bob's view: last message is m3, one unread (m3; m1 was read).
		got, err := svc.ChatSummary(ctx, "bob", "alice")
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if got.Degraded {
			t.Fatal("unexpected degraded summary")
		}
		if got.LastMessage == nil || got.LastMessage.ID != m3.ID {
			t.Errorf("last message = %+v, want %q", got.LastMessage, m3.ID)
		}
		if got.UnreadCount != 1 {
			t.Errorf("unread = %d, want 1", got.UnreadCount)
		}

		// Alice's view of the same chat: last message still m3, m2 unread.
		got, err = svc.ChatSummary(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if got.LastMessage == nil || got.LastMessage.ID != m3.ID {
			t.Errorf("last message = %+v, want %q", got.LastMessage, m3.ID)
		}
		if got.UnreadCount != 1 {
			t.Errorf("unread = %d, want 1", got.UnreadCount)
		}
	})

	t.Run("empty chat is not degraded", func(t *testing.T) {
		svc, _ := setupTestService(t)
		defer svc.Close(ctx)

		got, err := svc.ChatSummary(ctx, "alice", "bob")
		if err != nil {
			t.Fatalf("summary: %v", err)
		}
		if got.Degraded {
			t.Error("empty chat reported degraded")
		}
		if got.LastMessage != nil || got.UnreadCount != 0 {
			t.Errorf("expected empty summary, got %+v", got)
		}
	})

	t.Run("store failure degrades instead of erroring", func(t *testing.T) {
		svc, store := setupTestService(t)
		defer svc.Close(ctx)

		if _, err := svc.Send(ctx, "alice", "bob", "s3://b/1"); err != nil {
			t.Fatalf("send: %v", err)
		}

		boom := errors.New("backend down")
		store.InjectError("FindWhere", boom)
		store.InjectError("FindWhereOrdered", boom)
		defer store.InjectError("FindWhere", nil)
		defer store.InjectError("FindWhereOrdered", nil)

		got, err := svc.ChatSummary(ctx, "bob", "alice")
		if err != nil {
			t.Fatalf("summary must not fail, got %v", err)
		}
		if !got.Degraded {
			t.Error("expected degraded summary")
		}
		if got.LastMessage != nil || got.UnreadCount != 0 {
			t.Errorf("degraded summary must be empty, got %+v", got)
		}
	})

	t.Run("rejects invalid participants", func(t *testing.T) {
		svc, _ := setupTestService(t)
		defer svc.Close(ctx)

		if _, err := svc.ChatSummary(ctx, "", "bob"); !errors.Is(err, ErrInvalidAccount) {
			t.Errorf("expected ErrInvalidAccount, got %v", err)
		}
	})
}
