package voicelink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voicelink/voicelink/docstore/memory"
)

// testClock hands out strictly increasing times so message IDs and
// timestamps never collide within a test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

// setupTestService creates a connected service over a fresh in-memory store.
func setupTestService(t *testing.T, opts ...Option) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	opts = append([]Option{
		WithStore(store),
		withClock(newTestClock().Now),
	}, opts...)
	svc, err := NewService(opts...)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	if err := svc.Connect(context.Background()); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	return svc, store
}

// seedAccount inserts a profile through the service.
func seedAccount(t *testing.T, svc Service, id string) Account {
	t.Helper()
	a := Account{ID: id, Email: id + "@example.com", Name: "User " + id}
	if err := svc.UpsertAccount(context.Background(), a); err != nil {
		t.Fatalf("failed to seed account %s: %v", id, err)
	}
	return a
}

func TestNewService(t *testing.T) {
	t.Run("requires store", func(t *testing.T) {
		_, err := NewService()
		if !errors.Is(err, ErrStoreRequired) {
			t.Errorf("expected ErrStoreRequired, got %v", err)
		}
	})

	t.Run("creates service with store", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if svc == nil {
			t.Fatal("expected non-nil service")
		}
	})
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("connect and close", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := svc.Connect(ctx); err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		if !svc.IsConnected() {
			t.Error("expected IsConnected after Connect")
		}

		// Double connect should fail
		if err := svc.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
			t.Errorf("expected ErrAlreadyConnected, got %v", err)
		}

		if err := svc.Close(ctx); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if svc.IsConnected() {
			t.Error("expected not connected after Close")
		}

		// Double close should be safe
		if err := svc.Close(ctx); err != nil {
			t.Errorf("second close should not error, got %v", err)
		}
	})

	t.Run("operations before connect fail", func(t *testing.T) {
		svc, err := NewService(WithStore(memory.New()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.GetAccount(ctx, "user1"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
		if _, err := svc.RecordFailure(ctx, "user1"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})

	t.Run("operations after close fail", func(t *testing.T) {
		svc, _ := setupTestService(t)
		if err := svc.Close(ctx); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if _, err := svc.GetAccount(ctx, "user1"); !errors.Is(err, ErrNotConnected) {
			t.Errorf("expected ErrNotConnected, got %v", err)
		}
	})
}
