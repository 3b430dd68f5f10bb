package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/voicelink/voicelink/docstore"
)

func setupStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(opts...)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return s
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Get(ctx, "c", "k"); !errors.Is(err, docstore.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before Connect, got %v", err)
	}

	if err := s.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := s.Connect(ctx); !errors.Is(err, docstore.ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := s.Get(ctx, "c", "k"); !errors.Is(err, docstore.ErrNotConnected) {
		t.Errorf("expected ErrNotConnected after Close, got %v", err)
	}
}

func TestCRUD(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.Get(ctx, "c", "missing"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("set merge creates and merges", func(t *testing.T) {
		if err := s.SetMerge(ctx, "c", "k1", map[string]any{"a": "1", "b": "2"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.SetMerge(ctx, "c", "k1", map[string]any{"b": "3", "c": "4"}); err != nil {
			t.Fatalf("merge: %v", err)
		}

		doc, err := s.Get(ctx, "c", "k1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if doc.GetString("a") != "1" || doc.GetString("b") != "3" || doc.GetString("c") != "4" {
			t.Errorf("merged doc = %+v", doc.Fields)
		}
	})

	t.Run("update fields requires existing doc", func(t *testing.T) {
		if err := s.UpdateFields(ctx, "c", "missing", map[string]any{"a": "1"}); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}

		if err := s.SetMerge(ctx, "c", "k2", map[string]any{"a": "1"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.UpdateFields(ctx, "c", "k2", map[string]any{"a": "2"}); err != nil {
			t.Fatalf("update: %v", err)
		}
		doc, _ := s.Get(ctx, "c", "k2")
		if doc.GetString("a") != "2" {
			t.Errorf("a = %q, want 2", doc.GetString("a"))
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.SetMerge(ctx, "c", "k3", map[string]any{"a": "1"}); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.Delete(ctx, "c", "k3"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, "c", "k3"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		// Deleting a missing key is a no-op.
		if err := s.Delete(ctx, "c", "k3"); err != nil {
			t.Errorf("delete missing: %v", err)
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		if _, err := s.Get(ctx, "c", ""); !errors.Is(err, docstore.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
		if err := s.SetMerge(ctx, "c", "", nil); !errors.Is(err, docstore.ErrInvalidKey) {
			t.Errorf("expected ErrInvalidKey, got %v", err)
		}
	})
}

func TestDocumentIsolation(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	if err := s.SetMerge(ctx, "c", "k", map[string]any{"a": "1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	doc, err := s.Get(ctx, "c", "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}

	// Mutating a returned document must not leak into the store.
	doc.Fields["a"] = "tampered"
	fresh, _ := s.Get(ctx, "c", "k")
	if fresh.GetString("a") != "1" {
		t.Errorf("store mutated through returned document: a = %q", fresh.GetString("a"))
	}
}

func TestFindWhere(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	docs := []struct {
		key    string
		fields map[string]any
	}{
		{"m1", map[string]any{"chat": "a_b", "read": false, "ts": "2025-01-01T00:00:01.000Z"}},
		{"m2", map[string]any{"chat": "a_b", "read": true, "ts": "2025-01-01T00:00:02.000Z"}},
		{"m3", map[string]any{"chat": "a_c", "read": false, "ts": "2025-01-01T00:00:03.000Z"}},
	}
	for _, d := range docs {
		if err := s.SetMerge(ctx, "msgs", d.key, d.fields); err != nil {
			t.Fatalf("set %s: %v", d.key, err)
		}
	}

	t.Run("single condition", func(t *testing.T) {
		got, err := s.FindWhere(ctx, "msgs", []docstore.Condition{docstore.Eq("chat", "a_b")})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d docs, want 2", len(got))
		}
	})

	t.Run("conjunction", func(t *testing.T) {
		got, err := s.FindWhere(ctx, "msgs", []docstore.Condition{
			docstore.Eq("chat", "a_b"),
			docstore.Eq("read", false),
		})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 1 || got[0].Key != "m1" {
			t.Errorf("got %+v, want [m1]", got)
		}
	})

	t.Run("range conditions", func(t *testing.T) {
		got, err := s.FindWhere(ctx, "msgs", []docstore.Condition{
			docstore.Gte("ts", "2025-01-01T00:00:02.000Z"),
		})
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("got %d docs, want 2", len(got))
		}
	})
}

func TestFindWhereOrdered(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, s *Store) {
		t.Helper()
		for key, ts := range map[string]string{
			"m1": "2025-01-01T00:00:01.000Z",
			"m2": "2025-01-01T00:00:03.000Z",
			"m3": "2025-01-01T00:00:02.000Z",
		} {
			if err := s.SetMerge(ctx, "msgs", key, map[string]any{"ts": ts}); err != nil {
				t.Fatalf("set %s: %v", key, err)
			}
		}
	}

	t.Run("requires declared index", func(t *testing.T) {
		s := setupStore(t)
		seed(t, s)

		_, err := s.FindWhereOrdered(ctx, "msgs", nil, "ts", docstore.SortAsc, 0)
		if !errors.Is(err, docstore.ErrIndexMissing) {
			t.Errorf("expected ErrIndexMissing, got %v", err)
		}
	})

	t.Run("sorts ascending and descending", func(t *testing.T) {
		s := setupStore(t, WithIndex("msgs", "ts"))
		seed(t, s)

		asc, err := s.FindWhereOrdered(ctx, "msgs", nil, "ts", docstore.SortAsc, 0)
		if err != nil {
			t.Fatalf("asc: %v", err)
		}
		if asc[0].Key != "m1" || asc[1].Key != "m3" || asc[2].Key != "m2" {
			t.Errorf("asc order = %s,%s,%s", asc[0].Key, asc[1].Key, asc[2].Key)
		}

		desc, err := s.FindWhereOrdered(ctx, "msgs", nil, "ts", docstore.SortDesc, 0)
		if err != nil {
			t.Fatalf("desc: %v", err)
		}
		if desc[0].Key != "m2" || desc[1].Key != "m3" || desc[2].Key != "m1" {
			t.Errorf("desc order = %s,%s,%s", desc[0].Key, desc[1].Key, desc[2].Key)
		}
	})

	t.Run("limit", func(t *testing.T) {
		s := setupStore(t, WithIndex("msgs", "ts"))
		seed(t, s)

		got, err := s.FindWhereOrdered(ctx, "msgs", nil, "ts", docstore.SortAsc, 2)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if len(got) != 2 || got[0].Key != "m1" || got[1].Key != "m3" {
			t.Errorf("got %+v, want [m1 m3]", got)
		}
	})

	t.Run("index can be dropped at runtime", func(t *testing.T) {
		s := setupStore(t)
		seed(t, s)

		s.DeclareIndex("msgs", "ts")
		if _, err := s.FindWhereOrdered(ctx, "msgs", nil, "ts", docstore.SortAsc, 0); err != nil {
			t.Fatalf("with index: %v", err)
		}
		s.DropIndex("msgs", "ts")
		if _, err := s.FindWhereOrdered(ctx, "msgs", nil, "ts", docstore.SortAsc, 0); !errors.Is(err, docstore.ErrIndexMissing) {
			t.Errorf("expected ErrIndexMissing after drop, got %v", err)
		}
	})
}

func TestInjectError(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	boom := errors.New("injected")
	s.InjectError("Get", boom)
	if _, err := s.Get(ctx, "c", "k"); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}

	s.InjectError("Get", nil)
	if _, err := s.Get(ctx, "c", "k"); !errors.Is(err, docstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound after clearing, got %v", err)
	}
}

func TestRunTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("read modify write", func(t *testing.T) {
		s := setupStore(t)
		if err := s.SetMerge(ctx, "c", "k", map[string]any{"n": int64(1)}); err != nil {
			t.Fatalf("set: %v", err)
		}

		err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
			doc, err := tx.Get(ctx, "c", "k")
			if err != nil {
				return err
			}
			return tx.UpdateFields(ctx, "c", "k", map[string]any{"n": doc.GetInt64("n") + 1})
		})
		if err != nil {
			t.Fatalf("transaction: %v", err)
		}

		doc, _ := s.Get(ctx, "c", "k")
		if doc.GetInt64("n") != 2 {
			t.Errorf("n = %d, want 2", doc.GetInt64("n"))
		}
	})

	t.Run("callback error aborts without writes", func(t *testing.T) {
		s := setupStore(t)
		boom := errors.New("abort")

		err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
			if err := tx.SetMerge(ctx, "c", "k", map[string]any{"a": "1"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected callback error, got %v", err)
		}
		if _, err := s.Get(ctx, "c", "k"); !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("aborted transaction wrote data: %v", err)
		}
	})

	t.Run("sentinel errors survive the retry wrapper", func(t *testing.T) {
		s := setupStore(t)

		err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
			_, err := tx.Get(ctx, "c", "missing")
			return err
		})
		if !errors.Is(err, docstore.ErrNotFound) {
			t.Errorf("expected ErrNotFound through retry wrapper, got %v", err)
		}
	})

	t.Run("concurrent increments preserved", func(t *testing.T) {
		s := setupStore(t)
		if err := s.SetMerge(ctx, "c", "k", map[string]any{"n": int64(0)}); err != nil {
			t.Fatalf("set: %v", err)
		}

		const workers = 8
		var wg sync.WaitGroup
		errCh := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.RunTransaction(ctx, func(tx docstore.Tx) error {
					doc, err := tx.Get(ctx, "c", "k")
					if err != nil {
						return err
					}
					return tx.UpdateFields(ctx, "c", "k", map[string]any{"n": doc.GetInt64("n") + 1})
				})
				if err != nil {
					errCh <- err
				}
			}()
		}
		wg.Wait()
		close(errCh)

		var failed int
		for err := range errCh {
			// With enough contention some transactions can exhaust retries.
			if !docstore.IsConflict(err) {
				t.Errorf("unexpected error: %v", err)
			}
			failed++
		}

		doc, _ := s.Get(ctx, "c", "k")
		if got, want := doc.GetInt64("n"), int64(workers-failed); got != want {
			t.Errorf("n = %d, want %d (workers=%d failed=%d)", got, want, workers, failed)
		}
	})
}
