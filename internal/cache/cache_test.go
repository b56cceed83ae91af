package cache

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewMemoryService(slog.New(slog.NewTextHandler(testWriter{}, nil)))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestService_SetGet(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	type payload struct {
		Name string `json:"name"`
	}

	if err := svc.Set(ctx, "k1", payload{Name: "alice"}, time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	var got payload
	if err := svc.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Name != "alice" {
		t.Errorf("value mismatch: got %q", got.Name)
	}

	t.Run("miss on absent key", func(t *testing.T) {
		var dest payload
		if err := svc.Get(ctx, "absent", &dest); err != ErrCacheMiss {
			t.Fatalf("expected ErrCacheMiss, got %v", err)
		}
	})

	t.Run("miss after expiry", func(t *testing.T) {
		if err := svc.Set(ctx, "short", payload{Name: "bob"}, time.Millisecond); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}
		time.Sleep(5 * time.Millisecond)

		var dest payload
		if err := svc.Get(ctx, "short", &dest); err != ErrCacheMiss {
			t.Fatalf("expected ErrCacheMiss after expiry, got %v", err)
		}
	})
}

func TestService_GetDel(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.Set(ctx, "once", "value", time.Minute); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	var first string
	if err := svc.GetDel(ctx, "once", &first); err != nil {
		t.Fatalf("first GetDel returned error: %v", err)
	}
	if first != "value" {
		t.Errorf("value mismatch: got %q", first)
	}

	var second string
	if err := svc.GetDel(ctx, "once", &second); err != ErrCacheMiss {
		t.Fatalf("expected ErrCacheMiss on second GetDel, got %v", err)
	}
}

func TestService_Sets(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, member := range []string{"a", "b", "c"} {
		if err := svc.AddToSet(ctx, "members", member, time.Minute); err != nil {
			t.Fatalf("AddToSet returned error: %v", err)
		}
	}

	if err := svc.RemoveFromSet(ctx, "members", "b"); err != nil {
		t.Fatalf("RemoveFromSet returned error: %v", err)
	}

	members, err := svc.SetMembers(ctx, "members")
	if err != nil {
		t.Fatalf("SetMembers returned error: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d: %v", len(members), members)
	}
	for _, member := range members {
		if member == "b" {
			t.Error("removed member still present")
		}
	}
}

func TestService_DeletePattern(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	keys := []string{"tasks:list:p1", "tasks:list:p2", "other:key"}
	for _, key := range keys {
		if err := svc.Set(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}
	}

	if err := svc.DeletePattern(ctx, "tasks:list:*"); err != nil {
		t.Fatalf("DeletePattern returned error: %v", err)
	}

	var dest string
	if err := svc.Get(ctx, "tasks:list:p1", &dest); err != ErrCacheMiss {
		t.Errorf("expected tasks:list:p1 to be gone, got %v", err)
	}
	if err := svc.Get(ctx, "tasks:list:p2", &dest); err != ErrCacheMiss {
		t.Errorf("expected tasks:list:p2 to be gone, got %v", err)
	}
	if err := svc.Get(ctx, "other:key", &dest); err != nil {
		t.Errorf("expected other:key to survive, got %v", err)
	}
}
