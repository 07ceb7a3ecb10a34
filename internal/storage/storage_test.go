package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func exerciseScope(t *testing.T, scope Scope) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := scope.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := scope.Set(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	if err := scope.Set(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("Set err: %v", err)
	}

	got, ok, err := scope.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get err: %v ok=%v", err, ok)
	}
	if string(got) != "v2" {
		t.Fatalf("expected last write to win, got %q", got)
	}

	if err := scope.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete err: %v", err)
	}
	if _, ok, _ := scope.Get(ctx, "k"); ok {
		t.Fatal("expected key to be deleted")
	}
	if err := scope.Delete(ctx, "never-set"); err != nil {
		t.Fatalf("deleting a missing key should not fail: %v", err)
	}
}

func TestMemoryScope(t *testing.T) {
	scope := NewMemoryScope()
	exerciseScope(t, scope)

	_ = scope.Close()
	if err := scope.Set(context.Background(), "k", nil); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestMemoryScopeCopiesValues(t *testing.T) {
	scope := NewMemoryScope()
	ctx := context.Background()
	buf := []byte("abc")
	_ = scope.Set(ctx, "k", buf)
	buf[0] = 'z'

	got, _, _ := scope.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
}

func TestBoltScopePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "widget.bolt")

	scope, err := OpenBolt(path, "test")
	if err != nil {
		t.Fatalf("OpenBolt err: %v", err)
	}
	exerciseScope(t, scope)
	if err := scope.Set(context.Background(), "session", []byte("s-1")); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	if err := scope.Close(); err != nil {
		t.Fatalf("Close err: %v", err)
	}

	reopened, err := OpenBolt(path, "test")
	if err != nil {
		t.Fatalf("reopen err: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get(context.Background(), "session")
	if err != nil || !ok || string(got) != "s-1" {
		t.Fatalf("expected persisted value, got %q ok=%v err=%v", got, ok, err)
	}
}

func TestBoltScopeNamespacesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.bolt")
	a, err := OpenBolt(path, "a")
	if err != nil {
		t.Fatalf("OpenBolt err: %v", err)
	}
	ctx := context.Background()
	_ = a.Set(ctx, "k", []byte("from-a"))
	_ = a.Close()

	b, err := OpenBolt(path, "b")
	if err != nil {
		t.Fatalf("OpenBolt err: %v", err)
	}
	defer b.Close()
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Fatal("namespace b should not see keys from a")
	}
}

func TestRedisScope(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis integration test")
	}

	scope, err := OpenRedis(context.Background(), redisURL, "test-"+t.Name(), 0)
	if err != nil {
		t.Fatalf("OpenRedis err: %v", err)
	}
	defer scope.Close()
	exerciseScope(t, scope)
}
