package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRunLock_AcquireIsExclusive(t *testing.T) {
	client, server := newTestRedis(t)
	lock := NewRunLock(client, "migration:lock")

	ctx := context.Background()
	ttl := 10 * time.Minute

	acquired, err := lock.Acquire(ctx, "run-a", ttl)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if !acquired {
		t.Fatalf("expected first acquire to succeed")
	}

	acquired, err = lock.Acquire(ctx, "run-b", ttl)
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if acquired {
		t.Fatalf("expected second acquire to be refused")
	}

	remaining := server.TTL("migration:lock")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestRunLock_ReleaseOnlyByOwner(t *testing.T) {
	client, server := newTestRedis(t)
	lock := NewRunLock(client, "")

	ctx := context.Background()
	if _, err := lock.Acquire(ctx, "run-a", time.Minute); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	if err := lock.Release(ctx, "run-b"); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if !server.Exists(defaultRunLockKey) {
		t.Fatalf("foreign release must not drop the lock")
	}

	if err := lock.Release(ctx, "run-a"); err != nil {
		t.Fatalf("Release returned error: %v", err)
	}
	if server.Exists(defaultRunLockKey) {
		t.Fatalf("expected lock to be released")
	}

	acquired, err := lock.Acquire(ctx, "run-b", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("expected reacquire after release, got %v %v", acquired, err)
	}
}

func TestRunLock_ExpiredLockCanBeReacquired(t *testing.T) {
	client, server := newTestRedis(t)
	lock := NewRunLock(client, "migration:lock")

	ctx := context.Background()
	if _, err := lock.Acquire(ctx, "run-a", time.Second); err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	server.FastForward(2 * time.Second)

	acquired, err := lock.Acquire(ctx, "run-b", time.Second)
	if err != nil || !acquired {
		t.Fatalf("expected acquire after expiry, got %v %v", acquired, err)
	}
}

func TestRunLock_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	lock := NewRunLock(client, "migration:lock")

	if _, err := lock.Acquire(context.Background(), " ", time.Minute); err == nil {
		t.Fatalf("expected error for empty owner")
	}
	if _, err := lock.Acquire(context.Background(), "run-a", 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
