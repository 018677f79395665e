package port

import (
	"context"
	"time"
)

// RunLock guarantees a single migration run at a time across processes.
type RunLock interface {
	// Acquire returns false without error when another holder owns the lock.
	Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, owner string) error
}
