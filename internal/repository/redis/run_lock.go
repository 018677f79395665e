package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
)

const defaultRunLockKey = "trustedvalley:migration:lock"

// releaseScript deletes the lock only while it is still held by the caller.
var releaseScript = red.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock serialises migration runs across processes with a single Redis key.
type RunLock struct {
	client *red.Client
	key    string
}

// NewRunLock wires a Redis client into a run lock stored under key.
func NewRunLock(client *red.Client, key string) *RunLock {
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultRunLockKey
	}
	return &RunLock{client: client, key: key}
}

// Acquire claims the lock for owner. It reports false when another owner holds it.
func (l *RunLock) Acquire(ctx context.Context, owner string, ttl time.Duration) (bool, error) {
	if strings.TrimSpace(owner) == "" {
		return false, errors.New("lock owner is required")
	}
	if ttl <= 0 {
		return false, errors.New("ttl must be positive")
	}

	ok, err := l.client.SetNX(ctx, l.key, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis acquire run lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock if owner still holds it. Releasing an expired or foreign lock is a no-op.
func (l *RunLock) Release(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, owner).Err(); err != nil && !errors.Is(err, red.Nil) {
		return fmt.Errorf("redis release run lock: %w", err)
	}
	return nil
}

var _ port.RunLock = (*RunLock)(nil)
