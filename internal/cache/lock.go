package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const actionLockPrefix = "lock:"

// ErrLockHeld is returned when another request owns the lock.
var ErrLockHeld = errors.New("lock already held")

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// AcquireLock takes a short-lived exclusive lock on name.
// The returned release func is safe to call after the TTL expired.
func (c *Cache) AcquireLock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	key := actionLockPrefix + name
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, c.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}

	return release, nil
}
