package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld signals the lock is currently owned by another operation.
var ErrHeld = errors.New("lock: already held")

// Locker is a redis-backed lock. Checkout uses the try variant so a second
// submission while the first is in flight fails fast instead of queueing.
type Locker struct {
	R *redis.Client
}

// TryWithLock runs fn only if the lock for key is free, otherwise returns
// ErrHeld immediately. The lock is released when fn returns; the TTL bounds
// how long a crashed holder can block others.
func (l Locker) TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer l.release(context.WithoutCancel(ctx), key, token)
	return fn(ctx)
}

// release deletes the key only when the stored token still matches, so an
// expired lock re-acquired by someone else is never deleted from under them.
func (l Locker) release(ctx context.Context, key, token string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
	_ = l.R.Eval(ctx, script, []string{key}, token).Err()
}
