package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLocker(t *testing.T) (Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Locker{R: client}, mr
}

func TestTryWithLockRunsCallback(t *testing.T) {
	locker, _ := newLocker(t)
	ran := false
	err := locker.TryWithLock(context.Background(), "lock:test", time.Second, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("TryWithLock: %v", err)
	}
	if !ran {
		t.Fatal("callback did not run")
	}
}

func TestTryWithLockReturnsErrHeld(t *testing.T) {
	locker, _ := newLocker(t)
	ctx := context.Background()

	outer := locker.TryWithLock(ctx, "lock:test", time.Minute, func(inner context.Context) error {
		if err := locker.TryWithLock(inner, "lock:test", time.Minute, func(context.Context) error {
			t.Fatal("second holder must not run")
			return nil
		}); !errors.Is(err, ErrHeld) {
			t.Fatalf("nested acquire: err = %v, want ErrHeld", err)
		}
		return nil
	})
	if outer != nil {
		t.Fatalf("outer: %v", outer)
	}
}

func TestLockReleasedAfterCallback(t *testing.T) {
	locker, _ := newLocker(t)
	ctx := context.Background()

	callbackErr := errors.New("boom")
	if err := locker.TryWithLock(ctx, "lock:test", time.Minute, func(context.Context) error {
		return callbackErr
	}); !errors.Is(err, callbackErr) {
		t.Fatalf("callback error not propagated: %v", err)
	}
	// Even a failing callback releases the lock.
	if err := locker.TryWithLock(ctx, "lock:test", time.Minute, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("reacquire after failure: %v", err)
	}
}

func TestExpiredLockCanBeReacquired(t *testing.T) {
	locker, mr := newLocker(t)
	ctx := context.Background()

	if err := locker.R.SetNX(ctx, "lock:test", "stale-token", time.Second).Err(); err != nil {
		t.Fatalf("seed lock: %v", err)
	}
	mr.FastForward(2 * time.Second)
	if err := locker.TryWithLock(ctx, "lock:test", time.Minute, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
}
