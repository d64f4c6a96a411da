package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestAllowCountsWithinWindow(t *testing.T) {
	limiter := Limiter{Client: testClient(t), Prefix: "login:"}
	ctx := context.Background()
	window := time.Minute

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "1.2.3.4", window, 3)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i)
		}
		if remaining != 3-(i+1) {
			t.Fatalf("attempt %d: remaining = %d", i, remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "1.2.3.4", window, 3)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if allowed || remaining != 0 {
		t.Fatalf("over limit: allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestAllowIsPerKey(t *testing.T) {
	limiter := Limiter{Client: testClient(t), Prefix: "login:"}
	ctx := context.Background()

	if allowed, _, _, _ := limiter.Allow(ctx, "a", time.Minute, 1); !allowed {
		t.Fatal("first key should be allowed")
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "a", time.Minute, 1); allowed {
		t.Fatal("first key should now be limited")
	}
	if allowed, _, _, _ := limiter.Allow(ctx, "b", time.Minute, 1); !allowed {
		t.Fatal("second key must not share the first key's budget")
	}
}

func TestAllowDisabledWithoutClient(t *testing.T) {
	limiter := Limiter{}
	allowed, _, _, err := limiter.Allow(context.Background(), "any", time.Minute, 1)
	if err != nil || !allowed {
		t.Fatalf("nil client must disable limiting: allowed=%v err=%v", allowed, err)
	}
}

func TestMiddlewareRejectsWithHeaders(t *testing.T) {
	handler := Handler{
		Limiter: Limiter{Client: testClient(t), Prefix: "login:"},
		Config: Config{
			Key:    IPKey(""),
			Window: time.Minute,
			Max:    1,
		},
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.9:51234"

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	if rr.Code != http.StatusOK {
		t.Fatalf("first attempt: status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.Clone(req.Context()))
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: status = %d, want 429", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "1" {
		t.Fatalf("limit header = %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatal("retry-after header missing on rejection")
	}
}

func TestMiddlewareFailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	defer func() { _ = client.Close() }()

	var sawErr bool
	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "login:"},
		Config: Config{
			Key:    IPKey(""),
			Window: time.Minute,
			Max:    1,
		},
		OnError: func(error) { sawErr = true },
	}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("limiter outage must not block logins: status = %d", rr.Code)
	}
	if !sawErr {
		t.Fatal("OnError was not invoked")
	}
}

func TestIPKeyStripsPort(t *testing.T) {
	key := IPKey("login:")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.RemoteAddr = "192.168.1.5:40000"
	if got := key(req); got != "login:192.168.1.5" {
		t.Fatalf("key = %q", got)
	}
}
