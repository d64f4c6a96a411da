package config_test

import (
	"testing"

	"github.com/noah-isme/backend-pos/internal/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL": "postgres://localhost:5432/pos",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "test-secret",
	}
}

func TestLoadDefaults(t *testing.T) {
	env := baseEnv()
	env["PORT"] = ""
	env["PROFIT_MARGIN_FALLBACK"] = ""
	cfg, err := config.LoadForTests(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr() != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr())
	}
	if cfg.ProfitMarginFallback != 0.30 {
		t.Fatalf("margin fallback = %v", cfg.ProfitMarginFallback)
	}
	if cfg.CartTTL <= 0 || cfg.DashboardCacheTTL <= 0 {
		t.Fatalf("expected positive TTL defaults, got cart=%v dashboard=%v", cfg.CartTTL, cfg.DashboardCacheTTL)
	}
}

func TestLoadRejectsMissingDatabase(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	if _, err := config.LoadForTests(env); err == nil {
		t.Fatal("expected error for missing DATABASE_URL")
	}
}

func TestMarginFallbackClamped(t *testing.T) {
	env := baseEnv()
	env["PROFIT_MARGIN_FALLBACK"] = "1.5"
	cfg, err := config.LoadForTests(env)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProfitMarginFallback != 0.30 {
		t.Fatalf("out-of-range margin should fall back to 0.30, got %v", cfg.ProfitMarginFallback)
	}
}
