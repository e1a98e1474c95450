package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PARTNER_CONFIG", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "memory" || cfg.Offer.Pool != "generator" || cfg.Notify.Backend != "log" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Dues.PerDayCharge != 20 || cfg.Dues.Timezone != "Asia/Kolkata" {
		t.Fatalf("unexpected dues defaults: %+v", cfg.Dues)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "partner.yaml")
	body := []byte("store:\n  backend: redis\noffer:\n  tick_seconds: 9\ndues:\n  per_day_charge: 35\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PARTNER_CONFIG", path)
	t.Setenv("PARTNER_OFFER_TICK", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "redis" {
		t.Fatalf("expected file backend redis, got %s", cfg.Store.Backend)
	}
	if cfg.Offer.TickSeconds != 2 {
		t.Fatalf("expected env override 2, got %d", cfg.Offer.TickSeconds)
	}
	if cfg.Dues.PerDayCharge != 35 {
		t.Fatalf("expected per-day charge 35, got %d", cfg.Dues.PerDayCharge)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("expected default addr kept, got %s", cfg.HTTP.Addr)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("PARTNER_CONFIG", "")
	t.Setenv("PARTNER_STORE", "sqlite")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown store backend")
	}
}
