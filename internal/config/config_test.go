package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/urbanstore")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPListenAddr != ":8080" {
		t.Errorf("HTTPListenAddr = %q", cfg.HTTPListenAddr)
	}
	if cfg.StoreName != "Urban Store" {
		t.Errorf("StoreName = %q", cfg.StoreName)
	}
	if cfg.DispatchInterval != time.Second {
		t.Errorf("DispatchInterval = %v", cfg.DispatchInterval)
	}
	if cfg.WhatsAppEnabled {
		t.Error("WhatsAppEnabled should default to false")
	}
	if cfg.DebtReminderCron != "0 9 * * 1" {
		t.Errorf("DebtReminderCron = %q", cfg.DebtReminderCron)
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without DATABASE_URL")
	}
}

func TestLoadDispatchIntervalFloor(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/urbanstore")
	t.Setenv("DISPATCH_INTERVAL", "100ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DispatchInterval != time.Second {
		t.Errorf("DispatchInterval = %v, want floor of 1s", cfg.DispatchInterval)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/urbanstore")
	t.Setenv("REDIS_DB", "not-a-number")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for malformed REDIS_DB")
	}
}
