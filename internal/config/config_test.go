package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.LedgerCap != 100 {
		t.Fatalf("LedgerCap = %d, want 100", cfg.LedgerCap)
	}
	if cfg.IndexCap != 50 {
		t.Fatalf("IndexCap = %d, want 50", cfg.IndexCap)
	}
	if cfg.HistoryCap != 20 {
		t.Fatalf("HistoryCap = %d, want 20", cfg.HistoryCap)
	}
	if cfg.HistoryTTL != 7*24*time.Hour {
		t.Fatalf("HistoryTTL = %v, want %v", cfg.HistoryTTL, 7*24*time.Hour)
	}
	if cfg.TwilioWhatsAppFrom != "whatsapp:+14155238886" {
		t.Fatalf("TwilioWhatsAppFrom = %q, want sandbox default", cfg.TwilioWhatsAppFrom)
	}
	if cfg.BroadcastEnabled {
		t.Fatalf("BroadcastEnabled = true, want false by default")
	}
}

func TestLoadExplicitOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_LEDGER_CAP", "10")
	t.Setenv("APP_INDEX_CAP", "5")
	t.Setenv("APP_HISTORY_TTL", "24h")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LedgerCap != 10 {
		t.Fatalf("LedgerCap = %d, want 10", cfg.LedgerCap)
	}
	if cfg.IndexCap != 5 {
		t.Fatalf("IndexCap = %d, want 5", cfg.IndexCap)
	}
	if cfg.HistoryTTL != 24*time.Hour {
		t.Fatalf("HistoryTTL = %v, want 24h", cfg.HistoryTTL)
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("RedisURL = %q, want explicit value", cfg.RedisURL)
	}
}

func TestLoadRejectsIndexCapAboveLedgerCap(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_LEDGER_CAP", "10")
	t.Setenv("APP_INDEX_CAP", "20")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want index cap validation error")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BRAIN_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want duration parse error")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_HISTORY_TTL",
		"APP_BRAIN_TIMEOUT",
		"APP_RATE_FETCH_TIMEOUT",
		"APP_LEDGER_CAP",
		"APP_INDEX_CAP",
		"APP_HISTORY_CAP",
		"APP_RATE_FETCH_WORKERS",
		"APP_BRAIN_MAX_ATTEMPTS",
		"APP_BROADCAST_ENABLED",
		"APP_DISPLAY_TIMEZONE",
		"APP_BROADCAST_TIMEZONE",
		"REDIS_URL",
		"TWILIO_ACCOUNT_SID",
		"TWILIO_AUTH_TOKEN",
		"TWILIO_WHATSAPP_NUMBER",
		"OPENAI_API_KEY",
		"OPENAI_MODEL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}
