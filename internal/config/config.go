package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the FX assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	RedisURL string

	// Memory retention caps: the per-owner ledger keeps the last LedgerCap
	// records, each category index the last IndexCap ids.
	LedgerCap  int
	IndexCap   int
	HistoryCap int
	HistoryTTL time.Duration

	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppFrom   string
	TwilioRequestTimeout time.Duration

	OpenAIAPIKey       string
	OpenAIModel        string
	BrainTimeout       time.Duration
	BrainMaxAttempts   int
	BrainRetryBaseWait time.Duration

	RateFetchTimeout  time.Duration
	RateFetchWorkers  int
	DisplayTimezone   string
	BroadcastTimezone string
	BroadcastEnabled  bool

	MaxInboundChars int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "evafx"),
		RedisURL:             stringsTrimSpace("REDIS_URL"),
		LedgerCap:            100,
		IndexCap:             50,
		HistoryCap:           20,
		HistoryTTL:           7 * 24 * time.Hour,
		TwilioAccountSID:     stringsTrimSpace("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      stringsTrimSpace("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom:   envOrDefault("TWILIO_WHATSAPP_NUMBER", "whatsapp:+14155238886"),
		TwilioRequestTimeout: 10 * time.Second,
		OpenAIAPIKey:         stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:          envOrDefault("OPENAI_MODEL", "gpt-4-turbo-preview"),
		BrainTimeout:         15 * time.Second,
		BrainMaxAttempts:     3,
		BrainRetryBaseWait:   2 * time.Second,
		RateFetchTimeout:     10 * time.Second,
		RateFetchWorkers:     4,
		DisplayTimezone:      envOrDefault("APP_DISPLAY_TIMEZONE", "Africa/Douala"),
		BroadcastTimezone:    envOrDefault("APP_BROADCAST_TIMEZONE", "Asia/Dubai"),
		BroadcastEnabled:     false,
		ShutdownTimeout:      15 * time.Second,
		MaxInboundChars:      4096,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryTTL, err = durationFromEnv("APP_HISTORY_TTL", cfg.HistoryTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainTimeout, err = durationFromEnv("APP_BRAIN_TIMEOUT", cfg.BrainTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.RateFetchTimeout, err = durationFromEnv("APP_RATE_FETCH_TIMEOUT", cfg.RateFetchTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.LedgerCap, err = intFromEnv("APP_LEDGER_CAP", cfg.LedgerCap)
	if err != nil {
		return Config{}, err
	}
	cfg.IndexCap, err = intFromEnv("APP_INDEX_CAP", cfg.IndexCap)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryCap, err = intFromEnv("APP_HISTORY_CAP", cfg.HistoryCap)
	if err != nil {
		return Config{}, err
	}
	cfg.RateFetchWorkers, err = intFromEnv("APP_RATE_FETCH_WORKERS", cfg.RateFetchWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.BrainMaxAttempts, err = intFromEnv("APP_BRAIN_MAX_ATTEMPTS", cfg.BrainMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.BroadcastEnabled, err = boolFromEnv("APP_BROADCAST_ENABLED", cfg.BroadcastEnabled)
	if err != nil {
		return Config{}, err
	}

	if cfg.LedgerCap <= 0 {
		return Config{}, fmt.Errorf("APP_LEDGER_CAP must be positive")
	}
	if cfg.IndexCap <= 0 || cfg.IndexCap > cfg.LedgerCap {
		return Config{}, fmt.Errorf("APP_INDEX_CAP must be in 1..APP_LEDGER_CAP")
	}
	if cfg.HistoryCap <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_CAP must be positive")
	}
	if cfg.RateFetchWorkers <= 0 {
		return Config{}, fmt.Errorf("APP_RATE_FETCH_WORKERS must be positive")
	}
	if cfg.BrainMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("APP_BRAIN_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
