package config

import (
	"os"
	"strconv"
	"time"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// Config holds all configuration for the CCG server. It is loaded once at
// process start and never mutated afterwards; constructors receive it by
// value or pointer and must treat it as read-only.
type Config struct {
	Port        int
	Version     string
	DefaultLang models.Lang

	Primary  ProviderConfig
	Fallback ProviderConfig

	// AttemptTimeout bounds each individual provider attempt.
	AttemptTimeout time.Duration
	Temperature    float64

	// DailyLimit is the per-user request cap enforced by the rate-limit
	// middleware. Zero disables limiting.
	DailyLimit int

	DataDir    string
	HistoryTTL time.Duration

	Telemetry TelemetryConfig
}

// ProviderConfig identifies one chat-completion endpoint.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:        envInt("CCG_PORT", 8080),
		Version:     envStr("CCG_VERSION", "2.1.0"),
		DefaultLang: models.ParseLang(envStr("CCG_DEFAULT_LANG", "en"), models.LangEN),
		Primary: ProviderConfig{
			Name:    "primary",
			BaseURL: envStr("CCG_PRIMARY_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  envStr("CCG_PRIMARY_API_KEY", ""),
			Model:   envStr("CCG_PRIMARY_MODEL", "gpt-4o-mini"),
		},
		Fallback: ProviderConfig{
			Name:    "local",
			BaseURL: envStr("CCG_FALLBACK_BASE_URL", "http://localhost:11434/v1"),
			APIKey:  envStr("CCG_FALLBACK_API_KEY", ""),
			Model:   envStr("CCG_FALLBACK_MODEL", "llama3.1"),
		},
		AttemptTimeout: envDur("CCG_ATTEMPT_TIMEOUT", 45*time.Second),
		Temperature:    envFloat("CCG_TEMPERATURE", 0.3),
		DailyLimit:     envInt("CCG_DAILY_LIMIT", 0),
		DataDir:        envStr("CCG_DATA_DIR", ""),
		HistoryTTL:     envDur("CCG_HISTORY_TTL", 30*24*time.Hour),
		Telemetry: TelemetryConfig{
			Enabled:      envBool("OTEL_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "ccg-server"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
