package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            int
	LogLevel        string
	APIToken        string
	AnthropicAPIKey string
	AnthropicModel  string
	UpstreamTimeout time.Duration
	DatabaseURL     string
	NatsURL         string
	NatsToken       string
	SessionCapacity int
	SessionIdleTTL  time.Duration
}

func Load() Config {
	// .env is optional; real deployments inject the environment directly.
	_ = godotenv.Load()

	return Config{
		Port:            envInt("DISCOVERY_PORT", 8840),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		APIToken:        envStr("DISCOVERY_API_TOKEN", ""),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("DISCOVERY_MODEL", "claude-sonnet-4-20250514"),
		UpstreamTimeout: envDuration("DISCOVERY_UPSTREAM_TIMEOUT", 20*time.Second),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		NatsURL:         envStr("NATS_URL", ""),
		NatsToken:       envStr("NATS_TOKEN", ""),
		SessionCapacity: envInt("DISCOVERY_SESSION_CAPACITY", 1024),
		SessionIdleTTL:  envDuration("DISCOVERY_SESSION_IDLE_TTL", 30*time.Minute),
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
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
