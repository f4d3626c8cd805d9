package config

import (
	"os"
	"time"
)

type Config struct {
	// NATS configuration
	NatsURL       string
	SubjectPrefix string
	NatsTimeout   time.Duration

	// Redis configuration
	RedisURL   string
	SessionTTL time.Duration

	// Advisor (LLM) configuration
	OpenAIAPIKey   string
	OpenAIModel    string
	AdvisorTimeout time.Duration

	// Market data configuration
	NewsBaseURL   string
	NewsAPIKey    string
	MarketBaseURL string

	// Wallet SDK configuration
	WalletBaseURL string
	WalletAPIKey  string

	// Chain explorer configuration
	PolygonAmoyBaseURL string
	AptosBaseURL       string

	// Vault (object storage) configuration
	VaultBaseURL string

	// Transcript feed configuration
	TranscriptSubject string

	// Service configuration
	ServiceName string
	MetricsAddr string
	HTTPTimeout time.Duration
}

func Load() *Config {
	return &Config{
		// NATS settings
		NatsURL:       getEnv("NATS_URL", "nats://localhost:4222"),
		SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "advisor"),
		NatsTimeout:   getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Redis settings
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SessionTTL: getDurationEnv("SESSION_TTL", 30*time.Minute),

		// Advisor settings
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
		AdvisorTimeout: getDurationEnv("ADVISOR_TIMEOUT", 30*time.Second),

		// Market data settings
		NewsBaseURL:   getEnv("NEWS_BASE_URL", "https://newsapi.org/v2"),
		NewsAPIKey:    getEnv("NEWS_API_KEY", ""),
		MarketBaseURL: getEnv("MARKET_BASE_URL", "https://api.coingecko.com/api/v3"),

		// Wallet SDK settings
		WalletBaseURL: getEnv("WALLET_BASE_URL", "https://sandbox-api.okto.tech"),
		WalletAPIKey:  getEnv("WALLET_API_KEY", ""),

		// Chain explorer settings
		PolygonAmoyBaseURL: getEnv("POLYGON_AMOY_BASE_URL", "https://api-amoy.polygonscan.com"),
		AptosBaseURL:       getEnv("APTOS_BASE_URL", "https://api.testnet.aptoslabs.com"),

		// Vault settings
		VaultBaseURL: getEnv("VAULT_BASE_URL", "http://localhost:8000"),

		// Transcript settings
		TranscriptSubject: getEnv("TRANSCRIPT_SUBJECT", "meet.transcripts"),

		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "defidvisor-core"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9100"),
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
