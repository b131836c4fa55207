package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Reservation lifecycle
	HoldDuration  time.Duration
	SweepInterval time.Duration
	SweepBatch    int

	// Payment gateway
	GatewayChannel   string
	GatewayTokenHash string // bcrypt hash of the webhook token

	// Rate limiting
	BookingRateLimit int // requests per minute per caller

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		HoldDuration:  getEnvAsDuration("HOLD_DURATION", "10m"),
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", "60s"),
		SweepBatch:    getEnvAsInt("SWEEP_BATCH", 500),

		GatewayChannel:   getEnv("GATEWAY_CHANNEL", "payment-notifications"),
		GatewayTokenHash: getEnv("GATEWAY_TOKEN_HASH", ""),

		BookingRateLimit: getEnvAsInt("BOOKING_RATE_LIMIT", 30),

		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
