package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/anasakil/chat-app-techniq8/internal/queue"
	"github.com/anasakil/chat-app-techniq8/internal/tracker"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string // admin HTTP surface
	GatewayAddr string // realtime TCP gateway
	Env         string

	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	EncryptionSecret string
	EncryptionSalt   string
	JWTSecret        string

	PendingQueueCap int
	HistoryCap      int
	OutboundBuffer  int

	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	MaxFrameBytes int
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GatewayAddr: getEnv("GATEWAY_ADDR", ":9090"),
		Env:         getEnv("ENV", "development"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "data/chat.db"),
		RedisURL:    os.Getenv("REDIS_URL"),

		EncryptionSecret: getEnv("ENCRYPTION_SECRET", "dev-only-secret"),
		EncryptionSalt:   getEnv("ENCRYPTION_SALT", "dev-only-salt"),
		JWTSecret:        os.Getenv("JWT_SECRET"),

		PendingQueueCap: getEnvInt("PENDING_QUEUE_CAP", queue.DefaultCap),
		HistoryCap:      getEnvInt("HISTORY_CAP", tracker.DefaultCap),
		OutboundBuffer:  getEnvInt("OUTBOUND_BUFFER", 256),

		ReadTimeout:   getEnvDuration("READ_TIMEOUT", 5*time.Minute),
		WriteTimeout:  getEnvDuration("WRITE_TIMEOUT", 10*time.Second),
		MaxFrameBytes: getEnvInt("MAX_FRAME_BYTES", 1<<20),
	}

	// In production, secrets must be set explicitly
	if cfg.Env == "production" {
		if os.Getenv("ENCRYPTION_SECRET") == "" {
			panic("ENCRYPTION_SECRET is required in production")
		}
		if os.Getenv("ENCRYPTION_SALT") == "" {
			panic("ENCRYPTION_SALT is required in production")
		}
		if cfg.JWTSecret == "" {
			panic("JWT_SECRET is required in production")
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
