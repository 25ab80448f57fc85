// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	GRPCPort        string
	FrontendURL     string
	DBPath          string
	SeedPath        string
	SeedWatch       bool
	ReferralBaseURL string
	Assistant       AssistantConfig
	Money           MoneyConfig
	RateLimit       RateLimitConfig
	TranscriptTTL   time.Duration
	ConversationLog ConversationLogConfig
}

// AssistantConfig controls the chat assistant's fallback backend.
type AssistantConfig struct {
	Endpoint     string        // function endpoint; POST {message} -> {response}
	Timeout      time.Duration // 0 leaves the transport default in place
	WrapContext  bool          // prepend persona and user details to forwarded messages
	GeminiAPIKey string
	GeminiModel  string
}

// MoneyConfig controls how amounts are rendered.
type MoneyConfig struct {
	Symbol   string
	Locale   string
	Timezone string // IANA name; empty means the server's local zone
}

// RateLimitConfig bounds chat requests per user.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		GRPCPort:        getEnv("GRPC_PORT", "9090"),
		FrontendURL:     getEnv("FRONTEND_URL", ""),
		DBPath:          getEnv("DB_PATH", "./data/cohub.db"),
		SeedPath:        getEnv("SEED_PATH", ""),
		SeedWatch:       getEnvBool("SEED_WATCH", false),
		ReferralBaseURL: strings.TrimRight(getEnv("REFERRAL_BASE_URL", "http://localhost:8080"), "/"),
		Assistant: AssistantConfig{
			Endpoint:     getEnv("ASSISTANT_ENDPOINT", ""),
			Timeout:      getEnvDuration("ASSISTANT_TIMEOUT", 0),
			WrapContext:  getEnvBool("ASSISTANT_WRAP_CONTEXT", true),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		},
		Money: MoneyConfig{
			Symbol:   getEnv("CURRENCY_SYMBOL", "₹"),
			Locale:   getEnv("LOCALE", "en-IN"),
			Timezone: getEnv("DISPLAY_TIMEZONE", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			WindowDuration:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		TranscriptTTL: getEnvDuration("TRANSCRIPT_TTL", 7*24*time.Hour),
		ConversationLog: ConversationLogConfig{
			Enabled:   getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:       getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SeedWatch && c.SeedPath == "" {
		return fmt.Errorf("SEED_WATCH requires SEED_PATH")
	}
	if c.Money.Timezone != "" {
		if _, err := time.LoadLocation(c.Money.Timezone); err != nil {
			return fmt.Errorf("DISPLAY_TIMEZONE: %w", err)
		}
	}
	if c.Assistant.Timeout < 0 {
		return fmt.Errorf("ASSISTANT_TIMEOUT must be >= 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.TranscriptTTL <= 0 {
		return fmt.Errorf("TRANSCRIPT_TTL must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AssistantMode names the configured fallback backend.
func (c *Config) AssistantMode() string {
	switch {
	case c.Assistant.Endpoint != "":
		return "function"
	case c.Assistant.GeminiAPIKey != "":
		return "gemini"
	default:
		return "offline"
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
