// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	FrontendURL     string
	StoreDriver     string
	DBPath          string
	Redis           RedisConfig
	SessionTTL      time.Duration
	RulesPath       string
	Generator       GeneratorConfig
	RateLimit       RateLimitConfig
	ConversationLog ConversationLogConfig
}

// RedisConfig locates the Redis server when StoreDriver is "redis".
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GeneratorConfig selects the generative collaborator.
type GeneratorConfig struct {
	Kind            string
	Addr            string
	GeminiAPIKey    string
	GeminiModel     string
	AzureEndpoint   string
	AzureKey        string
	AzureDeployment string
	EnrichTimeout   time.Duration
}

// RateLimitConfig bounds turn requests per trainee.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		DBPath:      getEnv("DB_PATH", "./data/boothsim.db"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL", 24*60)) * time.Minute,
		RulesPath:  getEnv("RULES_PATH", ""),
		Generator: GeneratorConfig{
			Kind:            strings.ToLower(getEnv("GENERATOR", "none")),
			Addr:            getEnv("GENERATOR_ADDR", ""),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			AzureEndpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			AzureKey:        getEnv("AZURE_OPENAI_KEY", ""),
			AzureDeployment: getEnv("AZURE_OPENAI_DEPLOYMENT", ""),
			EnrichTimeout:   time.Duration(getEnvInt("ENRICH_TIMEOUT_MS", 4000)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
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
		return errors.New("PORT cannot be empty")
	}
	switch c.StoreDriver {
	case StoreSQLite:
		if c.DBPath == "" {
			return errors.New("DB_PATH cannot be empty")
		}
	case StoreRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR cannot be empty")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreSQLite, StoreRedis, c.StoreDriver)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be > 0")
	}
	switch c.Generator.Kind {
	case "none", "mock":
	case "grpc":
		if c.Generator.Addr == "" {
			return errors.New("GENERATOR_ADDR is required for the grpc generator")
		}
	case "gemini":
		if c.Generator.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required for the gemini generator")
		}
	case "azure":
		if c.Generator.AzureEndpoint == "" || c.Generator.AzureKey == "" || c.Generator.AzureDeployment == "" {
			return errors.New("AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_KEY and AZURE_OPENAI_DEPLOYMENT are required for the azure generator")
		}
	default:
		return fmt.Errorf("unknown GENERATOR %q", c.Generator.Kind)
	}
	if c.Generator.EnrichTimeout <= 0 {
		return errors.New("ENRICH_TIMEOUT_MS must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW_SECONDS must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return errors.New("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return errors.New("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"http://localhost:5173", "http://localhost:" + c.Port}
	}
	return []string{c.FrontendURL}
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
