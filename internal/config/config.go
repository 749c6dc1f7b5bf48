package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the GuestPulse server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Classify ClassifyConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ClassifyConfig selects the classification backend. Mode "fallback" is the
// deterministic offline heuristic; mode "llm" calls the configured
// OpenAI-compatible endpoint.
type ClassifyConfig struct {
	Mode string
	LLM  LLMConfig
}

type LLMConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	Timeout    time.Duration
	JSONMode   bool
	MaxRetries int
	Backoff    time.Duration
}

var validModes = map[string]bool{
	"fallback": true,
	"llm":      true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("GUESTPULSE_PORT", 8080),
			Env:  envString("GUESTPULSE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Classify: ClassifyConfig{
			Mode: envString("CLASSIFY_MODE", "fallback"),
			LLM: LLMConfig{
				BaseURL:    envString("LLM_BASE_URL", "http://localhost:8000/v1"),
				Model:      envString("LLM_MODEL", "Qwen3-4B-Instruct-2507"),
				APIKey:     os.Getenv("LLM_API_KEY"),
				Timeout:    envDurationSecs("LLM_TIMEOUT_SECS", 60*time.Second),
				JSONMode:   envBool("LLM_JSON_MODE", true),
				MaxRetries: envInt("LLM_MAX_RETRIES", 2),
				Backoff:    envDuration("LLM_BACKOFF", 800*time.Millisecond),
			},
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validModes[c.Classify.Mode] {
		return fmt.Errorf("CLASSIFY_MODE must be one of fallback, llm; got %q", c.Classify.Mode)
	}

	if c.Classify.Mode == "llm" {
		if c.Classify.LLM.BaseURL == "" {
			return fmt.Errorf("LLM_BASE_URL is required when CLASSIFY_MODE is llm")
		}
		if !strings.HasPrefix(c.Classify.LLM.BaseURL, "http://") && !strings.HasPrefix(c.Classify.LLM.BaseURL, "https://") {
			return fmt.Errorf("LLM_BASE_URL must start with http:// or https://, got %q", c.Classify.LLM.BaseURL)
		}
		if c.Classify.LLM.Model == "" {
			return fmt.Errorf("LLM_MODEL is required when CLASSIFY_MODE is llm")
		}
		if c.Classify.LLM.MaxRetries < 0 {
			return fmt.Errorf("LLM_MAX_RETRIES must be >= 0, got %d", c.Classify.LLM.MaxRetries)
		}
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
