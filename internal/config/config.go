package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the FashionVista server.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Analyzer  AnalyzerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	History   HistoryConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type LogConfig struct {
	Level string
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

// AnalyzerConfig points at the external image analysis service.
type AnalyzerConfig struct {
	URL     string
	Timeout time.Duration
}

// AuthConfig points at the external login service and bounds stored sessions.
type AuthConfig struct {
	LoginURL    string
	Timeout     time.Duration
	SessionTTL  time.Duration
	IdleTimeout time.Duration
	// BootstrapKey, when set, is ensured to exist as an admin API key at startup.
	BootstrapKey string
}

type RateLimitConfig struct {
	PerMinute int
}

type HistoryConfig struct {
	Buffer int
}

const minIdleTimeout = time.Second

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file is loaded first when present; variables already set in the
// environment take precedence over it.
func Load() (*Config, error) {
	envFile := envString("FASHIONVISTA_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("FASHIONVISTA_PORT", 8080),
			Env:  envString("FASHIONVISTA_ENV", "development"),
		},
		Log: LogConfig{
			Level: strings.ToLower(envString("LOG_LEVEL", "info")),
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
		Analyzer: AnalyzerConfig{
			URL:     envString("ANALYZER_URL", "http://localhost:5001/analyze"),
			Timeout: envDuration("ANALYZER_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			LoginURL:    envString("LOGIN_URL", "http://localhost:5000/api/users/login"),
			Timeout:     envDuration("LOGIN_TIMEOUT", 15*time.Second),
			SessionTTL:  envDuration("SESSION_TTL", 24*time.Hour),
			IdleTimeout: envDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

			BootstrapKey: os.Getenv("FASHIONVISTA_BOOTSTRAP_KEY"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 30),
		},
		History: HistoryConfig{
			Buffer: envInt("HISTORY_BUFFER", 256),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("FASHIONVISTA_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !isHTTPURL(c.Analyzer.URL) {
		return fmt.Errorf("ANALYZER_URL must start with http:// or https://, got %q", c.Analyzer.URL)
	}
	if c.Analyzer.Timeout <= 0 {
		return fmt.Errorf("ANALYZER_TIMEOUT must be > 0, got %s", c.Analyzer.Timeout)
	}

	if !isHTTPURL(c.Auth.LoginURL) {
		return fmt.Errorf("LOGIN_URL must start with http:// or https://, got %q", c.Auth.LoginURL)
	}
	if c.Auth.Timeout <= 0 || c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("LOGIN_TIMEOUT and SESSION_TTL must be > 0")
	}
	if c.Auth.IdleTimeout < minIdleTimeout {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be at least %s, got %s", minIdleTimeout, c.Auth.IdleTimeout)
	}
	if c.Auth.BootstrapKey != "" && len(c.Auth.BootstrapKey) < 16 {
		return fmt.Errorf("FASHIONVISTA_BOOTSTRAP_KEY must be at least 16 characters")
	}

	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0, got %d", c.RateLimit.PerMinute)
	}
	if c.History.Buffer <= 0 {
		return fmt.Errorf("HISTORY_BUFFER must be > 0, got %d", c.History.Buffer)
	}

	return nil
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func isHTTPURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
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
