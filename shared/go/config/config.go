package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LocalEnvFile is loaded, when present, before reading the environment.
// Variables already set in the environment win.
const LocalEnvFile = "config/local.env"

// Search backends accepted by SEARCH_BACKEND.
const (
	SearchBackendPostgres = "postgres"
	SearchBackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Security configuration
	Security SecurityConfig

	// CORS configuration
	CORS CORSConfig

	// Logging configuration
	Logging LoggingConfig

	Search      SearchConfig
	Propagation PropagationConfig

	// Bootstrap seeds demo data on startup when set.
	Bootstrap bool
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int
	Host string
}

// SecurityConfig holds security-related settings
type SecurityConfig struct {
	JWTSecret  string
	SessionTTL time.Duration
}

// SearchConfig selects and addresses the playlist search index.
type SearchConfig struct {
	Backend     string // postgres, redis
	RedisURL    string
	RedisPrefix string
}

// PropagationConfig tunes how committed changes reach the search index.
type PropagationConfig struct {
	Timeout     time.Duration
	Concurrency int
	Async       bool
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load(LocalEnvFile)

	cfg := &Config{}

	// Load database configuration
	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}

	// Load server configuration
	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	// Load security configuration
	if err := cfg.loadSecurity(); err != nil {
		return nil, fmt.Errorf("load security config: %w", err)
	}

	// Load CORS configuration
	cfg.loadCORS()

	// Load logging configuration
	cfg.loadLogging()

	if err := cfg.loadSearch(); err != nil {
		return nil, fmt.Errorf("load search config: %w", err)
	}
	if err := cfg.loadPropagation(); err != nil {
		return nil, fmt.Errorf("load propagation config: %w", err)
	}
	cfg.Bootstrap = parseBool(os.Getenv("BOOTSTRAP_DEMO_DATA"))

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// loadDatabase prefers DATABASE_URL and otherwise assembles a URL from the
// DB_* variables. Credentials are escaped.
func (c *Config) loadDatabase() error {
	c.Database.URL = os.Getenv("DATABASE_URL")
	if c.Database.URL != "" {
		return nil
	}

	c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
	c.Database.User = os.Getenv("DB_USER")
	c.Database.Password = os.Getenv("DB_PASSWORD")
	c.Database.Name = os.Getenv("DB_NAME")
	c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
	if err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.Port = port

	if c.Database.User == "" || c.Database.Name == "" {
		return nil
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": []string{c.Database.SSLMode}}.Encode(),
	}
	c.Database.URL = u.String()
	return nil
}

func (c *Config) loadServer() error {
	portStr := getEnvOrDefault("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	return nil
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")
	ttl, err := time.ParseDuration(getEnvOrDefault("SESSION_TTL", "24h"))
	if err != nil {
		return fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	c.Security.SessionTTL = ttl
	return nil
}

func (c *Config) loadSearch() error {
	c.Search.Backend = strings.ToLower(getEnvOrDefault("SEARCH_BACKEND", SearchBackendPostgres))
	c.Search.RedisURL = getEnvOrDefault("REDIS_URL", "redis://localhost:6379/0")
	c.Search.RedisPrefix = getEnvOrDefault("REDIS_PREFIX", "tubelists:search:")
	return nil
}

func (c *Config) loadPropagation() error {
	timeout, err := time.ParseDuration(getEnvOrDefault("PROPAGATION_TIMEOUT", "10s"))
	if err != nil {
		return fmt.Errorf("invalid PROPAGATION_TIMEOUT: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnvOrDefault("PROPAGATION_CONCURRENCY", "4"))
	if err != nil {
		return fmt.Errorf("invalid PROPAGATION_CONCURRENCY: %w", err)
	}
	c.Propagation.Timeout = timeout
	c.Propagation.Concurrency = concurrency
	c.Propagation.Async = parseBool(os.Getenv("PROPAGATION_ASYNC"))
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv != "" {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		c.CORS.AllowedOrigins = origins
	} else {
		// Default for local development
		c.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:5173",
			"http://localhost:8080",
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var problems []string

	// Validate database configuration
	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}

	// Validate security configuration
	if c.Security.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if c.Security.SessionTTL <= 0 {
		problems = append(problems, "SESSION_TTL must be positive")
	}

	switch c.Search.Backend {
	case SearchBackendPostgres:
	case SearchBackendRedis:
		if c.Search.RedisURL == "" {
			problems = append(problems, "REDIS_URL is required when SEARCH_BACKEND=redis")
		}
	default:
		problems = append(problems, "SEARCH_BACKEND must be one of: postgres, redis")
	}

	if c.Propagation.Timeout <= 0 {
		problems = append(problems, "PROPAGATION_TIMEOUT must be positive")
	}
	if c.Propagation.Concurrency < 1 {
		problems = append(problems, "PROPAGATION_CONCURRENCY must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
