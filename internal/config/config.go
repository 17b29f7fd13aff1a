// Package config holds client and reference-backend configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// Environment is the deployment environment the binaries run in.
type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

// Config holds all application configuration
type Config struct {
	Environment Environment `yaml:"environment" json:"environment"`

	// API
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`
	// RequestTimeout bounds each backend call. Zero leaves the call to the
	// transport.
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`

	// Logging
	LogLevel string `yaml:"log_level" json:"log_level"`

	// Defaults applied to new graph elements
	DefaultNodeType string `yaml:"default_node_type" json:"default_node_type"`
	DefaultEdgeType string `yaml:"default_edge_type" json:"default_edge_type"`

	DevServer DevServer `yaml:"dev_server" json:"dev_server"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-" json:"-"`
}

// DevServer configures the in-memory reference backend.
type DevServer struct {
	Address        string   `yaml:"address" json:"address"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`
	// ChatFailureThreshold is the number of consecutive responder failures
	// that opens the chat circuit breaker.
	ChatFailureThreshold uint32        `yaml:"chat_failure_threshold" json:"chat_failure_threshold"`
	ChatOpenTimeout      time.Duration `yaml:"chat_open_timeout" json:"chat_open_timeout"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Environment:     Development,
		APIBaseURL:      "http://127.0.0.1:8000/api",
		LogLevel:        "info",
		DefaultNodeType: "knowledge",
		DefaultEdgeType: "default",
		DevServer: DevServer{
			Address:              ":8000",
			AllowedOrigins:       []string{"*"},
			ChatFailureThreshold: 5,
			ChatOpenTimeout:      30 * time.Second,
		},
		LoadedFrom: []string{"defaults"},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables on cfg.
func applyEnv(cfg *Config) {
	cfg.Environment = Environment(strings.ToLower(getEnv("KG_ENVIRONMENT", string(cfg.Environment))))
	cfg.APIBaseURL = getEnv("KG_API_URL", cfg.APIBaseURL)
	cfg.RequestTimeout = getEnvDuration("KG_REQUEST_TIMEOUT", cfg.RequestTimeout)
	cfg.LogLevel = getEnv("KG_LOG_LEVEL", cfg.LogLevel)
	cfg.DefaultNodeType = getEnv("KG_DEFAULT_NODE_TYPE", cfg.DefaultNodeType)
	cfg.DefaultEdgeType = getEnv("KG_DEFAULT_EDGE_TYPE", cfg.DefaultEdgeType)

	cfg.DevServer.Address = getEnv("KG_DEVSERVER_ADDR", cfg.DevServer.Address)
	if origins := os.Getenv("KG_DEVSERVER_ORIGINS"); origins != "" {
		cfg.DevServer.AllowedOrigins = splitList(origins)
	}
	cfg.DevServer.ChatFailureThreshold = uint32(getEnvInt("KG_CHAT_FAILURE_THRESHOLD", int(cfg.DevServer.ChatFailureThreshold)))

	cfg.LoadedFrom = append(cfg.LoadedFrom, "environment")
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid api base url %q: %w", c.APIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("api base url %q must be an absolute http(s) url", c.APIBaseURL)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	if c.DefaultEdgeType == "" {
		return fmt.Errorf("default edge type is required")
	}
	if c.DevServer.ChatFailureThreshold == 0 {
		return fmt.Errorf("chat failure threshold must be positive")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration syntax ("5s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
