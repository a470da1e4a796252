// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.foliorag/config.yaml or ./config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - HTTP: listen address, CORS origins
//   - Providers: OpenAI API key, base URL, embedding and chat models
//   - Retrieval: top-k defaults and bounds, fallback scan limit
//   - Storage: PostgreSQL connection (see storage.go)
//   - Observability: OTLP tracing (see observability.go)
//
// Security: sensitive values (API key, database password) are never logged;
// MarshalJSON masks them explicitly.
//
// Error handling uses sentinel errors checked with errors.Is(), wrapped with
// context via fmt.Errorf("%w: details", ErrXxx).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the OpenAI API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbeddingModel indicates the embedding model is invalid.
	ErrInvalidEmbeddingModel = errors.New("invalid embedding model")

	// ErrInvalidChatModel indicates the chat model is invalid.
	ErrInvalidChatModel = errors.New("invalid chat model")

	// ErrInvalidTopK indicates the top-k setting is out of range.
	ErrInvalidTopK = errors.New("invalid top_k")

	// ErrInvalidScanLimit indicates the fallback scan limit is negative.
	ErrInvalidScanLimit = errors.New("invalid scan_limit")

	// ErrInvalidRequestTimeout indicates the provider request timeout is not positive.
	ErrInvalidRequestTimeout = errors.New("invalid request_timeout")

	// ErrInvalidHTTPAddr indicates the HTTP listen address is invalid.
	ErrInvalidHTTPAddr = errors.New("invalid http_addr")

	// ErrInvalidCORSOrigins indicates the CORS origin list is invalid.
	ErrInvalidCORSOrigins = errors.New("invalid cors_origins")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbeddingModel is the default OpenAI embedding model.
	// text-embedding-3-small outputs 1536 dimensions, matching the
	// vector(1536) column in the chunks schema; see corpus.VectorDimension.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// DefaultChatModel is the default OpenAI chat model.
	DefaultChatModel = "gpt-4o-mini"

	// DefaultTopK is the number of sources returned when a query does not ask
	// for a specific k.
	DefaultTopK = 4

	// DefaultMaxTopK caps client-requested k values.
	DefaultMaxTopK = 20
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, API keys, tokens), update MarshalJSON.
type Config struct {
	// HTTP server configuration
	HTTPAddr    string   `mapstructure:"http_addr" json:"http_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"` // "*" allows any origin

	// OpenAI provider configuration
	OpenAIAPIKey   string `mapstructure:"openai_api_key" json:"openai_api_key"` // SENSITIVE: masked in MarshalJSON
	OpenAIBaseURL  string `mapstructure:"openai_base_url" json:"openai_base_url"`
	EmbeddingModel string `mapstructure:"embedding_model" json:"embedding_model"`
	ChatModel      string `mapstructure:"chat_model" json:"chat_model"`

	// Retrieval configuration
	TopK      int `mapstructure:"top_k" json:"top_k"`           // default number of sources per answer
	MaxTopK   int `mapstructure:"max_top_k" json:"max_top_k"`   // upper bound on client-requested k
	ScanLimit int `mapstructure:"scan_limit" json:"scan_limit"` // fallback scan row cap, 0 = unbounded

	// RequestTimeout bounds each provider call (embedding, completion).
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability configuration (see observability.go for type definition)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	// Configuration directory: ~/.foliorag/
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".foliorag")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults()
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Parse DATABASE_URL if set (highest priority for PostgreSQL config)
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	// Environment variables carry origin lists as a single comma-separated value
	cfg.CORSOrigins = splitOrigins(cfg.CORSOrigins)

	// CRITICAL: Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	// HTTP defaults
	viper.SetDefault("http_addr", "127.0.0.1:8080")
	viper.SetDefault("cors_origins", []string{"*"})

	// OpenAI defaults
	viper.SetDefault("openai_base_url", "")
	viper.SetDefault("embedding_model", DefaultEmbeddingModel)
	viper.SetDefault("chat_model", DefaultChatModel)

	// Retrieval defaults
	viper.SetDefault("top_k", DefaultTopK)
	viper.SetDefault("max_top_k", DefaultMaxTopK)
	viper.SetDefault("scan_limit", 0)
	viper.SetDefault("request_timeout", "60s")

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "foliorag")
	viper.SetDefault("postgres_password", "foliorag_dev_password")
	viper.SetDefault("postgres_db_name", "foliorag")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	// Tracing defaults
	viper.SetDefault("tracing.endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "foliorag")
}

// bindEnvVariables binds environment variables explicitly.
// The provider and retrieval keys keep their historical unprefixed names
// (OPENAI_API_KEY, EMBEDDING_MODEL, ...); service-level keys use FOLIORAG_*.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(input ...string) {
		if err := viper.BindEnv(input...); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q: %v", input, err))
		}
	}

	// Provider credentials and model selection
	mustBind("openai_api_key", "OPENAI_API_KEY")
	mustBind("openai_base_url", "OPENAI_BASE_URL")
	mustBind("embedding_model", "EMBEDDING_MODEL")
	mustBind("chat_model", "CHAT_MODEL")

	// Retrieval tuning
	mustBind("top_k", "TOP_K")
	mustBind("max_top_k", "FOLIORAG_MAX_TOP_K")
	mustBind("scan_limit", "FOLIORAG_SCAN_LIMIT")
	mustBind("request_timeout", "FOLIORAG_REQUEST_TIMEOUT")

	// PostgreSQL (DATABASE_URL, parsed separately, overrides these as a unit)
	mustBind("postgres_host", "FOLIORAG_POSTGRES_HOST")
	mustBind("postgres_port", "FOLIORAG_POSTGRES_PORT")
	mustBind("postgres_user", "FOLIORAG_POSTGRES_USER")
	mustBind("postgres_password", "FOLIORAG_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "FOLIORAG_POSTGRES_DB_NAME")
	mustBind("postgres_ssl_mode", "FOLIORAG_POSTGRES_SSL_MODE")

	// Tracing (the endpoint uses the standard OTLP variable)
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("tracing.environment", "FOLIORAG_ENVIRONMENT")
	mustBind("tracing.service_name", "FOLIORAG_SERVICE_NAME")

	// HTTP surface (CORS_ALLOW_ORIGINS kept for older deployments)
	mustBind("http_addr", "FOLIORAG_HTTP_ADDR")
	mustBind("cors_origins", "FOLIORAG_CORS_ORIGINS", "CORS_ALLOW_ORIGINS")

	// Logging
	mustBind("log_level", "FOLIORAG_LOG_LEVEL")
	mustBind("log_json", "FOLIORAG_LOG_JSON")

	// NOTE: DATABASE_URL is read directly in parseDatabaseURL, not via Viper,
	// so it can override the individual postgres_* keys as a unit.
}

// splitOrigins expands comma-separated origin entries and trims whitespace.
// A list arriving from an environment variable is a single "a,b,c" string.
func splitOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, entry := range origins {
		for _, origin := range strings.Split(entry, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}

// SlogLevel maps the configured log level name to a slog.Level.
// Unknown names fall back to Info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full-width blocks U+2588) to avoid substring matching
// against real secret characters.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
//
// THREAT MODEL: This defends against accidental logging of real secrets.
// It is NOT cryptographically secure - if logs are compromised, rotate secrets.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	// Fully mask short secrets to prevent substring matching attacks
	if len(s) <= 8 {
		return maskedValue
	}
	// For longer secrets, show first/last 2 chars for debug utility
	// Example: "sk-proj-abc...xyz" → "sk<████████>yz"
	prefix := make([]byte, 2)
	suffix := make([]byte, 2)
	copy(prefix, s[:2])
	copy(suffix, s[len(s)-2:])
	return string(prefix) + "<" + maskedValue + ">" + string(suffix)
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - OpenAIAPIKey
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.OpenAIAPIKey = maskSecret(a.OpenAIAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
