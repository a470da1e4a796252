package config

import (
	"errors"
	"testing"
	"time"
)

// validConfig returns a configuration that passes Validate().
// Tests mutate single fields to exercise each check.
func validConfig() *Config {
	return &Config{
		HTTPAddr:         "127.0.0.1:8080",
		CORSOrigins:      []string{"*"},
		OpenAIAPIKey:     "sk-test-key",
		EmbeddingModel:   DefaultEmbeddingModel,
		ChatModel:        DefaultChatModel,
		TopK:             DefaultTopK,
		MaxTopK:          DefaultMaxTopK,
		ScanLimit:        0,
		RequestTimeout:   60 * time.Second,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "foliorag",
		PostgresPassword: "test-password-123",
		PostgresDBName:   "foliorag",
		PostgresSSLMode:  "disable",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config failed validation: %v", err)
	}
}

func TestValidate_NilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("expected ErrConfigNil, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		sentinel error
	}{
		{
			name:     "missing API key",
			mutate:   func(c *Config) { c.OpenAIAPIKey = "" },
			sentinel: ErrMissingAPIKey,
		},
		{
			name:     "empty embedding model",
			mutate:   func(c *Config) { c.EmbeddingModel = "" },
			sentinel: ErrInvalidEmbeddingModel,
		},
		{
			name:     "empty chat model",
			mutate:   func(c *Config) { c.ChatModel = "" },
			sentinel: ErrInvalidChatModel,
		},
		{
			name:     "top_k zero",
			mutate:   func(c *Config) { c.TopK = 0 },
			sentinel: ErrInvalidTopK,
		},
		{
			name:     "top_k negative",
			mutate:   func(c *Config) { c.TopK = -1 },
			sentinel: ErrInvalidTopK,
		},
		{
			name:     "max_top_k below top_k",
			mutate:   func(c *Config) { c.MaxTopK = c.TopK - 1 },
			sentinel: ErrInvalidTopK,
		},
		{
			name:     "negative scan limit",
			mutate:   func(c *Config) { c.ScanLimit = -5 },
			sentinel: ErrInvalidScanLimit,
		},
		{
			name:     "zero request timeout",
			mutate:   func(c *Config) { c.RequestTimeout = 0 },
			sentinel: ErrInvalidRequestTimeout,
		},
		{
			name:     "negative request timeout",
			mutate:   func(c *Config) { c.RequestTimeout = -time.Second },
			sentinel: ErrInvalidRequestTimeout,
		},
		{
			name:     "empty http addr",
			mutate:   func(c *Config) { c.HTTPAddr = "" },
			sentinel: ErrInvalidHTTPAddr,
		},
		{
			name:     "empty cors origins",
			mutate:   func(c *Config) { c.CORSOrigins = nil },
			sentinel: ErrInvalidCORSOrigins,
		},
		{
			name:     "empty postgres host",
			mutate:   func(c *Config) { c.PostgresHost = "" },
			sentinel: ErrInvalidPostgresHost,
		},
		{
			name:     "postgres port too low",
			mutate:   func(c *Config) { c.PostgresPort = 0 },
			sentinel: ErrInvalidPostgresPort,
		},
		{
			name:     "postgres port too high",
			mutate:   func(c *Config) { c.PostgresPort = 70000 },
			sentinel: ErrInvalidPostgresPort,
		},
		{
			name:     "empty postgres db name",
			mutate:   func(c *Config) { c.PostgresDBName = "" },
			sentinel: ErrInvalidPostgresDBName,
		},
		{
			name:     "empty postgres password",
			mutate:   func(c *Config) { c.PostgresPassword = "" },
			sentinel: ErrInvalidPostgresPassword,
		},
		{
			name:     "short postgres password",
			mutate:   func(c *Config) { c.PostgresPassword = "short" },
			sentinel: ErrInvalidPostgresPassword,
		},
		{
			name:     "empty ssl mode",
			mutate:   func(c *Config) { c.PostgresSSLMode = "" },
			sentinel: ErrInvalidPostgresSSLMode,
		},
		{
			name:     "deprecated ssl mode",
			mutate:   func(c *Config) { c.PostgresSSLMode = "prefer" },
			sentinel: ErrInvalidPostgresSSLMode,
		},
		{
			name:     "unknown ssl mode",
			mutate:   func(c *Config) { c.PostgresSSLMode = "yes-please" },
			sentinel: ErrInvalidPostgresSSLMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected %v, got %v", tt.sentinel, err)
			}
		})
	}
}

func TestValidate_AllSSLModes(t *testing.T) {
	for _, mode := range []string{"disable", "require", "verify-ca", "verify-full"} {
		cfg := validConfig()
		cfg.PostgresSSLMode = mode
		if err := cfg.Validate(); err != nil {
			t.Errorf("ssl mode %q should be valid, got %v", mode, err)
		}
	}
}
