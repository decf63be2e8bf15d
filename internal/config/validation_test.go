package config

import (
	"errors"
	"testing"
)

// validConfig returns a config that passes Validate with the ollama
// provider, which needs no API key in the environment.
func validConfig() *Config {
	return &Config{
		Provider:         ProviderOllama,
		ModelName:        "llama3.3",
		EmbedderModel:    DefaultEmbedderModel,
		OllamaHost:       "http://localhost:11434",
		RetrievalTopK:    3,
		PostgresHost:     "localhost",
		PostgresPort:     5432,
		PostgresUser:     "secondbrain",
		PostgresPassword: "secondbrain_test_password",
		PostgresDBName:   "secondbrain",
		PostgresSSLMode:  "disable",
		ListenAddr:       "localhost:8080",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Provider = "anthropic" },
			wantErr: ErrInvalidProvider,
		},
		{
			name:    "empty model name",
			mutate:  func(c *Config) { c.ModelName = "" },
			wantErr: ErrInvalidModelName,
		},
		{
			name:    "empty embedder model",
			mutate:  func(c *Config) { c.EmbedderModel = "" },
			wantErr: ErrInvalidEmbedderModel,
		},
		{
			name:    "top_k too low",
			mutate:  func(c *Config) { c.RetrievalTopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "top_k too high",
			mutate:  func(c *Config) { c.RetrievalTopK = 11 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "empty postgres host",
			mutate:  func(c *Config) { c.PostgresHost = "" },
			wantErr: ErrInvalidPostgresHost,
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.PostgresPort = 70000 },
			wantErr: ErrInvalidPostgresPort,
		},
		{
			name:    "empty database name",
			mutate:  func(c *Config) { c.PostgresDBName = "" },
			wantErr: ErrInvalidPostgresDBName,
		},
		{
			name:    "empty password",
			mutate:  func(c *Config) { c.PostgresPassword = "" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "short password",
			mutate:  func(c *Config) { c.PostgresPassword = "short" },
			wantErr: ErrInvalidPostgresPassword,
		},
		{
			name:    "deprecated ssl mode",
			mutate:  func(c *Config) { c.PostgresSSLMode = "prefer" },
			wantErr: ErrInvalidPostgresSSLMode,
		},
		{
			name:    "empty listen addr",
			mutate:  func(c *Config) { c.ListenAddr = "" },
			wantErr: ErrInvalidListenAddr,
		},
		{
			name:    "listen addr without port",
			mutate:  func(c *Config) { c.ListenAddr = "localhost" },
			wantErr: ErrInvalidListenAddr,
		},
		{
			name:    "ollama without host",
			mutate:  func(c *Config) { c.OllamaHost = "" },
			wantErr: ErrInvalidOllamaHost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if !errors.Is(cfg.Validate(), ErrConfigNil) {
		t.Error("nil config should return ErrConfigNil")
	}
}

func TestValidateGeminiRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cfg := validConfig()
	cfg.Provider = ProviderGemini
	if !errors.Is(cfg.Validate(), ErrMissingAPIKey) {
		t.Error("gemini provider without GEMINI_API_KEY should return ErrMissingAPIKey")
	}

	t.Setenv("GEMINI_API_KEY", "test-key")
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with API key = %v, want nil", err)
	}
}
