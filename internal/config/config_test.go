package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   string
	}{
		{name: "empty", secret: "", want: ""},
		{name: "short fully masked", secret: "hunter2", want: maskedValue},
		{name: "exactly 8 fully masked", secret: "12345678", want: maskedValue},
		{name: "long keeps edges", secret: "my_long_secret_key_123", want: "my<" + maskedValue + ">23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maskSecret(tt.secret); got != tt.want {
				t.Errorf("maskSecret(%q) = %q, want %q", tt.secret, got, tt.want)
			}
		})
	}
}

func TestMarshalJSONMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password_value"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() = %v", err)
	}
	if strings.Contains(string(data), "super_secret_password_value") {
		t.Error("password leaked in JSON output")
	}
	if !strings.Contains(string(data), maskedValue) {
		t.Error("masked placeholder missing from JSON output")
	}
}

func TestStringMasksPassword(t *testing.T) {
	cfg := validConfig()
	cfg.PostgresPassword = "super_secret_password_value"

	if strings.Contains(cfg.String(), "super_secret_password_value") {
		t.Error("password leaked in String() output")
	}
}

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{name: "gemini default", provider: ProviderGemini, model: "gemini-2.5-flash", want: "googleai/gemini-2.5-flash"},
		{name: "ollama", provider: ProviderOllama, model: "llama3.3", want: "ollama/llama3.3"},
		{name: "already qualified", provider: ProviderGemini, model: "ollama/mistral", want: "ollama/mistral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}
