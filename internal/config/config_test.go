package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HONESTY_BENCH_PROVIDER", "HONESTY_BENCH_MODEL", "HONESTY_BENCH_BASE_URL",
		"HONESTY_BENCH_API_KEY", "HONESTY_BENCH_MAX_TOKENS", "HONESTY_BENCH_TEMPERATURE",
		"HONESTY_BENCH_PARALLEL", "HONESTY_BENCH_DATASET", "HONESTY_BENCH_QUESTION_COLUMN",
		"HONESTY_BENCH_ANSWER_COLUMN", "HONESTY_BENCH_ID_COLUMN",
		"HONESTY_BENCH_BASELINE_PROMPT", "HONESTY_BENCH_EXPERIMENT_PROMPT",
		"HONESTY_BENCH_STRICT_EXTRACTION", "HONESTY_BENCH_LOG_LEVEL", "HONESTY_BENCH_THEME",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
		"AZURE_OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY",
		"AZURE_RESOURCE_NAME",
	} {
		t.Setenv(key, "")
	}
	// Keep the home-directory config out of reach.
	t.Setenv("HOME", t.TempDir())
}

// inDir runs the test from a fresh temp directory.
func inDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "anthropic")
	}
	if cfg.MaxTokens != 4000 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 4000)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature: got %g, want %g", cfg.Temperature, 0.7)
	}
	if cfg.Parallel != 10 {
		t.Errorf("Parallel: got %d, want %d", cfg.Parallel, 10)
	}
	if cfg.QuestionColumn != "Question" || cfg.AnswerColumn != "Answer" || cfg.IDColumn != "ID" {
		t.Errorf("columns: got %q/%q/%q", cfg.QuestionColumn, cfg.AnswerColumn, cfg.IDColumn)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)
	inDir(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ConfigFile != "" {
		t.Errorf("ConfigFile: got %q, want empty", cfg.ConfigFile)
	}
	if cfg.Model != "" {
		t.Errorf("Model before Resolve: got %q, want empty", cfg.Model)
	}
	cfg.Resolve()
	if cfg.Model != "claude-sonnet-4-5" {
		t.Errorf("Model: got %q, want %q", cfg.Model, "claude-sonnet-4-5")
	}
}

func TestLoad_ProviderOverrideResolvesAfterwards(t *testing.T) {
	clearEnv(t)
	inDir(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("AZURE_RESOURCE_NAME", "myres")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIKey != "" || cfg.BaseURL != "" {
		t.Fatalf("Load() resolved provider values early: api key %q, base url %q", cfg.APIKey, cfg.BaseURL)
	}

	cfg.Provider = ProviderOpenAI
	cfg.Resolve()
	if cfg.APIKey != "sk-openai" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "sk-openai")
	}
	if cfg.BaseURL != "https://myres.openai.azure.com/openai/v1" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model: got %q, want %q", cfg.Model, "gpt-4o-mini")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := inDir(t)
	content := `provider: openai
api_key: test-key-123
max_tokens: 8192
temperature: 0
parallel: 0
dataset: questions.csv
answer_column: gold
strict_extraction: true
theme: light
`
	if err := os.WriteFile(filepath.Join(dir, ".honesty-bench.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.ConfigFile != ".honesty-bench.yaml" {
		t.Errorf("ConfigFile: got %q", cfg.ConfigFile)
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider: got %q, want %q", cfg.Provider, "openai")
	}
	cfg.Resolve()
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model: got %q, want the openai default %q", cfg.Model, "gpt-4o-mini")
	}
	if cfg.APIKey != "test-key-123" {
		t.Errorf("APIKey: got %q, want %q", cfg.APIKey, "test-key-123")
	}
	if cfg.MaxTokens != 8192 {
		t.Errorf("MaxTokens: got %d, want %d", cfg.MaxTokens, 8192)
	}
	if cfg.Temperature != 0 {
		t.Errorf("Temperature: got %g, want explicit 0", cfg.Temperature)
	}
	if cfg.Parallel != 0 {
		t.Errorf("Parallel: got %d, want explicit 0", cfg.Parallel)
	}
	if cfg.AnswerColumn != "gold" || cfg.QuestionColumn != "Question" {
		t.Errorf("columns: got answer %q, question %q", cfg.AnswerColumn, cfg.QuestionColumn)
	}
	if !cfg.StrictExtraction {
		t.Error("StrictExtraction: got false, want true")
	}
}

func TestLoad_ExplicitPath(t *testing.T) {
	clearEnv(t)
	dir := inDir(t)
	path := filepath.Join(dir, "bench.yaml")
	if err := os.WriteFile(path, []byte("model: claude-haiku-4-5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}
	if cfg.Model != "claude-haiku-4-5" {
		t.Errorf("Model: got %q", cfg.Model)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() with a missing explicit path: want error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	dir := inDir(t)
	if err := os.WriteFile(filepath.Join(dir, ".honesty-bench.yaml"), []byte("parallel: [1"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("Load() error = %v, want a parse error", err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := inDir(t)
	content := `provider: openai
model: gpt-4o-mini
api_key: file-key
parallel: 4
`
	if err := os.WriteFile(filepath.Join(dir, ".honesty-bench.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HONESTY_BENCH_PROVIDER", "anthropic")
	t.Setenv("HONESTY_BENCH_MODEL", "claude-sonnet-4-5")
	t.Setenv("HONESTY_BENCH_API_KEY", "env-key")
	t.Setenv("HONESTY_BENCH_PARALLEL", "2")
	t.Setenv("HONESTY_BENCH_TEMPERATURE", "0.2")
	t.Setenv("HONESTY_BENCH_STRICT_EXTRACTION", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Provider != "anthropic" {
		t.Errorf("Provider: got %q, want %q (env should override file)", cfg.Provider, "anthropic")
	}
	if cfg.Model != "claude-sonnet-4-5" {
		t.Errorf("Model: got %q, want %q (env should override file)", cfg.Model, "claude-sonnet-4-5")
	}
	if cfg.APIKey != "env-key" {
		t.Errorf("APIKey: got %q, want %q (env should override file)", cfg.APIKey, "env-key")
	}
	if cfg.Parallel != 2 {
		t.Errorf("Parallel: got %d, want 2", cfg.Parallel)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("Temperature: got %g, want 0.2", cfg.Temperature)
	}
	if !cfg.StrictExtraction {
		t.Error("StrictExtraction: got false, want true")
	}
}

func TestEnv_InvalidNumber(t *testing.T) {
	clearEnv(t)
	inDir(t)
	t.Setenv("HONESTY_BENCH_PARALLEL", "many")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "HONESTY_BENCH_PARALLEL") {
		t.Errorf("Load() error = %v, want it to name HONESTY_BENCH_PARALLEL", err)
	}
}

func TestResolve_APIKeyFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		env      map[string]string
		want     string
	}{
		{"anthropic key", "anthropic", map[string]string{"ANTHROPIC_API_KEY": "a"}, "a"},
		{"openai key", "openai", map[string]string{"OPENAI_API_KEY": "o", "ANTHROPIC_API_KEY": "a"}, "o"},
		{"azure wins", "anthropic", map[string]string{"AZURE_OPENAI_API_KEY": "z", "ANTHROPIC_API_KEY": "a"}, "z"},
		{"none", "openai", map[string]string{"ANTHROPIC_API_KEY": "a"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := Defaults()
			cfg.Provider = tt.provider
			cfg.Resolve()
			if cfg.APIKey != tt.want {
				t.Errorf("APIKey: got %q, want %q", cfg.APIKey, tt.want)
			}
		})
	}
}

func TestResolve_AzureBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("AZURE_RESOURCE_NAME", "myres")
	t.Setenv("AZURE_OPENAI_API_KEY", "secret")

	cfg := Defaults()
	cfg.Resolve()
	if cfg.BaseURL != "https://myres.services.ai.azure.com/anthropic/" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
	if got := cfg.ExtraHeaders()["api-key"]; got != "secret" {
		t.Errorf("api-key header: got %q, want %q", got, "secret")
	}

	cfg = Defaults()
	cfg.Provider = "openai"
	cfg.Resolve()
	if cfg.BaseURL != "https://myres.openai.azure.com/openai/v1" {
		t.Errorf("BaseURL: got %q", cfg.BaseURL)
	}
}

func TestExtraHeaders_NotAzure(t *testing.T) {
	clearEnv(t)
	cfg := Defaults()
	cfg.APIKey = "k"
	cfg.BaseURL = "https://api.anthropic.com/"
	if len(cfg.ExtraHeaders()) != 0 {
		t.Errorf("ExtraHeaders: got %v, want none", cfg.ExtraHeaders())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"unbounded parallel", func(c *Config) { c.Parallel = 0 }, ""},
		{"unknown provider", func(c *Config) { c.Provider = "gemini" }, "unknown provider"},
		{"negative parallel", func(c *Config) { c.Parallel = -1 }, "parallel"},
		{"temperature too high", func(c *Config) { c.Temperature = 1.5 }, "temperature"},
		{"temperature negative", func(c *Config) { c.Temperature = -0.1 }, "temperature"},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, "max_tokens"},
		{"unknown theme", func(c *Config) { c.Theme = "neon" }, "theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIsAzureEndpoint(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://myresource.openai.azure.com/openai/v1", true},
		{"https://myresource.services.ai.azure.com/anthropic/", true},
		{"https://myresource.azure.us/foo", true},
		{"https://api.anthropic.com/", false},
		{"https://api.openai.com/v1", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := IsAzureEndpoint(tt.url)
			if got != tt.want {
				t.Errorf("IsAzureEndpoint(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}
