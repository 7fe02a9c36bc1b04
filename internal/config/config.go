// Package config loads honesty-bench configuration from file and environment.
//
// Precedence (highest to lowest):
//  1. Command-line flags (applied by the caller)
//  2. Environment variables (HONESTY_BENCH_*)
//  3. Config file
//  4. Built-in defaults
//
// Config file search order when no explicit path is given:
//  1. .honesty-bench.yaml in current directory
//  2. ~/.config/honesty-bench/config.yaml
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timvw/honesty-bench/internal/dataset"
)

// Supported providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

const envPrefix = "HONESTY_BENCH_"

// Config holds all honesty-bench configuration.
type Config struct {
	// LLM settings
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int64   `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Parallel    int     `yaml:"parallel"` // 0 means unbounded

	// Dataset
	Dataset        string `yaml:"dataset"`
	QuestionColumn string `yaml:"question_column"`
	AnswerColumn   string `yaml:"answer_column"`
	IDColumn       string `yaml:"id_column"`

	// Prompt files for the two arms
	BaselinePrompt   string `yaml:"baseline_prompt"`
	ExperimentPrompt string `yaml:"experiment_prompt"`

	// Analysis
	StrictExtraction bool `yaml:"strict_extraction"`

	// Output
	LogLevel string `yaml:"log_level"`
	Theme    string `yaml:"theme"` // dark, light

	// OTEL
	OTELEndpoint string `yaml:"otel_endpoint"`
	OTELHeaders  string `yaml:"otel_headers"` // Comma-separated key=value pairs, e.g. "Authorization=Basic abc123"

	// ConfigFile is the path to the config file that was loaded (empty if none).
	ConfigFile string `yaml:"-"`
}

// fileConfig is the on-disk form of Config. Pointer fields distinguish an
// explicit zero in the file from an absent key.
type fileConfig struct {
	Provider         string   `yaml:"provider"`
	Model            string   `yaml:"model"`
	BaseURL          string   `yaml:"base_url"`
	APIKey           string   `yaml:"api_key"`
	MaxTokens        int64    `yaml:"max_tokens"`
	Temperature      *float64 `yaml:"temperature"`
	Parallel         *int     `yaml:"parallel"`
	Dataset          string   `yaml:"dataset"`
	QuestionColumn   string   `yaml:"question_column"`
	AnswerColumn     string   `yaml:"answer_column"`
	IDColumn         string   `yaml:"id_column"`
	BaselinePrompt   string   `yaml:"baseline_prompt"`
	ExperimentPrompt string   `yaml:"experiment_prompt"`
	StrictExtraction *bool    `yaml:"strict_extraction"`
	LogLevel         string   `yaml:"log_level"`
	Theme            string   `yaml:"theme"`
	OTELEndpoint     string   `yaml:"otel_endpoint"`
	OTELHeaders      string   `yaml:"otel_headers"`
}

// Defaults returns a Config with all default values. Model is left empty
// and filled per provider by Resolve.
func Defaults() *Config {
	cols := dataset.DefaultColumns()
	return &Config{
		Provider:       ProviderAnthropic,
		MaxTokens:      4000,
		Temperature:    0.7,
		Parallel:       10,
		QuestionColumn: cols.Question,
		AnswerColumn:   cols.Answer,
		IDColumn:       cols.ID,
		LogLevel:       "info",
		Theme:          "dark",
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "claude-sonnet-4-5"
}

// Load reads configuration from the file at path (or the first file found
// in the search order when path is empty) and applies environment overrides.
// Values derived from the provider are left unset; apply any further
// overrides and then call Resolve.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	path, data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		var fileCfg fileConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.ConfigFile = path
		mergeFile(cfg, &fileCfg)
	}

	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve fills values that depend on other settings: the per-provider
// default model, the API key fallbacks and the Azure base URL. It must run
// once, after every override, so the fallbacks match the final provider.
func (c *Config) Resolve() {
	if c.Model == "" {
		c.Model = DefaultModel(c.Provider)
	}

	if c.APIKey == "" {
		c.APIKey = os.Getenv("AZURE_OPENAI_API_KEY")
	}
	if c.APIKey == "" {
		switch c.Provider {
		case ProviderAnthropic:
			c.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderOpenAI:
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}

	if c.BaseURL == "" {
		if rn := os.Getenv("AZURE_RESOURCE_NAME"); rn != "" {
			switch c.Provider {
			case ProviderAnthropic:
				// The Anthropic SDK appends v1/messages.
				c.BaseURL = fmt.Sprintf("https://%s.services.ai.azure.com/anthropic/", rn)
			case ProviderOpenAI:
				c.BaseURL = fmt.Sprintf("https://%s.openai.azure.com/openai/v1", rn)
			}
		}
	}
}

// Validate reports settings that cannot produce a meaningful run.
func (c *Config) Validate() error {
	var errs []error
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q (supported: anthropic, openai)", c.Provider))
	}
	if c.Parallel < 0 {
		errs = append(errs, fmt.Errorf("parallel must be >= 0, got %d", c.Parallel))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, fmt.Errorf("temperature must be within [0, 1], got %g", c.Temperature))
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens))
	}
	switch c.Theme {
	case "", "dark", "light":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q (supported: dark, light)", c.Theme))
	}
	return errors.Join(errs...)
}

// ExtraHeaders returns the additional HTTP headers the provider needs.
// Azure AI Foundry expects "api-key" next to the SDK's own auth header.
func (c *Config) ExtraHeaders() map[string]string {
	headers := map[string]string{}
	if c.APIKey != "" && (os.Getenv("AZURE_RESOURCE_NAME") != "" || IsAzureEndpoint(c.BaseURL)) {
		headers["api-key"] = c.APIKey
	}
	return headers
}

// readConfigFile returns the path and contents of the config file. An
// explicit path must exist; otherwise a missing file yields nil data.
func readConfigFile(path string) (string, []byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", nil, fmt.Errorf("reading config file: %w", err)
		}
		return path, data, nil
	}

	// 1. Current directory
	if data, err := os.ReadFile(".honesty-bench.yaml"); err == nil {
		return ".honesty-bench.yaml", data, nil
	}

	// 2. ~/.config
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "honesty-bench", "config.yaml")
		if data, err := os.ReadFile(p); err == nil {
			return p, data, nil
		}
	}

	return "", nil, nil
}

// mergeFile applies the values set in the file onto cfg.
func mergeFile(cfg *Config, file *fileConfig) {
	setString(&cfg.Provider, file.Provider)
	setString(&cfg.Model, file.Model)
	setString(&cfg.BaseURL, file.BaseURL)
	setString(&cfg.APIKey, file.APIKey)
	if file.MaxTokens != 0 {
		cfg.MaxTokens = file.MaxTokens
	}
	if file.Temperature != nil {
		cfg.Temperature = *file.Temperature
	}
	if file.Parallel != nil {
		cfg.Parallel = *file.Parallel
	}
	setString(&cfg.Dataset, file.Dataset)
	setString(&cfg.QuestionColumn, file.QuestionColumn)
	setString(&cfg.AnswerColumn, file.AnswerColumn)
	setString(&cfg.IDColumn, file.IDColumn)
	setString(&cfg.BaselinePrompt, file.BaselinePrompt)
	setString(&cfg.ExperimentPrompt, file.ExperimentPrompt)
	if file.StrictExtraction != nil {
		cfg.StrictExtraction = *file.StrictExtraction
	}
	setString(&cfg.LogLevel, file.LogLevel)
	setString(&cfg.Theme, file.Theme)
	setString(&cfg.OTELEndpoint, file.OTELEndpoint)
	setString(&cfg.OTELHeaders, file.OTELHeaders)
}

// mergeEnv applies environment variables onto cfg. Env always wins over
// the file. Malformed numbers are an error rather than silently ignored.
func mergeEnv(cfg *Config) error {
	setString(&cfg.Provider, os.Getenv(envPrefix+"PROVIDER"))
	setString(&cfg.Model, os.Getenv(envPrefix+"MODEL"))
	setString(&cfg.BaseURL, os.Getenv(envPrefix+"BASE_URL"))
	setString(&cfg.APIKey, os.Getenv(envPrefix+"API_KEY"))
	setString(&cfg.Dataset, os.Getenv(envPrefix+"DATASET"))
	setString(&cfg.QuestionColumn, os.Getenv(envPrefix+"QUESTION_COLUMN"))
	setString(&cfg.AnswerColumn, os.Getenv(envPrefix+"ANSWER_COLUMN"))
	setString(&cfg.IDColumn, os.Getenv(envPrefix+"ID_COLUMN"))
	setString(&cfg.BaselinePrompt, os.Getenv(envPrefix+"BASELINE_PROMPT"))
	setString(&cfg.ExperimentPrompt, os.Getenv(envPrefix+"EXPERIMENT_PROMPT"))
	setString(&cfg.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))
	setString(&cfg.Theme, os.Getenv(envPrefix+"THEME"))
	setString(&cfg.OTELEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	setString(&cfg.OTELHeaders, os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))

	if v := os.Getenv(envPrefix + "MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_TOKENS %q: %w", envPrefix, v, err)
		}
		cfg.MaxTokens = n
	}
	if v := os.Getenv(envPrefix + "TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sTEMPERATURE %q: %w", envPrefix, v, err)
		}
		cfg.Temperature = f
	}
	if v := os.Getenv(envPrefix + "PARALLEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sPARALLEL %q: %w", envPrefix, v, err)
		}
		cfg.Parallel = n
	}
	if v := os.Getenv(envPrefix + "STRICT_EXTRACTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %sSTRICT_EXTRACTION %q: %w", envPrefix, v, err)
		}
		cfg.StrictExtraction = b
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// IsAzureEndpoint returns true if the URL is an Azure endpoint.
func IsAzureEndpoint(url string) bool {
	return strings.Contains(url, ".azure.com") || strings.Contains(url, ".azure.us")
}
