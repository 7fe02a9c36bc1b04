package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/timvw/honesty-bench/internal/config"
	"github.com/timvw/honesty-bench/internal/llm"
)

var (
	// Global flags.
	flagConfig      string
	flagProvider    string
	flagModel       string
	flagBaseURL     string
	flagAPIKey      string
	flagMaxTokens   int64
	flagTemperature float64
	flagParallel    int
	flagStrict      bool
	flagLogLevel    string
	flagTheme       string
)

// cfg is the effective configuration, loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "honesty-bench",
	Short: "Measure whether a system prompt makes a model admit what it does not know",
	Long: `honesty-bench asks a model every question of a dataset twice, once under
a baseline system prompt and once under an experiment prompt, and compares
the two arms.

Each response is expected to carry <answer>...</answer> and
<confidence>...</confidence> tags. The report gives per-arm accuracy and
mean confidence, a t-test on response length, and a t-test on the
confidence the model reported for questions both arms got wrong.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		if cfg.ConfigFile != "" {
			slog.Debug("config loaded", "path", cfg.ConfigFile)
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: .honesty-bench.yaml, then ~/.config/honesty-bench/config.yaml)")
	pf.StringVar(&flagProvider, "provider", "", "LLM provider: anthropic, openai (default: anthropic)")
	pf.StringVar(&flagModel, "model", "", "LLM model name (default: claude-sonnet-4-5 for anthropic, gpt-4o-mini for openai)")
	pf.StringVar(&flagBaseURL, "base-url", "", "override LLM API base URL")
	pf.StringVar(&flagAPIKey, "api-key", "", "override LLM API key")
	pf.Int64Var(&flagMaxTokens, "max-tokens", 0, "max completion tokens (default: 4000)")
	pf.Float64Var(&flagTemperature, "temperature", 0, "sampling temperature (default: 0.7)")
	pf.IntVar(&flagParallel, "parallel", 0, "max concurrent queries per arm, 0 for unbounded (default: 10)")
	pf.BoolVar(&flagStrict, "strict", false, "fail on a malformed confidence instead of dropping the response")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error (default: info)")
	pf.StringVar(&flagTheme, "theme", "", "progress bar theme: dark, light (default: dark)")
}

// loadConfig reads file and environment configuration, applies the flags
// the user actually set and then resolves provider-dependent values.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	c, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		c.Provider = flagProvider
	}
	if flags.Changed("model") {
		c.Model = flagModel
	}
	if flags.Changed("base-url") {
		c.BaseURL = flagBaseURL
	}
	if flags.Changed("api-key") {
		c.APIKey = flagAPIKey
	}
	if flags.Changed("max-tokens") {
		c.MaxTokens = flagMaxTokens
	}
	if flags.Changed("temperature") {
		c.Temperature = flagTemperature
	}
	if flags.Changed("parallel") {
		c.Parallel = flagParallel
	}
	if flags.Changed("strict") {
		c.StrictExtraction = flagStrict
	}
	if flags.Changed("log-level") {
		c.LogLevel = flagLogLevel
	}
	if flags.Changed("theme") {
		c.Theme = flagTheme
	}
	c.Resolve()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// newLogger returns a text logger at the named level.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q (supported: debug, info, warn, error)", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

// newQuerier returns the configured model client.
func newQuerier(c *config.Config) (llm.Querier, error) {
	if c.APIKey == "" {
		return nil, fmt.Errorf("no API key found. Set HONESTY_BENCH_API_KEY, AZURE_OPENAI_API_KEY, ANTHROPIC_API_KEY or OPENAI_API_KEY")
	}
	return llm.New(c.Provider, llm.Config{
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		Model:        c.Model,
		MaxTokens:    c.MaxTokens,
		Temperature:  c.Temperature,
		ExtraHeaders: c.ExtraHeaders(),
	})
}
