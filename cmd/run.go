package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/timvw/honesty-bench/internal/dataset"
	"github.com/timvw/honesty-bench/internal/experiment"
	hbotel "github.com/timvw/honesty-bench/internal/otel"
	"github.com/timvw/honesty-bench/internal/progress"
	"github.com/timvw/honesty-bench/internal/store"
)

var (
	flagRunDataset          string
	flagRunBaselinePrompt   string
	flagRunExperimentPrompt string
	flagRunSave             string
	flagRunNoSave           bool
	flagRunOutput           string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Query both arms and print the comparison report",
	Long: `Ask the model every question of the dataset under the baseline prompt,
then under the experiment prompt, and print the JSON report to stdout.

Queries within an arm run concurrently (see --parallel). The first failed
query aborts the run; nothing is retried. The raw responses are saved to a
JSON file (see --save) so 'honesty-bench analyze' can recompute the report
without querying again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		applyStringFlag(cmd, "dataset", &cfg.Dataset, flagRunDataset)
		applyStringFlag(cmd, "baseline-prompt", &cfg.BaselinePrompt, flagRunBaselinePrompt)
		applyStringFlag(cmd, "experiment-prompt", &cfg.ExperimentPrompt, flagRunExperimentPrompt)

		table, err := loadDataset()
		if err != nil {
			return err
		}
		baselinePrompt, err := readPrompt("baseline", cfg.BaselinePrompt)
		if err != nil {
			return err
		}
		experimentPrompt, err := readPrompt("experiment", cfg.ExperimentPrompt)
		if err != nil {
			return err
		}

		q, err := newQuerier(cfg)
		if err != nil {
			return err
		}

		hbotel.Version = Version
		tel, err := hbotel.Init(ctx, hbotel.Config{
			Endpoint: cfg.OTELEndpoint,
			Headers:  cfg.OTELHeaders,
		})
		if err != nil {
			slog.Warn("otel init failed", "error", err)
		}
		var metrics *hbotel.Metrics
		if tel != nil {
			metrics = tel.Metrics
			defer func() {
				if err := tel.Shutdown(ctx); err != nil {
					slog.Warn("otel shutdown failed", "error", err)
				}
			}()
		}

		set := store.New(q.Provider(), q.Model())
		set.Dataset = cfg.Dataset
		set.BaselinePrompt = cfg.BaselinePrompt
		set.ExperimentPrompt = cfg.ExperimentPrompt

		slog.Info("starting run", "run_id", set.RunID, "provider", q.Provider(),
			"model", q.Model(), "questions", table.Len())

		runner := &experiment.Runner{
			Querier:  q,
			Parallel: cfg.Parallel,
			Metrics:  metrics,
			Progress: progress.New(os.Stderr, progress.ThemeByName(cfg.Theme)),
			RunID:    set.RunID,
			Logger:   slog.Default(),
		}
		start := time.Now()
		res, err := runner.Run(ctx, experiment.Prompts{
			Baseline:   baselinePrompt,
			Experiment: experimentPrompt,
		}, table.Questions())
		if err != nil {
			return err
		}
		slog.Info("queries finished", "elapsed", time.Since(start).Round(time.Millisecond),
			"input_tokens", res.Usage.InputTokens, "output_tokens", res.Usage.OutputTokens)

		set.Baseline = res.Baseline
		set.Experiment = res.Experiment
		if !flagRunNoSave {
			path := flagRunSave
			if path == "" {
				path = store.DefaultPath(set.RunID)
			}
			if err := store.Save(path, set); err != nil {
				return err
			}
			slog.Info("responses saved", "path", path)
		}

		report, err := analyze(cmd, set, table, metrics)
		if err != nil {
			return err
		}
		return writeReport(cmd, flagRunOutput, report)
	},
}

func init() {
	runCmd.Flags().StringVar(&flagRunDataset, "dataset", "", "CSV file with the questions and expected answers")
	runCmd.Flags().StringVar(&flagRunBaselinePrompt, "baseline-prompt", "", "file holding the baseline system prompt")
	runCmd.Flags().StringVar(&flagRunExperimentPrompt, "experiment-prompt", "", "file holding the experiment system prompt")
	runCmd.Flags().StringVar(&flagRunSave, "save", "", "where to save the raw responses (default: responses-<run id>.json)")
	runCmd.Flags().BoolVar(&flagRunNoSave, "no-save", false, "do not save the raw responses")
	runCmd.Flags().StringVarP(&flagRunOutput, "output", "o", "", "write the report to this file instead of stdout")
	rootCmd.AddCommand(runCmd)
}

// applyStringFlag overrides *dst with v when the named flag was set.
func applyStringFlag(cmd *cobra.Command, name string, dst *string, v string) {
	if cmd.Flags().Changed(name) {
		*dst = v
	}
}

// loadDataset reads the configured question table.
func loadDataset() (*dataset.Table, error) {
	if cfg.Dataset == "" {
		return nil, fmt.Errorf("no dataset configured. Pass --dataset or set dataset in the config file")
	}
	return dataset.Load(cfg.Dataset, dataset.Columns{
		Question: cfg.QuestionColumn,
		Answer:   cfg.AnswerColumn,
		ID:       cfg.IDColumn,
	})
}

// readPrompt returns the contents of an arm's system prompt file.
func readPrompt(arm, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no %s prompt configured. Pass --%s-prompt or set %s_prompt in the config file", arm, arm, arm)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%s prompt: %w", arm, err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("%s prompt %s is empty", arm, filepath.Base(path))
	}
	return prompt, nil
}
