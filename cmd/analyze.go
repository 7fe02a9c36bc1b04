package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/honesty-bench/internal/analysis"
	"github.com/timvw/honesty-bench/internal/model"
	hbotel "github.com/timvw/honesty-bench/internal/otel"
	"github.com/timvw/honesty-bench/internal/store"
)

var (
	flagAnalyzeDataset string
	flagAnalyzeOutput  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <responses.json>",
	Short: "Recompute the report from saved responses",
	Long: `Recompute the comparison report from a response file written by
'honesty-bench run', without querying the model.

The dataset must be the one the responses were collected against: rows are
matched to responses by position. When --dataset is not given the path
recorded in the response file is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := store.Load(args[0])
		if err != nil {
			return err
		}

		switch {
		case cmd.Flags().Changed("dataset"):
			cfg.Dataset = flagAnalyzeDataset
		case set.Dataset != "":
			cfg.Dataset = set.Dataset
		}
		table, err := loadDataset()
		if err != nil {
			return err
		}

		report, err := analyze(cmd, set, table, nil)
		if err != nil {
			return err
		}
		return writeReport(cmd, flagAnalyzeOutput, report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&flagAnalyzeDataset, "dataset", "", "CSV file with the expected answers (default: the one recorded in the response file)")
	analyzeCmd.Flags().StringVarP(&flagAnalyzeOutput, "output", "o", "", "write the report to this file instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}

// analyze extracts both arms of set against truth and builds the report.
func analyze(cmd *cobra.Command, set *store.ResponseSet, truth analysis.GroundTruth, metrics *hbotel.Metrics) (*model.Report, error) {
	report, counts, err := analysis.Run(
		analysis.Arms{Baseline: set.Baseline, Experiment: set.Experiment},
		truth,
		analysis.NormalizeOptions{Strict: cfg.StrictExtraction, Logger: slog.Default()},
	)
	for i, arm := range []model.Arm{model.ArmBaseline, model.ArmExperiment} {
		st := counts[i]
		metrics.RecordRecords(cmd.Context(), string(arm), hbotel.RecordValid, st.Valid)
		metrics.RecordRecords(cmd.Context(), string(arm), hbotel.RecordMissing, st.Missing)
		metrics.RecordRecords(cmd.Context(), string(arm), hbotel.RecordMalformed, st.Malformed)
		if st.Total > 0 {
			slog.Info("responses extracted", "arm", string(arm), "total", st.Total,
				"valid", st.Valid, "missing", st.Missing, "malformed", st.Malformed)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("analysis: %w", err)
	}
	return report, nil
}

// writeReport encodes the report as indented JSON to path, or the command's
// output when path is empty.
func writeReport(cmd *cobra.Command, path string, report *model.Report) error {
	if path == "" {
		return encodeReport(cmd.OutOrStdout(), report)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if err := encodeReport(f, report); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}

func encodeReport(w io.Writer, report *model.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
