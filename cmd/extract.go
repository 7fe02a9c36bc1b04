package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/timvw/honesty-bench/internal/extract"
	"github.com/timvw/honesty-bench/internal/model"
)

// extractOutput is the JSON printed by the extract command.
type extractOutput struct {
	Answer     model.Value `json:"answer"`
	Confidence *int        `json:"confidence"`
	Valid      bool        `json:"valid"`
	Error      string      `json:"error,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract the answer and confidence from one response",
	Long: `Read a single model response from a file (or stdin when no file is
given) and print the cleaned answer and the confidence as JSON.

Useful for checking how a response will be scored. A malformed confidence
is reported in the "error" field; the command still exits 0 unless
--strict is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}

		res, err := extract.Extract(string(data))
		out := extractOutput{Answer: res.Answer, Confidence: res.Confidence}
		if err != nil {
			if cfg.StrictExtraction {
				return err
			}
			out.Error = err.Error()
		}
		out.Valid = model.Record{Answer: out.Answer, Confidence: out.Confidence}.Valid()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
