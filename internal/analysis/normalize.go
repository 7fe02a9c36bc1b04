// Package analysis turns raw model responses into the comparative report for
// a two-arm experiment.
//
// The pipeline is:
//
//	Normalize  raw responses + ground truth -> valid records
//	IsCorrect  record -> correct / incorrect (power-of-ten tolerance)
//	Analyze    baseline records + experiment records -> report
//
// Everything here is synchronous and side-effect free apart from logging.
package analysis

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/timvw/honesty-bench/internal/extract"
	"github.com/timvw/honesty-bench/internal/model"
)

// ErrMisaligned is returned when there are more responses than ground-truth rows.
var ErrMisaligned = errors.New("responses and ground truth are not aligned")

// GroundTruth is a table of expected answers and question ids, index-aligned
// with the responses.
type GroundTruth interface {
	Len() int
	Answer(i int) string
	ID(i int) string
}

// NormalizeOptions controls how Normalize treats unparseable responses.
type NormalizeOptions struct {
	// Arm labels log lines.
	Arm model.Arm
	// Strict makes a malformed confidence fail the whole batch instead of
	// dropping the record.
	Strict bool
	// Logger receives one warning per dropped malformed record. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// NormalizeStats counts what happened to each response.
type NormalizeStats struct {
	Total     int // responses seen
	Valid     int // records kept
	Missing   int // answer or confidence absent or falsy
	Malformed int // confidence present but not an integer
}

// Normalize extracts every response, attaches the ground truth at the same
// index and returns the valid records in response order.
func Normalize(responses []string, truth GroundTruth, opts NormalizeOptions) ([]model.Record, NormalizeStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st := NormalizeStats{Total: len(responses)}
	if len(responses) > truth.Len() {
		return nil, st, fmt.Errorf("%w: %d responses, %d ground-truth rows", ErrMisaligned, len(responses), truth.Len())
	}

	records := make([]model.Record, 0, len(responses))
	for i, resp := range responses {
		res, err := extract.Extract(resp)
		if err != nil {
			if opts.Strict {
				return nil, st, fmt.Errorf("%s response %d: %w", opts.Arm, i, err)
			}
			logger.Warn("dropping response with malformed confidence",
				"arm", string(opts.Arm), "index", i, "error", err)
			st.Malformed++
			continue
		}

		r := model.Record{
			Response:   resp,
			Answer:     res.Answer,
			Confidence: res.Confidence,
			Truth:      model.Coerce(truth.Answer(i)),
			ID:         model.Coerce(truth.ID(i)),
		}
		if !r.Valid() {
			st.Missing++
			continue
		}
		records = append(records, r)
	}
	st.Valid = len(records)
	return records, st, nil
}
