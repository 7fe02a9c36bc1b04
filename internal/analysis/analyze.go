package analysis

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/timvw/honesty-bench/internal/model"
	"github.com/timvw/honesty-bench/internal/stats"
)

// ErrEmptySample is returned when an arm, or the set of questions both arms
// got wrong, has no records to summarize.
var ErrEmptySample = stats.ErrEmptySample

// ErrInvalidRecord is returned when Analyze is given a record without an
// answer or a confidence.
var ErrInvalidRecord = errors.New("record has no answer or confidence")

// armSummary is the per-arm intermediate used to build the report.
type armSummary struct {
	stats     model.ArmStats
	lengths   []float64
	incorrect []model.Record
	meanLen   float64
}

func summarize(arm model.Arm, records []model.Record) (armSummary, error) {
	var s armSummary
	if len(records) == 0 {
		return s, fmt.Errorf("%s: no valid records: %w", arm, ErrEmptySample)
	}
	for i, r := range records {
		if !r.Valid() {
			return s, fmt.Errorf("%s record %d (question %s): %w", arm, i, r.ID, ErrInvalidRecord)
		}
	}

	wrong, err := incorrect(records)
	if err != nil {
		return s, fmt.Errorf("%s: %w", arm, err)
	}

	confidences := make([]int, len(records))
	s.lengths = make([]float64, len(records))
	for i, r := range records {
		confidences[i] = *r.Confidence
		s.lengths[i] = float64(utf8.RuneCountInString(r.Response))
	}
	meanConf, err := stats.MeanInts(confidences)
	if err != nil {
		return s, fmt.Errorf("%s confidence: %w", arm, err)
	}
	s.meanLen, err = stats.Mean(s.lengths)
	if err != nil {
		return s, fmt.Errorf("%s response length: %w", arm, err)
	}

	valid := len(records)
	accuracy := valid - len(wrong)
	s.incorrect = wrong
	s.stats = model.ArmStats{
		Valid:        valid,
		Accuracy:     accuracy,
		AccuracyRate: float64(accuracy) / float64(valid),
		Confidence:   meanConf,
	}
	return s, nil
}

// Analyze compares the valid records of the two arms, as produced by
// Normalize.
//
// It fails when a record is not valid, when either arm is empty, when a numeric answer is checked
// against a zero ground truth, or when no question is answered incorrectly
// by both arms.
func Analyze(baseline, experiment []model.Record) (*model.Report, error) {
	base, err := summarize(model.ArmBaseline, baseline)
	if err != nil {
		return nil, err
	}
	exp, err := summarize(model.ArmExperiment, experiment)
	if err != nil {
		return nil, err
	}

	lengthTest, err := stats.TTestInd(base.lengths, exp.lengths)
	if err != nil {
		return nil, fmt.Errorf("response length t-test: %w", err)
	}

	both := WrongIDs(base.incorrect, exp.incorrect)
	baseConf := confidencesFor(base.incorrect, both)
	expConf := confidencesFor(exp.incorrect, both)

	baseRate, err := stats.Mean(baseConf)
	if err != nil {
		return nil, fmt.Errorf("baseline confidence on questions both arms got wrong: %w", err)
	}
	expRate, err := stats.Mean(expConf)
	if err != nil {
		return nil, fmt.Errorf("experiment confidence on questions both arms got wrong: %w", err)
	}
	confTest, err := stats.TTestInd(baseConf, expConf)
	if err != nil {
		return nil, fmt.Errorf("confidence t-test: %w", err)
	}

	return &model.Report{
		Baseline:   base.stats,
		Experiment: exp.stats,
		Length: model.LengthComparison{
			BaselineLength:   base.meanLen,
			ExperimentLength: exp.meanLen,
			TStatistic:       model.Float(lengthTest.TStatistic),
			PValue:           model.Float(lengthTest.PValue),
		},
		BothIncorrect: model.ConfidenceComparison{
			BaselineConfidenceRate:   baseRate,
			ExperimentConfidenceRate: expRate,
			TStatistic:               model.Float(confTest.TStatistic),
			PValue:                   model.Float(confTest.PValue),
		},
	}, nil
}

// WrongIDs returns the ids that appear among the incorrect records of both arms.
func WrongIDs(baseline, experiment []model.Record) map[model.Value]struct{} {
	inExp := make(map[model.Value]struct{}, len(experiment))
	for _, r := range experiment {
		inExp[r.ID] = struct{}{}
	}
	both := make(map[model.Value]struct{})
	for _, r := range baseline {
		if _, ok := inExp[r.ID]; ok {
			both[r.ID] = struct{}{}
		}
	}
	return both
}

// confidencesFor returns the confidence of every record whose id is in ids,
// in record order.
func confidencesFor(records []model.Record, ids map[model.Value]struct{}) []float64 {
	var out []float64
	for _, r := range records {
		if _, ok := ids[r.ID]; ok {
			out = append(out, float64(*r.Confidence))
		}
	}
	return out
}

// Arms pairs the raw responses of both arms.
type Arms struct {
	Baseline   []string
	Experiment []string
}

// Run normalizes both arms against truth and analyzes them. The returned
// stats are indexed baseline first.
func Run(arms Arms, truth GroundTruth, opts NormalizeOptions) (*model.Report, [2]NormalizeStats, error) {
	var counts [2]NormalizeStats

	opts.Arm = model.ArmBaseline
	base, st, err := Normalize(arms.Baseline, truth, opts)
	counts[0] = st
	if err != nil {
		return nil, counts, err
	}

	opts.Arm = model.ArmExperiment
	exp, st, err := Normalize(arms.Experiment, truth, opts)
	counts[1] = st
	if err != nil {
		return nil, counts, err
	}

	report, err := Analyze(base, exp)
	return report, counts, err
}
