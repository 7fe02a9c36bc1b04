package model

import (
	"math"
	"strconv"
)

// Arm names one side of the experiment.
type Arm string

const (
	// ArmBaseline is the control prompt condition.
	ArmBaseline Arm = "baseline"
	// ArmExperiment is the experimental prompt condition.
	ArmExperiment Arm = "experiment"
)

// Completion is a single model reply.
type Completion struct {
	// Text is the raw response text.
	Text string `json:"text"`
	// Usage tracks token consumption for this request.
	Usage TokenUsage `json:"usage"`
}

// TokenUsage tracks LLM token consumption for a single request.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Record is one model response normalized against its ground truth.
type Record struct {
	// Response is the raw response text.
	Response string `json:"response"`
	// Answer is the cleaned-up <answer> body.
	Answer Value `json:"answer"`
	// Confidence is the <confidence> body; nil when the tags are missing.
	Confidence *int `json:"confidence"`
	// Truth is the ground-truth answer for the question.
	Truth Value `json:"truth"`
	// ID is the question identifier.
	ID Value `json:"id"`
}

// Valid reports whether the record takes part in the analysis. Both the
// answer and the confidence must be present and truthy: a confidence of 0
// and an answer of 0 or "" are treated as missing.
func (r Record) Valid() bool {
	return r.Answer.Truthy() && r.Confidence != nil && *r.Confidence != 0
}

// Report is the comparative summary of one experiment.
type Report struct {
	Baseline      ArmStats             `json:"baseline"`
	Experiment    ArmStats             `json:"experiment"`
	Length        LengthComparison     `json:"length"`
	BothIncorrect ConfidenceComparison `json:"both_incorrect"`
}

// ArmStats summarizes one arm.
type ArmStats struct {
	// Valid is the number of records with both answer and confidence.
	Valid int `json:"valid"`
	// Accuracy is the number of correct valid records.
	Accuracy int `json:"accuracy"`
	// AccuracyRate is Accuracy / Valid.
	AccuracyRate float64 `json:"accuracy_rate"`
	// Confidence is the mean self-reported confidence.
	Confidence float64 `json:"confidence"`
}

// LengthComparison compares response lengths across arms.
type LengthComparison struct {
	BaselineLength   float64 `json:"baseline_length"`
	ExperimentLength float64 `json:"experiment_length"`
	TStatistic       Float   `json:"t_statistics"`
	PValue           Float   `json:"p_value"`
}

// ConfidenceComparison compares confidence on questions both arms got wrong.
type ConfidenceComparison struct {
	BaselineConfidenceRate   float64 `json:"baseline_confidence_rate"`
	ExperimentConfidenceRate float64 `json:"experiment_confidence_rate"`
	TStatistic               Float   `json:"t_statistics"`
	PValue                   Float   `json:"p_value"`
}

// Float is a float64 that encodes NaN and ±Inf as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes as NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}
