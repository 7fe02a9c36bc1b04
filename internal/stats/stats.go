// Package stats provides the descriptive statistics and significance test
// used to compare the two arms of an experiment.
package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrEmptySample is returned when a statistic is requested over no samples.
var ErrEmptySample = errors.New("empty sample")

// TTestResult holds the outcome of a two-sample t-test.
type TTestResult struct {
	// TStatistic is positive when the first sample has the larger mean.
	TStatistic float64
	// PValue is the two-sided p-value.
	PValue float64
	// DegreesOfFreedom is n1 + n2 - 2.
	DegreesOfFreedom float64
}

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, error) {
	if len(xs) == 0 {
		return 0, ErrEmptySample
	}
	return stat.Mean(xs, nil), nil
}

// MeanInts is Mean over integer samples.
func MeanInts(xs []int) (float64, error) {
	return Mean(Floats(xs))
}

// Floats converts integer samples to float64.
func Floats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

// TTestInd performs Student's two-sided independent two-sample t-test with
// pooled variance.
//
// Degenerate inputs follow the usual floating-point conventions rather than
// failing: identical constant samples give NaN, constant samples with
// different means give ±Inf and p = 0, and a group with a single sample
// gives NaN for both values. Only an empty sample is an error.
func TTestInd(a, b []float64) (TTestResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return TTestResult{}, ErrEmptySample
	}
	n1, n2 := float64(len(a)), float64(len(b))
	df := n1 + n2 - 2
	if df <= 0 {
		return TTestResult{TStatistic: math.NaN(), PValue: math.NaN(), DegreesOfFreedom: df}, nil
	}

	// A single-element group has an undefined (NaN) sample variance, which
	// carries through to the statistic.
	m1, v1 := sampleMeanVariance(a)
	m2, v2 := sampleMeanVariance(b)

	pooled := ((n1-1)*v1 + (n2-1)*v2) / df
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	t := (m1 - m2) / se

	return TTestResult{
		TStatistic:       t,
		PValue:           twoSidedP(t, df),
		DegreesOfFreedom: df,
	}, nil
}

func sampleMeanVariance(xs []float64) (float64, float64) {
	if len(xs) < 2 {
		return stat.Mean(xs, nil), math.NaN()
	}
	return stat.MeanVariance(xs, nil)
}

// twoSidedP returns P(|T| >= |t|) for Student's t with df degrees of freedom.
func twoSidedP(t, df float64) float64 {
	switch {
	case math.IsNaN(t):
		return math.NaN()
	case math.IsInf(t, 0):
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return math.Min(1, 2*dist.Survival(math.Abs(t)))
}
