package experiment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timvw/honesty-bench/internal/model"
)

// fakeQuerier answers with "<prompt>|<question>" after an optional delay.
type fakeQuerier struct {
	delay    func(question string) time.Duration
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32

	mu    sync.Mutex
	calls []string
}

func (f *fakeQuerier) Provider() string { return "fake" }
func (f *fakeQuerier) Model() string    { return "fake-1" }

func (f *fakeQuerier) Query(ctx context.Context, systemPrompt, question string) (*model.Completion, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, question)
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-time.After(f.delay(question)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[question]; err != nil {
		return nil, err
	}
	return &model.Completion{
		Text:  systemPrompt + "|" + question,
		Usage: model.TokenUsage{InputTokens: 10, OutputTokens: 3},
	}, nil
}

func questions(n int) []string {
	qs := make([]string, n)
	for i := range qs {
		qs[i] = fmt.Sprintf("q%d", i)
	}
	return qs
}

func TestRunArm_PreservesOrder(t *testing.T) {
	// Later questions finish first.
	f := &fakeQuerier{delay: func(q string) time.Duration {
		var i int
		fmt.Sscanf(q, "q%d", &i)
		return time.Duration(20-i) * time.Millisecond
	}}
	r := &Runner{Querier: f, Parallel: 0}

	got, usage, err := r.RunArm(context.Background(), model.ArmBaseline, "sys", questions(20))
	require.NoError(t, err)
	require.Len(t, got, 20)
	assert.Equal(t, model.TokenUsage{InputTokens: 200, OutputTokens: 60}, usage)
	for i, text := range got {
		assert.Equal(t, fmt.Sprintf("sys|q%d", i), text)
	}
}

func TestRunArm_RespectsParallel(t *testing.T) {
	f := &fakeQuerier{delay: func(string) time.Duration { return 5 * time.Millisecond }}
	r := &Runner{Querier: f, Parallel: 3}

	_, _, err := r.RunArm(context.Background(), model.ArmBaseline, "sys", questions(30))
	require.NoError(t, err)
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
	assert.Len(t, f.calls, 30)
}

func TestRunArm_FirstErrorAborts(t *testing.T) {
	boom := errors.New("rate limited")
	f := &fakeQuerier{
		delay: func(q string) time.Duration {
			if q == "q0" {
				return 0
			}
			return time.Second
		},
		fail: map[string]error{"q0": boom},
	}
	r := &Runner{Querier: f, Parallel: 0}

	start := time.Now()
	got, _, err := r.RunArm(context.Background(), model.ArmExperiment, "sys", questions(10))
	assert.Nil(t, got)
	require.ErrorIs(t, err, boom)

	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, model.ArmExperiment, qerr.Arm)
	assert.Equal(t, 0, qerr.Index)
	assert.Contains(t, err.Error(), "experiment arm, question 0")
	assert.Less(t, time.Since(start), 500*time.Millisecond, "in-flight queries should be cancelled")
}

func TestRunArm_Empty(t *testing.T) {
	r := &Runner{Querier: &fakeQuerier{}}
	got, _, err := r.RunArm(context.Background(), model.ArmBaseline, "sys", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRun_BothArms(t *testing.T) {
	f := &fakeQuerier{}
	r := &Runner{Querier: f, Parallel: 2, RunID: "run-1"}

	res, err := r.Run(context.Background(), Prompts{Baseline: "plain", Experiment: "honest"}, questions(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"plain|q0", "plain|q1", "plain|q2"}, res.Baseline)
	assert.Equal(t, []string{"honest|q0", "honest|q1", "honest|q2"}, res.Experiment)
	assert.Equal(t, model.TokenUsage{InputTokens: 60, OutputTokens: 18}, res.Usage)
}

func TestRun_BaselineFailureSkipsExperiment(t *testing.T) {
	f := &fakeQuerier{fail: map[string]error{"q1": errors.New("boom")}}
	r := &Runner{Querier: f, Parallel: 1}

	_, err := r.Run(context.Background(), Prompts{Baseline: "plain", Experiment: "honest"}, questions(3))
	var qerr *QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, model.ArmBaseline, qerr.Arm)
	assert.Equal(t, 1, qerr.Index)
	assert.LessOrEqual(t, len(f.calls), 3)
}

func TestRunArm_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &Runner{Querier: &fakeQuerier{}, Parallel: 1}
	_, _, err := r.RunArm(ctx, model.ArmBaseline, "sys", questions(5))
	assert.ErrorIs(t, err, context.Canceled)
}
