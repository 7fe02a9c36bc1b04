// Package experiment queries a model with every question of a dataset under
// two system prompts and collects the raw responses per arm.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/timvw/honesty-bench/internal/llm"
	"github.com/timvw/honesty-bench/internal/model"
	hbotel "github.com/timvw/honesty-bench/internal/otel"
	"github.com/timvw/honesty-bench/internal/progress"
)

var tracer = otel.Tracer("honesty-bench/experiment")

// QueryError reports the query that aborted an arm.
type QueryError struct {
	Arm   model.Arm
	Index int
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s arm, question %d: %v", e.Arm, e.Index, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Prompts holds the system prompt of each arm.
type Prompts struct {
	Baseline   string
	Experiment string
}

// Responses holds the raw responses of both arms, index-aligned with the
// questions that produced them.
type Responses struct {
	Baseline   []string
	Experiment []string
	Usage      model.TokenUsage
}

// Runner fans questions out to a Querier.
type Runner struct {
	Querier  llm.Querier
	Parallel int               // max in-flight queries; 0 means unbounded
	Metrics  *hbotel.Metrics   // nil-safe
	Progress *progress.Tracker // nil-safe
	RunID    string            // groups the spans of one run
	Logger   *slog.Logger      // defaults to slog.Default()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Run queries the baseline arm and then the experiment arm.
func (r *Runner) Run(ctx context.Context, prompts Prompts, questions []string) (*Responses, error) {
	ctx, span := tracer.Start(ctx, "experiment",
		trace.WithAttributes(
			attribute.String("llm.provider", r.Querier.Provider()),
			attribute.String("llm.model", r.Querier.Model()),
			attribute.Int("questions", len(questions)),
			attribute.String("langfuse.trace.name", "honesty-bench-run"),
			attribute.String("langfuse.session.id", r.RunID),
			attribute.StringSlice("langfuse.trace.tags", []string{"honesty-bench"}),
		))
	defer span.End()

	out := &Responses{}
	var err error
	var usage model.TokenUsage
	out.Baseline, usage, err = r.RunArm(ctx, model.ArmBaseline, prompts.Baseline, questions)
	out.Usage = addUsage(out.Usage, usage)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	out.Experiment, usage, err = r.RunArm(ctx, model.ArmExperiment, prompts.Experiment, questions)
	out.Usage = addUsage(out.Usage, usage)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", out.Usage.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", out.Usage.OutputTokens),
	)
	return out, nil
}

// RunArm sends every question under systemPrompt and returns the completion
// texts in question order with the summed token usage. The first failing
// query cancels the rest and is returned as a *QueryError.
func (r *Runner) RunArm(ctx context.Context, arm model.Arm, systemPrompt string, questions []string) ([]string, model.TokenUsage, error) {
	ctx, span := tracer.Start(ctx, "arm "+string(arm),
		trace.WithAttributes(
			attribute.String("experiment.arm", string(arm)),
			attribute.Int("questions", len(questions)),
			attribute.Int("parallel", r.Parallel),
		))
	defer span.End()

	log := r.logger().With("arm", string(arm))
	log.Info("querying", "questions", len(questions), "parallel", r.Parallel)
	start := time.Now()

	r.Progress.Start(string(arm), len(questions))
	defer r.Progress.Finish()

	texts := make([]string, len(questions))
	usages := make([]model.TokenUsage, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	if r.Parallel > 0 {
		g.SetLimit(r.Parallel)
	}
	for i, q := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := r.Querier.Query(gctx, systemPrompt, q)
			if err != nil {
				r.Metrics.RecordQuery(ctx, string(arm), hbotel.QueryError)
				r.Progress.Advance(true)
				return &QueryError{Arm: arm, Index: i, Err: err}
			}
			r.Metrics.RecordQuery(ctx, string(arm), hbotel.QueryOK)
			r.Metrics.RecordTokens(ctx, r.Querier.Provider(), r.Querier.Model(), c.Usage.InputTokens, c.Usage.OutputTokens)
			r.Progress.Advance(false)
			texts[i] = c.Text
			usages[i] = c.Usage
			return nil
		})
	}

	err := g.Wait()
	total := sumUsage(usages)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		log.Error("arm aborted", "error", err, "elapsed", time.Since(start))
		return nil, total, err
	}
	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", total.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", total.OutputTokens),
	)
	log.Info("arm finished", "elapsed", time.Since(start),
		"input_tokens", total.InputTokens, "output_tokens", total.OutputTokens)
	return texts, total, nil
}

func addUsage(a, b model.TokenUsage) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:  a.InputTokens + b.InputTokens,
		OutputTokens: a.OutputTokens + b.OutputTokens,
	}
}

func sumUsage(us []model.TokenUsage) model.TokenUsage {
	var total model.TokenUsage
	for _, u := range us {
		total = addUsage(total, u)
	}
	return total
}
