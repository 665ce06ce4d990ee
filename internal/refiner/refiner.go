// Package refiner produces translation drafts: the first draft of a passage,
// improved drafts that answer evaluator feedback, and structurally
// reformatted drafts that answer format feedback.
package refiner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/prompts"
)

// DefaultMaxIterations bounds the content loop.
const DefaultMaxIterations = 4

// Refiner writes drafts for a record. Every method returns a Delta and
// leaves the record untouched.
type Refiner struct {
	client llm.Client
	logger *zap.Logger
}

// New creates a refiner backed by client.
func New(client llm.Client, logger *zap.Logger) *Refiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refiner{client: client, logger: logger.Named("refiner")}
}

// Draft dispatches to Initial for a record without drafts and to Improve
// otherwise.
func (r *Refiner) Draft(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	if len(rec.Translation) == 0 {
		return r.Initial(ctx, rec)
	}
	return r.Improve(ctx, rec)
}

// Initial writes draft #1 and seeds the feedback history with the raw reply.
func (r *Refiner) Initial(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	prompt := prompts.InitialTranslation(rec.Sanskrit, rec.Source, rec.CombinedCommentary, rec.KeyPoints, rec.Language)
	raw, draft, err := r.generate(ctx, rec.Source, prompt)
	if err != nil {
		return internal.Delta{}, fmt.Errorf("initial translation: %w", err)
	}

	r.logger.Debug("initial draft written", zap.String("record", rec.ID))
	return internal.Delta{
		AppendTranslation: &draft,
		AppendFeedback:    []string{fmt.Sprintf("Iteration %d - Initial Translation:\n%s\n", rec.Iteration, raw)},
		Iteration:         internal.Int(1),
	}, nil
}

// Improve rewrites the current draft against the latest feedback entry only.
func (r *Refiner) Improve(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	current := rec.CurrentDraft()
	if current == "" {
		return r.Initial(ctx, rec)
	}

	prompt := prompts.TranslationImprovement(
		rec.Sanskrit, rec.Source, rec.CombinedCommentary, rec.KeyPoints,
		rec.LatestFeedback(), current, rec.Language,
	)
	_, draft, err := r.generate(ctx, rec.Source, prompt)
	if err != nil {
		return internal.Delta{}, fmt.Errorf("translation improvement: %w", err)
	}

	next := rec.Iteration + 1
	r.logger.Debug("draft improved", zap.String("record", rec.ID), zap.Int("iteration", next))
	return internal.Delta{
		AppendTranslation: &draft,
		Iteration:         &next,
	}, nil
}

// Reformat rewrites the current draft so that its structure follows the
// source, guided by the format feedback history.
func (r *Refiner) Reformat(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	prompt := prompts.FormattingFeedback(rec.Source, rec.CurrentDraft(), rec.FormatFeedbackHistory)
	_, draft, err := r.generate(ctx, rec.Source, prompt)
	if err != nil {
		return internal.Delta{}, fmt.Errorf("reformat: %w", err)
	}
	return internal.Delta{AppendTranslation: &draft}, nil
}

// generate runs one freeform call and extracts the literal translation from it.
func (r *Refiner) generate(ctx context.Context, source, prompt string) (string, string, error) {
	raw, err := llm.Generate(ctx, r.client, prompt)
	if err != nil {
		return "", "", err
	}
	extracted, err := llm.Extract[internal.ExtractedTranslation](ctx, r.client, prompts.ExtractTranslation(source, raw))
	if err != nil {
		return "", "", fmt.Errorf("extract translation: %w", err)
	}
	return raw, extracted.ExtractedTranslation, nil
}

// RouteTranslation accepts a record graded great or one that has used up
// maxIterations content iterations. maxIterations <= 0 means the default.
func RouteTranslation(rec internal.Record, maxIterations int) internal.Route {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if rec.Grade == internal.GradeGreat || rec.Iteration >= maxIterations {
		return internal.RouteAccepted
	}
	return internal.RouteRejected
}
