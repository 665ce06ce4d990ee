// Package evaluator grades translation drafts and reviews their formatting.
//
// Evaluate verifies the current draft against the combined commentary text
// and then grades it, judging formatting in the same structured reply.
// ReviewFormat drives the format loop.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/prompts"
)

// DefaultMaxFormatIterations bounds the format loop.
const DefaultMaxFormatIterations = 6

type Evaluator struct {
	client llm.Client
	logger *zap.Logger
}

func New(client llm.Client, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{client: client, logger: logger.Named("evaluator")}
}

// Verify compares the draft with the combined commentary.
func (e *Evaluator) Verify(ctx context.Context, translation, combined string) (internal.Verification, error) {
	v, err := llm.Extract[internal.Verification](ctx, e.client, prompts.CommentaryVerification(translation, combined))
	if err != nil {
		return v, fmt.Errorf("commentary verification: %w", err)
	}
	return v, nil
}

// Evaluate grades the current draft of rec.
func (e *Evaluator) Evaluate(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	draft := rec.CurrentDraft()
	if draft == "" {
		return internal.Delta{}, fmt.Errorf("evaluate record %s: no draft", rec.ID)
	}

	verification, err := e.Verify(ctx, draft, rec.CombinedCommentary)
	if err != nil {
		return internal.Delta{}, err
	}

	prompt := prompts.TranslationEvaluation(
		rec.Source, draft, rec.CombinedCommentary, rec.KeyPoints,
		renderVerification(verification), prompts.FormatHistory(rec.FeedbackHistory), rec.Language,
	)
	eval, err := llm.Extract[internal.Evaluation](ctx, e.client, prompt)
	if err != nil {
		return internal.Delta{}, fmt.Errorf("translation evaluation: %w", err)
	}

	e.logger.Info("draft graded",
		zap.String("record", rec.ID),
		zap.Int("iteration", rec.Iteration),
		zap.String("grade", string(eval.Grade)),
		zap.Bool("format_matched", eval.FormatMatched),
	)

	d := internal.Delta{
		Grade:          &eval.Grade,
		AppendFeedback: []string{FeedbackEntry(rec.Iteration, eval.Grade, eval.Feedback)},
		Formatted:      internal.Bool(eval.FormatMatched),
	}
	if !eval.FormatMatched {
		d.AppendFormatFeedback = []string{FormatIssue(eval.FeedbackFormat)}
	}
	return d, nil
}

// ReviewFormat checks the structure of the current draft. On mismatch the
// critique is appended and the format iteration counter advances.
func (e *Evaluator) ReviewFormat(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	review, err := llm.Extract[internal.FormatReview](ctx, e.client,
		prompts.FormatReview(rec.Source, rec.CurrentDraft(), rec.FormatFeedbackHistory))
	if err != nil {
		return internal.Delta{}, fmt.Errorf("format review: %w", err)
	}

	if review.FormatMatched {
		return internal.Delta{Formatted: internal.Bool(true)}, nil
	}

	next := rec.FormatIteration + 1
	e.logger.Debug("format mismatch", zap.String("record", rec.ID), zap.Int("format_iteration", next))
	return internal.Delta{
		Formatted:            internal.Bool(false),
		AppendFormatFeedback: []string{FormatIssue(review.FeedbackFormat)},
		FormatIteration:      &next,
	}, nil
}

// FeedbackEntry renders one feedback history entry.
func FeedbackEntry(iteration int, grade internal.Grade, feedback string) string {
	return fmt.Sprintf("Iteration %d - Grade: %s\nFeedback: %s\n", iteration, grade, feedback)
}

// FormatIssue renders one format feedback history entry.
func FormatIssue(feedback string) string {
	return "Formatting issue: " + feedback
}

func renderVerification(v internal.Verification) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(b)
}

// RouteStructured accepts a formatted record or one that has used up
// maxFormatIterations. maxFormatIterations <= 0 means the default.
func RouteStructured(rec internal.Record, maxFormatIterations int) internal.Route {
	if maxFormatIterations <= 0 {
		maxFormatIterations = DefaultMaxFormatIterations
	}
	if rec.Formatted || rec.FormatIteration >= maxFormatIterations {
		return internal.RouteAccepted
	}
	return internal.RouteRejected
}
