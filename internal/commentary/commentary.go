// Package commentary translates the auxiliary commentaries of a passage and
// merges them into the combined commentary and key points that ground every
// later stage.
package commentary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/prompts"
)

// Translator translates a single commentary.
type Translator struct {
	client llm.Client
	logger *zap.Logger
}

func NewTranslator(client llm.Client, logger *zap.Logger) *Translator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{client: client, logger: logger.Named("commentary")}
}

// Translate returns the raw model reply and the literal translation
// extracted from it. A blank commentary yields (nil, nil, nil) without
// contacting the model.
func (t *Translator) Translate(ctx context.Context, sanskrit, source, commentary, language string) (*string, *string, error) {
	if strings.TrimSpace(commentary) == "" {
		return nil, nil, nil
	}

	response, err := llm.Generate(ctx, t.client, prompts.CommentaryTranslation(sanskrit, source, commentary, language))
	if err != nil {
		return nil, nil, fmt.Errorf("commentary translation: %w", err)
	}
	extracted, err := llm.Extract[internal.ExtractedTranslation](ctx, t.client, prompts.ExtractTranslation(commentary, response))
	if err != nil {
		return nil, nil, fmt.Errorf("commentary extraction: %w", err)
	}
	t.logger.Debug("commentary translated", zap.Int("chars", len(extracted.ExtractedTranslation)))
	return &response, &extracted.ExtractedTranslation, nil
}

// Stage returns the delta for commentary number idx of rec.
func (t *Translator) Stage(ctx context.Context, rec internal.Record, idx int) (internal.Delta, error) {
	if idx < 0 || idx >= len(rec.Commentaries) {
		return internal.Delta{}, nil
	}
	response, translation, err := t.Translate(ctx, rec.Sanskrit, rec.Source, rec.Commentaries[idx].Text, rec.Language)
	if err != nil {
		return internal.Delta{}, fmt.Errorf("commentary %d: %w", idx+1, err)
	}
	return internal.Delta{
		Commentary: &internal.CommentaryUpdate{Index: idx, Response: response, Translation: translation},
	}, nil
}

// Aggregator produces the combined commentary and its key points.
type Aggregator struct {
	client llm.Client
	logger *zap.Logger
}

func NewAggregator(client llm.Client, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{client: client, logger: logger.Named("aggregator")}
}

// Aggregate merges the commentary translations of rec. Without any
// translated commentary the model writes its own from the source.
func (a *Aggregator) Aggregate(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	translations := rec.CommentaryTranslations()

	var prompt string
	if len(translations) == 0 {
		a.logger.Info("no commentary available, using zero-shot commentary", zap.String("record", rec.ID))
		prompt = prompts.ZeroShotCommentary(rec.Source, rec.Sanskrit)
	} else {
		prompt = prompts.CombinedCommentary(rec.Source, translations)
	}

	combined, err := llm.Generate(ctx, a.client, prompt)
	if err != nil {
		return internal.Delta{}, fmt.Errorf("combined commentary: %w", err)
	}

	points, err := llm.Extract[internal.CommentaryPoints](ctx, a.client, prompts.KeyPointExtraction(combined))
	if err != nil {
		return internal.Delta{}, fmt.Errorf("key point extraction: %w", err)
	}
	keyPoints := points.Points
	if keyPoints == nil {
		keyPoints = []internal.KeyPoint{}
	}

	return internal.Delta{
		CombinedCommentary: &combined,
		KeyPoints:          keyPoints,
	}, nil
}
