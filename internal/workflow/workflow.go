// Package workflow runs one passage through the translation graph:
//
//	START -> commentary x3 -> aggregator -> generator -> evaluator
//	evaluator -> route_translation {Rejected: generator | Accepted: route_structured}
//	route_structured {Accepted: glossary | Rejected: formatter -> format_evaluator -> route_structured}
//	glossary -> plaintext -> END
//
// Every node returns a Delta; Run applies it and hands the new Record to the
// next node. Both loops are bounded by their iteration budgets.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/commentary"
	"github.com/valpere/tibtran/internal/evaluator"
	"github.com/valpere/tibtran/internal/glossary"
	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/markdown"
	"github.com/valpere/tibtran/internal/refiner"
)

// ErrNoDraft is returned when the content loop ends without a usable draft.
var ErrNoDraft = errors.New("no translation draft produced")

// Commentaries is the number of commentary slots of a passage.
const Commentaries = 3

type Options struct {
	MaxIterations       int
	MaxFormatIterations int
	// Language is used for records that do not name one.
	Language string
}

// LanguageChecker reports whether text is written in language.
type LanguageChecker interface {
	IsValid(text, language string) (bool, error)
}

type Graph struct {
	translator *commentary.Translator
	aggregator *commentary.Aggregator
	refiner    *refiner.Refiner
	evaluator  *evaluator.Evaluator
	glossary   *glossary.Extractor
	checker    LanguageChecker

	opts   Options
	logger *zap.Logger
}

// New wires every node to client. sink receives extracted glossaries and may
// be nil.
func New(client llm.Client, sink *glossary.CSVSink, opts Options, logger *zap.Logger) *Graph {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = refiner.DefaultMaxIterations
	}
	if opts.MaxFormatIterations <= 0 {
		opts.MaxFormatIterations = evaluator.DefaultMaxFormatIterations
	}
	return &Graph{
		translator: commentary.NewTranslator(client, logger),
		aggregator: commentary.NewAggregator(client, logger),
		refiner:    refiner.New(client, logger),
		evaluator:  evaluator.New(client, logger),
		glossary:   glossary.NewExtractor(client, sink, logger),
		opts:       opts,
		logger:     logger.Named("workflow"),
	}
}

// WithChecker makes Run warn when the accepted draft is not in the target
// language.
func (g *Graph) WithChecker(c LanguageChecker) *Graph {
	g.checker = c
	return g
}

type node func(ctx context.Context, rec internal.Record) (internal.Delta, error)

// step runs one node and applies its delta.
func (g *Graph) step(ctx context.Context, name string, rec internal.Record, fn node) (internal.Record, error) {
	if err := ctx.Err(); err != nil {
		return rec, err
	}
	d, err := fn(ctx, rec)
	if err != nil {
		return rec, fmt.Errorf("%s: %w", name, err)
	}
	next := rec.Apply(d)
	g.logger.Debug("node done",
		zap.String("record", rec.ID),
		zap.String("node", name),
		zap.Int("version", next.Version),
	)
	return next, nil
}

// Run drives rec through the graph. On failure the record as far as it got
// is returned together with the error.
func (g *Graph) Run(ctx context.Context, rec internal.Record) (internal.Record, error) {
	rec = g.prepare(rec)
	log := g.logger.With(zap.String("record", rec.ID))
	log.Info("workflow started")

	rec, err := g.commentaries(ctx, rec)
	if err != nil {
		return rec, err
	}
	if rec, err = g.step(ctx, "aggregator", rec, g.aggregator.Aggregate); err != nil {
		return rec, err
	}

	for {
		if rec, err = g.step(ctx, "generator", rec, g.refiner.Draft); err != nil {
			return rec, err
		}
		if rec, err = g.step(ctx, "evaluator", rec, g.evaluator.Evaluate); err != nil {
			return rec, err
		}
		if refiner.RouteTranslation(rec, g.opts.MaxIterations) == internal.RouteAccepted {
			break
		}
		log.Debug("translation rejected", zap.Int("iteration", rec.Iteration), zap.String("grade", string(rec.Grade)))
	}
	if strings.TrimSpace(rec.CurrentDraft()) == "" {
		return rec, ErrNoDraft
	}

	for evaluator.RouteStructured(rec, g.opts.MaxFormatIterations) == internal.RouteRejected {
		if rec, err = g.step(ctx, "formatter", rec, g.refiner.Reformat); err != nil {
			return rec, err
		}
		if rec, err = g.step(ctx, "format_evaluator", rec, g.evaluator.ReviewFormat); err != nil {
			return rec, err
		}
	}

	if rec, err = g.step(ctx, "glossary", rec, g.glossary.Stage); err != nil {
		return rec, err
	}
	if rec, err = g.step(ctx, "plaintext", rec, plaintext); err != nil {
		return rec, err
	}

	g.checkLanguage(rec)
	log.Info("workflow accepted",
		zap.Int("iterations", rec.Iteration),
		zap.Int("format_iterations", rec.FormatIteration),
		zap.String("grade", string(rec.Grade)),
		zap.Int("glossary", len(rec.Glossary)),
	)
	return rec, nil
}

func (g *Graph) prepare(rec internal.Record) internal.Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Language == "" {
		rec.Language = g.opts.Language
	}
	if len(rec.Commentaries) < Commentaries {
		cs := make([]internal.Commentary, Commentaries)
		copy(cs, rec.Commentaries)
		rec.Commentaries = cs
	}
	return rec
}

// commentaries translates every commentary slot concurrently. Each worker
// reads the same record and returns its own delta; deltas are applied in
// slot order once all have finished.
func (g *Graph) commentaries(ctx context.Context, rec internal.Record) (internal.Record, error) {
	deltas := make([]internal.Delta, len(rec.Commentaries))
	eg, ctx := errgroup.WithContext(ctx)
	for i := range rec.Commentaries {
		eg.Go(func() error {
			d, err := g.translator.Stage(ctx, rec, i)
			if err != nil {
				return err
			}
			deltas[i] = d
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return rec, fmt.Errorf("commentary: %w", err)
	}
	for _, d := range deltas {
		rec = rec.Apply(d)
	}
	return rec, nil
}

func plaintext(_ context.Context, rec internal.Record) (internal.Delta, error) {
	text := markdown.ToPlainText(rec.CurrentDraft())
	return internal.Delta{PlaintextTranslation: &text}, nil
}

func (g *Graph) checkLanguage(rec internal.Record) {
	if g.checker == nil {
		return
	}
	if ok, err := g.checker.IsValid(rec.CurrentDraft(), rec.Language); !ok {
		g.logger.Warn("accepted translation failed language check",
			zap.String("record", rec.ID),
			zap.String("language", rec.Language),
			zap.Error(err),
		)
	}
}
