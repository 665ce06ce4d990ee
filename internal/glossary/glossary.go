// Package glossary extracts per-passage glossaries from finished translations
// and stores them as CSV.
package glossary

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/prompts"
)

// Extractor asks the model for the glossary of a finished record.
type Extractor struct {
	client llm.Client
	sink   *CSVSink
	logger *zap.Logger
}

// NewExtractor creates an extractor. sink may be nil.
func NewExtractor(client llm.Client, sink *CSVSink, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, sink: sink, logger: logger.Named("glossary")}
}

// Extract returns the glossary of the current draft of rec. Entries whose
// Tibetan term does not occur in the source are dropped.
func (e *Extractor) Extract(ctx context.Context, rec internal.Record) ([]internal.GlossaryEntry, error) {
	prompt := prompts.GlossaryExtraction(rec.Source, rec.CombinedCommentary, rec.CurrentDraft(), rec.Language)
	out, err := llm.Extract[internal.GlossaryExtraction](ctx, e.client, prompt)
	if err != nil {
		return nil, fmt.Errorf("glossary extraction: %w", err)
	}

	entries := InSource(out.Entries, rec.Source)
	if dropped := len(out.Entries) - len(entries); dropped > 0 {
		e.logger.Debug("dropped glossary terms not in source", zap.String("record", rec.ID), zap.Int("dropped", dropped))
	}
	return entries, nil
}

// Stage extracts the glossary of rec, appends it to the sink and returns the
// delta that stores it on the record.
func (e *Extractor) Stage(ctx context.Context, rec internal.Record) (internal.Delta, error) {
	entries, err := e.Extract(ctx, rec)
	if err != nil {
		return internal.Delta{}, err
	}
	if e.sink != nil {
		if err := e.sink.Append(entries); err != nil {
			return internal.Delta{}, err
		}
	}
	return internal.Delta{Glossary: entries}, nil
}

// InSource keeps the entries whose term occurs literally in source after NFC
// normalisation. The result is never nil.
func InSource(entries []internal.GlossaryEntry, source string) []internal.GlossaryEntry {
	src := norm.NFC.String(source)
	out := make([]internal.GlossaryEntry, 0, len(entries))
	for _, entry := range entries {
		term := strings.TrimSpace(norm.NFC.String(entry.TibetanTerm))
		if term == "" || !strings.Contains(src, term) {
			continue
		}
		entry.TibetanTerm = term
		out = append(out, entry)
	}
	return out
}

// Dedupe keeps the first entry of every (term, translation) pair.
func Dedupe(entries []internal.GlossaryEntry) []internal.GlossaryEntry {
	type key struct{ term, translation string }
	seen := make(map[key]struct{}, len(entries))
	out := make([]internal.GlossaryEntry, 0, len(entries))
	for _, e := range entries {
		k := key{e.TibetanTerm, e.Translation}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, e)
	}
	return out
}
