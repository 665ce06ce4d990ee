// Package corpus post-processes finished translations as a whole: it finds
// terms translated inconsistently, picks a standard translation for each,
// writes the standards back and adds a word-by-word gloss.
package corpus

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/dataset"
	"github.com/valpere/tibtran/internal/jsonl"
	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/markdown"
	"github.com/valpere/tibtran/internal/prompts"
)

const (
	StandardizeBatchSize = 30
	ReapplyBatchSize     = 30
	WordByWordBatchSize  = 20
)

type Options struct {
	MaxSamples int
	Mode       Mode
	Language   string
	// Known are standards decided earlier, typically read from the terms
	// table. Their terms are not sent for standardization again.
	Known []internal.StandardizedTerm
	// Output files are written when set.
	FrequenciesOutput string
	TermsOutput       string
	CorpusOutput      string
}

// Result is everything PostProcess derived.
type Result struct {
	Frequencies []TermFrequency
	Terms       []internal.StandardizedTerm
	Passages    []internal.Passage
	// Reapplied counts passages whose translation changed.
	Reapplied int
}

type Processor struct {
	client llm.Client
	logger *zap.Logger
}

func New(client llm.Client, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{client: client, logger: logger.Named("corpus")}
}

// LoadPassages reads finished records from workflow state files.
func LoadPassages(paths []string, logger *zap.Logger) ([]internal.Passage, error) {
	var out []internal.Passage
	for _, path := range paths {
		recs, err := jsonl.Read[internal.Record](path, logger)
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			out = append(out, internal.PassageFromRecord(rec))
		}
	}
	return out, nil
}

// PostProcess runs frequency analysis, example generation, standardization,
// reapplication and the word-by-word gloss in that order. passages is not
// modified.
func (p *Processor) PostProcess(ctx context.Context, passages []internal.Passage, opts Options) (Result, error) {
	var res Result
	passages = append([]internal.Passage(nil), passages...)

	glossaries := make([][]internal.GlossaryEntry, len(passages))
	for i, ps := range passages {
		glossaries[i] = ps.Glossary
	}
	res.Frequencies = AnalyzeTermFrequencies(glossaries)
	known := knownTerms(opts.Known, res.Frequencies)
	examples := pendingExamples(
		GenerateStandardizationExamples(res.Frequencies, passages, opts.MaxSamples), known)
	p.logger.Info("term frequencies analysed",
		zap.Int("terms", len(res.Frequencies)),
		zap.Int("known", len(known)),
		zap.Int("ambiguous", len(examples)),
	)
	if opts.FrequenciesOutput != "" {
		if err := WriteFrequenciesCSV(opts.FrequenciesOutput, res.Frequencies); err != nil {
			return res, err
		}
	}

	terms, err := p.Standardize(ctx, examples)
	if err != nil {
		return res, fmt.Errorf("standardize: %w", err)
	}
	terms = append(known, terms...)
	res.Terms = terms
	if opts.TermsOutput != "" {
		if err := WriteTermsCSV(opts.TermsOutput, terms); err != nil {
			return res, err
		}
	}

	reps := Replacements(terms, res.Frequencies)
	if passages, res.Reapplied, err = p.ApplyStandardizedTerms(ctx, passages, reps, opts.Mode); err != nil {
		return res, fmt.Errorf("reapply: %w", err)
	}

	if passages, err = p.GenerateWordByWord(ctx, passages, opts.Language); err != nil {
		return res, fmt.Errorf("word by word: %w", err)
	}
	res.Passages = passages

	if opts.CorpusOutput != "" {
		if err := dataset.WriteCorpus(opts.CorpusOutput, passages); err != nil {
			return res, err
		}
	}
	p.logger.Info("corpus post-processed",
		zap.Int("passages", len(passages)),
		zap.Int("standardized", len(terms)),
		zap.Int("reapplied", res.Reapplied),
	)
	return res, nil
}

// knownTerms keeps the known standards whose term occurs in the corpus
// glossaries, with the term normalized. The first standard of a term wins.
func knownTerms(known []internal.StandardizedTerm, freqs []TermFrequency) []internal.StandardizedTerm {
	inCorpus := make(map[string]bool, len(freqs))
	for _, f := range freqs {
		inCorpus[f.TibetanTerm] = true
	}
	seen := make(map[string]bool)
	var out []internal.StandardizedTerm
	for _, t := range known {
		t.TibetanTerm = normalize(t.TibetanTerm)
		if !inCorpus[t.TibetanTerm] || seen[t.TibetanTerm] || strings.TrimSpace(t.StandardTranslation) == "" {
			continue
		}
		seen[t.TibetanTerm] = true
		out = append(out, t)
	}
	return out
}

func pendingExamples(examples []Example, known []internal.StandardizedTerm) []Example {
	if len(known) == 0 {
		return examples
	}
	decided := make(map[string]bool, len(known))
	for _, t := range known {
		decided[t.TibetanTerm] = true
	}
	out := examples[:0:0]
	for _, ex := range examples {
		if !decided[ex.TibetanTerm] {
			out = append(out, ex)
		}
	}
	return out
}

// Standardize asks for one standard translation per example. The term of
// each result is the example's term whatever the model echoed.
func (p *Processor) Standardize(ctx context.Context, examples []Example) ([]internal.StandardizedTerm, error) {
	texts := make([]string, len(examples))
	for i, ex := range examples {
		texts[i] = ex.Prompt
	}
	terms, err := inBatches[internal.StandardizedTerm](ctx, p.client, texts, StandardizeBatchSize)
	if err != nil {
		return nil, err
	}
	for i := range terms {
		terms[i].TibetanTerm = examples[i].TibetanTerm
	}
	return terms, nil
}

// ApplyStandardizedTerms writes the standards into every passage whose
// source contains a standardized term and returns the new passages with the
// number that changed. Literal mode edits both translation fields in place;
// LLM mode replaces the translation and derives the plain text from it.
func (p *Processor) ApplyStandardizedTerms(ctx context.Context, passages []internal.Passage, reps []Replacement, mode Mode) ([]internal.Passage, int, error) {
	out := append([]internal.Passage(nil), passages...)
	if mode == "" {
		mode = ModeLiteral
	}

	var (
		targets []int
		texts   []string
	)
	for i, ps := range out {
		matched := applicable(ps.Source, reps)
		if len(matched) == 0 {
			continue
		}
		switch mode {
		case ModeLiteral:
			out[i].Translation = ReplaceTerms(ps.Translation, matched)
			out[i].PlaintextTranslation = ReplaceTerms(ps.PlaintextTranslation, matched)
		case ModeLLM:
			glossary := make([]prompts.TermTranslation, len(matched))
			for j, r := range matched {
				glossary[j] = prompts.TermTranslation{TibetanTerm: r.TibetanTerm, StandardTranslation: r.Standard}
			}
			targets = append(targets, i)
			texts = append(texts, prompts.Reapplication(ps.Source, ps.Translation, glossary, ps.CombinedCommentary))
		default:
			return nil, 0, fmt.Errorf("unknown reapply mode %q", mode)
		}
	}

	if len(texts) > 0 {
		edits, err := inBatches[internal.PostTranslation](ctx, p.client, texts, ReapplyBatchSize)
		if err != nil {
			return nil, 0, err
		}
		for j, idx := range targets {
			out[idx].Translation = edits[j].StandardisedTranslation
			out[idx].PlaintextTranslation = markdown.ToPlainText(edits[j].StandardisedTranslation)
		}
	}

	changed := 0
	for i := range out {
		if out[i].Translation != passages[i].Translation || out[i].PlaintextTranslation != passages[i].PlaintextTranslation {
			changed++
		}
	}
	return out, changed, nil
}

// GenerateWordByWord adds an arrow-separated gloss to every passage.
func (p *Processor) GenerateWordByWord(ctx context.Context, passages []internal.Passage, language string) ([]internal.Passage, error) {
	texts := make([]string, len(passages))
	for i, ps := range passages {
		texts[i] = prompts.WordByWord(ps.Source, ps.Translation, language)
	}
	glosses, err := inBatches[internal.WordByWordTranslation](ctx, p.client, texts, WordByWordBatchSize)
	if err != nil {
		return nil, err
	}
	out := append([]internal.Passage(nil), passages...)
	for i, g := range glosses {
		out[i].WordByWord = g.WordByWordTranslation
	}
	return out, nil
}

// inBatches extracts T for every prompt in consecutive batches of size. A
// failing batch fails the whole call and nothing of it is kept.
func inBatches[T any](ctx context.Context, client llm.Client, texts []string, size int) ([]T, error) {
	out := make([]T, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		got, err := llm.ExtractBatch[T](ctx, client, texts[start:end], end-start)
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start+1, end, err)
		}
		out = append(out, got...)
	}
	return out, nil
}
