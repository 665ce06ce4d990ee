package corpus

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/prompts"
)

// DefaultMaxSamples bounds the passages quoted per standardization example.
const DefaultMaxSamples = 20

// TermFrequency lists the distinct translations of one Tibetan term.
type TermFrequency struct {
	TibetanTerm string `json:"tibetan_term"`
	// TranslationFreq is the ";"-joined "translation (count)" list, most
	// frequent first.
	TranslationFreq  string   `json:"translation_freq"`
	TranslationCount int      `json:"translation_count"`
	Translations     []string `json:"-"`
}

// AnalyzeTermFrequencies groups glossary entries corpus-wide by Tibetan
// term. Terms keep the order of first appearance; variants are ordered by
// count, ties by first appearance. Entries without a term or translation
// are ignored.
func AnalyzeTermFrequencies(glossaries [][]internal.GlossaryEntry) []TermFrequency {
	type variant struct {
		text  string
		count int
	}
	var order []string
	variants := make(map[string][]*variant)

	for _, glossary := range glossaries {
		for _, e := range glossary {
			term := normalize(e.TibetanTerm)
			translation := strings.TrimSpace(e.Translation)
			if term == "" || translation == "" {
				continue
			}
			vs, seen := variants[term]
			if !seen {
				order = append(order, term)
			}
			found := false
			for _, v := range vs {
				if v.text == translation {
					v.count++
					found = true
					break
				}
			}
			if !found {
				variants[term] = append(vs, &variant{text: translation, count: 1})
			}
		}
	}

	out := make([]TermFrequency, 0, len(order))
	for _, term := range order {
		vs := variants[term]
		sort.SliceStable(vs, func(i, j int) bool { return vs[i].count > vs[j].count })

		parts := make([]string, len(vs))
		texts := make([]string, len(vs))
		for i, v := range vs {
			parts[i] = fmt.Sprintf("%s (%d)", v.text, v.count)
			texts[i] = v.text
		}
		out = append(out, TermFrequency{
			TibetanTerm:      term,
			TranslationFreq:  strings.Join(parts, ";"),
			TranslationCount: len(vs),
			Translations:     texts,
		})
	}
	return out
}

// Example is the standardization prompt of one ambiguous term.
type Example struct {
	TibetanTerm string
	Prompt      string
}

// GenerateStandardizationExamples builds a prompt for every term with more
// than one distinct translation, quoting up to maxSamples passages whose
// source contains the term.
func GenerateStandardizationExamples(freqs []TermFrequency, passages []internal.Passage, maxSamples int) []Example {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	sources := make([]string, len(passages))
	for i, p := range passages {
		sources[i] = normalize(p.Source)
	}

	var out []Example
	for _, f := range freqs {
		if f.TranslationCount <= 1 {
			continue
		}
		var samples []prompts.Sample
		for i, p := range passages {
			if len(samples) == maxSamples {
				break
			}
			if strings.Contains(sources[i], f.TibetanTerm) {
				samples = append(samples, prompts.Sample{Sanskrit: p.Sanskrit, Source: p.Source, Translation: p.Translation})
			}
		}
		out = append(out, Example{
			TibetanTerm: f.TibetanTerm,
			Prompt:      prompts.StandardizationExample(f.TibetanTerm, f.TranslationFreq, samples),
		})
	}
	return out
}

func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
