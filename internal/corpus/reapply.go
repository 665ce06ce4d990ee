package corpus

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valpere/tibtran/internal"
)

// Mode selects how standardized terms are written back into translations.
type Mode string

const (
	// ModeLiteral replaces whole-word occurrences of earlier variants and
	// leaves every other byte alone.
	ModeLiteral Mode = "literal"
	// ModeLLM asks the model for a minimal edit.
	ModeLLM Mode = "llm"
)

// ParseMode accepts "literal", "llm" or "" (literal).
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLiteral:
		return ModeLiteral, nil
	case ModeLLM:
		return ModeLLM, nil
	}
	return "", fmt.Errorf("unknown reapply mode %q", s)
}

// Replacement maps the earlier translations of one term to its standard.
type Replacement struct {
	TibetanTerm string
	Standard    string
	Variants    []string
}

// Replacements pairs every standardized term with the variants observed in
// freqs. Terms without a frequency entry have no variants.
func Replacements(terms []internal.StandardizedTerm, freqs []TermFrequency) []Replacement {
	byTerm := make(map[string][]string, len(freqs))
	for _, f := range freqs {
		byTerm[f.TibetanTerm] = f.Translations
	}
	out := make([]Replacement, 0, len(terms))
	for _, t := range terms {
		term := normalize(t.TibetanTerm)
		out = append(out, Replacement{
			TibetanTerm: term,
			Standard:    strings.TrimSpace(t.StandardTranslation),
			Variants:    byTerm[term],
		})
	}
	return out
}

// applicable returns the replacements whose term occurs in source.
func applicable(source string, reps []Replacement) []Replacement {
	src := normalize(source)
	var out []Replacement
	for _, r := range reps {
		if r.TibetanTerm != "" && r.Standard != "" && strings.Contains(src, r.TibetanTerm) {
			out = append(out, r)
		}
	}
	return out
}

type candidate struct {
	from, to string
}

// candidates lists every variant and every standard (mapped to itself so a
// standard is never rewritten from inside), longest first. The first
// replacement that claims a variant keeps it. A one-word variant that is
// also a word of its standard ("mind" for "awakening mind") is left out:
// it usually translates other terms too.
func candidates(reps []Replacement) []candidate {
	seen := make(map[string]bool)
	var out []candidate
	add := func(from, to string) {
		if from == "" || seen[from] {
			return
		}
		seen[from] = true
		out = append(out, candidate{from: from, to: to})
		if up := capitalize(from); up != from && !seen[up] {
			seen[up] = true
			out = append(out, candidate{from: up, to: capitalize(to)})
		}
	}
	for _, r := range reps {
		add(r.Standard, r.Standard)
	}
	for _, r := range reps {
		for _, v := range r.Variants {
			v = strings.TrimSpace(v)
			if isHeadWord(v, r.Standard) {
				continue
			}
			add(v, r.Standard)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].from) > len(out[j].from) })
	return out
}

// isHeadWord reports whether variant is a single word found as a whole word
// in standard but is not the standard itself.
func isHeadWord(variant, standard string) bool {
	if strings.ContainsFunc(variant, unicode.IsSpace) || strings.EqualFold(variant, standard) {
		return false
	}
	for _, w := range strings.FieldsFunc(standard, func(r rune) bool { return !isWordRune(r) }) {
		if strings.EqualFold(w, variant) {
			return true
		}
	}
	return false
}

// ReplaceTerms rewrites whole-word occurrences of the variants in text in a
// single left-to-right pass. Word boundaries are Unicode letters, digits
// and marks.
func ReplaceTerms(text string, reps []Replacement) string {
	cands := candidates(reps)
	if len(cands) == 0 {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		if matched, c := matchAt(text, i, cands); matched {
			sb.WriteString(c.to)
			i += len(c.from)
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		sb.WriteString(text[i : i+size])
		i += size
	}
	return sb.String()
}

func matchAt(text string, i int, cands []candidate) (bool, candidate) {
	if i > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:i])
		if isWordRune(prev) {
			return false, candidate{}
		}
	}
	for _, c := range cands {
		if !strings.HasPrefix(text[i:], c.from) {
			continue
		}
		end := i + len(c.from)
		if end < len(text) {
			next, _ := utf8.DecodeRuneInString(text[end:])
			if isWordRune(next) {
				continue
			}
		}
		return true, c
	}
	return false, candidate{}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
