// Package detector identifies the natural language of translated text.
package detector

import (
	"strings"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector for the given languages, or for every supported
// language when fewer than two are given. Models load lazily on first use.
func New(languages ...lingua.Language) *Detector {
	var builder lingua.LanguageDetectorBuilder
	if len(languages) >= 2 {
		builder = lingua.NewLanguageDetectorBuilder().FromLanguages(languages...)
	} else {
		builder = lingua.NewLanguageDetectorBuilder().FromAllLanguages()
	}
	return &Detector{detector: builder.Build()}
}

// Detect names the language of text. Tibetan script is ignored: lingua has
// no Tibetan model and translations quote source terms freely.
func (d *Detector) Detect(text string) (lingua.Language, bool) {
	text = StripTibetan(text)
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// StripTibetan removes Tibetan-script runes and collapses the whitespace
// left behind.
func StripTibetan(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Tibetan, r) {
			return ' '
		}
		return r
	}, text)
	return strings.Join(strings.Fields(cleaned), " ")
}

// Lookup resolves a language given by English name ("Italian"), ISO 639-1
// code ("it") or ISO 639-3 code ("ita"). Matching ignores case.
func Lookup(name string) (lingua.Language, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return lingua.Unknown, false
	}
	for _, lang := range lingua.AllLanguages() {
		if strings.EqualFold(lang.String(), name) ||
			strings.EqualFold(lang.IsoCode639_1().String(), name) ||
			strings.EqualFold(lang.IsoCode639_3().String(), name) {
			return lang, true
		}
	}
	return lingua.Unknown, false
}
