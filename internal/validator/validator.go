// Package validator checks that an accepted draft is written in the target
// language and not, say, left half in Tibetan or answered in English when
// German was asked for.
package validator

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	lingua "github.com/pemistahl/lingua-go"

	"github.com/valpere/tibtran/internal/detector"
)

var (
	ErrEmptyTranslation = errors.New("translation is empty")
	ErrLanguageMismatch = errors.New("translation language mismatch")
	ErrUntranslated     = errors.New("translation is mostly Tibetan script")
)

const (
	// Below this many non-Tibetan runes detection is unreliable and the
	// text passes.
	minValidationLength = 20
	// maxTibetanShare is the largest fraction of letters that may stay in
	// Tibetan script. Translations quote terms, not sentences.
	maxTibetanShare = 0.5
)

// Validator is safe for concurrent use. Building the detector is expensive;
// reuse the instance.
type Validator struct {
	det *detector.Detector
}

func New() *Validator {
	return &Validator{det: detector.New()}
}

// IsValid reports whether translatedText is written in targetLang, given as
// a language name or an ISO 639 code.
//
// Texts mostly in Tibetan script fail with ErrUntranslated. Short texts,
// texts whose language cannot be determined and target languages the
// detector does not know pass. When another language is detected the error
// wraps ErrLanguageMismatch.
func (v *Validator) IsValid(translatedText, targetLang string) (bool, error) {
	if targetLang == "" {
		return true, nil
	}

	text := strings.TrimSpace(translatedText)
	if text == "" {
		return false, ErrEmptyTranslation
	}
	if share := tibetanShare(text); share > maxTibetanShare {
		return false, fmt.Errorf("%w (%.0f%%)", ErrUntranslated, share*100)
	}

	rest := detector.StripTibetan(text)
	if utf8.RuneCountInString(rest) < minValidationLength {
		return true, nil
	}

	want, known := detector.Lookup(targetLang)
	if !known {
		return true, nil
	}

	detected, ok := v.det.Detect(rest)
	if !ok || detected == lingua.Unknown {
		return true, nil
	}
	if detected != want {
		return false, fmt.Errorf("%w: expected %s but detected %s", ErrLanguageMismatch, want, detected)
	}
	return true, nil
}

// tibetanShare is the fraction of letters and marks in Tibetan script.
func tibetanShare(text string) float64 {
	var letters, tibetan int
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsMark(r) {
			continue
		}
		letters++
		if unicode.Is(unicode.Tibetan, r) {
			tibetan++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(tibetan) / float64(letters)
}
