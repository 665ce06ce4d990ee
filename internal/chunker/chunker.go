// Package chunker splits long Tibetan texts into pieces short enough for one
// machine translation segment, cutting at the most natural boundary
// available and remembering the separator it consumed so the translated
// pieces can be joined back in the same layout.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChars keeps each segment well under the Cloud Translation
// per-request recommendation.
const DefaultMaxChars = 5000

const (
	shad       = '།' // U+0F0D, clause end
	nyisShad   = '༎' // U+0F0E
	tsheg      = '་' // U+0F0B, syllable delimiter
	gterShad   = '༔' // U+0F14
	rinChenPun = '༑' // U+0F11
)

// Piece is one segment of a split text. Sep is the separator that followed
// it in the original: "\n\n", "\n", " " or "".
type Piece struct {
	Text string
	Sep  string
}

// Split cuts text into pieces of at most maxChars runes. Boundaries are
// tried in this order:
//  1. paragraph break (blank line)
//  2. line break
//  3. shad, or sentence-ending . ! ? followed by a space
//  4. whitespace
//  5. tsheg
//  6. hard cut
//
// maxChars <= 0 means unlimited.
func Split(text string, maxChars int) []Piece {
	text = strings.TrimSpace(text)
	rest := []rune(text)
	if maxChars <= 0 || len(rest) <= maxChars {
		return []Piece{{Text: text}}
	}

	var pieces []Piece
	for len(rest) > maxChars {
		end := findSplit(rest[:maxChars])
		next := end
		for next < len(rest) && unicode.IsSpace(rest[next]) {
			next++
		}
		if piece := strings.TrimSpace(string(rest[:end])); piece != "" {
			pieces = append(pieces, Piece{Text: piece, Sep: separator(rest[end:next])})
		}
		rest = rest[next:]
	}
	if tail := strings.TrimSpace(string(rest)); tail != "" {
		pieces = append(pieces, Piece{Text: tail})
	}
	if n := len(pieces); n > 0 {
		pieces[n-1].Sep = ""
	}
	return pieces
}

// Texts returns the text of every piece.
func Texts(pieces []Piece) []string {
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.Text
	}
	return out
}

// Join concatenates translations of pieces with the separators of the
// original. A cut inside a word becomes a space.
func Join(translations []string, pieces []Piece) string {
	var sb strings.Builder
	for i, t := range translations {
		sb.WriteString(strings.TrimSpace(t))
		if i == len(translations)-1 {
			break
		}
		sep := " "
		if i < len(pieces) && pieces[i].Sep != "" {
			sep = pieces[i].Sep
		}
		sb.WriteString(sep)
	}
	return sb.String()
}

// findSplit returns the rune index at which window should end.
func findSplit(window []rune) int {
	if i := lastIndex(window, "\n\n"); i > 0 {
		return i
	}
	if i := lastRune(window, func(r rune) bool { return r == '\n' }); i > 0 {
		return i
	}

	// The piece keeps its closing shad.
	for i := len(window) - 1; i > 0; i-- {
		r := window[i]
		if isShad(r) {
			return i + 1
		}
		if (r == '.' || r == '!' || r == '?') && i+1 < len(window) && unicode.IsSpace(window[i+1]) {
			return i + 1
		}
	}

	if i := lastRune(window, unicode.IsSpace); i > 0 {
		return i
	}
	if i := lastRune(window, func(r rune) bool { return r == tsheg }); i > 0 {
		return i + 1
	}
	return len(window)
}

func isShad(r rune) bool {
	switch r {
	case shad, nyisShad, gterShad, rinChenPun:
		return true
	}
	return false
}

func separator(ws []rune) string {
	s := string(ws)
	switch {
	case strings.Contains(s, "\n\n"):
		return "\n\n"
	case strings.Contains(s, "\n"):
		return "\n"
	case s != "":
		return " "
	}
	return ""
}

// lastIndex is the rune offset of the last substr in window, or -1.
func lastIndex(window []rune, substr string) int {
	s := string(window)
	i := strings.LastIndex(s, substr)
	if i < 0 {
		return -1
	}
	return utf8.RuneCountInString(s[:i])
}

func lastRune(window []rune, match func(rune) bool) int {
	for i := len(window) - 1; i >= 0; i-- {
		if match(window[i]) {
			return i
		}
	}
	return -1
}
