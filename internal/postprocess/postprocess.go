// Package postprocess cleans raw model output before it is stored or parsed.
//
// Clean is applied to every freeform generation; ExtractJSON locates the
// structured payload inside replies to schema-constrained prompts.
package postprocess

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// ErrNoJSON is returned when a reply contains no JSON object or array.
var ErrNoJSON = errors.New("no JSON value found in model output")

// Clean strips reasoning blocks, leading preambles and outer quote wrapping.
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = removePreamble(text)
	text = removeQuoteWrapping(text)
	return strings.TrimSpace(text)
}

// Each tag is listed separately since RE2 has no backreferences.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// An opened tag whose closing tag never arrived (output cut off).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// preamblePatterns are anchored at the start and require a trailing colon so
// that a sentence which merely begins with "Here is" survives.
var preamblePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the| my| an?)? (?:improved |revised |refined |literal |english |translated |combined )*(?:translation|commentary|text|version)\s*:`),
	regexp.MustCompile(`(?i)^(?:the )?(?:improved |revised |refined |standardized |literal )*(?:translation|translated (?:text|commentary)|combined commentary)\s*:`),
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.!]? here(?:'s| is)(?: the)? (?:improved |revised |translated )*(?:translation|commentary|text)\s*:`),
}

func removePreamble(text string) string {
	for _, re := range preamblePatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

func removeQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') {
		inner := string(runes[1 : n-1])
		// "a" and "b" is two quotations, not one wrapped string.
		if strings.ContainsRune(inner, first) {
			return text
		}
		return strings.TrimSpace(inner)
	}
	return text
}

var codeFenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n?(.*?)\\n?```$")

// StripCodeFence removes a single markdown code fence around the whole text.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// ExtractJSON returns the first complete JSON object or array in text.
// Braces inside JSON strings are ignored, so Tibetan or prose containing
// "{" within a value does not confuse the scan. Balanced spans that are not
// valid JSON, such as "[see commentary]" in a preamble, are skipped.
func ExtractJSON(text string) (string, error) {
	text = StripCodeFence(removeThinkingBlocks(text))
	for start := 0; start < len(text); start++ {
		c := text[start]
		if c != '{' && c != '[' {
			continue
		}
		end := matchClosing(text, start)
		if end < 0 {
			continue
		}
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", ErrNoJSON
}

// matchClosing returns the index of the bracket closing text[start], or -1.
func matchClosing(text string, start int) int {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
