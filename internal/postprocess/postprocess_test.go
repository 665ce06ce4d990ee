package postprocess

import (
	"errors"
	"testing"
)

func TestRemoveThinkingBlocks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"no blocks", "The awakening mind is the root.", "The awakening mind is the root."},
		{"thinking block", "Root<thinking>parse the verse</thinking> text", "Root text"},
		{"think block", "<think>which commentary?</think>Homage to Manjushri", "Homage to Manjushri"},
		{"multiple blocks", "<reasoning>a</reasoning>middle<reflection>b</reflection>", "middle"},
		{"truncated block", "Before<thinking>cut off mid", "Before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeThinkingBlocks(tt.input); got != tt.expected {
				t.Errorf("removeThinkingBlocks(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemovePreamble(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"here is the translation", "Here is the translation: Homage to all buddhas.", "Homage to all buddhas."},
		{"improved translation label", "Improved translation:\nHomage.", "Homage."},
		{"combined commentary label", "Combined commentary: The verse teaches...", "The verse teaches..."},
		{"certainly", "Certainly! Here is the translation: Homage.", "Homage."},
		{"no colon keeps text", "Here is the heart of the teaching.", "Here is the heart of the teaching."},
		{"mid-text label kept", "The verse says. Translation: ok", "The verse says. Translation: ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removePreamble(tt.input); got != tt.expected {
				t.Errorf("removePreamble(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveQuoteWrapping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"double quotes", `"Homage to Manjushri"`, "Homage to Manjushri"},
		{"smart quotes", "“Homage”", "Homage"},
		{"guillemets", "«Omaggio»", "Omaggio"},
		{"two quotations kept", `"form" is "emptiness"`, `"form" is "emptiness"`},
		{"unbalanced kept", `"Homage`, `"Homage`},
		{"single rune", `"`, `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := removeQuoteWrapping(tt.input); got != tt.expected {
				t.Errorf("removeQuoteWrapping(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestClean(t *testing.T) {
	input := "<thinking>verse has four lines</thinking>\nHere is the translation: \"Homage to the Three Jewels\""
	if got := Clean(input); got != "Homage to the Three Jewels" {
		t.Errorf("Clean() = %q", got)
	}
}

func TestStripCodeFence(t *testing.T) {
	in := "```json\n{\"grade\": \"good\"}\n```"
	if got := StripCodeFence(in); got != `{"grade": "good"}` {
		t.Errorf("StripCodeFence() = %q", got)
	}
	if got := StripCodeFence("plain"); got != "plain" {
		t.Errorf("StripCodeFence(plain) = %q", got)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose around", "Sure.\n{\"grade\":\"great\",\"feedback\":\"ok\"}\nThanks", `{"grade":"great","feedback":"ok"}`},
		{"fenced", "```json\n{\"x\": [1, 2]}\n```", `{"x": [1, 2]}`},
		{"braces in strings", `{"t":"a } b { c"}`, `{"t":"a } b { c"}`},
		{"escaped quote", `{"t":"say \"}\" now"}`, `{"t":"say \"}\" now"}`},
		{"array", `[{"a":1},{"a":2}]`, `[{"a":1},{"a":2}]`},
		{"skips broken prefix", `{ oops ] {"ok":true}`, `{"ok":true}`},
		{"bracketed prose before object", "Based on the [combined commentary], here is the grade:\n{\"grade\":\"good\"}", `{"grade":"good"}`},
		{"bracketed word inside object", `See [note a]: {"a":[2]}`, `{"a":[2]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExtractJSON_None(t *testing.T) {
	for _, input := range []string{"no structured data here", "only [bracketed] {prose}"} {
		_, err := ExtractJSON(input)
		if !errors.Is(err, ErrNoJSON) {
			t.Errorf("ExtractJSON(%q): expected ErrNoJSON, got %v", input, err)
		}
	}
}
