package prompts

import (
	"fmt"
	"strings"
)

// StandardizationProtocol is the fixed rubric appended to every standardization example.
const StandardizationProtocol = `Translation Standardization Protocol:

1. Context Compatibility Analysis: Evaluate each candidate translation by substituting it across all attested examples to ensure semantic congruence in every context.

2. Canonical Alignment: When parallel Sanskrit attestations exist, prioritize translations that maintain terminological correspondence with the Sanskrit source tradition while remaining comprehensible in the target language.

3. Hierarchical Selection Criteria:
   a. Cross-contextual applicability (primary determinant)
   b. Terminological ecosystem coherence (relationship to established glossary terms)
   c. Register appropriateness for target audience

4. Validation Through Bidirectional Testing: Verify that the standardized term maps consistently back to the Tibetan term without ambiguity or semantic drift.

Output:
Tibetan Term: [Tibetan term]
Selected standard translation: [Selected translation]
Rationale: [Brief explanation of why this translation was selected based on the rules]`

// Sample is one corpus passage quoted in a standardization example.
type Sample struct {
	Sanskrit    string
	Source      string
	Translation string
}

// StandardizationExample renders usage samples, the candidate list and the protocol.
// freq is the ";"-joined "translation (count)" list; it is shown comma-separated.
func StandardizationExample(term, freq string, samples []Sample) string {
	var sb strings.Builder
	sb.WriteString("Usage examples:\n\n")
	for _, s := range samples {
		fmt.Fprintf(&sb, "Sanskrit: %s\n", s.Sanskrit)
		fmt.Fprintf(&sb, "Source: %s\n", s.Source)
		fmt.Fprintf(&sb, "Translation: %s\n\n", s.Translation)
	}
	fmt.Fprintf(&sb, "Tibetan Term: %s Translation: %s\n\n", term, strings.ReplaceAll(freq, ";", ","))
	sb.WriteString(StandardizationProtocol)
	return sb.String()
}

// TermTranslation pairs a Tibetan term with its approved translation.
type TermTranslation struct {
	TibetanTerm         string
	StandardTranslation string
}

// Reapplication asks for a minimal edit that swaps in approved terminology.
func Reapplication(source, translation string, glossary []TermTranslation, commentary string) string {
	var g strings.Builder
	for _, t := range glossary {
		fmt.Fprintf(&g, "tibetan_term:-%s\nstandard_translation:-%s\n", t.TibetanTerm, t.StandardTranslation)
	}
	return fmt.Sprintf(`Standardize the following translation by ONLY replacing non-standard terminology with the approved equivalents from the glossary. Ensure the resulting text remains natural and accurate.

SOURCE TEXT:
%s

RAW TRANSLATION:
%s

STANDARDIZED GLOSSARY:
%s
COMMENTARY (for context only):
%s

INSTRUCTIONS:
1. Identify terms in the raw translation that have standardized equivalents in the glossary
2. Replace ONLY those specific terms with their standardized versions
3. Make minimal adjustments if necessary to maintain grammatical correctness
4. Do not change any other aspects of the translation
5. Ensure the final text reads naturally and preserves the original meaning and format`, source, translation, g.String(), commentary)
}

// WordByWord asks for an arrow-separated segment gloss.
func WordByWord(source, translation, language string) string {
	l := lang(language)
	return fmt.Sprintf(`Given source text and translation, create a word-by-word translation based on the standardized translation. Ensure the word-by-word translation accurately reflects the meaning of the standardized translation.

Source Text:
%s

Standardized Translation:

%s

WORD-BY-WORD TRANSLATION:
Format: [Tibetan word/phrase] → [%s translation]

Example:
བྱང་ཆུབ་སེམས་དཔའ་ → bodhisattva
སྒོམ་པ་ → meditation
ཤེས་རབ་ཀྱི་ཕ་རོལ་ཏུ་ཕྱིན་པ་ → perfection of wisdom
རྣམ་པར་ཤེས་པ་ → consciousness

[Continue with word-by-word mapping for the entire text]`, source, translation, l)
}
