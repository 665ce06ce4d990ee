// Package prompts builds the text sent to the model at every stage.
//
// Builders are pure: they format fixed templates with runtime fields and
// perform no I/O.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valpere/tibtran/internal"
)

// DefaultLanguage is used when a record does not name a target language.
const DefaultLanguage = "English"

func lang(language string) string {
	if strings.TrimSpace(language) == "" {
		return DefaultLanguage
	}
	return language
}

// FormatKeyPoints renders key points as indented JSON.
func FormatKeyPoints(points []internal.KeyPoint) string {
	if len(points) == 0 {
		return "[]"
	}
	b, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Sprint(points)
	}
	return string(b)
}

// FormatHistory joins a feedback history, or reports that there is none.
func FormatHistory(history []string) string {
	if len(history) == 0 {
		return "No prior feedback."
	}
	return strings.Join(history, "\n")
}

// ExtractTranslation asks for the literal translation inside a verbose reply.
func ExtractTranslation(source, response string) string {
	return fmt.Sprintf(`Extract the translation with exact format from the response:
Source text:
%s

LLM translation Response:
%s
`, source, response)
}

func CommentaryTranslation(sanskrit, source, commentary, language string) string {
	return fmt.Sprintf(`As an expert in Tibetan Commentary translation, translate this commentary into %s:
Sanskrit text:
%s
Source Text: %s
Commentary to translate: %s

Focus on:
- Accurate translation of technical terms
- Preservation of traditional methods
- Proper handling of citations
- Maintaining pedagogical structure
- Correct translation of formal language

Provide only the translated commentary.`, lang(language), sanskrit, source, commentary)
}

// CombinedCommentary merges the available commentary translations.
func CombinedCommentary(source string, commentaries []string) string {
	var sb strings.Builder
	for i, c := range commentaries {
		fmt.Fprintf(&sb, "Commentary %d:\n%s\n\n", i+1, c)
	}
	return fmt.Sprintf(`Create a Combined commentary explanation sentence by sentence using these translated commentary of the source text:

Source Text: %s

%s`, source, sb.String())
}

// ZeroShotCommentary asks the model to originate commentary when none exists.
func ZeroShotCommentary(source, sanskrit string) string {
	return fmt.Sprintf(`No traditional commentary is available for this passage. As an expert in Tibetan Buddhist philosophy, write your own commentary explaining the source text sentence by sentence, grounded in the standard Indo-Tibetan commentarial tradition.

Sanskrit text:
%s

Source Text: %s

Explain the meaning of every line, identify the key technical terms and the doctrinal context.`, sanskrit, source)
}

func KeyPointExtraction(commentary string) string {
	return fmt.Sprintf(`Analyze this commentary and extract all key points that must be reflected in the translation:

%s

For each key point, provide:
1. The core concept or interpretation
2. Required terminology that must be used
3. Essential context that must be preserved
4. Philosophical implications that must be conveyed

Structure the output as a list of points, each containing these four elements.`, commentary)
}

func InitialTranslation(sanskrit, source, combined string, keyPoints []internal.KeyPoint, language string) string {
	l := lang(language)
	return fmt.Sprintf(`Translate this Tibetan Buddhist text into %s:

Sanskrit text:
%s

Source Text:
%s

Context:
%s

Key Points:
%s

Translation guidance:
- Freely restructure sentences to achieve natural %s expression
- Prioritize accuracy of Buddhist concepts and doctrinal meaning
- Preserve all content and implied meanings from the original
- Choose the best way to convey the intended meaning
- Refer to the Sanskrit text as well as the Tibetan text, as the Tibetan text is translated from the Sanskrit text
- The translation should be detailed and should not be in verse format while avoiding adding any extra information
- The translation is not an explanation of the text but a direct translation of the text

Generate the translation in a clear and structured format.`, l, sanskrit, source, combined, FormatKeyPoints(keyPoints), l)
}

// TranslationImprovement uses only the latest feedback entry.
func TranslationImprovement(sanskrit, source, combined string, keyPoints []internal.KeyPoint, latestFeedback, current, language string) string {
	return fmt.Sprintf(`Create an improved %s translation that addresses the previous feedback:

Sanskrit text:
%s

Source Text:
%s

Commentary Analysis:
%s

Key Points:
%s

Latest Feedback to Address:
%s

Current Translation:
%s

Requirements:
1. Make specific improvements based on the latest feedback while keeping the translation close to the source text.
2. Ensure alignment with the commentary and key points.
3. Focus on addressing each point of criticism.
4. Maintain accuracy while implementing the suggested changes.
5. Refer to the Sanskrit text as well as the Tibetan text, as the Tibetan text itself is translated from the Sanskrit text.

Generate only the improved translation.`, lang(language), sanskrit, source, combined, FormatKeyPoints(keyPoints), latestFeedback, current)
}

// CommentaryVerification checks a draft against the combined commentary text.
func CommentaryVerification(translation, combined string) string {
	return fmt.Sprintf(`Verify this translation against the commentary:

Translation:
%s

Commentary:
%s

Verify:
- whether the translation fully aligns with the commentary
- which concepts from the commentary are missing or incorrectly translated
- which concepts were translated in ways that contradict the commentary
- whether the key contextual elements mentioned in the commentary are preserved

Provide structured verification results.`, translation, combined)
}

func TranslationEvaluation(source, translation, combined string, keyPoints []internal.KeyPoint, verification, previousFeedback, language string) string {
	return fmt.Sprintf(`Evaluate this translation comprehensively:

Source Text: %s
Target Language: %s
Translation: %s

Commentary:
%s

Key Points:
%s

Previous Feedback:
%s

Verification Results:
%s

Evaluate based on:
1. Commentary alignment
2. Key point representation
3. Technical terminology
4. Philosophical accuracy
5. Whether the sentences match the format of the source text
6. Contextual preservation
7. If the source is in verse, then the translation should be in verse

Grade criteria:
- "great": Perfect alignment with commentary and source text
- "good": Minor deviations
- "okay": Several misalignments
- "bad": Major divergence

Also judge whether the translation preserves the source text's formatting such as line breaks, and give guidance that concerns only the formatting.

Provide specific feedback for improvements.`, source, lang(language), translation, combined, FormatKeyPoints(keyPoints), previousFeedback, verification)
}

// FormattingFeedback asks for a structurally corrected draft.
func FormattingFeedback(source, translation string, previousFeedback []string) string {
	return fmt.Sprintf(`Analyze the formatting of this translation:

Source Text:
%s

Translation:
%s

Previous Feedback:
%s

Notes for evaluation:
1. Your task is to evaluate the format, not the translation quality.
2. Do not add "།" in the translation.
3. Provide specific formatting guidance based on previous feedback.
4. Ensure the format matches the source text.

Rewrite the translation so that its line and paragraph structure matches the source text, changing nothing else.`, source, translation, FormatHistory(previousFeedback))
}

// FormatReview asks whether the draft's structure matches the source.
func FormatReview(source, translation string, previousFeedback []string) string {
	return fmt.Sprintf(`Compare the line and paragraph structure of this translation with the source text:

Source Text:
%s

Translation:
%s

Previous Feedback:
%s

Notes for evaluation:
1. Your task is to evaluate the format, not the translation quality.
2. Do not add "།" in the translation.
3. The number and order of lines and paragraphs must match the source text.

State whether the format matches and, if it does not, give specific formatting guidance.`, source, translation, FormatHistory(previousFeedback))
}

func GlossaryExtraction(source, combined, final, language string) string {
	return fmt.Sprintf(`Extract a comprehensive glossary from the final translation only:

Source Text:
%s

Combined Commentary:
%s

Final Translation:
%s

For each technical term, provide:
1. Original Tibetan term in the Source Text
2. Exact %s translation term used
3. Usage context
4. Commentary reference
5. Term category (e.g., philosophical, technical, ritual, doctrinal)
6. Entity category (e.g., person, place, etc.), if not entity then leave it blank

Focus on:
- Buddhist terms
- Important Entities (names of people, places, etc.)
- Specialized vocabulary in Buddhist Texts
- Do not use any terms that are not in the Source text
- Do not use any terms from the Commentary unless it overlaps with the Source text

Format the extracted glossary in a structured data format.`, source, combined, final, lang(language))
}
