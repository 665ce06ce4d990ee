package internal

// Structured replies requested from the model. Field descriptions are sent
// to the model as part of the JSON schema.

type ExtractedTranslation struct {
	ExtractedTranslation string `json:"extracted_translation" desc:"Extracted translation with exact format from the response" validate:"required"`
}

type CommentaryPoints struct {
	Points []KeyPoint `json:"points" desc:"List of key points from commentary" validate:"dive"`
}

// Verification compares a draft with the combined commentary.
type Verification struct {
	MatchesCommentary  bool   `json:"matches_commentary" desc:"Whether the translation fully aligns with the commentary"`
	MissingConcepts    string `json:"missing_concepts" desc:"Concepts from commentary that are missing or incorrectly translated"`
	Misinterpretations string `json:"misinterpretations" desc:"Concepts translated in ways that contradict the commentary"`
	ContextAccuracy    string `json:"context_accuracy" desc:"Verification of key contextual elements mentioned in commentary"`
}

// Evaluation grades a draft and judges its formatting in one reply.
type Evaluation struct {
	Grade          Grade  `json:"grade" desc:"Translation quality based on accuracy and commentary alignment" validate:"required,oneof=bad okay good great"`
	Feedback       string `json:"feedback" desc:"Detailed feedback on improving the translation based on the commentary interpretation"`
	FormatMatched  bool   `json:"format_matched" desc:"Whether the translation preserves the source text's formatting such as line breaks"`
	FeedbackFormat string `json:"feedback_format" desc:"Guidance on matching the source text formatting, and only the formatting"`
}

// FormatReview is the verdict of the format evaluator.
type FormatReview struct {
	FormatMatched  bool   `json:"format_matched" desc:"Whether the translation preserves the source text's formatting such as line breaks"`
	FeedbackFormat string `json:"feedback_format" desc:"Guidance on matching the source text formatting, and only the formatting"`
}

type GlossaryExtraction struct {
	Entries []GlossaryEntry `json:"entries" desc:"List of extracted glossary entries"`
}

type PostTranslation struct {
	StandardisedTranslation string `json:"standardised_translation" desc:"The standardised translation of the source text" validate:"required"`
}

type WordByWordTranslation struct {
	WordByWordTranslation string `json:"word_by_word_translation" desc:"The word by word translation of the source text" validate:"required"`
}
