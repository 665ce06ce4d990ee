package internal

import "strings"

// Grade is the categorical quality judgement assigned by the evaluator.
type Grade string

const (
	GradeBad   Grade = "bad"
	GradeOkay  Grade = "okay"
	GradeGood  Grade = "good"
	GradeGreat Grade = "great"
)

// Route is the decision of a conditional edge in the workflow graph.
type Route string

const (
	RouteAccepted Route = "Accepted"
	RouteRejected Route = "Rejected + Feedback"
)

// KeyPoint is an atomic requirement extracted once from the combined commentary.
type KeyPoint struct {
	Concept      string   `json:"concept" desc:"Core concept or interpretation" validate:"required"`
	Terminology  []string `json:"terminology" desc:"Required terminology"`
	Context      string   `json:"context" desc:"Required contextual information"`
	Implications []string `json:"implications" desc:"Philosophical implications"`
}

// GlossaryEntry maps a Tibetan term of one passage to the translation actually used.
type GlossaryEntry struct {
	TibetanTerm         string `json:"tibetan_term" desc:"Original Tibetan term as it appears in the source text" validate:"required"`
	Translation         string `json:"translation" desc:"Exact translation term used in the final translation"`
	Context             string `json:"context" desc:"Context or usage notes"`
	EntityCategory      string `json:"entity_category" desc:"Entity category (person, place, ...); empty when the term is not an entity"`
	CommentaryReference string `json:"commentary_reference" desc:"Reference to the commentary explanation"`
	Category            string `json:"category" desc:"Term category (philosophical, technical, ritual, doctrinal, ...)"`
}

// StandardizedTerm is the corpus-wide canonical translation chosen for a term.
type StandardizedTerm struct {
	TibetanTerm         string `json:"tibetan_term" desc:"The Tibetan term to be standardized" validate:"required"`
	StandardTranslation string `json:"standard_translation" desc:"The selected standard translation of the term" validate:"required"`
	Rationale           string `json:"rationale" desc:"The rationale for the standardization"`
	TargetAudience      string `json:"target_audience" desc:"Ranked target audience for the standardization, separated by commas"`
}

// Commentary is one auxiliary commentary of a passage. Response holds the
// raw model reply; both Response and Translation stay nil when Text is empty.
type Commentary struct {
	Text        string  `json:"text"`
	Response    *string `json:"response"`
	Translation *string `json:"translation"`
}

// Record is the per-passage translation state threaded through the workflow.
// Stages never modify a Record directly; they return a Delta that the
// workflow applies with Apply.
type Record struct {
	ID                    string          `json:"id"`
	Version               int             `json:"version"`
	Source                string          `json:"source"`
	Sanskrit              string          `json:"sanskrit"`
	Language              string          `json:"language"`
	Commentaries          []Commentary    `json:"commentaries"`
	CombinedCommentary    string          `json:"combined_commentary"`
	KeyPoints             []KeyPoint      `json:"key_points"`
	Translation           []string        `json:"translation"`
	PlaintextTranslation  string          `json:"plaintext_translation"`
	FeedbackHistory       []string        `json:"feedback_history"`
	FormatFeedbackHistory []string        `json:"format_feedback_history"`
	Iteration             int             `json:"iteration"`
	FormatIteration       int             `json:"format_iteration"`
	Grade                 Grade           `json:"grade,omitempty"`
	Formatted             bool            `json:"formatted"`
	Glossary              []GlossaryEntry `json:"glossary"`
	Extra                 map[string]any  `json:"extra,omitempty"`
}

// CurrentDraft returns the latest draft, or "" before the first translation.
func (r Record) CurrentDraft() string {
	if len(r.Translation) == 0 {
		return ""
	}
	return r.Translation[len(r.Translation)-1]
}

// LatestFeedback returns the last feedback entry, or "" when there is none.
func (r Record) LatestFeedback() string {
	if len(r.FeedbackHistory) == 0 {
		return ""
	}
	return r.FeedbackHistory[len(r.FeedbackHistory)-1]
}

// CommentaryTranslations returns the non-empty commentary translations in order.
func (r Record) CommentaryTranslations() []string {
	var out []string
	for _, c := range r.Commentaries {
		if c.Translation != nil && strings.TrimSpace(*c.Translation) != "" {
			out = append(out, *c.Translation)
		}
	}
	return out
}

// CommentaryUpdate sets the model outputs of the commentary at Index.
type CommentaryUpdate struct {
	Index       int
	Response    *string
	Translation *string
}

// Delta is the set of changes produced by one stage. Zero-valued fields mean
// "unchanged"; Append* fields are appended to the corresponding history.
type Delta struct {
	Commentary           *CommentaryUpdate
	CombinedCommentary   *string
	KeyPoints            []KeyPoint
	AppendTranslation    *string
	AppendFeedback       []string
	AppendFormatFeedback []string
	Iteration            *int
	FormatIteration      *int
	Grade                *Grade
	Formatted            *bool
	Glossary             []GlossaryEntry
	PlaintextTranslation *string
}

// Apply returns a new Record with d merged in. The receiver is left
// untouched: every slice that changes is copied first, so the result never
// aliases r. Iteration counters never decrease.
func (r Record) Apply(d Delta) Record {
	out := r
	out.Version = r.Version + 1

	if d.Commentary != nil && d.Commentary.Index >= 0 && d.Commentary.Index < len(r.Commentaries) {
		out.Commentaries = append([]Commentary(nil), r.Commentaries...)
		c := out.Commentaries[d.Commentary.Index]
		c.Response = d.Commentary.Response
		c.Translation = d.Commentary.Translation
		out.Commentaries[d.Commentary.Index] = c
	}
	if d.CombinedCommentary != nil {
		out.CombinedCommentary = *d.CombinedCommentary
	}
	if d.KeyPoints != nil {
		out.KeyPoints = append([]KeyPoint(nil), d.KeyPoints...)
	}
	if d.AppendTranslation != nil {
		out.Translation = appendCopy(r.Translation, *d.AppendTranslation)
	}
	if len(d.AppendFeedback) > 0 {
		out.FeedbackHistory = appendCopy(r.FeedbackHistory, d.AppendFeedback...)
	}
	if len(d.AppendFormatFeedback) > 0 {
		out.FormatFeedbackHistory = appendCopy(r.FormatFeedbackHistory, d.AppendFormatFeedback...)
	}
	if d.Iteration != nil && *d.Iteration > r.Iteration {
		out.Iteration = *d.Iteration
	}
	if d.FormatIteration != nil && *d.FormatIteration > r.FormatIteration {
		out.FormatIteration = *d.FormatIteration
	}
	if d.Grade != nil {
		out.Grade = *d.Grade
	}
	if d.Formatted != nil {
		out.Formatted = *d.Formatted
	}
	if d.Glossary != nil {
		out.Glossary = append([]GlossaryEntry(nil), d.Glossary...)
	}
	if d.PlaintextTranslation != nil {
		out.PlaintextTranslation = *d.PlaintextTranslation
	}
	return out
}

func appendCopy(s []string, v ...string) []string {
	out := make([]string, 0, len(s)+len(v))
	out = append(out, s...)
	return append(out, v...)
}

// Passage is a finished record as seen by the corpus post-processing tools.
type Passage struct {
	Source               string          `json:"source"`
	Sanskrit             string          `json:"sanskrit"`
	Translation          string          `json:"translation"`
	PlaintextTranslation string          `json:"plaintext_translation"`
	CombinedCommentary   string          `json:"combined_commentary"`
	Glossary             []GlossaryEntry `json:"glossary"`
	WordByWord           string          `json:"word by word translation"`
}

// PassageFromRecord projects a finished Record onto a Passage.
func PassageFromRecord(r Record) Passage {
	return Passage{
		Source:               r.Source,
		Sanskrit:             r.Sanskrit,
		Translation:          r.CurrentDraft(),
		PlaintextTranslation: r.PlaintextTranslation,
		CombinedCommentary:   r.CombinedCommentary,
		Glossary:             r.Glossary,
	}
}

// Str returns a pointer to s.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int) *int { return &n }

// Bool returns a pointer to b.
func Bool(b bool) *bool { return &b }
