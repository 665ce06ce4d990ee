package evaluator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/llm/llmtest"
)

const verifyReply = `{"matches_commentary":false,"missing_concepts":"tree metaphor","misinterpretations":"","context_accuracy":"ok"}`

func draftRecord() internal.Record {
	return internal.Record{
		ID:                 "r1",
		Source:             "src",
		CombinedCommentary: "the awakening mind is like a tree",
		Translation:        []string{"draft"},
		FeedbackHistory:    []string{"Iteration 0 - Initial Translation:\nraw\n"},
		Iteration:          1,
	}
}

func TestEvaluate_AppendsFeedbackAndFormatIssue(t *testing.T) {
	fake := llmtest.New().
		On("Verify this translation against the commentary", verifyReply).
		On("Evaluate this translation comprehensively",
			`{"grade":"good","feedback":"mention the tree","format_matched":false,"feedback_format":"keep two lines"}`)

	rec := draftRecord()
	d, err := New(fake, nil).Evaluate(context.Background(), rec)
	require.NoError(t, err)
	next := rec.Apply(d)

	assert.Equal(t, internal.GradeGood, next.Grade)
	assert.False(t, next.Formatted)
	require.Len(t, next.FeedbackHistory, 2)
	assert.Equal(t, "Iteration 1 - Grade: good\nFeedback: mention the tree\n", next.FeedbackHistory[1])
	assert.Equal(t, []string{"Formatting issue: keep two lines"}, next.FormatFeedbackHistory)
	assert.Equal(t, 1, next.Iteration, "evaluation does not advance the content counter")
	assert.Equal(t, 1, fake.CallsMatching("tree metaphor"), "verification result is passed to the grader")
}

func TestEvaluate_FormatMatched(t *testing.T) {
	fake := llmtest.New().
		On("Verify this translation against the commentary", verifyReply).
		On("Evaluate this translation comprehensively", `{"grade":"great","feedback":"","format_matched":true,"feedback_format":""}`)

	rec := draftRecord()
	d, err := New(fake, nil).Evaluate(context.Background(), rec)
	require.NoError(t, err)
	next := rec.Apply(d)

	assert.True(t, next.Formatted)
	assert.Empty(t, next.FormatFeedbackHistory)
	assert.Equal(t, internal.GradeGreat, next.Grade)
}

func TestEvaluate_RejectsUnknownGrade(t *testing.T) {
	fake := llmtest.New().
		On("Verify this translation against the commentary", verifyReply).
		On("Evaluate this translation comprehensively", `{"grade":"excellent","feedback":""}`)

	_, err := New(fake, nil).Evaluate(context.Background(), draftRecord())
	require.Error(t, err)
}

func TestEvaluate_RequiresDraft(t *testing.T) {
	fake := llmtest.New()
	_, err := New(fake, nil).Evaluate(context.Background(), internal.Record{ID: "x"})
	require.Error(t, err)
	assert.Equal(t, 0, fake.Calls())
}

func TestReviewFormat(t *testing.T) {
	fake := llmtest.New().On("Compare the line and paragraph structure",
		`{"format_matched":false,"feedback_format":"split the verse"}`,
		`{"format_matched":true,"feedback_format":""}`)
	ev := New(fake, nil)

	rec := draftRecord()
	d, err := ev.ReviewFormat(context.Background(), rec)
	require.NoError(t, err)
	rec = rec.Apply(d)
	assert.False(t, rec.Formatted)
	assert.Equal(t, 1, rec.FormatIteration)
	assert.Equal(t, []string{"Formatting issue: split the verse"}, rec.FormatFeedbackHistory)

	d, err = ev.ReviewFormat(context.Background(), rec)
	require.NoError(t, err)
	rec = rec.Apply(d)
	assert.True(t, rec.Formatted)
	assert.Equal(t, 1, rec.FormatIteration)
	assert.Equal(t, 1, fake.CallsMatching("Formatting issue: split the verse"))
}

func TestRouteStructured(t *testing.T) {
	assert.Equal(t, internal.RouteAccepted, RouteStructured(internal.Record{Formatted: true}, 6))
	assert.Equal(t, internal.RouteRejected, RouteStructured(internal.Record{FormatIteration: 5}, 6))
	assert.Equal(t, internal.RouteAccepted, RouteStructured(internal.Record{FormatIteration: 6}, 6))
	assert.Equal(t, internal.RouteAccepted, RouteStructured(internal.Record{FormatIteration: 6}, 0))
	assert.Equal(t, internal.RouteAccepted, RouteStructured(internal.Record{FormatIteration: 2}, 2))
}
