package commentary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/llm/llmtest"
)

func TestTranslate_EmptyCommentaryMakesNoCalls(t *testing.T) {
	fake := llmtest.New()
	tr := NewTranslator(fake, nil)

	for _, c := range []string{"", "   ", "\n\t"} {
		resp, translation, err := tr.Translate(context.Background(), "skt", "src", c, "English")
		require.NoError(t, err)
		assert.Nil(t, resp)
		assert.Nil(t, translation)
	}
	assert.Equal(t, 0, fake.Calls())
}

func TestTranslate_GeneratesThenExtracts(t *testing.T) {
	fake := llmtest.New().
		On("Commentary to translate", "Here is the commentary: The master explains that...").
		On("Extract the translation", `{"extracted_translation":"The master explains that..."}`)
	tr := NewTranslator(fake, nil)

	resp, translation, err := tr.Translate(context.Background(), "skt", "src", "འགྲེལ་པ།", "English")
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, translation)
	assert.Equal(t, "The master explains that...", *translation)
	assert.Equal(t, 2, fake.Calls())
}

func TestTranslate_PropagatesErrors(t *testing.T) {
	fake := llmtest.New().Fail("Commentary to translate", errors.New("quota"))
	_, _, err := NewTranslator(fake, nil).Translate(context.Background(), "", "src", "text", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestStage_SetsCommentaryDelta(t *testing.T) {
	fake := llmtest.New().
		On("Commentary to translate", "raw").
		On("Extract the translation", `{"extracted_translation":"clean"}`)
	rec := internal.Record{Source: "src", Commentaries: []internal.Commentary{{Text: ""}, {Text: "second"}}}

	d, err := NewTranslator(fake, nil).Stage(context.Background(), rec, 1)
	require.NoError(t, err)
	next := rec.Apply(d)
	assert.Nil(t, next.Commentaries[0].Translation)
	require.NotNil(t, next.Commentaries[1].Translation)
	assert.Equal(t, "clean", *next.Commentaries[1].Translation)
	assert.Nil(t, rec.Commentaries[1].Translation, "input record must not change")
}

func TestAggregate_WithCommentaries(t *testing.T) {
	fake := llmtest.New().
		On("Create a Combined commentary", "Combined: line by line").
		On("extract all key points", `{"points":[{"concept":"bodhicitta","terminology":["awakening mind"],"context":"aspiration","implications":["compassion"]}]}`)
	tr := "first translation"
	rec := internal.Record{Source: "src", Commentaries: []internal.Commentary{{Text: "c1", Translation: &tr}, {Text: ""}}}

	d, err := NewAggregator(fake, nil).Aggregate(context.Background(), rec)
	require.NoError(t, err)
	require.NotNil(t, d.CombinedCommentary)
	assert.Len(t, d.KeyPoints, 1)
	assert.Equal(t, "bodhicitta", d.KeyPoints[0].Concept)
	assert.Equal(t, 1, fake.CallsMatching("Commentary 1:\nfirst translation"))
	assert.Equal(t, 0, fake.CallsMatching("No traditional commentary"))
}

func TestAggregate_ZeroShotWithoutCommentary(t *testing.T) {
	fake := llmtest.New().
		On("No traditional commentary", "My own commentary.").
		On("extract all key points", `{"points":[]}`)
	rec := internal.Record{Source: "src", Commentaries: []internal.Commentary{{}, {}, {}}}

	d, err := NewAggregator(fake, nil).Aggregate(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "My own commentary.", *d.CombinedCommentary)
	assert.NotNil(t, d.KeyPoints)
	assert.Empty(t, d.KeyPoints)
	assert.Equal(t, 0, fake.CallsMatching("Create a Combined commentary"))
}
