package jsonl

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/tibtran/internal"
)

func sampleRecord() internal.Record {
	resp, tr := "raw reply", "commentary translation"
	return internal.Record{
		ID:       "rec-1",
		Version:  7,
		Source:   "བྱང་ཆུབ་སེམས་ཀྱི་ལྗོན་ཤིང་",
		Sanskrit: "bodhicittadruma",
		Language: "English",
		Commentaries: []internal.Commentary{
			{Text: "འགྲེལ་པ", Response: &resp, Translation: &tr},
			{Text: ""},
		},
		CombinedCommentary: "combined <b>commentary</b> & notes",
		KeyPoints: []internal.KeyPoint{
			{Concept: "bodhicitta", Terminology: []string{"awakening mind"}, Context: "c", Implications: []string{"i"}},
		},
		Translation:           []string{"draft one", "draft two"},
		FeedbackHistory:       []string{"Iteration 0 - Initial Translation:\nraw\n"},
		FormatFeedbackHistory: []string{"Formatting issue: lines"},
		Iteration:             2,
		FormatIteration:       1,
		Grade:                 internal.GradeGood,
		Formatted:             true,
		Glossary: []internal.GlossaryEntry{
			{TibetanTerm: "བྱང་ཆུབ་སེམས", Translation: "awakening mind", Category: "doctrinal"},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	rec := sampleRecord()
	rec.Extra = map[string]any{"note": "kept"}

	require.NoError(t, Append(path, rec, rec))

	got, err := Read[internal.Record](path, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rec, got[0])
	assert.Equal(t, rec, got[1])

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<b>commentary</b> & notes", "HTML must not be escaped")
	assert.Contains(t, string(raw), "བྱང་ཆུབ་སེམས", "non-ASCII must be written as is")
}

func TestRoundTrip_UnsupportedValuesDegradeOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	rec := sampleRecord()
	rec.Extra = map[string]any{
		"note":    "kept",
		"ratio":   0.5,
		"complex": complex(1, 2),
		"nan":     math.NaN(),
		"inf":     math.Inf(1),
		"ch":      make(chan int),
		"fn":      func() {},
	}

	require.NoError(t, Append(path, rec))
	got, err := Read[internal.Record](path, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)

	back := got[0]
	extra := back.Extra
	back.Extra, rec.Extra = nil, nil
	assert.Equal(t, rec, back, "supported fields must survive unchanged")

	assert.Equal(t, "kept", extra["note"])
	assert.Equal(t, 0.5, extra["ratio"])
	assert.Equal(t, "(1+2i)", extra["complex"])
	assert.Equal(t, "NaN", extra["nan"])
	assert.Equal(t, "+Inf", extra["inf"])
	assert.IsType(t, "", extra["ch"])
	assert.True(t, strings.HasPrefix(extra["ch"].(string), "0x"))
	assert.IsType(t, "", extra["fn"])

	// A second write of the degraded record must not re-encode the strings.
	again := filepath.Join(t.TempDir(), "again.jsonl")
	require.NoError(t, Append(again, got[0]))
	got2, err := Read[internal.Record](again, nil)
	require.NoError(t, err)
	assert.Equal(t, got[0], got2[0])
}

func TestMarshal_PassesThroughOtherErrors(t *testing.T) {
	b, err := Marshal(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))
}

func TestRead_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	content := `{"id":"a","source":"x"}
not json at all

{"id":"b","source":"y"
{"id":"c","source":"z"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := Read[internal.Record](path, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "c", got[1].ID)
}

func TestRead_MissingFile(t *testing.T) {
	_, err := Read[internal.Record](filepath.Join(t.TempDir(), "nope.jsonl"), nil)
	require.Error(t, err)
}

func TestWriter_ConcurrentAppends(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "sub", "out.jsonl"))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, w.Append(map[string]int{"n": i}))
		}(i)
	}
	wg.Wait()

	got, err := Read[map[string]int](w.Path(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestFix(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.jsonl")
	content := "{\"a\":1}\n{\"b\":[1,2,],}\n{broken\n\n{\"c\":\"ཀ\"}\n"
	require.NoError(t, os.WriteFile(in, []byte(content), 0o644))

	out := FixedPath(in)
	assert.Equal(t, filepath.Join(dir, "broken_fixed.jsonl"), out)

	stats, err := Fix(in, out, nil)
	require.NoError(t, err)
	assert.Equal(t, FixStats{Valid: 2, Invalid: 2, Fixed: 1}, stats)
	assert.False(t, stats.AllValid())

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"b\":[1,2]}\n{\"c\":\"ཀ\"}\n", string(got))
}
