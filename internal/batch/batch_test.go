package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/jsonl"
	"github.com/valpere/tibtran/internal/llm/llmtest"
	"github.com/valpere/tibtran/internal/translator"
)

func TestPool_BoundsWorkers(t *testing.T) {
	var inFlight, peak atomic.Int32
	fn := func(ctx context.Context, input string) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		if input == "bad.json" {
			return "", errors.New("broken")
		}
		return input + ".out", nil
	}

	files := []string{"a.json", "b.json", "bad.json", "c.json", "d.json", "e.json"}
	res := NewPool(PoolConfig{Workers: 2}).Process(context.Background(), files, fn)

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 5, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Results, len(files))
	for _, r := range res.Results {
		if r.Input == "bad.json" {
			assert.Error(t, r.Err)
		} else {
			assert.Equal(t, r.Input+".out", r.Output)
		}
	}
}

func TestPool_DefaultsAndTimeout(t *testing.T) {
	p := NewPool(PoolConfig{Timeout: 20 * time.Millisecond})
	assert.Equal(t, DefaultWorkers, p.config.Workers)

	res := p.Process(context.Background(), []string{"slow.json"}, func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	require.Len(t, res.Results, 1)
	assert.ErrorIs(t, res.Results[0].Err, context.DeadlineExceeded)
}

func TestPool_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	res := NewPool(PoolConfig{Workers: 1}).Process(ctx, []string{"a", "b", "c"}, func(ctx context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", ctx.Err()
	})
	assert.Equal(t, 3, res.Failed)
}

type stubWorkflow struct {
	mu    sync.Mutex
	seen  []string
	fail  map[string]bool
	delay time.Duration
}

func (s *stubWorkflow) Run(ctx context.Context, rec internal.Record) (internal.Record, error) {
	s.mu.Lock()
	s.seen = append(s.seen, rec.Source)
	s.mu.Unlock()
	if s.fail[rec.Source] {
		return rec, errors.New("model unavailable")
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return rec, ctx.Err()
		}
	}
	rec.Translation = []string{"translated " + rec.Source}
	return rec, nil
}

func records(sources ...string) []internal.Record {
	out := make([]internal.Record, len(sources))
	for i, s := range sources {
		out[i] = internal.Record{ID: s, Source: s, Language: "English"}
	}
	return out
}

func TestRunner_FailedBatchGoesToFailSink(t *testing.T) {
	dir := t.TempDir()
	wf := &stubWorkflow{fail: map[string]bool{"c": true}}
	r := NewRunner(wf, dir, nil)

	sum, err := r.Run(context.Background(), records("a", "b", "c", "d", "e"), 2, "run")
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Batches)
	assert.Equal(t, 1, sum.FailedBatches)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, filepath.Join(dir, "run.jsonl"), sum.Output)

	done, err := jsonl.Read[internal.Record](sum.Output, nil)
	require.NoError(t, err)
	var sources []string
	for _, rec := range done {
		sources = append(sources, rec.Source)
		assert.Equal(t, "translated "+rec.Source, rec.CurrentDraft())
	}
	assert.Equal(t, []string{"a", "b", "e"}, sources)

	failed, err := jsonl.Read[internal.Record](filepath.Join(dir, "run_fail.jsonl"), nil)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	assert.Equal(t, "c", failed[0].Source)
	assert.Equal(t, "d", failed[1].Source)
	assert.Empty(t, failed[1].Translation, "fail sink holds the input records")
}

func TestRunner_NoRecords(t *testing.T) {
	_, err := NewRunner(&stubWorkflow{}, t.TempDir(), nil).Run(context.Background(), nil, 2, "run")
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestRunner_DefaultRunName(t *testing.T) {
	dir := t.TempDir()
	sum, err := NewRunner(&stubWorkflow{}, dir, nil).Run(context.Background(), records("a"), 0, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultRunName+".jsonl"), sum.Output)
	_, err = os.Stat(sum.FailOutput)
	assert.True(t, os.IsNotExist(err), "fail sink is only created on failure")
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wf := &stubWorkflow{delay: time.Second}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	dir := t.TempDir()
	_, err := NewRunner(wf, dir, nil).Run(ctx, records("a", "b", "c"), 1, "run")
	require.ErrorIs(t, err, context.Canceled)

	_, statErr := os.Stat(filepath.Join(dir, "run_fail.jsonl"))
	assert.True(t, os.IsNotExist(statErr), "cancellation is not a batch failure")
}

type memory struct {
	mu    sync.Mutex
	saved map[string]internal.Record
}

func (m *memory) GetRecord(_ context.Context, source, language string) (internal.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.saved[source+"|"+language]
	return rec, ok, nil
}

func (m *memory) SaveRecord(_ context.Context, rec internal.Record, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[rec.Source+"|"+rec.Language] = rec
	return nil
}

func TestRunner_ResumesFromMemory(t *testing.T) {
	mem := &memory{saved: map[string]internal.Record{}}
	dir := t.TempDir()

	first := &stubWorkflow{fail: map[string]bool{"c": true}}
	_, err := NewRunner(first, dir, nil).WithMemory(mem).Run(context.Background(), records("a", "b", "c"), 2, "run")
	require.NoError(t, err)
	assert.Len(t, mem.saved, 2)

	second := &stubWorkflow{}
	sum, err := NewRunner(second, dir, nil).WithMemory(mem).Run(context.Background(), records("a", "b", "c"), 2, "run")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Skipped)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, []string{"c"}, second.seen)
}

func TestSelectFields(t *testing.T) {
	tests := []struct {
		root, commentary bool
		want             Fields
		kind             string
	}{
		{false, false, Fields{Commentary: true}, "commentary"},
		{true, false, Fields{Root: true}, "root"},
		{false, true, Fields{Commentary: true}, "commentary"},
		{true, true, Fields{Root: true, Commentary: true}, "full"},
	}
	for _, tt := range tests {
		got := SelectFields(tt.root, tt.commentary)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.kind, got.Kind())
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "data/text_translated_full_simplified_chinese.json",
		OutputPath("data/text.json", "Simplified Chinese", Fields{Root: true, Commentary: true}))
	assert.Equal(t, "text_translated_commentary_english",
		OutputPath("text", "English", Fields{Commentary: true}))

	root, commentary := FieldNames("Spanish")
	assert.Equal(t, "root_spanish", root)
	assert.Equal(t, "commentary_spanish", commentary)
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSimpleJob_CommentaryOnly(t *testing.T) {
	fake := llmtest.New().On("ཁ", "The commentary")
	input := writeInput(t, `[{"root":"ཀ","commentary":"ཁ","page":3},{"root":"ག","commentary":"  "}]`)

	job := NewSimpleJob(translator.NewLLMService(fake), SelectFields(false, false), "English", nil)
	output, err := job.ProcessFile(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(output, "input_translated_commentary_english.json"))
	assert.Equal(t, 1, fake.Calls(), "blank fields are not sent")

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	want := `[
  {
    "root": "ཀ",
    "commentary": "ཁ",
    "page": 3,
    "commentary_english": "The commentary"
  },
  {
    "root": "ག",
    "commentary": "  ",
    "commentary_english": ""
  }
]
`
	assert.Equal(t, want, string(b))
}

func TestSimpleJob_FullSingleObject(t *testing.T) {
	fake := llmtest.New().On("ཀ", "root text").On("ཁ", "commentary text")
	input := writeInput(t, `{"root":"ཀ","commentary":"ཁ"}`)

	job := NewSimpleJob(translator.NewLLMService(fake), SelectFields(true, true), "French", nil)
	output, err := job.ProcessFile(context.Background(), input)
	require.NoError(t, err)

	b, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, `{
  "root": "ཀ",
  "commentary": "ཁ",
  "commentary_french": "commentary text",
  "root_french": "root text"
}
`, string(b))
}

func TestSimpleJob_FailureWritesNothing(t *testing.T) {
	fake := llmtest.New().Fail("Translate", errors.New("quota"))
	input := writeInput(t, `[{"commentary":"ཁ"}]`)

	job := NewSimpleJob(translator.NewLLMService(fake), Fields{Commentary: true}, "English", nil)
	_, err := job.ProcessFile(context.Background(), input)
	require.Error(t, err)

	_, statErr := os.Stat(OutputPath(input, "English", Fields{Commentary: true}))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSimpleJob_InvalidJSON(t *testing.T) {
	job := NewSimpleJob(translator.NewLLMService(llmtest.New()), Fields{Commentary: true}, "English", nil)
	_, err := job.ProcessFile(context.Background(), writeInput(t, `[{"commentary":`))
	assert.ErrorContains(t, err, "not a valid JSON file")
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]string
}

func (c *mapCache) GetSimple(_ context.Context, source, language, engine string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[source+language+engine]
	return v, ok, nil
}

func (c *mapCache) SaveSimple(_ context.Context, source, language, engine, translated string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[source+language+engine] = translated
	return nil
}

func TestSimpleJob_Cache(t *testing.T) {
	fake := llmtest.New().On("ཁ", "cached commentary")
	cache := &mapCache{items: map[string]string{}}
	input := writeInput(t, `[{"commentary":"ཁ"},{"commentary":"ཁ"}]`)

	job := NewSimpleJob(translator.NewLLMService(fake), Fields{Commentary: true}, "English", nil).WithCache(cache)
	_, err := job.ProcessFile(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.Calls())
}
