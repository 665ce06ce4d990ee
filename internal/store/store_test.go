package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/valpere/tibtran/internal"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func accepted(source, language, draft string) internal.Record {
	return internal.Record{
		ID:          "rec-1",
		Source:      source,
		Language:    language,
		Translation: []string{"first", draft},
		Iteration:   2,
		Grade:       internal.GradeGreat,
	}
}

func TestStore_New(t *testing.T) {
	s := newStore(t)
	if s == nil {
		t.Fatal("expected non-nil store")
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/path/test.db")
	if err == nil {
		t.Error("expected error for invalid path")
	}
}

func TestStore_GetRecord_Miss(t *testing.T) {
	s := newStore(t)

	_, found, err := s.GetRecord(context.Background(), "ཀ", "English")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if found {
		t.Error("expected cache miss")
	}
}

func TestStore_GetRecord_Hit(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SaveRecord(ctx, accepted("  ཀ་ཁ  ", "English", "ka kha"), "run"); err != nil {
		t.Fatalf("SaveRecord failed: %v", err)
	}

	rec, found, err := s.GetRecord(ctx, "ཀ་ཁ", "English")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if !found {
		t.Fatal("expected cache hit")
	}
	if rec.CurrentDraft() != "ka kha" {
		t.Errorf("expected 'ka kha', got %q", rec.CurrentDraft())
	}
	if rec.Iteration != 2 || rec.Grade != internal.GradeGreat {
		t.Errorf("record not restored: %+v", rec)
	}

	if _, found, _ := s.GetRecord(ctx, "ཀ་ཁ", "French"); found {
		t.Error("expected miss for another language")
	}

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].UsageCount != 2 {
		t.Errorf("expected usage count 2, got %d", entries[0].UsageCount)
	}
	if entries[0].RunName != "run" || entries[0].FinalText != "ka kha" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestStore_SaveRecord_Replaces(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_ = s.SaveRecord(ctx, accepted("ཀ", "English", "old"), "run")
	_ = s.SaveRecord(ctx, accepted("ཀ", "English", "new"), "run")

	rec, _, err := s.GetRecord(ctx, "ཀ", "English")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec.CurrentDraft() != "new" {
		t.Errorf("expected 'new', got %q", rec.CurrentDraft())
	}
}

func TestStore_GetRecord_Invalidated(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_ = s.SaveRecord(ctx, accepted("ཀ", "English", "ka"), "")
	entries, _ := s.ListMemory(ctx)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if err := s.InvalidateMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateMemory failed: %v", err)
	}
	if _, found, _ := s.GetRecord(ctx, "ཀ", "English"); found {
		t.Error("expected miss for invalidated entry")
	}
}

func TestStore_SimpleCache(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.SaveSimple(ctx, "ཀ", "English", "llm", "ka"); err != nil {
		t.Fatalf("SaveSimple failed: %v", err)
	}

	text, found, err := s.GetSimple(ctx, "ཀ", "English", "llm")
	if err != nil || !found || text != "ka" {
		t.Errorf("expected hit 'ka', got %q found=%v err=%v", text, found, err)
	}
	if _, found, _ := s.GetSimple(ctx, "ཀ", "English", "google"); found {
		t.Error("engines must not share cache entries")
	}
}

func TestStore_Stats(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_ = s.SaveRecord(ctx, accepted("ཀ", "English", "ka"), "")
	_ = s.SaveRecord(ctx, accepted("ཁ", "English", "kha"), "")
	_ = s.SaveSimple(ctx, "ག", "English", "llm", "ga")
	_ = s.AddTerm(ctx, "English", "བྱང་ཆུབ་སེམས", "awakening mind")

	entries, _ := s.ListMemory(ctx)
	_ = s.InvalidateMemory(ctx, entries[0].ID)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 2 {
		t.Errorf("expected 2 total entries, got %d", stats.TotalEntries)
	}
	if stats.ActiveEntries != 1 || stats.InvalidEntries != 1 {
		t.Errorf("expected 1 active and 1 invalid, got %d and %d", stats.ActiveEntries, stats.InvalidEntries)
	}
	if stats.SimpleEntries != 1 || stats.Terms != 1 {
		t.Errorf("expected 1 simple entry and 1 term, got %d and %d", stats.SimpleEntries, stats.Terms)
	}
}

func TestStore_DeleteMemory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_ = s.SaveRecord(ctx, accepted("ཀ", "English", "ka"), "")
	entries, _ := s.ListMemory(ctx)

	if err := s.DeleteMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	if err := s.DeleteMemory(ctx, entries[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	entries, _ = s.ListMemory(ctx)
	if len(entries) != 0 {
		t.Errorf("expected empty memory, got %d entries", len(entries))
	}
}

func TestStore_ClearMemory(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_ = s.SaveRecord(ctx, accepted("ཀ", "English", "ka"), "")
	_ = s.SaveRecord(ctx, accepted("ཁ", "English", "kha"), "")
	_ = s.SaveSimple(ctx, "ག", "English", "llm", "ga")

	n, err := s.ClearMemory(ctx)
	if err != nil {
		t.Fatalf("ClearMemory failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows removed, got %d", n)
	}
}

func TestStore_Runs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateRun(ctx, "tibetan_batch", "English", 10)
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	if err := s.FinishRun(ctx, id, "completed", 7, 2, 1); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := s.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Name != "tibetan_batch" || run.Status != "completed" {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.Total != 10 || run.Succeeded != 7 || run.Failed != 2 || run.Skipped != 1 {
		t.Errorf("unexpected counters: %+v", run)
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := s.FinishRun(ctx, "missing", "failed", 0, 0, 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Terms(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.SaveTerms(ctx, "English", []internal.StandardizedTerm{
		{TibetanTerm: "བྱང་ཆུབ་སེམས", StandardTranslation: "bodhicitta", Rationale: "common"},
		{TibetanTerm: "སྟོང་པ་ཉིད", StandardTranslation: "emptiness"},
	})
	if err != nil {
		t.Fatalf("SaveTerms failed: %v", err)
	}
	// Same term again replaces the earlier choice.
	if err := s.AddTerm(ctx, "English", "བྱང་ཆུབ་སེམས", "awakening mind"); err != nil {
		t.Fatalf("AddTerm failed: %v", err)
	}
	_ = s.AddTerm(ctx, "French", "སྟོང་པ་ཉིད", "vacuité")

	terms, err := s.StandardizedTerms(ctx, "English")
	if err != nil {
		t.Fatalf("StandardizedTerms failed: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("expected 2 English terms, got %d", len(terms))
	}
	got := map[string]string{}
	for _, term := range terms {
		got[term.TibetanTerm] = term.StandardTranslation
	}
	if got["བྱང་ཆུབ་སེམས"] != "awakening mind" {
		t.Errorf("expected replaced term, got %q", got["བྱང་ཆུབ་སེམས"])
	}

	all, err := s.ListTerms(ctx, "")
	if err != nil {
		t.Fatalf("ListTerms failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 terms, got %d", len(all))
	}

	if err := s.DeleteTerm(ctx, all[0].ID); err != nil {
		t.Fatalf("DeleteTerm failed: %v", err)
	}
	if err := s.DeleteTerm(ctx, all[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  hello  ", "hello"},
		{"\u0F68\u0F73", "\u0F68\u0F71\u0F72"},
		{"", ""},
	}

	for _, tt := range tests {
		result := normalizeText(tt.input)
		if result != tt.expected {
			t.Errorf("normalizeText(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
