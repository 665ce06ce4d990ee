package glossary

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/jsonl"
)

// Columns is the fixed column order of glossary CSV files.
var Columns = []string{"tibetan_term", "translation", "category", "context", "commentary_reference", "entity_category"}

func row(e internal.GlossaryEntry) []string {
	return []string{e.TibetanTerm, e.Translation, e.Category, e.Context, e.CommentaryReference, e.EntityCategory}
}

// CSVSink appends glossary rows to one file. Appends are serialised, so it
// may be shared by concurrent workflow runs.
type CSVSink struct {
	mu   sync.Mutex
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

func (s *CSVSink) Path() string { return s.path }

// Append writes entries at the end of the file. The header is written only
// when the file is new or empty.
func (s *CSVSink) Append(entries []internal.GlossaryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open glossary csv: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat glossary csv: %w", err)
	}

	if err := writeRows(f, entries, info.Size() == 0); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeRows(w io.Writer, entries []internal.GlossaryEntry, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(Columns); err != nil {
			return fmt.Errorf("write glossary header: %w", err)
		}
	}
	for _, e := range entries {
		if err := cw.Write(row(e)); err != nil {
			return fmt.Errorf("write glossary row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV replaces path with a glossary CSV holding entries.
func WriteCSV(path string, entries []internal.GlossaryEntry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create glossary csv: %w", err)
	}
	if err := writeRows(f, entries, true); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV loads a glossary CSV. Columns are matched by header name.
func ReadCSV(path string) ([]internal.GlossaryEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open glossary csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read glossary header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	get := func(rec []string, col string) string {
		if i, ok := idx[col]; ok && i < len(rec) {
			return rec[i]
		}
		return ""
	}

	var out []internal.GlossaryEntry
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return out, fmt.Errorf("read glossary row: %w", err)
		}
		out = append(out, internal.GlossaryEntry{
			TibetanTerm:         get(rec, "tibetan_term"),
			Translation:         get(rec, "translation"),
			Category:            get(rec, "category"),
			Context:             get(rec, "context"),
			CommentaryReference: get(rec, "commentary_reference"),
			EntityCategory:      get(rec, "entity_category"),
		})
	}
	return out, nil
}

// CompileStats summarises a Compile run.
type CompileStats struct {
	States  int
	Entries int
	Unique  int
}

// Compile gathers the glossaries stored in JSONL state files, removes
// duplicate (term, translation) pairs and writes them to output.
func Compile(inputs []string, output string, logger *zap.Logger) (CompileStats, error) {
	var stats CompileStats
	if logger == nil {
		logger = zap.NewNop()
	}

	type state struct {
		Glossary []internal.GlossaryEntry `json:"glossary"`
	}

	var all []internal.GlossaryEntry
	for _, in := range inputs {
		states, err := jsonl.Read[state](in, logger)
		if err != nil {
			return stats, err
		}
		logger.Info("loaded states", zap.String("file", in), zap.Int("states", len(states)))
		stats.States += len(states)
		for _, s := range states {
			all = append(all, s.Glossary...)
		}
	}
	stats.Entries = len(all)
	if len(all) == 0 {
		return stats, nil
	}

	unique := Dedupe(all)
	stats.Unique = len(unique)
	if err := WriteCSV(output, unique); err != nil {
		return stats, err
	}
	return stats, nil
}
