// Package dataset loads source passages from JSON input files and writes the
// final corpus.
package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/valpere/tibtran/internal"
)

// ErrNoSource is returned for an input item without any source text field.
var ErrNoSource = errors.New("item has no source text")

var (
	sourceFields   = []string{"root_display_text", "source"}
	sanskritFields = []string{"sanskrit_text", "sanskrit"}
	commentaryKeys = [][]string{
		{"commentary_1", "commentary1"},
		{"commentary_2", "commentary2"},
		{"commentary_3", "commentary3"},
	}
)

// LoadRecords reads a JSON array of input items, or a single item, and turns
// each into a fresh Record targeting language. Unknown fields are kept in
// Record.Extra.
func LoadRecords(path, language string) ([]internal.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	items, err := decodeItems(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	records := make([]internal.Record, 0, len(items))
	for i, item := range items {
		rec, err := recordFromItem(item, language)
		if err != nil {
			return nil, fmt.Errorf("%s item %d: %w", path, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeItems(data []byte) ([]map[string]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one map[string]json.RawMessage
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, err
		}
		return []map[string]json.RawMessage{one}, nil
	}
	var many []map[string]json.RawMessage
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, err
	}
	return many, nil
}

func recordFromItem(item map[string]json.RawMessage, language string) (internal.Record, error) {
	used := make(map[string]bool)
	text := func(keys ...string) (string, error) {
		for _, k := range keys {
			raw, ok := item[k]
			if !ok {
				continue
			}
			used[k] = true
			var s *string
			if err := json.Unmarshal(raw, &s); err != nil {
				return "", fmt.Errorf("field %s: %w", k, err)
			}
			if s != nil {
				return *s, nil
			}
		}
		return "", nil
	}

	rec := internal.Record{Language: language}
	var err error
	if rec.Source, err = text(sourceFields...); err != nil {
		return rec, err
	}
	if strings.TrimSpace(rec.Source) == "" {
		return rec, ErrNoSource
	}
	if rec.Sanskrit, err = text(sanskritFields...); err != nil {
		return rec, err
	}
	for _, keys := range commentaryKeys {
		c, err := text(keys...)
		if err != nil {
			return rec, err
		}
		rec.Commentaries = append(rec.Commentaries, internal.Commentary{Text: c})
	}
	if lang, err := text("language"); err == nil && lang != "" && language == "" {
		rec.Language = lang
	}
	if id, err := text("id"); err == nil {
		rec.ID = id
	}

	if raw, ok := item["glossary"]; ok {
		used["glossary"] = true
		if err := json.Unmarshal(raw, &rec.Glossary); err != nil {
			return rec, fmt.Errorf("field glossary: %w", err)
		}
	}

	for k, raw := range item {
		if used[k] {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return rec, fmt.Errorf("field %s: %w", k, err)
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}
	return rec, nil
}

// WriteCorpus writes passages as an indented JSON array with the final
// corpus columns.
func WriteCorpus(path string, passages []internal.Passage) error {
	type row struct {
		Source               string `json:"source"`
		PlaintextTranslation string `json:"plaintext_translation"`
		CombinedCommentary   string `json:"combined_commentary"`
		Translation          string `json:"translation"`
		WordByWord           string `json:"word by word translation"`
	}
	rows := make([]row, len(passages))
	for i, p := range passages {
		rows[i] = row{
			Source:               p.Source,
			PlaintextTranslation: p.PlaintextTranslation,
			CombinedCommentary:   p.CombinedCommentary,
			Translation:          p.Translation,
			WordByWord:           p.WordByWord,
		}
	}
	return WriteJSON(path, rows)
}

// WriteJSON writes v indented by four spaces without HTML escaping.
func WriteJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
