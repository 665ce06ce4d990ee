// Package store persists accepted records, run bookkeeping and the
// standardized terminology in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/valpere/tibtran/internal"
)

// ErrNotFound is returned by lookups by ID that match nothing.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Batch workers write concurrently; one connection serialises them.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	-- translation_memory holds every accepted record, keyed by source and target language
	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		final_text TEXT NOT NULL,
		grade TEXT,
		iterations INTEGER DEFAULT 0,
		record_json TEXT NOT NULL,
		run_name TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, target_lang)
	);

	-- simple_cache stores zero-shot translations of whole fields
	CREATE TABLE IF NOT EXISTS simple_cache (
		id TEXT PRIMARY KEY,
		source_text TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		engine TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, target_lang, engine)
	);

	-- runs tracks batch translation runs
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		run_name TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		total INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- standardized_terms stores the canonical translation of each Tibetan term
	CREATE TABLE IF NOT EXISTS standardized_terms (
		id TEXT PRIMARY KEY,
		target_lang TEXT NOT NULL,
		tibetan_term TEXT NOT NULL,
		standard_translation TEXT NOT NULL,
		rationale TEXT,
		target_audience TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(target_lang, tibetan_term)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, target_lang);
	CREATE INDEX IF NOT EXISTS idx_simple_lookup ON simple_cache(source_text, target_lang, engine);
	CREATE INDEX IF NOT EXISTS idx_terms_lookup ON standardized_terms(target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

// GetRecord returns the accepted record for source in targetLang.
func (s *Store) GetRecord(ctx context.Context, sourceText, targetLang string) (internal.Record, bool, error) {
	var rec internal.Record
	var raw string
	var invalidated bool

	key := normalizeText(sourceText)
	err := s.db.QueryRowContext(ctx,
		`SELECT record_json, invalidated FROM translation_memory WHERE source_text = ? AND target_lang = ?`,
		key, targetLang).Scan(&raw, &invalidated)

	if errors.Is(err, sql.ErrNoRows) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}

	if invalidated {
		return rec, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, false, fmt.Errorf("decode stored record: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND target_lang = ?`,
		time.Now(), key, targetLang)

	return rec, true, err
}

// SaveRecord stores an accepted record, replacing any earlier one for the
// same source and language.
func (s *Store) SaveRecord(ctx context.Context, rec internal.Record, runName string) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory (id, source_text, target_lang, final_text, grade, iterations, record_json, run_name, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		uuid.NewString(), normalizeText(rec.Source), rec.Language, rec.CurrentDraft(), string(rec.Grade), rec.Iteration, string(raw), runName, time.Now(), time.Now())
	return err
}

// GetSimple returns a cached zero-shot translation.
func (s *Store) GetSimple(ctx context.Context, sourceText, targetLang, engine string) (string, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx,
		`SELECT translated_text FROM simple_cache WHERE source_text = ? AND target_lang = ? AND engine = ?`,
		normalizeText(sourceText), targetLang, engine).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	_, _ = s.db.ExecContext(ctx,
		`UPDATE simple_cache SET last_used = ? WHERE source_text = ? AND target_lang = ? AND engine = ?`,
		time.Now(), normalizeText(sourceText), targetLang, engine)
	return text, true, nil
}

// SaveSimple stores a zero-shot translation.
func (s *Store) SaveSimple(ctx context.Context, sourceText, targetLang, engine, translated string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO simple_cache (id, source_text, target_lang, engine, translated_text, created_at, last_used) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), normalizeText(sourceText), targetLang, engine, translated, time.Now(), time.Now())
	return err
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID          string
	SourceText  string
	TargetLang  string
	FinalText   string
	Grade       string
	Iterations  int
	RunName     string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// CacheStats summarises translation memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
	SimpleEntries  int
	Terms          int
}

func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	return s.expectRow(s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id))
}

// DeleteMemory permanently removes a translation memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	return s.expectRow(s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id))
}

// ClearMemory removes all translation memory and zero-shot cache entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	res, err = s.db.ExecContext(ctx, `DELETE FROM simple_cache`)
	if err != nil {
		return n, err
	}
	m, err := res.RowsAffected()
	return n + m, err
}

// ListMemory returns all translation memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, target_lang, final_text, COALESCE(grade, ''), iterations, COALESCE(run_name, ''), usage_count, invalidated, last_used FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.TargetLang, &e.FinalText, &e.Grade, &e.Iterations, &e.RunName, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the store.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0),
			(SELECT COUNT(*) FROM simple_cache),
			(SELECT COUNT(*) FROM standardized_terms)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
		&stats.SimpleEntries,
		&stats.Terms,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// Run is one batch translation run.
type Run struct {
	ID         string
	Name       string
	TargetLang string
	Status     string
	Total      int
	Succeeded  int
	Failed     int
	Skipped    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreateRun records the start of a run and returns its ID.
func (s *Store) CreateRun(ctx context.Context, name, targetLang string, total int) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, run_name, target_lang, total, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, targetLang, total, time.Now(), time.Now())
	return id, err
}

// FinishRun stores the final counters of a run.
func (s *Store) FinishRun(ctx context.Context, id, status string, succeeded, failed, skipped int) error {
	return s.expectRow(s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, succeeded = ?, failed = ?, skipped = ?, updated_at = ? WHERE id = ?`,
		status, succeeded, failed, skipped, time.Now(), id))
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var r Run
	err := s.db.QueryRowContext(ctx,
		`SELECT id, run_name, target_lang, status, total, succeeded, failed, skipped, created_at, updated_at FROM runs WHERE id = ?`,
		id).Scan(&r.ID, &r.Name, &r.TargetLang, &r.Status, &r.Total, &r.Succeeded, &r.Failed, &r.Skipped, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Term is a row of the standardized_terms table.
type Term struct {
	ID         string
	TargetLang string
	internal.StandardizedTerm
	CreatedAt time.Time
}

// SaveTerms inserts or replaces the standardized terms of targetLang.
func (s *Store) SaveTerms(ctx context.Context, targetLang string, terms []internal.StandardizedTerm) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, t := range terms {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO standardized_terms (id, target_lang, tibetan_term, standard_translation, rationale, target_audience, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), targetLang, normalizeText(t.TibetanTerm), t.StandardTranslation, t.Rationale, t.TargetAudience, time.Now()); err != nil {
			tx.Rollback()
			return fmt.Errorf("save term %q: %w", t.TibetanTerm, err)
		}
	}
	return tx.Commit()
}

// AddTerm inserts or replaces a single standardized term.
func (s *Store) AddTerm(ctx context.Context, targetLang, tibetanTerm, translation string) error {
	return s.SaveTerms(ctx, targetLang, []internal.StandardizedTerm{{TibetanTerm: tibetanTerm, StandardTranslation: translation}})
}

// ListTerms returns all standardized terms, optionally filtered by target
// language (pass "" to return everything).
func (s *Store) ListTerms(ctx context.Context, targetLang string) ([]Term, error) {
	query := `SELECT id, target_lang, tibetan_term, standard_translation, COALESCE(rationale, ''), COALESCE(target_audience, ''), created_at FROM standardized_terms`
	var args []any
	if targetLang != "" {
		query += ` WHERE target_lang = ?`
		args = append(args, targetLang)
	}
	query += ` ORDER BY target_lang, tibetan_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		var t Term
		if err := rows.Scan(&t.ID, &t.TargetLang, &t.TibetanTerm, &t.StandardTranslation, &t.Rationale, &t.TargetAudience, &t.CreatedAt); err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

// StandardizedTerms returns the terms of targetLang ready for reapplication.
func (s *Store) StandardizedTerms(ctx context.Context, targetLang string) ([]internal.StandardizedTerm, error) {
	rows, err := s.ListTerms(ctx, targetLang)
	if err != nil {
		return nil, err
	}
	out := make([]internal.StandardizedTerm, len(rows))
	for i, r := range rows {
		out[i] = r.StandardizedTerm
	}
	return out, nil
}

// DeleteTerm removes a standardized term by ID.
func (s *Store) DeleteTerm(ctx context.Context, id string) error {
	return s.expectRow(s.db.ExecContext(ctx, `DELETE FROM standardized_terms WHERE id = ?`, id))
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) expectRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// normalizeText trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
