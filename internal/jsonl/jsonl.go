// Package jsonl reads and writes newline-delimited JSON files.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// maxLineSize bounds a single record. Finished records carry every draft and
// the whole feedback history, so lines get long.
const maxLineSize = 64 << 20

// Marshal encodes v as a single line without HTML escaping. Values that JSON
// cannot represent (channels, functions, complex numbers, NaN and infinities)
// are replaced by their fmt string form; the rest of v is encoded normally.
func Marshal(v any) ([]byte, error) {
	b, err := encode(v)
	if err == nil {
		return b, nil
	}
	var typeErr *json.UnsupportedTypeError
	var valueErr *json.UnsupportedValueError
	if !errors.As(err, &typeErr) && !errors.As(err, &valueErr) {
		return nil, err
	}
	return encode(degrade(v))
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Writer appends lines to one file. It is safe for concurrent use.
type Writer struct {
	mu   sync.Mutex
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string { return w.path }

// Append writes every value as its own line.
func (w *Writer) Append(values ...any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Append(w.path, values...)
}

// Append writes every value as its own line at the end of path, creating the
// file and its directory when needed. The file is closed before returning.
func Append(path string, values ...any) error {
	if len(values) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i, v := range values {
		b, err := Marshal(v)
		if err != nil {
			return fmt.Errorf("encode value %d: %w", i, err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read decodes every line of path into T. Blank lines are ignored and
// malformed lines are logged and skipped.
func Read[T any](path string, logger *zap.Logger) ([]T, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			logger.Warn("skipping malformed line",
				zap.String("file", path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}

// FixStats counts the outcome of Fix.
type FixStats struct {
	Valid   int
	Invalid int
	Fixed   int
}

// AllValid reports whether every line of the output is valid JSON.
func (s FixStats) AllValid() bool { return s.Invalid == s.Fixed }

// FixedPath is the default output of Fix: <dir>/<stem>_fixed.jsonl.
func FixedPath(in string) string {
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(filepath.Dir(in), stem+"_fixed.jsonl")
}

// Fix rewrites the valid lines of in to out. Lines broken only by trailing
// commas are repaired; anything else is dropped and logged.
func Fix(in, out string, logger *zap.Logger) (FixStats, error) {
	var stats FixStats
	if logger == nil {
		logger = zap.NewNop()
	}

	src, err := os.Open(in)
	if err != nil {
		return stats, fmt.Errorf("open %s: %w", in, err)
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return stats, fmt.Errorf("create %s: %w", out, err)
	}
	w := bufio.NewWriter(dst)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var v any
		err := json.Unmarshal([]byte(text), &v)
		if err == nil {
			if err := writeLine(w, v); err != nil {
				dst.Close()
				return stats, err
			}
			stats.Valid++
			continue
		}
		stats.Invalid++
		logger.Warn("invalid JSON line", zap.Int("line", line), zap.Error(err), zap.String("head", head(text, 100)))

		repaired := strings.NewReplacer(",}", "}", ",]", "]").Replace(text)
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			logger.Warn("could not fix line", zap.Int("line", line), zap.Error(err))
			continue
		}
		if err := writeLine(w, v); err != nil {
			dst.Close()
			return stats, err
		}
		stats.Fixed++
	}
	if err := scanner.Err(); err != nil {
		dst.Close()
		return stats, fmt.Errorf("read %s: %w", in, err)
	}
	if err := w.Flush(); err != nil {
		dst.Close()
		return stats, fmt.Errorf("write %s: %w", out, err)
	}
	return stats, dst.Close()
}

func writeLine(w *bufio.Writer, v any) error {
	b, err := encode(v)
	if err != nil {
		return err
	}
	w.Write(b)
	return w.WriteByte('\n')
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
