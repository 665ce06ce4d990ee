package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal/translator"
)

// Fields selects which fields of an input item the simple translator fills.
type Fields struct {
	Root       bool
	Commentary bool
}

// SelectFields maps the --root-only and --commentary-only flags. Neither
// flag means commentary only; both mean everything.
func SelectFields(rootOnly, commentaryOnly bool) Fields {
	if rootOnly == commentaryOnly {
		return Fields{Root: rootOnly, Commentary: true}
	}
	return Fields{Root: rootOnly, Commentary: commentaryOnly}
}

// Kind names the selection in output file names.
func (f Fields) Kind() string {
	switch {
	case f.Root && f.Commentary:
		return "full"
	case f.Root:
		return "root"
	default:
		return "commentary"
	}
}

// OutputPath returns <base>_translated_<kind>_<language><ext>.
func OutputPath(input, language string, f Fields) string {
	ext := filepath.Ext(input)
	base := strings.TrimSuffix(input, ext)
	lang := strings.ReplaceAll(strings.ToLower(language), " ", "_")
	return fmt.Sprintf("%s_translated_%s_%s%s", base, f.Kind(), lang, ext)
}

// FieldNames returns the keys the translations of root and commentary are
// stored under.
func FieldNames(language string) (root, commentary string) {
	lang := strings.ToLower(language)
	return "root_" + lang, "commentary_" + lang
}

// SimpleCache stores translations of whole fields.
type SimpleCache interface {
	GetSimple(ctx context.Context, source, language, engine string) (string, bool, error)
	SaveSimple(ctx context.Context, source, language, engine, translated string) error
}

// SimpleJob translates the root and commentary fields of JSON input files
// with a single zero-shot call per field.
type SimpleJob struct {
	engine   translator.TranslationService
	cache    SimpleCache
	fields   Fields
	language string
	logger   *zap.Logger
}

func NewSimpleJob(engine translator.TranslationService, fields Fields, language string, logger *zap.Logger) *SimpleJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if language == "" {
		language = "English"
	}
	return &SimpleJob{engine: engine, fields: fields, language: language, logger: logger.Named("simple")}
}

// WithCache reuses earlier translations of identical text.
func (j *SimpleJob) WithCache(c SimpleCache) *SimpleJob {
	j.cache = c
	return j
}

// ProcessFile translates every item of input and writes the result next to
// it. Items are translated one after another; the first failure abandons
// the file without writing anything.
func (j *SimpleJob) ProcessFile(ctx context.Context, input string) (string, error) {
	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", input, err)
	}

	items, single, err := decodeItems(data)
	if err != nil {
		return "", fmt.Errorf("%s is not a valid JSON file: %w", input, err)
	}
	log := j.logger.With(zap.String("file", input))
	log.Info("processing file", zap.Int("items", len(items)))

	rootField, commentaryField := FieldNames(j.language)
	for i := range items {
		if j.fields.Commentary {
			if err := j.translateField(ctx, &items[i], "commentary", commentaryField); err != nil {
				return "", fmt.Errorf("%s item %d: %w", input, i+1, err)
			}
		}
		if j.fields.Root {
			if err := j.translateField(ctx, &items[i], "root", rootField); err != nil {
				return "", fmt.Errorf("%s item %d: %w", input, i+1, err)
			}
		}
		log.Debug("item done", zap.Int("item", i+1))
	}

	var out any = items
	if single {
		out = items[0]
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return "", fmt.Errorf("encode %s: %w", input, err)
	}

	output := OutputPath(input, j.language, j.fields)
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", output, err)
	}
	log.Info("file translated", zap.String("output", output))
	return output, nil
}

// translateField sets it[to] to the translation of it[from]. Items without
// from are left alone; blank text becomes "".
func (j *SimpleJob) translateField(ctx context.Context, it *item, from, to string) error {
	raw, ok := it.get(from)
	if !ok {
		return nil
	}
	var text *string
	if err := json.Unmarshal(raw, &text); err != nil {
		return fmt.Errorf("field %s: %w", from, err)
	}
	if text == nil || strings.TrimSpace(*text) == "" {
		return it.set(to, "")
	}

	translated, err := j.translate(ctx, *text)
	if err != nil {
		return fmt.Errorf("translate %s: %w", from, err)
	}
	return it.set(to, translated)
}

func (j *SimpleJob) translate(ctx context.Context, text string) (string, error) {
	engine := j.engine.Name()
	if j.cache != nil {
		if cached, ok, err := j.cache.GetSimple(ctx, text, j.language, engine); err == nil && ok {
			return cached, nil
		}
	}

	res, err := j.engine.Translate(ctx, translator.TranslateRequest{Text: text, TargetLang: j.language})
	if err != nil {
		return "", err
	}

	if j.cache != nil {
		if err := j.cache.SaveSimple(ctx, text, j.language, engine, res.TranslatedText); err != nil {
			j.logger.Warn("failed to cache translation", zap.Error(err))
		}
	}
	return res.TranslatedText, nil
}

func decodeItems(data []byte) ([]item, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var one item
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, false, err
		}
		return []item{one}, true, nil
	}
	var many []item
	if err := json.Unmarshal(data, &many); err != nil {
		return nil, false, err
	}
	return many, false, nil
}
