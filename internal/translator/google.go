package translator

import (
	"context"
	"fmt"
	"strings"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"google.golang.org/api/option"

	"github.com/valpere/tibtran/internal/chunker"
	"github.com/valpere/tibtran/internal/detector"
)

var tibetan = language.MustParse("bo")

type GoogleService struct {
	client   *translate.Client
	model    string
	maxChars int
	timeout  time.Duration
}

// NewGoogleService creates a Cloud Translation client. Credentials come from
// cfg (API key or service account file) or from the environment.
func NewGoogleService(ctx context.Context, cfg ServiceConfig, extra ...option.ClientOption) (*GoogleService, error) {
	var opts []option.ClientOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	opts = append(opts, extra...)

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	maxChars := cfg.MaxChars
	if maxChars <= 0 {
		maxChars = chunker.DefaultMaxChars
	}
	return &GoogleService{client: client, model: cfg.Model, maxChars: maxChars, timeout: cfg.Timeout}, nil
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		return result, nil
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	target, err := LanguageTag(req.TargetLang)
	if err != nil {
		result.Error = fmt.Sprintf("invalid target language: %v", err)
		return result, fmt.Errorf("invalid target language: %w", err)
	}
	source := tibetan
	if req.SourceLang != "" {
		if source, err = LanguageTag(req.SourceLang); err != nil {
			result.Error = fmt.Sprintf("invalid source language: %v", err)
			return result, fmt.Errorf("invalid source language: %w", err)
		}
	}

	// Long fields go out as several segments of one request.
	pieces := chunker.Split(req.Text, s.maxChars)
	translations, err := s.client.Translate(ctx, chunker.Texts(pieces), target, &translate.Options{
		Source: source,
		Format: translate.Text,
		Model:  s.model,
	})
	if err != nil {
		result.Error = fmt.Sprintf("translation failed: %v", err)
		return result, fmt.Errorf("translation failed: %w", err)
	}

	if len(translations) != len(pieces) {
		result.Error = "no translation returned"
		return result, fmt.Errorf("no translation returned: got %d of %d segments", len(translations), len(pieces))
	}

	texts := make([]string, len(translations))
	for i, t := range translations {
		texts[i] = t.Text
	}
	result.TranslatedText = chunker.Join(texts, pieces)
	return result, nil
}

func (s *GoogleService) Close() error {
	return s.client.Close()
}

// LanguageTag resolves an English language name or a BCP 47 tag.
func LanguageTag(name string) (language.Tag, error) {
	name = strings.TrimSpace(name)
	if strings.EqualFold(name, display.English.Languages().Name(tibetan)) {
		return tibetan, nil
	}
	if lang, ok := detector.Lookup(name); ok {
		return language.Parse(strings.ToLower(lang.IsoCode639_1().String()))
	}
	return language.Parse(name)
}
