// Package translator holds the zero-shot engines used by the simple file
// translator: Google Cloud Translation and a single model call.
package translator

import (
	"context"
	"time"
)

type ServiceConfig struct {
	Credentials string        `mapstructure:"credentials" json:"credentials"`
	APIKey      string        `mapstructure:"api_key" json:"api_key"`
	Model       string        `mapstructure:"model" json:"model"`
	BaseURL     string        `mapstructure:"base_url" json:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	// MaxChars bounds one segment sent to a machine translation engine.
	MaxChars int `mapstructure:"max_chars" json:"max_chars"`
}

// TranslateRequest names languages either by English name ("Tibetan") or by
// BCP 47 tag ("bo"). An empty SourceLang means Tibetan.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

type ServiceResult struct {
	ServiceName    string        `json:"service_name"`
	TranslatedText string        `json:"translated_text"`
	Latency        time.Duration `json:"latency"`
	Error          string        `json:"error,omitempty"`
}

// TranslationService is implemented by every engine. Blank text translates
// to "" without contacting the engine.
type TranslationService interface {
	Name() string
	Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error)
}
