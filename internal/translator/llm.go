package translator

import (
	"context"
	"strings"
	"time"

	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/prompts"
)

// DefaultTemperature keeps zero-shot output close to the source.
const DefaultTemperature = 0.2

// LLMService translates with one model call primed by the scholar system
// prompt and the few-shot examples.
type LLMService struct {
	client      llm.Client
	temperature float64
	maxTokens   int
}

func NewLLMService(client llm.Client) *LLMService {
	return &LLMService{client: client, temperature: DefaultTemperature, maxTokens: 4096}
}

func (s *LLMService) Name() string {
	return "llm"
}

func (s *LLMService) Translate(ctx context.Context, req TranslateRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	if strings.TrimSpace(req.Text) == "" {
		return result, nil
	}

	examples := make([]llm.Exchange, len(prompts.FewShot))
	for i, ex := range prompts.FewShot {
		examples[i] = llm.Exchange{User: ex.User, Model: ex.Model}
	}
	temperature := s.temperature
	text, err := llm.GenerateRequest(ctx, s.client, llm.Request{
		System:      prompts.ScholarSystem,
		Examples:    examples,
		Prompt:      prompts.ZeroShotTranslation(req.Text, req.TargetLang),
		MaxTokens:   s.maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		result.Error = err.Error()
		return result, err
	}

	result.TranslatedText = text
	return result, nil
}
