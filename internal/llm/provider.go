package llm

import (
	"fmt"
	"strings"
)

// ProviderConfig selects and configures one provider.
type ProviderConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Providers lists the names accepted by New.
var Providers = []string{"anthropic", "gemini", "openrouter", "ollama"}

// New builds the provider named in cfg.
func New(cfg ProviderConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "anthropic", "claude":
		return NewAnthropic(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "gemini", "google":
		return NewGemini(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case "openrouter":
		var models []string
		if cfg.Model != "" {
			models = strings.Split(cfg.Model, ",")
		}
		return NewOpenRouter(cfg.APIKey, cfg.BaseURL, models)
	case "ollama":
		return NewOllama(cfg.Model, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want one of %s)", cfg.Provider, strings.Join(Providers, ", "))
	}
}
