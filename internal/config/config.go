// Package config resolves the runtime settings once at startup. Values come
// from, in increasing priority: defaults, tibtran.yaml, a .env file, the
// environment (TIBTRAN_*) and command-line flags bound to the viper instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingCredentials is returned when the selected provider needs an API
// key and none was configured.
var ErrMissingCredentials = errors.New("missing credentials")

const (
	EnvPrefix       = "TIBTRAN"
	ConfigName      = "tibtran"
	DefaultProvider = "anthropic"
	DefaultDBPath   = "./data/tibtran.db"
	DefaultLang     = "English"
	DefaultLogLvl   = "info"
	DefaultRPS      = 2.0
	defaultMaxIter  = 4
	defaultMaxFmt   = 6
)

// Config is the resolved configuration.
type Config struct {
	Provider string `mapstructure:"provider" validate:"required,oneof=anthropic claude gemini google openrouter ollama"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`

	// GoogleCredentials is a service account file for Cloud Translation.
	GoogleCredentials string `mapstructure:"google_credentials"`
	GoogleAPIKey      string `mapstructure:"google_api_key"`

	Language            string  `mapstructure:"language" validate:"required"`
	DBPath              string  `mapstructure:"db"`
	MaxIterations       int     `mapstructure:"max_iterations" validate:"gte=1"`
	MaxFormatIterations int     `mapstructure:"max_format_iterations" validate:"gte=1"`
	RequestsPerSecond   float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	LogLevel            string  `mapstructure:"log_level" validate:"oneof=debug info warn error"`
}

// keyEnv names the conventional API key variable of each provider.
var keyEnv = map[string][]string{
	"anthropic":  {"ANTHROPIC_API_KEY"},
	"claude":     {"ANTHROPIC_API_KEY"},
	"gemini":     {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"google":     {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// SetDefaults registers every key so that environment variables are seen
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("provider", DefaultProvider)
	v.SetDefault("model", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("google_credentials", "")
	v.SetDefault("google_api_key", "")
	v.SetDefault("language", DefaultLang)
	v.SetDefault("db", DefaultDBPath)
	v.SetDefault("max_iterations", defaultMaxIter)
	v.SetDefault("max_format_iterations", defaultMaxFmt)
	v.SetDefault("requests_per_second", DefaultRPS)
	v.SetDefault("log_level", DefaultLogLvl)
}

// Load reads file (or tibtran.yaml in the working directory when file is
// empty), the optional .env file and the environment into a validated
// Config. Flags must already be bound to v.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.APIKey == "" {
		cfg.APIKey = providerKey(cfg.Provider)
	}
	if cfg.GoogleAPIKey == "" {
		cfg.GoogleAPIKey = os.Getenv("GOOGLE_API_KEY")
	}
	if cfg.GoogleCredentials == "" {
		cfg.GoogleCredentials = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func providerKey(provider string) string {
	for _, name := range keyEnv[provider] {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}
	return ""
}

// RequireCredentials fails when the provider needs an API key and has none.
// Ollama runs locally and needs none.
func (c *Config) RequireCredentials() error {
	if c.Provider == "ollama" || c.APIKey != "" {
		return nil
	}
	names := keyEnv[c.Provider]
	return fmt.Errorf("%w: provider %s needs --api-key, %s_API_KEY or %s",
		ErrMissingCredentials, c.Provider, EnvPrefix, strings.Join(names, " / "))
}
