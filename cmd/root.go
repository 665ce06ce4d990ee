/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal/config"
	"github.com/valpere/tibtran/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile string
	v       = viper.New()

	// Resolved by the root PersistentPreRunE.
	cfg    *config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tibtran",
	Short: "Tibetan Buddhist text translator",
	Long: `A CLI application that translates Tibetan Buddhist texts with large language
models, guided by up to three traditional commentaries.

Every passage goes through commentary translation, aggregation, iterative
drafting with evaluation feedback, format review and glossary extraction.
Finished corpora can be post-processed to standardize terminology and add a
word-by-word gloss.

Use "tibtran translate --help" for translation options.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		l, err := logging.New(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command. Interrupts cancel the command context so
// batches stop between records.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default ./tibtran.yaml)")
	pf.String("provider", config.DefaultProvider, "Model provider: anthropic, gemini, openrouter or ollama")
	pf.String("model", "", "Model name (comma-separated list for openrouter)")
	pf.String("api-key", "", "Provider API key (default from the provider's environment variable)")
	pf.String("base-url", "", "Provider endpoint override")
	pf.String("db", config.DefaultDBPath, "Translation memory database path")
	pf.String("log-level", config.DefaultLogLvl, "Log level: debug, info, warn or error")

	for key, flag := range map[string]string{
		"provider":  "provider",
		"model":     "model",
		"api_key":   "api-key",
		"base_url":  "base-url",
		"db":        "db",
		"log_level": "log-level",
	} {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
