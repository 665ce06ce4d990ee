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
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/valpere/tibtran/internal/llm"
	"github.com/valpere/tibtran/internal/store"
	"github.com/valpere/tibtran/internal/translator"
)

// buildClient constructs the configured model client behind the rate
// limiter, circuit breaker and retry policy. It fails before any work starts
// when credentials are missing.
func buildClient() (llm.Client, error) {
	if err := cfg.RequireCredentials(); err != nil {
		return nil, err
	}
	client, err := llm.New(llm.ProviderConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	res := llm.DefaultResilience()
	res.RequestsPerSecond = cfg.RequestsPerSecond
	return llm.NewResilient(client, res, logger), nil
}

// buildEngine constructs the engine of the simple translator. The returned
// close function releases it.
func buildEngine(ctx context.Context, name string) (translator.TranslationService, func() error, error) {
	switch name {
	case "", "llm":
		client, err := buildClient()
		if err != nil {
			return nil, nil, err
		}
		return translator.NewLLMService(client), func() error { return nil }, nil
	case "google":
		svc, err := translator.NewGoogleService(ctx, translator.ServiceConfig{
			Credentials: cfg.GoogleCredentials,
			APIKey:      cfg.GoogleAPIKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return svc, svc.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown engine %q (want llm or google)", name)
	}
}

// openStore opens the translation memory, creating its directory.
func openStore() (*store.Store, error) {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// targetLanguage is the --target-lang flag of cmd when given, else the
// configured language.
func targetLanguage(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("target-lang") && flagValue != "" {
		return flagValue
	}
	return cfg.Language
}
