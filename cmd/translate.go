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
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/batch"
	"github.com/valpere/tibtran/internal/dataset"
	"github.com/valpere/tibtran/internal/glossary"
	"github.com/valpere/tibtran/internal/store"
	"github.com/valpere/tibtran/internal/validator"
	"github.com/valpere/tibtran/internal/workflow"
)

var (
	translateLang      string
	translateWorkers   int
	translateBatchSize int
	translateRunName   string
	translateOutputDir string
	translateGlossary  string
	translateNoCache   bool
)

var translateCmd = &cobra.Command{
	Use:   "translate <files...>",
	Short: "Translate passages through the full commentary-guided workflow",
	Long: `Translate every passage of the input JSON files through the full workflow:
commentary translation, aggregation, iterative drafting and evaluation, format
review, glossary extraction and plain-text rendering.

Each input is a JSON array (or a single object) of passages with
root_display_text, sanskrit_text and commentary_1..commentary_3 fields.

Finished records are appended to <output-dir>/<run-name>.jsonl in batches.
When any passage of a batch fails, the whole batch is written to
<run-name>_fail.jsonl and the run continues. Accepted passages are kept in
the translation memory and skipped on the next run unless --no-cache is set.

Example:
  tibtran translate texts.json --target-lang English --batch-size 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lang := targetLanguage(cmd, translateLang)
		args = uniqueInputs(args)

		client, err := buildClient()
		if err != nil {
			return err
		}

		if err := os.MkdirAll(translateOutputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		glossaryPath := translateGlossary
		if glossaryPath == "" {
			glossaryPath = filepath.Join(translateOutputDir, "translation_glossary.csv")
		}

		graph := workflow.New(client, glossary.NewCSVSink(glossaryPath), workflow.Options{
			MaxIterations:       cfg.MaxIterations,
			MaxFormatIterations: cfg.MaxFormatIterations,
			Language:            lang,
		}, logger).WithChecker(validator.New())

		runner := batch.NewRunner(graph, translateOutputDir, logger)
		var db *store.Store
		if !translateNoCache {
			db, err = openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			runner.WithMemory(db)
		}

		// Inputs are loaded up front so a malformed file fails before any
		// model call.
		inputs := make(map[string][]internal.Record, len(args))
		for _, path := range args {
			recs, err := dataset.LoadRecords(path, lang)
			if err != nil {
				return err
			}
			inputs[path] = recs
		}

		names := runNames(args, translateRunName)
		pool := batch.NewPool(batch.PoolConfig{Workers: translateWorkers})
		result := pool.Process(ctx, args, func(ctx context.Context, input string) (string, error) {
			records := inputs[input]
			name := names[input]

			var (
				runID string
				err   error
			)
			if db != nil {
				if runID, err = db.CreateRun(ctx, name, lang, len(records)); err != nil {
					logger.Warn("failed to record run", zap.String("run", name), zap.Error(err))
				}
			}

			sum, err := runner.Run(ctx, records, translateBatchSize, name)
			if runID != "" {
				status := "completed"
				if err != nil {
					status = "aborted"
				}
				if ferr := db.FinishRun(context.WithoutCancel(ctx), runID, status, sum.Succeeded, sum.Failed, sum.Skipped); ferr != nil {
					logger.Warn("failed to record run", zap.String("run", name), zap.Error(ferr))
				}
			}
			if err != nil {
				return sum.Output, err
			}
			fmt.Printf("%s: %d translated, %d failed, %d skipped -> %s\n",
				input, sum.Succeeded, sum.Failed, sum.Skipped, sum.Output)
			if sum.Failed > 0 {
				fmt.Printf("  failed passages written to %s\n", sum.FailOutput)
			}
			return sum.Output, nil
		})

		for _, r := range result.Results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", r.Input, r.Err)
			}
		}
		fmt.Printf("Files processed: %d/%d, glossary: %s\n", result.Succeeded, len(args), glossaryPath)
		if err := ctx.Err(); err != nil {
			return err
		}
		return nil
	},
}

// runNames maps each input to its output name: name for a single input and
// name_<stem> for several. Stems shared by inputs in different directories
// get the parent directory as well, and any name still taken gets the
// input's position.
func runNames(inputs []string, name string) map[string]string {
	if name == "" {
		name = batch.DefaultRunName
	}
	out := make(map[string]string, len(inputs))
	if len(inputs) <= 1 {
		for _, in := range inputs {
			out[in] = name
		}
		return out
	}

	stems := make(map[string]int, len(inputs))
	for _, in := range inputs {
		stems[stem(in)]++
	}
	used := make(map[string]bool, len(inputs))
	for i, in := range inputs {
		n := name + "_" + stem(in)
		if stems[stem(in)] > 1 {
			if parent := filepath.Base(filepath.Dir(in)); parent != "." && parent != string(filepath.Separator) {
				n = name + "_" + parent + "_" + stem(in)
			}
		}
		if used[n] {
			n = fmt.Sprintf("%s_%d", n, i+1)
		}
		used[n] = true
		out[in] = n
	}
	return out
}

func stem(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// uniqueInputs drops repeated paths so no file is translated twice into
// the same run.
func uniqueInputs(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := paths[:0:0]
	for _, p := range paths {
		key := filepath.Clean(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}
	return out
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&translateLang, "target-lang", "t", "", "Target language (default from config)")
	translateCmd.Flags().IntVarP(&translateWorkers, "max-workers", "w", batch.DefaultWorkers, "Input files processed in parallel")
	translateCmd.Flags().IntVarP(&translateBatchSize, "batch-size", "b", batch.DefaultBatchSize, "Passages translated concurrently per batch")
	translateCmd.Flags().StringVarP(&translateRunName, "run-name", "r", batch.DefaultRunName, "Name of the JSONL output files")
	translateCmd.Flags().StringVarP(&translateOutputDir, "output-dir", "o", ".", "Directory for run files and the glossary")
	translateCmd.Flags().StringVar(&translateGlossary, "glossary-output", "", "Glossary CSV (default <output-dir>/translation_glossary.csv)")
	translateCmd.Flags().BoolVar(&translateNoCache, "no-cache", false, "Do not read or write the translation memory")
}
