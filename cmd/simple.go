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
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/tibtran/internal/batch"
)

var (
	simpleLang           string
	simpleWorkers        int
	simpleRootOnly       bool
	simpleCommentaryOnly bool
	simpleEngine         string
	simpleNoCache        bool
)

var simpleCmd = &cobra.Command{
	Use:   "simple <files...>",
	Short: "Zero-shot translation of the root and commentary fields of JSON files",
	Long: `Translate the "root" and "commentary" fields of every item in the input JSON
files with a single call per field, without the commentary-guided workflow.

By default only the commentary is translated. --root-only translates only the
root text; both flags together translate both fields. Translations are added
as root_<lang> and commentary_<lang> next to the originals and written to
<base>_translated_<root|commentary|full>_<lang><ext>.

Available engines:
  - llm      the configured model provider (default)
  - google   Google Cloud Translation (GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_API_KEY)

Example:
  tibtran simple a.json b.json --target-lang German --max-workers 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lang := targetLanguage(cmd, simpleLang)
		fields := batch.SelectFields(simpleRootOnly, simpleCommentaryOnly)

		engine, closeEngine, err := buildEngine(ctx, simpleEngine)
		if err != nil {
			return err
		}
		defer closeEngine()

		job := batch.NewSimpleJob(engine, fields, lang, logger)
		if !simpleNoCache {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			job.WithCache(db)
		}

		fmt.Printf("Starting %s translation of %d files to %s using %d workers\n",
			fields.Kind(), len(args), lang, simpleWorkers)

		pool := batch.NewPool(batch.PoolConfig{Workers: simpleWorkers})
		result := pool.Process(ctx, args, job.ProcessFile)

		for _, r := range result.Results {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "Failed %s: %v\n", r.Input, r.Err)
				continue
			}
			fmt.Printf("Translated %s -> %s (%s)\n", r.Input, r.Output, r.Latency.Round(time.Millisecond))
		}
		fmt.Printf("Files translated: %d/%d\n", result.Succeeded, len(args))
		return ctx.Err()
	},
}

func init() {
	rootCmd.AddCommand(simpleCmd)

	simpleCmd.Flags().StringVarP(&simpleLang, "target-lang", "t", "", "Target language (default from config)")
	simpleCmd.Flags().IntVarP(&simpleWorkers, "max-workers", "w", batch.DefaultWorkers, "Files translated in parallel")
	simpleCmd.Flags().BoolVar(&simpleRootOnly, "root-only", false, "Translate only the root text")
	simpleCmd.Flags().BoolVar(&simpleCommentaryOnly, "commentary-only", false, "Translate only the commentary (default)")
	simpleCmd.Flags().StringVarP(&simpleEngine, "engine", "e", "llm", "Translation engine: llm or google")
	simpleCmd.Flags().BoolVar(&simpleNoCache, "no-cache", false, "Do not read or write the field cache")
}
