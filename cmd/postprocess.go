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

	"github.com/spf13/cobra"

	"github.com/valpere/tibtran/internal"
	"github.com/valpere/tibtran/internal/corpus"
	"github.com/valpere/tibtran/internal/store"
)

var (
	postOutput      string
	postTermsOutput string
	postFreqOutput  string
	postMaxSamples  int
	postReapply     string
	postLang        string
	postSaveTerms   bool
	postUseStored   bool
)

var postprocessCmd = &cobra.Command{
	Use:   "postprocess <states.jsonl...>",
	Short: "Standardize terminology across a translated corpus",
	Long: `Post-process the JSONL state files written by "tibtran translate":

  1. count the distinct translations of every glossary term;
  2. for each term translated more than one way, ask for one standard
     translation, quoting up to --max-samples passages; with
     --use-stored-terms the standards already in the database (glossary
     add/import, --save-terms) are used as decided and not asked again;
  3. write the standards back into the translations (--reapply literal
     replaces whole-word occurrences of the earlier variants only, llm asks
     the model for a minimal edit);
  4. add a word-by-word gloss to every passage.

Literal reapplication works on words, not meaning. In a passage containing
the term, every occurrence of a variant is rewritten, even where the same
word renders a different Tibetan term. One-word variants that are part of
the standard ("mind" for "awakening mind") are never rewritten. Use
--reapply llm when the variants are common words.

The final corpus JSON has the columns source, plaintext_translation,
combined_commentary, translation and "word by word translation".

Example:
  tibtran postprocess run.jsonl --output corpus.json --reapply literal`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		lang := targetLanguage(cmd, postLang)

		mode, err := corpus.ParseMode(postReapply)
		if err != nil {
			return err
		}
		passages, err := corpus.LoadPassages(args, logger)
		if err != nil {
			return err
		}
		if len(passages) == 0 {
			return fmt.Errorf("no passages found in %v", args)
		}

		client, err := buildClient()
		if err != nil {
			return err
		}

		var db *store.Store
		if postSaveTerms || postUseStored {
			if db, err = openStore(); err != nil {
				return err
			}
			defer db.Close()
		}
		var known []internal.StandardizedTerm
		if postUseStored {
			if known, err = db.StandardizedTerms(ctx, lang); err != nil {
				return fmt.Errorf("failed to read standardized terms: %w", err)
			}
		}

		res, err := corpus.New(client, logger).PostProcess(ctx, passages, corpus.Options{
			MaxSamples:        postMaxSamples,
			Mode:              mode,
			Language:          lang,
			Known:             known,
			FrequenciesOutput: postFreqOutput,
			TermsOutput:       postTermsOutput,
			CorpusOutput:      postOutput,
		})
		if err != nil {
			return err
		}

		if postSaveTerms && len(res.Terms) > 0 {
			if err := db.SaveTerms(ctx, lang, res.Terms); err != nil {
				return fmt.Errorf("failed to save standardized terms: %w", err)
			}
		}

		fmt.Printf("Passages:             %d\n", len(res.Passages))
		fmt.Printf("Glossary terms:       %d\n", len(res.Frequencies))
		fmt.Printf("Standardized terms:   %d\n", len(res.Terms))
		fmt.Printf("Passages reapplied:   %d (%s)\n", res.Reapplied, mode)
		fmt.Printf("Corpus written to:    %s\n", postOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(postprocessCmd)

	postprocessCmd.Flags().StringVarP(&postOutput, "output", "o", "final_corpus.json", "Final corpus JSON")
	postprocessCmd.Flags().StringVar(&postTermsOutput, "terms-output", "standardized_terms.csv", "Standardized terms CSV")
	postprocessCmd.Flags().StringVar(&postFreqOutput, "freq-output", "term_frequencies.csv", "Term frequency CSV")
	postprocessCmd.Flags().IntVar(&postMaxSamples, "max-samples", corpus.DefaultMaxSamples, "Passages quoted per ambiguous term")
	postprocessCmd.Flags().StringVar(&postReapply, "reapply", string(corpus.ModeLiteral), "Reapply mode: literal (whole-word variant replacement) or llm (model edit, context aware)")
	postprocessCmd.Flags().StringVarP(&postLang, "target-lang", "t", "", "Language of the word-by-word gloss (default from config)")
	postprocessCmd.Flags().BoolVar(&postSaveTerms, "save-terms", false, "Store the standardized terms in the database")
	postprocessCmd.Flags().BoolVar(&postUseStored, "use-stored-terms", false, "Use standards stored in the database instead of asking again")
}
