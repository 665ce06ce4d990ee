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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/tibtran/internal/corpus"
	"github.com/valpere/tibtran/internal/glossary"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Compile glossaries and manage standardized terms",
	Long: `Compile the glossaries extracted during translation into one CSV, and add,
list, import and delete the standardized term translations kept in the
database.

Standardized terms fix the translation of a Tibetan term for one target
language, so that the same term reads the same way across a corpus.`,
}

var (
	compileInputs []string
	compileOutput string
)

var glossaryCompileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Compile the glossaries of JSONL state files into one CSV",
	Long: `Gather the glossary entries of every record in the JSONL state files, drop
duplicate (term, translation) pairs and write them to one CSV.

Example:
  tibtran glossary compile --input run1.jsonl --input run2.jsonl --output glossary.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		inputs := append(compileInputs, args...)
		if len(inputs) == 0 {
			return fmt.Errorf("--input is required")
		}
		stats, err := glossary.Compile(inputs, compileOutput, logger)
		if err != nil {
			return err
		}
		if stats.Entries == 0 {
			fmt.Println("No glossary entries found.")
			return nil
		}
		fmt.Printf("States read:     %d\n", stats.States)
		fmt.Printf("Entries found:   %d\n", stats.Entries)
		fmt.Printf("Unique entries:  %d\n", stats.Unique)
		fmt.Printf("Glossary written to %s\n", compileOutput)
		return nil
	},
}

var glossaryLang string

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List standardized terms",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		// An empty language lists every language.
		terms, err := db.ListTerms(cmd.Context(), glossaryLang)
		if err != nil {
			return fmt.Errorf("failed to list terms: %w", err)
		}
		if len(terms) == 0 {
			fmt.Println("No standardized terms.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLANG\tTIBETAN TERM\tSTANDARD TRANSLATION\tAUDIENCE")
		for _, t := range terms {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.ID, t.TargetLang, t.TibetanTerm, t.StandardTranslation, t.TargetAudience)
		}
		return w.Flush()
	},
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <tibetan-term> <translation>",
	Short: "Add or update a standardized term",
	Long: `Add a standardized translation of a Tibetan term for one target language.

Example:
  tibtran glossary add "བྱང་ཆུབ་སེམས་" "bodhicitta" --target-lang English`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := targetLanguage(cmd, glossaryLang)
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.AddTerm(cmd.Context(), lang, args[0], args[1]); err != nil {
			return fmt.Errorf("failed to add term: %w", err)
		}
		fmt.Printf("Added: [%s] %q → %q\n", lang, args[0], args[1])
		return nil
	},
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <terms.csv>",
	Short: "Import a standardized terms CSV written by postprocess",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := targetLanguage(cmd, glossaryLang)
		terms, err := corpus.ReadTermsCSV(args[0])
		if err != nil {
			return err
		}
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SaveTerms(cmd.Context(), lang, terms); err != nil {
			return fmt.Errorf("failed to import terms: %w", err)
		}
		fmt.Printf("Imported %d terms for %s\n", len(terms), lang)
		return nil
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a standardized term by ID",
	Long: `Delete a standardized term by its ID (shown in "tibtran glossary list").`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteTerm(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete term: %w", err)
		}
		fmt.Printf("Deleted term: %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryCompileCmd.Flags().StringSliceVarP(&compileInputs, "input", "i", nil, "JSONL state files (repeatable)")
	glossaryCompileCmd.Flags().StringVarP(&compileOutput, "output", "o", "glossary.csv", "Output CSV")

	for _, c := range []*cobra.Command{glossaryListCmd, glossaryAddCmd, glossaryImportCmd} {
		c.Flags().StringVarP(&glossaryLang, "target-lang", "t", "", "Target language")
	}

	glossaryCmd.AddCommand(glossaryCompileCmd)
	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryImportCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
}
