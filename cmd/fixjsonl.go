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

	"github.com/valpere/tibtran/internal/jsonl"
)

var fixJSONLCmd = &cobra.Command{
	Use:   "fix-jsonl <input> [output]",
	Short: "Repair a JSONL state file",
	Long: `Copy the valid lines of a JSONL file to output, repairing lines broken only
by trailing commas and dropping every other malformed line.

The default output is <input-stem>_fixed.jsonl next to the input.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := jsonl.FixedPath(args[0])
		if len(args) == 2 {
			out = args[1]
		}
		if out == args[0] {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		stats, err := jsonl.Fix(args[0], out, logger)
		if err != nil {
			return err
		}
		fmt.Printf("Valid lines:   %d\n", stats.Valid)
		fmt.Printf("Invalid lines: %d\n", stats.Invalid)
		fmt.Printf("Fixed lines:   %d\n", stats.Fixed)
		if stats.AllValid() {
			fmt.Printf("All lines of %s are valid JSON.\n", out)
		} else {
			fmt.Printf("%d lines could not be repaired and were dropped from %s.\n", stats.Invalid-stats.Fixed, out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixJSONLCmd)
}
