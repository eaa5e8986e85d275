package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sbommeld/sbommeld/pkg/normalize"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <name=path>...",
	Short: "Normalize source documents into canonical records",
	Long: `Normalize parses each SPDX or CycloneDX document (format auto-detected)
and prints the canonical package and dependency records per source as
JSON, without storing or merging anything.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := parseSources(args)
		if err != nil {
			return err
		}

		type result struct {
			Source       string            `json:"source"`
			Format       string            `json:"format"`
			Packages     []sbom.Package    `json:"packages"`
			Dependencies []sbom.Dependency `json:"dependencies"`
		}

		results := make([]result, 0, len(sources))
		for _, s := range sources {
			data, err := os.ReadFile(s.path)
			if err != nil {
				return err
			}
			format, err := normalize.Detect(data)
			if err != nil {
				return fmt.Errorf("source %s: %w", s.name, err)
			}
			pkgs, deps, err := normalize.Normalize(data, format, s.name)
			if err != nil {
				return fmt.Errorf("source %s: %w", s.name, err)
			}
			results = append(results, result{
				Source:       s.name,
				Format:       string(format),
				Packages:     pkgs,
				Dependencies: deps,
			})
		}

		return printJSON(cmd, results)
	},
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

// printJSON writes indented JSON to the command's stdout.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
