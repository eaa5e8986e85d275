package cmd

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/sbommeld/sbommeld"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/sbom"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <name=path>...",
	Short: "Classify package identity across sources",
	Long: `Classify ingests every source document and prints the exact / fuzzy /
unique classification of each (source, name, version), with occurrence
counts and fuzzy scores.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := parseSources(args)
		if err != nil {
			return err
		}
		client, _, err := newClient()
		if err != nil {
			return err
		}

		unit := sbommeld.NewUnitID()
		ctx := logging.WithUnit(cmd.Context(), unit)
		if _, err := ingestAll(ctx, client, unit, sources); err != nil {
			return err
		}

		classification, err := client.Classify(ctx, unit)
		if err != nil {
			return err
		}

		return printJSON(cmd, classificationRows(classification))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

// classificationRow is one classification entry flattened for output.
type classificationRow struct {
	Source      string  `json:"source"`
	Name        string  `json:"name"`
	Version     string  `json:"version"`
	Status      string  `json:"status"`
	Occurrences int     `json:"occurrences"`
	Score       float64 `json:"score,omitempty"`
}

// classificationRows flattens and sorts a classification for stable output.
func classificationRows(c sbom.Classification) []classificationRow {
	rows := make([]classificationRow, 0, len(c))
	for key, match := range c {
		rows = append(rows, classificationRow{
			Source:      key.Source,
			Name:        key.Name,
			Version:     key.Version,
			Status:      string(match.Status),
			Occurrences: match.Occurrences,
			Score:       match.Score,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.Source < b.Source
	})
	return rows
}
