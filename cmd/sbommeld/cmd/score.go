package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sbommeld/sbommeld"
	"github.com/sbommeld/sbommeld/pkg/logging"
)

var scoreCmd = &cobra.Command{
	Use:   "score <name=path>...",
	Short: "Score per-source agreement",
	Long: `Score ingests and classifies every source document, then prints each
source's classification breakdown and agreement score. Higher scores
mean more of a source's packages were corroborated by other sources.`,
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

		analysis, err := client.Analysis(ctx, unit)
		if err != nil {
			return err
		}
		return printJSON(cmd, analysis)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
