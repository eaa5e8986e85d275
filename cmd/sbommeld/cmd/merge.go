package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sbommeld/sbommeld"
	"github.com/sbommeld/sbommeld/internal/config"
	"github.com/sbommeld/sbommeld/pkg/logging"
	"github.com/sbommeld/sbommeld/pkg/merge"
)

var (
	mergeIncludeAllUnique bool
	mergeExcludeNoise     bool
	mergePolicyFile       string
	mergeOutput           string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <name=path>...",
	Short: "Merge source documents into one canonical SBOM",
	Long: `Merge runs the full pipeline: ingest every source document, classify
package identity across sources, and assemble the canonical CycloneDX
document under the active policy.

The policy comes from flags, or from a YAML policy file which may also
carry per-source unique-package selections.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := parseSources(args)
		if err != nil {
			return err
		}
		client, cfg, err := newClient()
		if err != nil {
			return err
		}

		policy := mergePolicy(cfg, cmd)

		unit := sbommeld.NewUnitID()
		ctx := logging.WithUnit(cmd.Context(), unit)
		if _, err := ingestAll(ctx, client, unit, sources); err != nil {
			return err
		}

		doc, err := client.Merge(ctx, unit, policy)
		if err != nil {
			return err
		}

		if mergeOutput != "" {
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(mergeOutput, data, 0o644); err != nil {
				return err
			}
			logging.Info().
				Str("path", mergeOutput).
				Int("components", len(doc.Components)).
				Msg("Wrote merged document")
			return nil
		}
		return printJSON(cmd, doc)
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().BoolVar(&mergeIncludeAllUnique, "include-all-unique", false, "include packages reported by only one source")
	mergeCmd.Flags().BoolVar(&mergeExcludeNoise, "exclude-noise", false, "exclude CI/workflow noise packages from unique inclusion")
	mergeCmd.Flags().StringVar(&mergePolicyFile, "policy-file", "", "YAML merge-policy file (overrides policy flags)")
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "write the merged document to a file instead of stdout")
}

// mergePolicy resolves the effective policy: policy file when given,
// otherwise config defaults adjusted by explicitly set flags.
func mergePolicy(cfg config.Config, cmd *cobra.Command) merge.Policy {
	if mergePolicyFile != "" {
		p, err := config.LoadPolicyFile(mergePolicyFile)
		if err == nil {
			return p.MergePolicy()
		}
		logging.Err(err).Str("path", mergePolicyFile).Msg("Failed to load policy file, using flags")
	}

	policy := cfg.Policy.MergePolicy()
	if cmd.Flags().Changed("include-all-unique") {
		policy.IncludeAllUnique = mergeIncludeAllUnique
	}
	if cmd.Flags().Changed("exclude-noise") {
		policy.ExcludeNoise = mergeExcludeNoise
	}
	return policy
}
