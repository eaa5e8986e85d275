package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sbommeld/sbommeld/pkg/sbom"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sbommeld %s (commit %s, built %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// toolIdentity is the tool entry stamped into merged document metadata.
func toolIdentity() sbom.Tool {
	return sbom.Tool{Vendor: "sbommeld", Name: "sbommeld", Version: Version}
}
