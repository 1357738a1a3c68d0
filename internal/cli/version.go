package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X github.com/ppiankov/groundcheck/internal/cli.version=..."
var version = "v0.1.0-dev"

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "groundcheck %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
