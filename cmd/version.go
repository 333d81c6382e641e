package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number and build information",
	Long:  `Print the version number and build information.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sctd v%s (%s)\n", version, build)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
