// Grounded on the teacher's cmd/data.go command set (import/export/index/
// precompute/reset/info), retargeted onto the importer package and the new
// terminology.Svc facade. "precompute" is folded into "index" - the
// teacher split closure-building (PerformPrecomputations) from search
// indexing (Index) into two commands and two dirty flags; Svc.BuildIndices
// does both in one pass against a single Dirty flag (spec §4.4/§4.5/§7).
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eldrix/snomed-terminology/importer"
)

// dataCmd represents the data command.
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Commands for import, export and management of data",
	Long:  `Commands for import, export and management of data.`,
}

var importWorkers int
var importBatchSize int
var importVerbose bool

var importCmd = &cobra.Command{
	Use:   "import <data-dir> <RF2-dir> [RF2-dir2...]",
	Short: "Import SNOMED CT RF2 release files from the specified directories",
	Long:  `Import SNOMED CT RF2 release files from the specified directories.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) < 2 {
			return fmt.Errorf("must specify one or more RF2 release directories")
		}
		opts := importer.Options{
			BatchSize: importBatchSize,
			Workers:   importWorkers,
			Verbose:   importVerbose,
			Logger:    svc.Logger(),
		}
		if err := importer.Import(context.Background(), svc.Store, args[1:], opts); err != nil {
			return err
		}
		return svc.SetDirty(true)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <data-dir>",
	Short: "Export expanded descriptions in delimited protobuf format",
	Long:  `Export expanded descriptions in delimited protobuf format to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return svc.Export(os.Stdout)
	},
}

var indexBuildCmd = &cobra.Command{
	Use:   "index <data-dir>",
	Short: "Build the relationship closure, refset-membership and search indices",
	Long:  `Build the relationship closure, refset-membership and search indices from currently imported data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.BuildIndices(); err != nil {
			return err
		}
		return svc.SetDirty(false)
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <data-dir>",
	Short: "Clear the derived closure, refset-membership and search indices",
	Long:  `Clear the derived closure, refset-membership and search indices, forcing a full rebuild on next "data index".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := svc.ClearIndices(); err != nil {
			return err
		}
		return svc.SetDirty(true)
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <data-dir>",
	Short: "Print datastore statistics",
	Long:  `Print datastore statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := svc.Status()
		if err != nil {
			return err
		}
		fmt.Print(status.Statistics)
		fmt.Printf("Dirty (needs reindex): %v\n", status.Dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(importCmd, exportCmd, indexBuildCmd, resetCmd, infoCmd)

	importCmd.Flags().IntVar(&importBatchSize, "batch-size", engineConfig.BatchSize, "number of RF2 rows to accumulate per store write")
	importCmd.Flags().IntVar(&importWorkers, "workers", engineConfig.ImportWorkers, "number of concurrent store-writer goroutines")
	importCmd.Flags().BoolVarP(&importVerbose, "verbose", "v", false, "log each RF2 file as it is processed")
}
