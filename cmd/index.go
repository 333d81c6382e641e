package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// compactIndexCmd overrides PersistentPreRunE with a no-op so rootCmd never
// opens the terminology store for this command - CompactRange needs an
// exclusive leveldb handle on the same directory boltstore/bleveindex would
// otherwise be holding open.
var compactIndexCmd = &cobra.Command{
	Use:   "compact <data-dir>",
	Short: "Manually compact the bleve search index's leveldb store files",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if indexPath != "" {
			dir = indexPath
		}
		path := filepath.Join(dir, "descriptions.bleve", "store")

		fmt.Printf("compacting %s\n", path)
		options := opt.Options{CompactionTableSizeMultiplier: 2}
		db, err := leveldb.OpenFile(path, &options)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.CompactRange(util.Range{}); err != nil {
			return err
		}

		var st leveldb.DBStats
		db.Stats(&st)
		fmt.Printf("%+v\n", st)
		return nil
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
}

func init() {
	indexBuildCmd.AddCommand(compactIndexCmd)
}
