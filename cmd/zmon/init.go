package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zmon/internal/version"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or migrate the database",
	Long: `Open (creating if necessary) the configured database, bring the schema
up to date and prepare the full query catalog.

Examples:
  zmon init
  zmon init --db /var/lib/zmon/monitor.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("Database ready at %s (zmon %s)\n", cfg.Database.Path, version.Info())
		fmt.Printf("Prepared queries: %d\n", store.Catalog.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
