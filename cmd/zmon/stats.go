package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zmon/internal/storage"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts and upload backlog",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		s, err := storage.CollectStats(store.Manager)
		if err != nil {
			return err
		}

		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Printf("  vitals:    %d (%d unsent)\n", s.Vitals, s.UnsentVitals)
		if s.Vitals > 0 {
			fmt.Printf("    oldest:  %s\n", time.UnixMilli(s.OldestVitalMs).Format(time.RFC3339))
			fmt.Printf("    newest:  %s\n", time.UnixMilli(s.NewestVitalMs).Format(time.RFC3339))
		}
		fmt.Printf("  alarms:    %d (%d active)\n", s.Alarms, s.ActiveAlarms)
		fmt.Printf("  telemetry: %d batches (%d unsent)\n", s.TelemetryTotal, s.TelemetryUnsent)
		fmt.Printf("  audit:     %d entries\n", s.AuditEntries)
		fmt.Printf("  patients:  %d\n", s.Patients)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
