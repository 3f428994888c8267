package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var retentionDryRun bool

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Apply the configured retention windows",
	Long: `Delete data older than the configured retention windows: vitals,
resolved alarms, sent telemetry batches and action log entries each have
their own window. A window of 0 days disables retention for that table.

Examples:
  zmon retention
  zmon retention --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, cfg, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		now := time.Now()
		cutoff := func(days int) int64 {
			return now.AddDate(0, 0, -days).UnixMilli()
		}

		if retentionDryRun {
			fmt.Println("Dry run, nothing deleted. Effective cutoffs:")
			if cfg.Retention.VitalsDays > 0 {
				fmt.Printf("  vitals:    %s\n", time.UnixMilli(cutoff(cfg.Retention.VitalsDays)).Format(time.RFC3339))
			}
			if cfg.Retention.AlarmsDays > 0 {
				fmt.Printf("  alarms:    %s\n", time.UnixMilli(cutoff(cfg.Retention.AlarmsDays)).Format(time.RFC3339))
			}
			if cfg.Retention.TelemetryDays > 0 {
				fmt.Printf("  telemetry: %s\n", time.UnixMilli(cutoff(cfg.Retention.TelemetryDays)).Format(time.RFC3339))
			}
			if cfg.Retention.AuditDays > 0 {
				fmt.Printf("  audit:     %s\n", time.UnixMilli(cutoff(cfg.Retention.AuditDays)).Format(time.RFC3339))
			}
			return nil
		}

		if days := cfg.Retention.VitalsDays; days > 0 {
			n, err := store.Vitals.DeleteOlderThan(cutoff(days))
			if err != nil {
				return fmt.Errorf("vitals retention failed: %w", err)
			}
			fmt.Printf("vitals: removed %d\n", n)
		}
		if days := cfg.Retention.AlarmsDays; days > 0 {
			n, err := store.Alarms.DeleteOlderThan(cutoff(days))
			if err != nil {
				return fmt.Errorf("alarm retention failed: %w", err)
			}
			fmt.Printf("alarms: removed %d\n", n)
		}
		if days := cfg.Retention.TelemetryDays; days > 0 {
			n, err := store.Telemetry.Archive(cutoff(days))
			if err != nil {
				return fmt.Errorf("telemetry archive failed: %w", err)
			}
			fmt.Printf("telemetry: removed %d\n", n)
		}
		if days := cfg.Retention.AuditDays; days > 0 {
			n, err := store.Audit.Archive(cutoff(days))
			if err != nil {
				return fmt.Errorf("audit archive failed: %w", err)
			}
			fmt.Printf("audit: removed %d\n", n)
		}
		return nil
	},
}

func init() {
	retentionCmd.Flags().BoolVar(&retentionDryRun, "dry-run", false, "Print cutoffs without deleting")
	rootCmd.AddCommand(retentionCmd)
}
