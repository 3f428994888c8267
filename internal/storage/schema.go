package storage

import "fmt"

// schemaVersion is bumped whenever a migration is added.
const schemaVersion = 1

// initializeSchema creates all tables and indexes and records the schema
// version. Everything runs in one transaction; a half-created schema never
// survives a crash.
func (m *Manager) initializeSchema() error {
	var hasVersionTable int
	row, err := m.QueryRowSQL("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'")
	if err != nil {
		return err
	}
	if err := row.Scan(&hasVersionTable); err != nil {
		return wrapDBErr("failed to inspect schema", err)
	}

	if hasVersionTable == 0 {
		if err := m.createSchema(); err != nil {
			return err
		}
		m.logger.Info("Schema created", "version", schemaVersion)
		return nil
	}

	return m.runMigrations()
}

func (m *Manager) createSchema() error {
	return m.WithTx(func() error {
		creators := []func() error{
			m.createVitalsTable,
			m.createAlarmsTable,
			m.createTelemetryTable,
			m.createActionLogTable,
			m.createPatientsTable,
			m.createAdmissionEventsTable,
		}
		for _, create := range creators {
			if err := create(); err != nil {
				return err
			}
		}

		if _, err := m.ExecSQL("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)"); err != nil {
			return fmt.Errorf("failed to create schema_version: %w", err)
		}
		if _, err := m.ExecSQL("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("failed to record schema version: %w", err)
		}
		return nil
	})
}

// runMigrations upgrades an existing database to the current schema version.
func (m *Manager) runMigrations() error {
	var current int
	row, err := m.QueryRowSQL("SELECT version FROM schema_version LIMIT 1")
	if err != nil {
		return err
	}
	if err := row.Scan(&current); err != nil {
		return wrapDBErr("failed to read schema version", err)
	}

	if current == schemaVersion {
		return nil
	}
	if current > schemaVersion {
		return conflictf("database schema version %d is newer than supported version %d", current, schemaVersion)
	}

	return m.WithTx(func() error {
		// Future migrations run here, one case per version step.
		switch current {
		default:
			return conflictf("no migration path from schema version %d", current)
		}
	})
}

func (m *Manager) createVitalsTable() error {
	if _, err := m.ExecSQL(`
		CREATE TABLE IF NOT EXISTS vitals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_mrn TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			vital_type TEXT NOT NULL,
			value REAL NOT NULL,
			signal_quality INTEGER NOT NULL CHECK (signal_quality BETWEEN 0 AND 100),
			source TEXT NOT NULL,
			is_synced INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("failed to create vitals table: %w", err)
	}

	// The compound index carries every per-patient range query; the
	// single-column indexes serve retention and upload scans.
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_vitals_patient_time ON vitals(patient_mrn, timestamp_ms)",
		"CREATE INDEX IF NOT EXISTS idx_vitals_time ON vitals(timestamp_ms)",
		"CREATE INDEX IF NOT EXISTS idx_vitals_unsent ON vitals(is_synced) WHERE is_synced = 0",
	}
	for _, idx := range indexes {
		if _, err := m.ExecSQL(idx); err != nil {
			return fmt.Errorf("failed to create vitals index: %w", err)
		}
	}
	return nil
}

func (m *Manager) createAlarmsTable() error {
	if _, err := m.ExecSQL(`
		CREATE TABLE IF NOT EXISTS alarms (
			alarm_id TEXT PRIMARY KEY,
			alarm_type TEXT NOT NULL,
			priority TEXT NOT NULL,
			status TEXT NOT NULL,
			value REAL NOT NULL,
			threshold_value REAL NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			patient_mrn TEXT NOT NULL,
			device_id TEXT NOT NULL,
			acknowledged_by TEXT,
			acknowledged_at_ms INTEGER
		)
	`); err != nil {
		return fmt.Errorf("failed to create alarms table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_alarms_patient_time ON alarms(patient_mrn, timestamp_ms)",
		"CREATE INDEX IF NOT EXISTS idx_alarms_status ON alarms(status)",
	}
	for _, idx := range indexes {
		if _, err := m.ExecSQL(idx); err != nil {
			return fmt.Errorf("failed to create alarms index: %w", err)
		}
	}
	return nil
}

func (m *Manager) createTelemetryTable() error {
	if _, err := m.ExecSQL(`
		CREATE TABLE IF NOT EXISTS telemetry_metrics (
			batch_id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			patient_mrn TEXT,
			created_at_ms INTEGER NOT NULL,
			status TEXT NOT NULL CHECK (status IN ('pending', 'sent', 'failed')),
			record_count INTEGER NOT NULL DEFAULT 0,
			payload_bytes INTEGER NOT NULL DEFAULT 0,
			retry_count INTEGER NOT NULL DEFAULT 0,
			transmitted_at_ms INTEGER,
			server_received_at_ms INTEGER,
			server_ack_at_ms INTEGER,
			payload BLOB
		)
	`); err != nil {
		return fmt.Errorf("failed to create telemetry_metrics table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_telemetry_created ON telemetry_metrics(created_at_ms)",
		"CREATE INDEX IF NOT EXISTS idx_telemetry_status ON telemetry_metrics(status)",
	}
	for _, idx := range indexes {
		if _, err := m.ExecSQL(idx); err != nil {
			return fmt.Errorf("failed to create telemetry index: %w", err)
		}
	}
	return nil
}

func (m *Manager) createActionLogTable() error {
	if _, err := m.ExecSQL(`
		CREATE TABLE IF NOT EXISTS action_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp_ms INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			action_type TEXT NOT NULL,
			target_type TEXT NOT NULL,
			target_id TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			previous_hash TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		return fmt.Errorf("failed to create action_log table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_action_log_time ON action_log(timestamp_ms)",
		"CREATE INDEX IF NOT EXISTS idx_action_log_user ON action_log(user_id, timestamp_ms)",
		"CREATE INDEX IF NOT EXISTS idx_action_log_action ON action_log(action_type, timestamp_ms)",
		"CREATE INDEX IF NOT EXISTS idx_action_log_target ON action_log(target_type, target_id, timestamp_ms)",
	}
	for _, idx := range indexes {
		if _, err := m.ExecSQL(idx); err != nil {
			return fmt.Errorf("failed to create action_log index: %w", err)
		}
	}
	return nil
}

func (m *Manager) createPatientsTable() error {
	if _, err := m.ExecSQL(`
		CREATE TABLE IF NOT EXISTS patients (
			mrn TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			date_of_birth TEXT NOT NULL DEFAULT '',
			sex TEXT NOT NULL DEFAULT '',
			allergies TEXT NOT NULL DEFAULT '',
			bed_location TEXT NOT NULL DEFAULT '',
			admission_status TEXT NOT NULL DEFAULT '',
			admitted_at_ms INTEGER,
			discharged_at_ms INTEGER,
			created_at_ms INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create patients table: %w", err)
	}
	return nil
}

func (m *Manager) createAdmissionEventsTable() error {
	if _, err := m.ExecSQL(`
		CREATE TABLE IF NOT EXISTS admission_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			patient_mrn TEXT NOT NULL,
			event_type TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			timestamp_ms INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create admission_events table: %w", err)
	}
	if _, err := m.ExecSQL("CREATE INDEX IF NOT EXISTS idx_admission_events_patient ON admission_events(patient_mrn, timestamp_ms)"); err != nil {
		return fmt.Errorf("failed to create admission_events index: %w", err)
	}
	return nil
}
