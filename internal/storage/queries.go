package storage

// Query IDs. Stable names; referenced by repositories and by the generated
// catalog documentation.
const (
	QueryVitalsInsert        = "vitals.insert"
	QueryVitalsFindByRange   = "vitals.find_by_patient_range"
	QueryVitalsFindRangeAll  = "vitals.find_range_all"
	QueryVitalsCountByMRN    = "vitals.count_by_patient"
	QueryVitalsCountAll      = "vitals.count_all"
	QueryVitalsCountUnsent   = "vitals.count_unsent"
	QueryVitalsTimeBounds    = "vitals.time_bounds"
	QueryVitalsDeleteOld     = "vitals.delete_older_than"
	QueryVitalsFindUnsent    = "vitals.find_unsent"
	QueryVitalsMarkSent      = "vitals.mark_sent"

	QueryAlarmsInsert        = "alarms.insert"
	QueryAlarmsFindByID      = "alarms.find_by_id"
	QueryAlarmsGetActive     = "alarms.get_active"
	QueryAlarmsHistoryByMRN  = "alarms.get_history_by_patient"
	QueryAlarmsHistoryAll    = "alarms.get_history_all"
	QueryAlarmsUpdateStatus  = "alarms.update_status"
	QueryAlarmsUpdateAck     = "alarms.update_status_ack"
	QueryAlarmsCountAll      = "alarms.count_all"
	QueryAlarmsCountActive   = "alarms.count_active"
	QueryAlarmsDeleteOld     = "alarms.delete_older_than"

	QueryTelemetryInsert     = "telemetry.insert"
	QueryTelemetryHistorical = "telemetry.get_historical"
	QueryTelemetryUnsent     = "telemetry.get_unsent"
	QueryTelemetryMarkSent   = "telemetry.mark_sent"
	QueryTelemetryMarkFailed = "telemetry.mark_failed"
	QueryTelemetryArchive    = "telemetry.archive"
	QueryTelemetryCountAll   = "telemetry.count_all"
	QueryTelemetryCountUnsent = "telemetry.count_unsent"

	QueryAuditInsert    = "audit.insert"
	QueryAuditGetLast   = "audit.get_last_entry"
	QueryAuditGetRange  = "audit.get_range"
	QueryAuditGetByUser = "audit.get_by_user"
	QueryAuditGetByTarget = "audit.get_by_target"
	QueryAuditGetAll    = "audit.get_all_ordered"
	QueryAuditArchive   = "audit.archive"
	QueryAuditCountAll  = "audit.count_all"

	QueryPatientUpsert        = "patient.upsert"
	QueryPatientFindByMRN     = "patient.find_by_mrn"
	QueryPatientFindAll       = "patient.find_all"
	QueryPatientExists        = "patient.check_exists"
	QueryPatientDelete        = "patient.delete"
	QueryPatientInsertEvent   = "patient.insert_admission_event"
	QueryPatientEventHistory  = "patient.get_admission_history"
	QueryPatientCountAll      = "patient.count_all"
)

const (
	vitalsColumns    = "id, patient_mrn, timestamp_ms, vital_type, value, signal_quality, source, is_synced"
	alarmsColumns    = "alarm_id, alarm_type, priority, status, value, threshold_value, timestamp_ms, patient_mrn, device_id, acknowledged_by, acknowledged_at_ms"
	telemetryColumns = "batch_id, device_id, patient_mrn, created_at_ms, status, record_count, payload_bytes, retry_count, transmitted_at_ms, server_received_at_ms, server_ack_at_ms, payload"
	auditColumns     = "id, timestamp_ms, user_id, action_type, target_type, target_id, details, previous_hash"
	patientColumns   = "mrn, name, date_of_birth, sex, allergies, bed_location, admission_status, admitted_at_ms, discharged_at_ms, created_at_ms"
)

// DefaultCatalog returns the full query surface of the persistence engine.
// All SQL is static text with positional parameters; no statement is ever
// assembled from user input. Variants like find_by_patient_range vs
// find_range_all exist so the "all patients" case never relies on wildcard
// parameter binding.
func DefaultCatalog() *Catalog {
	c := NewCatalog()

	// vitals
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsInsert,
		SQL:         "INSERT INTO vitals (patient_mrn, timestamp_ms, vital_type, value, signal_quality, source, is_synced) VALUES (?, ?, ?, ?, ?, ?, ?)",
		Description: "Insert a single vital sign sample.",
		Parameters:  []string{"patient_mrn", "timestamp_ms", "vital_type", "value", "signal_quality", "source", "is_synced"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsFindByRange,
		SQL:         "SELECT " + vitalsColumns + " FROM vitals WHERE patient_mrn = ? AND timestamp_ms >= ? AND timestamp_ms <= ? ORDER BY timestamp_ms ASC, id ASC",
		Description: "Vitals for one patient within a closed time range, oldest first.",
		Parameters:  []string{"patient_mrn", "start_ms", "end_ms"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsFindRangeAll,
		SQL:         "SELECT " + vitalsColumns + " FROM vitals WHERE timestamp_ms >= ? AND timestamp_ms <= ? ORDER BY timestamp_ms ASC, id ASC",
		Description: "Vitals for all patients within a closed time range, oldest first.",
		Parameters:  []string{"start_ms", "end_ms"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsCountByMRN,
		SQL:         "SELECT COUNT(*) FROM vitals WHERE patient_mrn = ?",
		Description: "Number of stored samples for one patient.",
		Parameters:  []string{"patient_mrn"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsCountAll,
		SQL:         "SELECT COUNT(*) FROM vitals",
		Description: "Total number of stored samples.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsCountUnsent,
		SQL:         "SELECT COUNT(*) FROM vitals WHERE is_synced = 0",
		Description: "Number of samples not yet uploaded.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsTimeBounds,
		SQL:         "SELECT COALESCE(MIN(timestamp_ms), 0), COALESCE(MAX(timestamp_ms), 0) FROM vitals",
		Description: "Oldest and newest sample timestamps.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsDeleteOld,
		SQL:         "DELETE FROM vitals WHERE timestamp_ms < ?",
		Description: "Retention delete of samples older than a cutoff.",
		Parameters:  []string{"cutoff_ms"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsFindUnsent,
		SQL:         "SELECT " + vitalsColumns + " FROM vitals WHERE is_synced = 0 ORDER BY timestamp_ms ASC, id ASC LIMIT ?",
		Description: "Oldest samples awaiting upload.",
		Parameters:  []string{"limit"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryVitalsMarkSent,
		SQL:         "UPDATE vitals SET is_synced = 1 WHERE id = ?",
		Description: "Mark one sample as uploaded.",
		Parameters:  []string{"id"},
	})

	// alarms
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsInsert,
		SQL:         "INSERT INTO alarms (" + alarmsColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		Description: "Insert an alarm occurrence.",
		Parameters:  []string{"alarm_id", "alarm_type", "priority", "status", "value", "threshold_value", "timestamp_ms", "patient_mrn", "device_id", "acknowledged_by", "acknowledged_at_ms"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsFindByID,
		SQL:         "SELECT " + alarmsColumns + " FROM alarms WHERE alarm_id = ?",
		Description: "Look up one alarm by its identifier.",
		Parameters:  []string{"alarm_id"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID: QueryAlarmsGetActive,
		SQL: "SELECT " + alarmsColumns + " FROM alarms WHERE status = 'active' " +
			"ORDER BY CASE priority WHEN 'CRITICAL' THEN 0 WHEN 'HIGH' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 3 ELSE 4 END ASC, timestamp_ms DESC",
		Description: "Active alarms, most urgent first, newest within a priority.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsHistoryByMRN,
		SQL:         "SELECT " + alarmsColumns + " FROM alarms WHERE patient_mrn = ? AND timestamp_ms >= ? AND timestamp_ms <= ? ORDER BY timestamp_ms DESC",
		Description: "Alarm history for one patient within a time range, newest first.",
		Parameters:  []string{"patient_mrn", "start_ms", "end_ms"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsHistoryAll,
		SQL:         "SELECT " + alarmsColumns + " FROM alarms WHERE timestamp_ms >= ? AND timestamp_ms <= ? ORDER BY timestamp_ms DESC",
		Description: "Alarm history for all patients within a time range, newest first.",
		Parameters:  []string{"start_ms", "end_ms"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsUpdateStatus,
		SQL:         "UPDATE alarms SET status = ? WHERE alarm_id = ?",
		Description: "Change alarm status without touching acknowledgement fields.",
		Parameters:  []string{"status", "alarm_id"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsUpdateAck,
		SQL:         "UPDATE alarms SET status = ?, acknowledged_by = ?, acknowledged_at_ms = ? WHERE alarm_id = ?",
		Description: "Change alarm status and stamp the acknowledging user.",
		Parameters:  []string{"status", "acknowledged_by", "acknowledged_at_ms", "alarm_id"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsCountAll,
		SQL:         "SELECT COUNT(*) FROM alarms",
		Description: "Total number of stored alarms.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsCountActive,
		SQL:         "SELECT COUNT(*) FROM alarms WHERE status = 'active'",
		Description: "Number of currently active alarms.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAlarmsDeleteOld,
		SQL:         "DELETE FROM alarms WHERE timestamp_ms < ? AND status != 'active'",
		Description: "Retention delete of resolved alarms older than a cutoff.",
		Parameters:  []string{"cutoff_ms"},
	})

	// telemetry
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryInsert,
		SQL:         "INSERT INTO telemetry_metrics (batch_id, device_id, patient_mrn, created_at_ms, status, record_count, payload_bytes, retry_count, payload) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		Description: "Queue a telemetry batch for transmission.",
		Parameters:  []string{"batch_id", "device_id", "patient_mrn", "created_at_ms", "status", "record_count", "payload_bytes", "retry_count", "payload"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryHistorical,
		SQL:         "SELECT " + telemetryColumns + " FROM telemetry_metrics WHERE created_at_ms >= ? AND created_at_ms <= ? ORDER BY created_at_ms ASC",
		Description: "Batches created within a time range, oldest first.",
		Parameters:  []string{"start_ms", "end_ms"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryUnsent,
		SQL:         "SELECT " + telemetryColumns + " FROM telemetry_metrics WHERE status != 'sent' ORDER BY created_at_ms ASC",
		Description: "Batches still awaiting successful transmission, oldest first.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryMarkSent,
		SQL:         "UPDATE telemetry_metrics SET status = 'sent', transmitted_at_ms = ?, server_received_at_ms = ?, server_ack_at_ms = ? WHERE batch_id = ?",
		Description: "Record a successful transmission with its latency timeline.",
		Parameters:  []string{"transmitted_at_ms", "server_received_at_ms", "server_ack_at_ms", "batch_id"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryMarkFailed,
		SQL:         "UPDATE telemetry_metrics SET status = 'failed', retry_count = retry_count + 1 WHERE batch_id = ?",
		Description: "Record a failed transmission attempt.",
		Parameters:  []string{"batch_id"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryArchive,
		SQL:         "DELETE FROM telemetry_metrics WHERE status = 'sent' AND created_at_ms < ?",
		Description: "Archive delete of sent batches older than a cutoff. Unsent batches are never archived.",
		Parameters:  []string{"cutoff_ms"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryCountAll,
		SQL:         "SELECT COUNT(*) FROM telemetry_metrics",
		Description: "Total number of stored batches.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryTelemetryCountUnsent,
		SQL:         "SELECT COUNT(*) FROM telemetry_metrics WHERE status != 'sent'",
		Description: "Number of batches awaiting transmission.",
		ReadOnly:    true,
	})

	// audit
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditInsert,
		SQL:         "INSERT INTO action_log (timestamp_ms, user_id, action_type, target_type, target_id, details, previous_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
		Description: "Append one entry to the hash-chained action log.",
		Parameters:  []string{"timestamp_ms", "user_id", "action_type", "target_type", "target_id", "details", "previous_hash"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditGetLast,
		SQL:         "SELECT " + auditColumns + " FROM action_log ORDER BY id DESC LIMIT 1",
		Description: "Newest action log entry; the anchor for the next chain hash.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditGetRange,
		SQL:         "SELECT " + auditColumns + " FROM action_log WHERE timestamp_ms >= ? AND timestamp_ms <= ? ORDER BY id ASC",
		Description: "Entries within a time range in append order.",
		Parameters:  []string{"start_ms", "end_ms"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditGetByUser,
		SQL:         "SELECT " + auditColumns + " FROM action_log WHERE user_id = ? ORDER BY id DESC LIMIT ?",
		Description: "Most recent entries for one user.",
		Parameters:  []string{"user_id", "limit"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditGetByTarget,
		SQL:         "SELECT " + auditColumns + " FROM action_log WHERE target_type = ? AND target_id = ? ORDER BY id ASC",
		Description: "All entries touching one target in append order.",
		Parameters:  []string{"target_type", "target_id"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditGetAll,
		SQL:         "SELECT " + auditColumns + " FROM action_log ORDER BY id ASC",
		Description: "Full log in append order, used by chain verification.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditArchive,
		SQL: "DELETE FROM action_log WHERE id < COALESCE(" +
			"(SELECT MIN(id) FROM action_log WHERE timestamp_ms >= ?), " +
			"(SELECT MAX(id) + 1 FROM action_log))",
		Description: "Archive delete of the chain prefix before the first entry at or after the cutoff. Removing a strict prefix can never break a remaining link; the oldest surviving entry becomes the new chain anchor.",
		Parameters:  []string{"cutoff_ms"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryAuditCountAll,
		SQL:         "SELECT COUNT(*) FROM action_log",
		Description: "Total number of log entries.",
		ReadOnly:    true,
	})

	// patient
	c.mustRegister(QueryDefinition{
		ID: QueryPatientUpsert,
		SQL: "INSERT INTO patients (" + patientColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) " +
			"ON CONFLICT(mrn) DO UPDATE SET name = excluded.name, date_of_birth = excluded.date_of_birth, sex = excluded.sex, " +
			"allergies = excluded.allergies, bed_location = excluded.bed_location, admission_status = excluded.admission_status, " +
			"admitted_at_ms = excluded.admitted_at_ms, discharged_at_ms = excluded.discharged_at_ms",
		Description: "Insert or update the locally cached patient record.",
		Parameters:  []string{"mrn", "name", "date_of_birth", "sex", "allergies", "bed_location", "admission_status", "admitted_at_ms", "discharged_at_ms", "created_at_ms"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientFindByMRN,
		SQL:         "SELECT " + patientColumns + " FROM patients WHERE mrn = ?",
		Description: "Look up one patient by MRN.",
		Parameters:  []string{"mrn"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientFindAll,
		SQL:         "SELECT " + patientColumns + " FROM patients ORDER BY name ASC",
		Description: "All cached patients ordered by name.",
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientExists,
		SQL:         "SELECT EXISTS(SELECT 1 FROM patients WHERE mrn = ?)",
		Description: "Whether a patient record exists for an MRN.",
		Parameters:  []string{"mrn"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientDelete,
		SQL:         "DELETE FROM patients WHERE mrn = ?",
		Description: "Remove a cached patient record.",
		Parameters:  []string{"mrn"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientInsertEvent,
		SQL:         "INSERT INTO admission_events (patient_mrn, event_type, details, timestamp_ms) VALUES (?, ?, ?, ?)",
		Description: "Record an admission, transfer or discharge event.",
		Parameters:  []string{"patient_mrn", "event_type", "details", "timestamp_ms"},
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientEventHistory,
		SQL:         "SELECT id, patient_mrn, event_type, details, timestamp_ms FROM admission_events WHERE patient_mrn = ? ORDER BY timestamp_ms ASC, id ASC",
		Description: "Admission history for one patient, oldest first.",
		Parameters:  []string{"patient_mrn"},
		ReadOnly:    true,
	})
	c.mustRegister(QueryDefinition{
		ID:          QueryPatientCountAll,
		SQL:         "SELECT COUNT(*) FROM patients",
		Description: "Number of cached patient records.",
		ReadOnly:    true,
	})

	return c
}
