package storage

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"zmon/internal/domain"
)

// AlarmRepository stores alarm occurrences and enforces the alarm
// lifecycle on status updates.
type AlarmRepository struct {
	m      *Manager
	logger *slog.Logger
}

// NewAlarmRepository creates an alarm repository on the given manager.
func NewAlarmRepository(m *Manager, logger *slog.Logger) *AlarmRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlarmRepository{m: m, logger: logger}
}

// Save inserts an alarm occurrence. A missing AlarmID is assigned; a
// missing status defaults to active. Inserting an existing AlarmID is a
// conflict (primary key).
func (r *AlarmRepository) Save(a domain.AlarmSnapshot) (string, error) {
	if a.PatientMRN == "" {
		return "", invalidArgf("alarm has empty patient MRN")
	}
	if a.AlarmType == "" {
		return "", invalidArgf("alarm has empty alarm type")
	}
	if a.AlarmID == "" {
		a.AlarmID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = domain.AlarmActive
	}
	if !a.Status.Valid() {
		return "", invalidArgf("unknown alarm status %q", a.Status)
	}
	if a.TimestampMs == 0 {
		a.TimestampMs = time.Now().UnixMilli()
	}

	_, err := r.m.Exec(QueryAlarmsInsert,
		a.AlarmID, a.AlarmType, string(a.Priority), string(a.Status),
		a.Value, a.Threshold, a.TimestampMs, a.PatientMRN, a.DeviceID,
		nullString(a.AcknowledgedBy), nullInt64(a.AcknowledgedAtMs))
	if err != nil {
		return "", err
	}
	return a.AlarmID, nil
}

// FindByID returns one alarm or a not_found error.
func (r *AlarmRepository) FindByID(alarmID string) (*domain.AlarmSnapshot, error) {
	if alarmID == "" {
		return nil, invalidArgf("alarm id must not be empty")
	}
	if !r.m.IsOpen() {
		return nil, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	row, err := r.m.QueryRow(QueryAlarmsFindByID, alarmID)
	if err != nil {
		return nil, err
	}
	a, err := scanAlarmRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, notFoundf("alarm %s not found", alarmID)
	}
	if err != nil {
		return nil, wrapDBErr("failed to scan alarm", err)
	}
	return a, nil
}

// GetActive returns active alarms ordered by priority, then recency.
// A closed store yields an empty result.
func (r *AlarmRepository) GetActive() ([]domain.AlarmSnapshot, error) {
	if !r.m.IsOpen() {
		r.logger.Warn("GetActive on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryAlarmsGetActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlarmRows(rows)
}

// GetHistory returns alarms within [startMs, endMs], newest first. An empty
// MRN selects all patients.
func (r *AlarmRepository) GetHistory(mrn string, startMs, endMs int64) ([]domain.AlarmSnapshot, error) {
	if startMs > endMs {
		return nil, invalidArgf("range start %d is after end %d", startMs, endMs)
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetHistory on closed store")
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if mrn == "" {
		rows, err = r.m.Query(QueryAlarmsHistoryAll, startMs, endMs)
	} else {
		rows, err = r.m.Query(QueryAlarmsHistoryByMRN, mrn, startMs, endMs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAlarmRows(rows)
}

// UpdateStatus moves an alarm to the next lifecycle state. The current
// state is read and the transition validated inside one transaction, so a
// concurrent double-acknowledge cannot slip through. Acknowledge and
// silence stamp the acting user; expiry preserves existing stamps.
func (r *AlarmRepository) UpdateStatus(alarmID string, next domain.AlarmStatus, userID string) error {
	if alarmID == "" {
		return invalidArgf("alarm id must not be empty")
	}
	if !next.Valid() {
		return invalidArgf("unknown alarm status %q", next)
	}

	return r.m.WithTx(func() error {
		row, err := r.m.QueryRow(QueryAlarmsFindByID, alarmID)
		if err != nil {
			return err
		}
		current, err := scanAlarmRow(row.Scan)
		if err == sql.ErrNoRows {
			return notFoundf("alarm %s not found", alarmID)
		}
		if err != nil {
			return wrapDBErr("failed to read alarm", err)
		}

		if !current.Status.CanTransitionTo(next) {
			return conflictf("alarm %s cannot move from %s to %s", alarmID, current.Status, next)
		}

		if next == domain.AlarmAcknowledged || next == domain.AlarmSilenced {
			if userID == "" {
				return invalidArgf("user id required to %s an alarm", next)
			}
			_, err = r.m.Exec(QueryAlarmsUpdateAck, string(next), userID, time.Now().UnixMilli(), alarmID)
		} else {
			_, err = r.m.Exec(QueryAlarmsUpdateStatus, string(next), alarmID)
		}
		if err != nil {
			return err
		}

		r.logger.Info("Alarm status updated", "alarm_id", alarmID, "from", current.Status, "to", next, "user", userID)
		return nil
	})
}

// DeleteOlderThan removes resolved alarms older than cutoffMs. Active
// alarms are never reaped regardless of age.
func (r *AlarmRepository) DeleteOlderThan(cutoffMs int64) (int64, error) {
	var removed int64
	err := r.m.WithTx(func() error {
		res, err := r.m.Exec(QueryAlarmsDeleteOld, cutoffMs)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return wrapDBErr("failed to count removed alarms", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func scanAlarmRow(scan func(dest ...any) error) (*domain.AlarmSnapshot, error) {
	var (
		a        domain.AlarmSnapshot
		priority string
		status   string
		ackBy    sql.NullString
		ackAt    sql.NullInt64
	)
	err := scan(&a.AlarmID, &a.AlarmType, &priority, &status, &a.Value,
		&a.Threshold, &a.TimestampMs, &a.PatientMRN, &a.DeviceID, &ackBy, &ackAt)
	if err != nil {
		return nil, err
	}
	a.Priority = domain.AlarmPriority(priority)
	a.Status = domain.AlarmStatus(status)
	if ackBy.Valid {
		a.AcknowledgedBy = ackBy.String
	}
	if ackAt.Valid {
		a.AcknowledgedAtMs = ackAt.Int64
	}
	return &a, nil
}

func scanAlarmRows(rows *sql.Rows) ([]domain.AlarmSnapshot, error) {
	var out []domain.AlarmSnapshot
	for rows.Next() {
		a, err := scanAlarmRow(rows.Scan)
		if err != nil {
			return nil, wrapDBErr("failed to scan alarm", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("failed to iterate alarms", err)
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
