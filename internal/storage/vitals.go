package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	"zmon/internal/domain"
)

// VitalsRepository stores vital sign samples. It is the hottest write path
// in the system; batched inserts share one transaction so a full monitor's
// worth of samples lands with a single fsync.
type VitalsRepository struct {
	m      *Manager
	logger *slog.Logger
}

// NewVitalsRepository creates a vitals repository on the given manager.
func NewVitalsRepository(m *Manager, logger *slog.Logger) *VitalsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &VitalsRepository{m: m, logger: logger}
}

func validateVital(rec domain.VitalRecord) error {
	if rec.PatientMRN == "" {
		return invalidArgf("vital record has empty patient MRN")
	}
	if rec.VitalType == "" {
		return invalidArgf("vital record has empty vital type")
	}
	if rec.TimestampMs <= 0 {
		return invalidArgf("vital record has invalid timestamp %d", rec.TimestampMs)
	}
	if rec.SignalQuality < 0 || rec.SignalQuality > 100 {
		return invalidArgf("signal quality %d out of range", rec.SignalQuality)
	}
	return nil
}

// Save inserts a single sample and returns its assigned id.
func (r *VitalsRepository) Save(rec domain.VitalRecord) (int64, error) {
	if err := validateVital(rec); err != nil {
		return 0, err
	}
	res, err := r.m.Exec(QueryVitalsInsert,
		rec.PatientMRN, rec.TimestampMs, rec.VitalType, rec.Value,
		rec.SignalQuality, rec.Source, boolToInt(rec.Synced))
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapDBErr("failed to read inserted vital id", err)
	}
	return id, nil
}

// SaveBatch inserts all records in one transaction. Either every record is
// persisted or none is; the returned count equals len(records) on success.
func (r *VitalsRepository) SaveBatch(records []domain.VitalRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	for i, rec := range records {
		if err := validateVital(rec); err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
	}

	err := r.m.WithTx(func() error {
		for i, rec := range records {
			if _, err := r.m.Exec(QueryVitalsInsert,
				rec.PatientMRN, rec.TimestampMs, rec.VitalType, rec.Value,
				rec.SignalQuality, rec.Source, boolToInt(rec.Synced)); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Debug("Vitals batch saved", "count", len(records))
	return len(records), nil
}

// GetRange returns samples within [startMs, endMs], oldest first. An empty
// MRN selects all patients. A closed store yields an empty result.
func (r *VitalsRepository) GetRange(mrn string, startMs, endMs int64) ([]domain.VitalRecord, error) {
	if startMs > endMs {
		return nil, invalidArgf("range start %d is after end %d", startMs, endMs)
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetRange on closed store")
		return nil, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if mrn == "" {
		rows, err = r.m.Query(QueryVitalsFindRangeAll, startMs, endMs)
	} else {
		rows, err = r.m.Query(QueryVitalsFindByRange, mrn, startMs, endMs)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVitalRows(rows)
}

// CountByPatient returns the number of stored samples for one patient.
func (r *VitalsRepository) CountByPatient(mrn string) (int64, error) {
	if mrn == "" {
		return 0, invalidArgf("patient MRN must not be empty")
	}
	if !r.m.IsOpen() {
		r.logger.Warn("CountByPatient on closed store")
		return 0, nil
	}
	row, err := r.m.QueryRow(QueryVitalsCountByMRN, mrn)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, wrapDBErr("failed to count vitals", err)
	}
	return n, nil
}

// DeleteOlderThan removes samples older than cutoffMs in its own
// transaction and returns the number removed. Running it twice with the
// same cutoff removes nothing the second time.
func (r *VitalsRepository) DeleteOlderThan(cutoffMs int64) (int64, error) {
	var removed int64
	err := r.m.WithTx(func() error {
		res, err := r.m.Exec(QueryVitalsDeleteOld, cutoffMs)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return wrapDBErr("failed to count removed vitals", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.Info("Vitals retention applied", "removed", removed, "cutoff_ms", cutoffMs)
	}
	return removed, nil
}

// GetUnsent returns up to limit samples awaiting upload, oldest first.
func (r *VitalsRepository) GetUnsent(limit int) ([]domain.VitalRecord, error) {
	if limit <= 0 {
		return nil, invalidArgf("limit must be positive, got %d", limit)
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetUnsent on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryVitalsFindUnsent, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVitalRows(rows)
}

// MarkSent flags the given samples as uploaded in one transaction and
// returns the number of rows actually updated. Unknown ids are skipped.
func (r *VitalsRepository) MarkSent(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var updated int64
	err := r.m.WithTx(func() error {
		for _, id := range ids {
			res, err := r.m.Exec(QueryVitalsMarkSent, id)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return wrapDBErr("failed to count marked vitals", err)
			}
			updated += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func scanVitalRows(rows *sql.Rows) ([]domain.VitalRecord, error) {
	var out []domain.VitalRecord
	for rows.Next() {
		var (
			rec    domain.VitalRecord
			synced int
		)
		if err := rows.Scan(&rec.ID, &rec.PatientMRN, &rec.TimestampMs, &rec.VitalType,
			&rec.Value, &rec.SignalQuality, &rec.Source, &synced); err != nil {
			return nil, wrapDBErr("failed to scan vital record", err)
		}
		rec.Synced = synced != 0
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("failed to iterate vital records", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
