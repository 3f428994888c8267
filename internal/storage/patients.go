package storage

import (
	"database/sql"
	"log/slog"
	"time"

	"zmon/internal/domain"
)

// PatientRepository caches patient identity locally so the bedside unit
// keeps working through network outages.
type PatientRepository struct {
	m      *Manager
	logger *slog.Logger
}

// NewPatientRepository creates a patient repository on the given manager.
func NewPatientRepository(m *Manager, logger *slog.Logger) *PatientRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PatientRepository{m: m, logger: logger}
}

// Save inserts or updates the record keyed by MRN. CreatedAtMs is only set
// on first insert.
func (r *PatientRepository) Save(p domain.PatientRecord) error {
	if p.MRN == "" {
		return invalidArgf("patient has empty MRN")
	}
	if p.Name == "" {
		return invalidArgf("patient has empty name")
	}
	if p.CreatedAtMs == 0 {
		p.CreatedAtMs = time.Now().UnixMilli()
	}
	_, err := r.m.Exec(QueryPatientUpsert,
		p.MRN, p.Name, p.DateOfBirth, p.Sex, p.Allergies, p.BedLocation,
		p.AdmissionStatus, nullInt64(p.AdmittedAtMs), nullInt64(p.DischargedAtMs), p.CreatedAtMs)
	return err
}

// FindByMRN returns one patient or a not_found error.
func (r *PatientRepository) FindByMRN(mrn string) (*domain.PatientRecord, error) {
	if mrn == "" {
		return nil, invalidArgf("patient MRN must not be empty")
	}
	if !r.m.IsOpen() {
		return nil, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	row, err := r.m.QueryRow(QueryPatientFindByMRN, mrn)
	if err != nil {
		return nil, err
	}
	p, err := scanPatientRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, notFoundf("patient %s not found", mrn)
	}
	if err != nil {
		return nil, wrapDBErr("failed to scan patient", err)
	}
	return p, nil
}

// FindAll returns all cached patients ordered by name. A closed store
// yields an empty result.
func (r *PatientRepository) FindAll() ([]domain.PatientRecord, error) {
	if !r.m.IsOpen() {
		r.logger.Warn("FindAll on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryPatientFindAll)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PatientRecord
	for rows.Next() {
		p, err := scanPatientRow(rows.Scan)
		if err != nil {
			return nil, wrapDBErr("failed to scan patient", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("failed to iterate patients", err)
	}
	return out, nil
}

// Exists reports whether a record exists for the MRN.
func (r *PatientRepository) Exists(mrn string) (bool, error) {
	if mrn == "" {
		return false, invalidArgf("patient MRN must not be empty")
	}
	if !r.m.IsOpen() {
		return false, nil
	}
	row, err := r.m.QueryRow(QueryPatientExists, mrn)
	if err != nil {
		return false, err
	}
	var exists int
	if err := row.Scan(&exists); err != nil {
		return false, wrapDBErr("failed to check patient existence", err)
	}
	return exists != 0, nil
}

// Delete removes a cached record. An unknown MRN is a not_found error.
func (r *PatientRepository) Delete(mrn string) error {
	if mrn == "" {
		return invalidArgf("patient MRN must not be empty")
	}
	res, err := r.m.Exec(QueryPatientDelete, mrn)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBErr("failed to count deleted patients", err)
	}
	if n == 0 {
		return notFoundf("patient %s not found", mrn)
	}
	return nil
}

// RecordAdmissionEvent appends an admission, transfer or discharge event.
func (r *PatientRepository) RecordAdmissionEvent(ev domain.AdmissionEvent) error {
	if ev.PatientMRN == "" {
		return invalidArgf("admission event has empty patient MRN")
	}
	if ev.EventType == "" {
		return invalidArgf("admission event has empty event type")
	}
	if ev.TimestampMs == 0 {
		ev.TimestampMs = time.Now().UnixMilli()
	}
	_, err := r.m.Exec(QueryPatientInsertEvent, ev.PatientMRN, ev.EventType, ev.Details, ev.TimestampMs)
	return err
}

// GetAdmissionHistory returns all events for one patient, oldest first.
func (r *PatientRepository) GetAdmissionHistory(mrn string) ([]domain.AdmissionEvent, error) {
	if mrn == "" {
		return nil, invalidArgf("patient MRN must not be empty")
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetAdmissionHistory on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryPatientEventHistory, mrn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AdmissionEvent
	for rows.Next() {
		var ev domain.AdmissionEvent
		if err := rows.Scan(&ev.ID, &ev.PatientMRN, &ev.EventType, &ev.Details, &ev.TimestampMs); err != nil {
			return nil, wrapDBErr("failed to scan admission event", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("failed to iterate admission events", err)
	}
	return out, nil
}

func scanPatientRow(scan func(dest ...any) error) (*domain.PatientRecord, error) {
	var (
		p          domain.PatientRecord
		admitted   sql.NullInt64
		discharged sql.NullInt64
	)
	err := scan(&p.MRN, &p.Name, &p.DateOfBirth, &p.Sex, &p.Allergies,
		&p.BedLocation, &p.AdmissionStatus, &admitted, &discharged, &p.CreatedAtMs)
	if err != nil {
		return nil, err
	}
	if admitted.Valid {
		p.AdmittedAtMs = admitted.Int64
	}
	if discharged.Valid {
		p.DischargedAtMs = discharged.Int64
	}
	return &p, nil
}
