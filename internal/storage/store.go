package storage

import (
	"fmt"
	"log/slog"
)

// Store bundles the manager, the installed catalog and one repository per
// aggregate. It is the composition root for the persistence engine; callers
// construct it once at startup and hand repositories to whoever needs them.
type Store struct {
	Manager   *Manager
	Catalog   *Catalog
	Vitals    *VitalsRepository
	Alarms    *AlarmRepository
	Telemetry *TelemetryRepository
	Audit     *AuditRepository
	Patients  *PatientRepository
}

// OpenStore opens the database, prepares every catalog query and wires the
// repositories.
func OpenStore(path, passphrase string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m := NewManager(logger)
	if err := m.Open(path, passphrase); err != nil {
		return nil, err
	}

	catalog := DefaultCatalog()
	if err := catalog.InstallPrepared(m); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to install query catalog: %w", err)
	}

	telemetry, err := NewTelemetryRepository(m, logger)
	if err != nil {
		m.Close()
		return nil, err
	}

	return &Store{
		Manager:   m,
		Catalog:   catalog,
		Vitals:    NewVitalsRepository(m, logger),
		Alarms:    NewAlarmRepository(m, logger),
		Telemetry: telemetry,
		Audit:     NewAuditRepository(m, logger),
		Patients:  NewPatientRepository(m, logger),
	}, nil
}

// Close shuts the underlying manager down.
func (s *Store) Close() error {
	return s.Manager.Close()
}
