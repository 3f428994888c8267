package storage

// Stats is a point-in-time summary of the store, used by the CLI and by
// periodic health logging.
type Stats struct {
	Vitals          int64
	UnsentVitals    int64
	OldestVitalMs   int64
	NewestVitalMs   int64
	Alarms          int64
	ActiveAlarms    int64
	TelemetryTotal  int64
	TelemetryUnsent int64
	AuditEntries    int64
	Patients        int64
}

// CollectStats runs the registered count queries and assembles a snapshot.
func CollectStats(m *Manager) (*Stats, error) {
	s := &Stats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{QueryVitalsCountAll, &s.Vitals},
		{QueryVitalsCountUnsent, &s.UnsentVitals},
		{QueryAlarmsCountAll, &s.Alarms},
		{QueryAlarmsCountActive, &s.ActiveAlarms},
		{QueryTelemetryCountAll, &s.TelemetryTotal},
		{QueryTelemetryCountUnsent, &s.TelemetryUnsent},
		{QueryAuditCountAll, &s.AuditEntries},
		{QueryPatientCountAll, &s.Patients},
	}
	for _, c := range counts {
		row, err := m.QueryRow(c.query)
		if err != nil {
			return nil, err
		}
		if err := row.Scan(c.dest); err != nil {
			return nil, wrapDBErr("failed to collect stats", err)
		}
	}

	row, err := m.QueryRow(QueryVitalsTimeBounds)
	if err != nil {
		return nil, err
	}
	if err := row.Scan(&s.OldestVitalMs, &s.NewestVitalMs); err != nil {
		return nil, wrapDBErr("failed to collect vital time bounds", err)
	}

	return s, nil
}
