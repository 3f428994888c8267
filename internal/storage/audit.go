package storage

import (
	"database/sql"
	"log/slog"
	"time"

	"zmon/internal/domain"
)

// AuditRepository is the append-only, hash-chained action log. Every entry
// carries the chain hash of its predecessor; altering any stored row breaks
// every link after it.
type AuditRepository struct {
	m      *Manager
	logger *slog.Logger
}

// NewAuditRepository creates an audit repository on the given manager.
func NewAuditRepository(m *Manager, logger *slog.Logger) *AuditRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditRepository{m: m, logger: logger}
}

// Save appends one entry. Reading the current chain head and inserting the
// new entry happen in the same transaction, so two concurrent saves can
// never pick up the same predecessor. The entry's ID and PreviousHash are
// filled in on return.
func (r *AuditRepository) Save(e *domain.AuditEntry) error {
	if e == nil {
		return invalidArgf("audit entry must not be nil")
	}
	if e.UserID == "" {
		return invalidArgf("audit entry has empty user id")
	}
	if e.ActionType == "" {
		return invalidArgf("audit entry has empty action type")
	}
	if e.TimestampMs == 0 {
		e.TimestampMs = time.Now().UnixMilli()
	}

	return r.m.WithTx(func() error {
		last, err := r.lastEntry()
		if err != nil {
			return err
		}
		e.PreviousHash = ""
		if last != nil {
			e.PreviousHash = last.ChainHash()
		}

		res, err := r.m.Exec(QueryAuditInsert,
			e.TimestampMs, e.UserID, e.ActionType, e.TargetType,
			e.TargetID, e.Details, e.PreviousHash)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return wrapDBErr("failed to read inserted audit id", err)
		}
		e.ID = id
		return nil
	})
}

// lastEntry returns the newest entry, or nil on an empty log.
func (r *AuditRepository) lastEntry() (*domain.AuditEntry, error) {
	row, err := r.m.QueryRow(QueryAuditGetLast)
	if err != nil {
		return nil, err
	}
	e, err := scanAuditRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapDBErr("failed to read last audit entry", err)
	}
	return e, nil
}

// GetLastEntry returns the newest entry or a not_found error on an empty log.
func (r *AuditRepository) GetLastEntry() (*domain.AuditEntry, error) {
	if !r.m.IsOpen() {
		return nil, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	e, err := r.lastEntry()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, notFoundf("action log is empty")
	}
	return e, nil
}

// GetRange returns entries within [startMs, endMs] in append order.
// A closed store yields an empty result.
func (r *AuditRepository) GetRange(startMs, endMs int64) ([]domain.AuditEntry, error) {
	if startMs > endMs {
		return nil, invalidArgf("range start %d is after end %d", startMs, endMs)
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetRange on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryAuditGetRange, startMs, endMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// GetByUser returns the most recent entries for one user.
func (r *AuditRepository) GetByUser(userID string, limit int) ([]domain.AuditEntry, error) {
	if userID == "" {
		return nil, invalidArgf("user id must not be empty")
	}
	if limit <= 0 {
		return nil, invalidArgf("limit must be positive, got %d", limit)
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetByUser on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryAuditGetByUser, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// GetByTarget returns all entries touching one target in append order.
func (r *AuditRepository) GetByTarget(targetType, targetID string) ([]domain.AuditEntry, error) {
	if targetType == "" || targetID == "" {
		return nil, invalidArgf("target type and id must not be empty")
	}
	if !r.m.IsOpen() {
		r.logger.Warn("GetByTarget on closed store")
		return nil, nil
	}
	rows, err := r.m.Query(QueryAuditGetByTarget, targetType, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditRows(rows)
}

// Archive removes the chain prefix before the first entry recorded at or
// after cutoffMs. Deleting by chain position rather than by timestamp means
// an out-of-order timestamp can never cost the log a middle link. The oldest
// surviving entry becomes the new chain anchor; verification treats its
// previous hash as trusted.
func (r *AuditRepository) Archive(cutoffMs int64) (int64, error) {
	var removed int64
	err := r.m.WithTx(func() error {
		res, err := r.m.Exec(QueryAuditArchive, cutoffMs)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return wrapDBErr("failed to count archived audit entries", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.Info("Audit archive applied", "removed", removed, "cutoff_ms", cutoffMs)
	}
	return removed, nil
}

// VerifyIntegrity walks the whole log in append order and recomputes every
// chain link. It returns false as soon as a stored previous_hash disagrees
// with the recomputed hash of its predecessor. The first entry is the
// anchor and is accepted as-is.
func (r *AuditRepository) VerifyIntegrity() (bool, error) {
	if !r.m.IsOpen() {
		return false, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	rows, err := r.m.Query(QueryAuditGetAll)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var prev *domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditRow(rows.Scan)
		if err != nil {
			return false, wrapDBErr("failed to scan audit entry", err)
		}
		if prev != nil && e.PreviousHash != prev.ChainHash() {
			r.logger.Error("Audit chain broken", "entry_id", e.ID, "previous_id", prev.ID)
			return false, nil
		}
		prev = e
	}
	if err := rows.Err(); err != nil {
		return false, wrapDBErr("failed to iterate audit entries", err)
	}
	return true, nil
}

func scanAuditRow(scan func(dest ...any) error) (*domain.AuditEntry, error) {
	var e domain.AuditEntry
	err := scan(&e.ID, &e.TimestampMs, &e.UserID, &e.ActionType,
		&e.TargetType, &e.TargetID, &e.Details, &e.PreviousHash)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanAuditRows(rows *sql.Rows) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditRow(rows.Scan)
		if err != nil {
			return nil, wrapDBErr("failed to scan audit entry", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr("failed to iterate audit entries", err)
	}
	return out, nil
}
