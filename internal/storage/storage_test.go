package storage

import (
	"path/filepath"
	"testing"

	"zmon/internal/logging"
)

// setupTestStore opens a fresh store in a temp directory with the full
// catalog installed.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenStore(path, "", logging.NewDiscardLogger())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	m := NewManager(logging.NewDiscardLogger())

	if m.IsOpen() {
		t.Fatal("new manager should be closed")
	}
	if err := m.Open(path, ""); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if !m.IsOpen() {
		t.Fatal("manager should be open")
	}

	// Opening twice is a conflict.
	if err := m.Open(path, ""); !IsConflict(err) {
		t.Errorf("double open: got %v, want conflict", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if m.IsOpen() {
		t.Error("manager should be closed")
	}
	// Closing twice is a no-op.
	if err := m.Close(); err != nil {
		t.Errorf("second close: got %v, want nil", err)
	}
}

func TestOpenWithPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "enc.db")
	m := NewManager(logging.NewDiscardLogger())
	if err := m.Open(path, "correct horse battery staple"); err != nil {
		t.Fatalf("open with passphrase failed: %v", err)
	}
	defer m.Close()
	if !m.IsOpen() {
		t.Error("manager should be open")
	}
}

func TestOpenEmptyPath(t *testing.T) {
	m := NewManager(logging.NewDiscardLogger())
	if err := m.Open("", ""); !IsInvalidArgument(err) {
		t.Errorf("got %v, want invalid_argument", err)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	m := NewManager(logging.NewDiscardLogger())
	if err := m.Open(path, ""); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Second open must take the migration path, not re-create.
	if err := m.Open(path, ""); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	m.Close()
}

func TestTransactionStateMachine(t *testing.T) {
	store := setupTestStore(t)
	m := store.Manager

	if m.InTransaction() {
		t.Fatal("no transaction should be open")
	}
	if err := m.Commit(); !IsConflict(err) {
		t.Errorf("commit without begin: got %v, want conflict", err)
	}
	if err := m.Rollback(); !IsConflict(err) {
		t.Errorf("rollback without begin: got %v, want conflict", err)
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if !m.InTransaction() {
		t.Error("transaction should be open")
	}
	if err := m.Begin(); !IsConflict(err) {
		t.Errorf("nested begin: got %v, want conflict", err)
	}
	if err := m.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if m.InTransaction() {
		t.Error("transaction should be closed after commit")
	}

	if err := m.Begin(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := m.Rollback(); err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	m := store.Manager

	sentinel := invalidArgf("boom")
	err := m.WithTx(func() error {
		if _, err := m.ExecSQL(
			"INSERT INTO vitals (patient_mrn, timestamp_ms, vital_type, value, signal_quality, source) VALUES ('MRN1', 1000, 'spo2', 98, 90, 'dev')"); err != nil {
			return err
		}
		return sentinel
	})
	if err != sentinel {
		t.Fatalf("got %v, want sentinel error", err)
	}

	row, err := m.QueryRowSQL("SELECT COUNT(*) FROM vitals")
	if err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	var n int
	if err := row.Scan(&n); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if n != 0 {
		t.Errorf("rollback left %d rows behind", n)
	}
}

func TestPreparedQueryRegistration(t *testing.T) {
	store := setupTestStore(t)
	m := store.Manager

	if !m.HasQuery(QueryVitalsInsert) {
		t.Error("catalog query should be prepared")
	}
	if err := m.RegisterPrepared(QueryVitalsInsert, "SELECT 1"); !IsConflict(err) {
		t.Errorf("duplicate registration: got %v, want conflict", err)
	}
	if err := m.RegisterPrepared("", "SELECT 1"); !IsInvalidArgument(err) {
		t.Errorf("empty id: got %v, want invalid_argument", err)
	}
	if err := m.RegisterPrepared("x.y", ""); !IsInvalidArgument(err) {
		t.Errorf("empty sql: got %v, want invalid_argument", err)
	}

	if _, err := m.Exec("nonexistent.query"); !IsInvalidArgument(err) {
		t.Errorf("unregistered exec: got %v, want invalid_argument", err)
	}

	ids := m.RegisteredQueries()
	if len(ids) != store.Catalog.Len() {
		t.Errorf("got %d prepared queries, want %d", len(ids), store.Catalog.Len())
	}
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("ids not sorted: %s before %s", ids[i-1], ids[i])
		}
	}
}

func TestClosedManagerOperations(t *testing.T) {
	m := NewManager(logging.NewDiscardLogger())

	if _, err := m.Exec(QueryVitalsInsert); !IsDatabase(err) {
		t.Errorf("exec on closed: got %v, want database error", err)
	}
	if _, err := m.Query(QueryVitalsFindUnsent, 1); !IsDatabase(err) {
		t.Errorf("query on closed: got %v, want database error", err)
	}
	if err := m.Begin(); !IsDatabase(err) {
		t.Errorf("begin on closed: got %v, want database error", err)
	}
	if err := m.RegisterPrepared("a.b", "SELECT 1"); !IsDatabase(err) {
		t.Errorf("register on closed: got %v, want database error", err)
	}
}

func TestCollectStatsEmpty(t *testing.T) {
	store := setupTestStore(t)
	s, err := CollectStats(store.Manager)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if s.Vitals != 0 || s.Alarms != 0 || s.TelemetryTotal != 0 || s.AuditEntries != 0 || s.Patients != 0 {
		t.Errorf("empty store stats not all zero: %+v", s)
	}
}
