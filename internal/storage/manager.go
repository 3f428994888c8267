package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/crypto/pbkdf2"
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// Key derivation parameters for the optional database encryption.
	keySalt       = "zmon.storage.v1"
	keyIterations = 100000
	keyLength     = 32
)

// Manager owns the single SQLite connection and its prepared-statement
// cache. It is not safe for concurrent use: exactly one goroutine (the
// database worker) drives it. At most one transaction is open at a time.
type Manager struct {
	logger *slog.Logger
	path   string
	conn   *sql.DB
	tx     *sql.Tx
	stmts  map[string]*sql.Stmt
}

// NewManager creates a closed manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger,
		stmts:  make(map[string]*sql.Stmt),
	}
}

// Open opens or creates the database at path, applies the connection
// pragmas and brings the schema up to date. A non-empty passphrase is
// turned into a PRAGMA key before any other statement runs; builds without
// an encryption codec ignore the pragma. Opening an already-open manager
// is a conflict.
func (m *Manager) Open(path, passphrase string) error {
	if m.conn != nil {
		return conflictf("database already open at %s", m.path)
	}
	if path == "" {
		return invalidArgf("database path must not be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return wrapDBErr("failed to create database directory", err)
		}
	}

	conn, err := sql.Open(driverName, path)
	if err != nil {
		return wrapDBErr("failed to open database", err)
	}

	// One connection, one owner. Statement and transaction state assume
	// a single underlying SQLite handle.
	conn.SetMaxOpenConns(1)

	if passphrase != "" {
		key := pbkdf2.Key([]byte(passphrase), []byte(keySalt), keyIterations, keyLength, sha256.New)
		if _, err := conn.Exec(fmt.Sprintf(`PRAGMA key = "x'%s'"`, hex.EncodeToString(key))); err != nil {
			conn.Close()
			return wrapDBErr("failed to apply database key", err)
		}
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-64000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return wrapDBErr(fmt.Sprintf("failed to set %s", pragma), err)
		}
	}

	// A wrong key surfaces here as "file is not a database".
	var n int
	if err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		conn.Close()
		return wrapDBErr("database verification failed", err)
	}

	m.conn = conn
	m.path = path

	if err := m.initializeSchema(); err != nil {
		m.conn = nil
		m.path = ""
		conn.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	m.logger.Info("Database opened", "path", path, "encrypted", passphrase != "")
	return nil
}

// IsOpen reports whether the manager has a live connection.
func (m *Manager) IsOpen() bool {
	return m.conn != nil
}

// Path returns the path the database was opened with.
func (m *Manager) Path() string {
	return m.path
}

// Close finalizes all cached statements, rolls back any open transaction
// and closes the connection. Closing a closed manager is a no-op.
func (m *Manager) Close() error {
	if m.conn == nil {
		return nil
	}

	if m.tx != nil {
		m.logger.Warn("Closing database with open transaction, rolling back")
		if err := m.tx.Rollback(); err != nil {
			m.logger.Error("Rollback during close failed", "error", err)
		}
		m.tx = nil
	}

	for id, stmt := range m.stmts {
		if err := stmt.Close(); err != nil {
			m.logger.Warn("Failed to close prepared statement", "query", id, "error", err)
		}
	}
	m.stmts = make(map[string]*sql.Stmt)

	err := m.conn.Close()
	m.conn = nil
	m.path = ""
	if err != nil {
		return wrapDBErr("failed to close database", err)
	}
	m.logger.Info("Database closed")
	return nil
}

// InTransaction reports whether a transaction is open.
func (m *Manager) InTransaction() bool {
	return m.tx != nil
}

// Begin opens a transaction. Nested transactions are a conflict.
func (m *Manager) Begin() error {
	if m.conn == nil {
		return &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	if m.tx != nil {
		return conflictf("transaction already in progress")
	}
	tx, err := m.conn.Begin()
	if err != nil {
		return wrapDBErr("failed to begin transaction", err)
	}
	m.tx = tx
	return nil
}

// Commit commits the open transaction. Committing without one is a conflict.
func (m *Manager) Commit() error {
	if m.conn == nil {
		return &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	if m.tx == nil {
		return conflictf("no transaction in progress")
	}
	err := m.tx.Commit()
	m.tx = nil
	if err != nil {
		return wrapDBErr("failed to commit transaction", err)
	}
	return nil
}

// Rollback aborts the open transaction. Rolling back without one is a
// conflict.
func (m *Manager) Rollback() error {
	if m.conn == nil {
		return &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	if m.tx == nil {
		return conflictf("no transaction in progress")
	}
	err := m.tx.Rollback()
	m.tx = nil
	if err != nil {
		return wrapDBErr("failed to rollback transaction", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (m *Manager) WithTx(fn func() error) error {
	if err := m.Begin(); err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			if m.tx != nil {
				m.tx.Rollback()
				m.tx = nil
			}
			panic(p)
		}
	}()

	if err := fn(); err != nil {
		if rbErr := m.Rollback(); rbErr != nil {
			m.logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}

	return m.Commit()
}

// RegisterPrepared compiles sqlText and caches the statement under id.
// Registering the same id twice is a conflict; a compile failure means the
// SQL and the schema disagree and is reported as a database error.
func (m *Manager) RegisterPrepared(id, sqlText string) error {
	if m.conn == nil {
		return &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	if id == "" {
		return invalidArgf("query id must not be empty")
	}
	if sqlText == "" {
		return invalidArgf("query %s has empty SQL", id)
	}
	if _, ok := m.stmts[id]; ok {
		return conflictf("query %s already prepared", id)
	}
	stmt, err := m.conn.Prepare(sqlText)
	if err != nil {
		return wrapDBErr(fmt.Sprintf("failed to prepare query %s", id), err)
	}
	m.stmts[id] = stmt
	return nil
}

// HasQuery reports whether id has a cached prepared statement.
func (m *Manager) HasQuery(id string) bool {
	_, ok := m.stmts[id]
	return ok
}

// RegisteredQueries returns the sorted ids of all cached statements.
func (m *Manager) RegisteredQueries() []string {
	ids := make([]string, 0, len(m.stmts))
	for id := range m.stmts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// stmt returns the cached statement for id, rebound onto the open
// transaction when one is active.
func (m *Manager) stmt(id string) (*sql.Stmt, error) {
	if m.conn == nil {
		return nil, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	st, ok := m.stmts[id]
	if !ok {
		return nil, invalidArgf("query %s is not registered", id)
	}
	if m.tx != nil {
		return m.tx.Stmt(st), nil
	}
	return st, nil
}

// Exec runs the registered statement id with args.
func (m *Manager) Exec(id string, args ...any) (sql.Result, error) {
	st, err := m.stmt(id)
	if err != nil {
		return nil, err
	}
	res, err := st.Exec(args...)
	if err != nil {
		return nil, wrapDBErr(fmt.Sprintf("query %s failed", id), err)
	}
	return res, nil
}

// Query runs the registered statement id with args and returns the rows.
func (m *Manager) Query(id string, args ...any) (*sql.Rows, error) {
	st, err := m.stmt(id)
	if err != nil {
		return nil, err
	}
	rows, err := st.Query(args...)
	if err != nil {
		return nil, wrapDBErr(fmt.Sprintf("query %s failed", id), err)
	}
	return rows, nil
}

// QueryRow runs the registered statement id with args and returns one row.
// The error, if any, surfaces at Scan time.
func (m *Manager) QueryRow(id string, args ...any) (*sql.Row, error) {
	st, err := m.stmt(id)
	if err != nil {
		return nil, err
	}
	return st.QueryRow(args...), nil
}

// ExecSQL runs raw SQL outside the statement cache. Schema management and
// tests use it; repositories go through the catalog.
func (m *Manager) ExecSQL(sqlText string, args ...any) (sql.Result, error) {
	if m.conn == nil {
		return nil, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	var (
		res sql.Result
		err error
	)
	if m.tx != nil {
		res, err = m.tx.Exec(sqlText, args...)
	} else {
		res, err = m.conn.Exec(sqlText, args...)
	}
	if err != nil {
		return nil, wrapDBErr("exec failed", err)
	}
	return res, nil
}

// QueryRowSQL runs a raw single-row query outside the statement cache.
func (m *Manager) QueryRowSQL(sqlText string, args ...any) (*sql.Row, error) {
	if m.conn == nil {
		return nil, &Error{Code: CodeDatabase, Message: "database is not open"}
	}
	if m.tx != nil {
		return m.tx.QueryRow(sqlText, args...), nil
	}
	return m.conn.QueryRow(sqlText, args...), nil
}
