// Package state persists sessions and their append-only message logs.
// The SQL backend runs on SQLite (pure Go or cgo driver) or MySQL; a Redis
// backend is in redis.go.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverSQLite    = "sqlite"  // modernc.org/sqlite, no cgo
	DriverSQLiteCgo = "sqlite3" // github.com/mattn/go-sqlite3
	DriverMySQL     = "mysql"
)

// DB wraps a SQL connection with concierge-specific operations.
type DB struct {
	conn   *sql.DB
	path   string
	driver string
	mu     sync.RWMutex
}

// DefaultDBPath returns the default SQLite database path under dataDir.
func DefaultDBPath(dataDir string) string {
	return filepath.Join(dataDir, "concierge.db")
}

// Open opens a SQLite database at the given path using the pure Go driver.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	return OpenDriver(DriverSQLite, path)
}

// OpenDriver opens a database with the named driver. For the SQLite drivers
// dsn is a file path; for MySQL it is a go-sql-driver DSN.
func OpenDriver(driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverSQLiteCgo:
		return openSQLite(driver, dsn)
	case DriverMySQL:
		return openMySQL(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

func openSQLite(driver, path string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for concurrent reads
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path, driver: driver}, nil
}

func openMySQL(dsn string) (*DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open database: mysql dsn is required")
	}
	conn, err := sql.Open(DriverMySQL, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(20)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{conn: conn, driver: DriverMySQL}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file. It is empty for MySQL.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the SQL driver name.
func (db *DB) Driver() string {
	return db.driver
}

type migration struct {
	version int
	stmts   []string
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range db.migrations() {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		for _, stmt := range m.stmts {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("apply migration v%d: %w", m.version, err)
			}
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// migrations returns the schema for the current dialect. MySQL cannot index
// TEXT keys and rejects multi-statement Exec, so each statement runs alone.
func (db *DB) migrations() []migration {
	if db.driver == DriverMySQL {
		return []migration{
			{1, []string{mysqlV1Sessions, mysqlV1SessionsIndex}},
			{2, []string{mysqlV2Messages, mysqlV2MessagesIndex}},
		}
	}
	return []migration{
		{1, []string{migrationV1Sessions}},
		{2, []string{migrationV2Messages}},
	}
}

// Migration SQL statements
const migrationV1Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT,
	current_responder_id TEXT,
	start_time DATETIME NOT NULL,
	last_activity DATETIME NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
`

const migrationV2Messages = `
CREATE TABLE IF NOT EXISTS messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	message_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	agent_id TEXT,
	metadata TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);
`

const mysqlV1Sessions = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id VARCHAR(191) PRIMARY KEY,
	user_id VARCHAR(191),
	current_responder_id VARCHAR(191),
	start_time VARCHAR(40) NOT NULL,
	last_activity VARCHAR(40) NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0
)`

const mysqlV1SessionsIndex = `CREATE INDEX idx_sessions_last_activity ON sessions(last_activity)`

const mysqlV2Messages = `
CREATE TABLE IF NOT EXISTS messages (
	seq BIGINT AUTO_INCREMENT PRIMARY KEY,
	session_id VARCHAR(191) NOT NULL,
	message_id VARCHAR(191) NOT NULL,
	role VARCHAR(16) NOT NULL,
	content MEDIUMTEXT NOT NULL,
	agent_id VARCHAR(191),
	metadata TEXT,
	created_at VARCHAR(40) NOT NULL
)`

const mysqlV2MessagesIndex = `CREATE INDEX idx_messages_session ON messages(session_id, seq)`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	return db.ExecContext(context.Background(), query, args...)
}

// ExecContext executes a query that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	return db.QueryContext(context.Background(), query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	return db.QueryRowContext(context.Background(), query, args...)
}

// QueryRowContext executes a query that returns at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// timeLayout is fixed-width so stored times sort as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTime formats a time.Time for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime parses a stored time string.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// PurgeIdleSessions deletes sessions, and their messages, whose last
// activity is older than the specified duration.
// Returns the number of sessions deleted.
func (db *DB) PurgeIdleSessions(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-olderThan))

	var count int64
	err := db.Transaction(func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM messages WHERE session_id IN (
				SELECT session_id FROM sessions WHERE last_activity < ?
			)`, cutoff); err != nil {
			return fmt.Errorf("purge messages: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("purge sessions: %w", err)
		}
		count, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
