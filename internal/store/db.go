// Package store provides SQLite-based persistence for the task engine:
// users, projects, roles, memberships, tasks, dependency edges, actions,
// the event log and the scheduled-action queue.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultDBPath returns the default database location under the user's
// data directory.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "taskgrid", "taskgrid.db")
}

// Open opens an SQLite database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
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

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Principals},
		{2, migrationV2Graph},
		{3, migrationV3EventsQueue},
		{4, migrationV4ClaimStamp},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
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

// Migration SQL statements
const migrationV1Principals = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	is_active INTEGER NOT NULL DEFAULT 1,
	is_superuser INTEGER NOT NULL DEFAULT 0,
	notification_prefs TEXT
);

CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL DEFAULT 'active',
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS project_roles (
	name TEXT PRIMARY KEY,
	description TEXT,
	priority INTEGER NOT NULL DEFAULT 0,
	can_create_tasks INTEGER NOT NULL DEFAULT 0,
	can_edit_any_task INTEGER NOT NULL DEFAULT 0,
	can_delete_any_task INTEGER NOT NULL DEFAULT 0,
	can_edit_own_task INTEGER NOT NULL DEFAULT 0,
	can_delete_own_task INTEGER NOT NULL DEFAULT 0,
	can_create_dependencies INTEGER NOT NULL DEFAULT 0,
	can_delete_dependencies INTEGER NOT NULL DEFAULT 0,
	can_manage_members INTEGER NOT NULL DEFAULT 0,
	can_edit_project INTEGER NOT NULL DEFAULT 0,
	can_delete_project INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS project_members (
	project_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	added_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (project_id, user_id)
);
`

const migrationV2Graph = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'todo',
	assignee_id TEXT,
	creator_id TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	started_at DATETIME,
	completed_at DATETIME,
	deadline DATETIME,
	priority INTEGER NOT NULL DEFAULT 0,
	position_x REAL NOT NULL DEFAULT 0,
	position_y REAL NOT NULL DEFAULT 0,
	metadata BLOB
);

CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(project_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);

CREATE TABLE IF NOT EXISTS task_dependencies (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	source_task_id TEXT NOT NULL,
	target_task_id TEXT NOT NULL,
	dependency_type TEXT NOT NULL DEFAULT 'simple',
	description TEXT,
	created_by TEXT,
	created_at DATETIME NOT NULL,
	UNIQUE (source_task_id, target_task_id)
);

CREATE INDEX IF NOT EXISTS idx_deps_project ON task_dependencies(project_id);
CREATE INDEX IF NOT EXISTS idx_deps_source ON task_dependencies(source_task_id);
CREATE INDEX IF NOT EXISTS idx_deps_target ON task_dependencies(target_task_id);

CREATE TABLE IF NOT EXISTS dependency_actions (
	id TEXT PRIMARY KEY,
	dependency_id TEXT NOT NULL,
	action_type TEXT NOT NULL,
	target_user_id TEXT,
	target_status TEXT,
	message_template TEXT,
	delay_minutes INTEGER NOT NULL DEFAULT 0,
	execute_order INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_actions_dependency ON dependency_actions(dependency_id);
`

const migrationV3EventsQueue = `
CREATE TABLE IF NOT EXISTS task_events (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	user_id TEXT,
	event_type TEXT NOT NULL,
	old_value TEXT,
	new_value TEXT,
	metadata BLOB,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_task ON task_events(task_id, created_at);

CREATE TABLE IF NOT EXISTS scheduled_actions (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	action_type TEXT NOT NULL,
	scheduled_for DATETIME NOT NULL,
	executed_at DATETIME,
	payload BLOB,
	dependency_action_id TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scheduled_due ON scheduled_actions(status, scheduled_for);
CREATE INDEX IF NOT EXISTS idx_scheduled_task ON scheduled_actions(task_id, action_type);
`

const migrationV4ClaimStamp = `
ALTER TABLE scheduled_actions ADD COLUMN claimed_at DATETIME;
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Exec(query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.Query(query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
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

// IsBusy reports whether the error is SQLite lock contention, which
// callers may retry.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database table is locked")
}

// IsUniqueViolation reports whether the error is a unique-index conflict.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// formatNullableTime formats an optional time, mapping nil to NULL.
func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// parseNullableTime parses a nullable time string from SQLite.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil
	}
	return &t
}
