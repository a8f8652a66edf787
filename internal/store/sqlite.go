// Package store provides the transactional, multi-reader State Store
// described in spec.md §4.2, backed by a single embedded SQLite engine per
// process.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/madhatter5501/aegis/internal/apperr"

	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection.
type DB struct {
	*sql.DB
	path string
}

// Open opens or creates a SQLite database at the given path and runs
// migrations.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "create db directory")
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "open database")
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "enable WAL")
	}
	if _, err := sqlDB.Exec("PRAGMA foreign_keys=ON"); err != nil {
		sqlDB.Close()
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "enable foreign keys")
	}

	d := &DB{DB: sqlDB, path: dbPath}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, apperr.Wrap(apperr.KindStoreUnavailable, err, "migration failed")
	}
	return d, nil
}

// migrate runs the numbered schema migrations, exactly once each.
func (d *DB) migrate() error {
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var version int
	row := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return fmt.Errorf("read migration version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration1Tasks},
		{2, migration2Alerts},
		{3, migration3DecisionsKPI},
		{4, migration4Context},
		{5, migration5MeetingPreps},
		{6, migration6FileIndex},
		{7, migration7CodeRoutes},
		{8, migration8Discoveries},
		{9, migration9AgentStatus},
		{10, migration10Config},
		{11, migration11AuditLog},
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := d.Exec(m.sql); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Migration 1: Tasks.
const migration1Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    owner TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    priority TEXT NOT NULL DEFAULT 'medium',
    due_date DATETIME,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_priority ON tasks(priority);
`

// Migration 2: Alerts.
const migration2Alerts = `
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    level TEXT NOT NULL,
    message TEXT NOT NULL,
    source TEXT,
    acknowledged INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_alerts_level ON alerts(level);
CREATE INDEX IF NOT EXISTS idx_alerts_acknowledged ON alerts(acknowledged);
`

// Migration 3: Decisions and KPI samples (both append-only).
const migration3DecisionsKPI = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    rationale TEXT,
    decision_maker TEXT,
    impact TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS kpi_samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    metric TEXT NOT NULL,
    value REAL NOT NULL,
    timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_kpi_samples_metric ON kpi_samples(metric);
`

// Migration 4: Context entries (arbitrary key-value, upsert semantics).
const migration4Context = `
CREATE TABLE IF NOT EXISTS context_entries (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// Migration 5: Meeting preps (most-recent per event_id wins at read time).
const migration5MeetingPreps = `
CREATE TABLE IF NOT EXISTS meeting_preps (
    id TEXT PRIMARY KEY,
    event_id TEXT NOT NULL,
    brief TEXT,
    created_by TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_meeting_preps_event ON meeting_preps(event_id);
`

// Migration 6: File index (upsert by unique path).
const migration6FileIndex = `
CREATE TABLE IF NOT EXISTS file_index (
    id TEXT PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    extension TEXT,
    size INTEGER DEFAULT 0,
    modified_at DATETIME,
    indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    summary TEXT,
    tags TEXT DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_file_index_extension ON file_index(extension);
`

// Migration 7: Code routes (replaced as a unit per file on re-index).
const migration7CodeRoutes = `
CREATE TABLE IF NOT EXISTS code_routes (
    id TEXT PRIMARY KEY,
    file_path TEXT NOT NULL,
    route_type TEXT NOT NULL,
    name TEXT NOT NULL,
    line_number INTEGER NOT NULL,
    signature TEXT,
    docstring TEXT,
    keywords TEXT DEFAULT '[]',
    indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_code_routes_file_path ON code_routes(file_path);
CREATE INDEX IF NOT EXISTS idx_code_routes_name ON code_routes(name);
CREATE INDEX IF NOT EXISTS idx_code_routes_type ON code_routes(route_type);
`

// Migration 8: Discoveries (append-only).
const migration8Discoveries = `
CREATE TABLE IF NOT EXISTS discoveries (
    id TEXT PRIMARY KEY,
    agent TEXT NOT NULL,
    discovery_type TEXT,
    description TEXT,
    details TEXT DEFAULT '{}',
    discovered_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_discoveries_agent ON discoveries(agent);
`

// Migration 9: Agent status (upsert by agent_name).
const migration9AgentStatus = `
CREATE TABLE IF NOT EXISTS agent_status (
    agent_name TEXT PRIMARY KEY,
    status TEXT NOT NULL DEFAULT 'stopped',
    last_heartbeat DATETIME,
    current_task TEXT
);
`

// Migration 10: Config (flag/DB-fallback layering, see SPEC_FULL.md §2).
const migration10Config = `
CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

INSERT OR IGNORE INTO config (key, value) VALUES
    ('daily_checkin_time', '09:00'),
    ('calendar_check_interval_minutes', '15'),
    ('message_retention_days', '30'),
    ('default_request_timeout_seconds', '20');
`

// Migration 11: Agent audit log (append-only). Generalizes the teacher's
// per-ticket agent_audit_log to per-message-bus-exchange: one row per LLM
// call or tool invocation by any of the three peer agents.
const migration11AuditLog = `
CREATE TABLE IF NOT EXISTS agent_audit_log (
    id TEXT PRIMARY KEY,
    agent TEXT NOT NULL,
    event_type TEXT NOT NULL,
    prompt_size INTEGER DEFAULT 0,
    response_size INTEGER DEFAULT 0,
    duration_ms INTEGER DEFAULT 0,
    error TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_log_agent ON agent_audit_log(agent);
CREATE INDEX IF NOT EXISTS idx_audit_log_created ON agent_audit_log(created_at);
`

// Close closes the database connection.
func (d *DB) Close() error {
	return d.DB.Close()
}
