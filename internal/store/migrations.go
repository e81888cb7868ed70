package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "memories: keyed record storage with preference lifecycle",
		SQL: `
CREATE TABLE memories (
    seq            INTEGER PRIMARY KEY,
    id             TEXT NOT NULL UNIQUE,
    record_type    TEXT NOT NULL CHECK (record_type IN ('tool_use', 'preference', 'project_knowledge', 'correction_pattern')),
    payload        TEXT NOT NULL,

    -- Scope
    project_id     TEXT NOT NULL,
    file_path      TEXT,
    session_id     TEXT,

    -- Access tracking
    created_at     INTEGER NOT NULL,
    access_count   INTEGER NOT NULL DEFAULT 0,
    last_access    INTEGER,

    -- Preference lifecycle
    preference_key TEXT,
    is_active      INTEGER NOT NULL DEFAULT 0,
    supersedes     TEXT,
    superseded_by  TEXT
);

CREATE INDEX idx_memories_pref    ON memories(project_id, preference_key);
CREATE INDEX idx_memories_type    ON memories(project_id, record_type);
CREATE INDEX idx_memories_created ON memories(created_at DESC);

-- At most one active preference per (project, key).
CREATE UNIQUE INDEX idx_memories_active_pref
    ON memories(project_id, preference_key)
    WHERE record_type = 'preference' AND is_active = 1;
`,
	},
	{
		Version:     2,
		Description: "hook_sessions: per-session hook state and search tracking",
		SQL: `
CREATE TABLE hook_sessions (
    id                INTEGER PRIMARY KEY,
    session_id        TEXT NOT NULL UNIQUE,
    project           TEXT,
    started_at        INTEGER NOT NULL,
    ended_at          INTEGER,
    status            TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
    last_search_at    INTEGER,
    last_search_query TEXT,
    tool_history      TEXT NOT NULL DEFAULT '[]',
    prompt_count      INTEGER NOT NULL DEFAULT 0,
    tool_count        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX idx_hook_sessions_status  ON hook_sessions(status);
CREATE INDEX idx_hook_sessions_started ON hook_sessions(started_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
