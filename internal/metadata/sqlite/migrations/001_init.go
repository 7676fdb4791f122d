package migrations

import "database/sql"

// migrate001Init creates the base schema: domains, events, the entry
// journal, and tokens. CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS makes this safe to re-run, following bd's migration style.
func migrate001Init(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS domains (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			domain       TEXT NOT NULL,
			queue_limit  INTEGER NOT NULL,
			interval_sec INTEGER NOT NULL,
			is_active    INTEGER NOT NULL DEFAULT 0,
			created_at   TIMESTAMP NOT NULL,
			updated_at   TIMESTAMP NOT NULL,
			UNIQUE(domain, name)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_active ON events(is_active)`,
		`CREATE TABLE IF NOT EXISTS entries (
			event_id   TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			entered_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_event_entered ON entries(event_id, entered_at DESC)`,
		`CREATE TABLE IF NOT EXISTS tokens (
			id            TEXT PRIMARY KEY,
			secret        TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMP NOT NULL,
			expires_at    TIMESTAMP,
			is_active     INTEGER NOT NULL DEFAULT 1,
			last_used_at  TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
