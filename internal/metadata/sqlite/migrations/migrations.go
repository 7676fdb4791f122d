// Package migrations holds the metadata store's numbered schema steps,
// applied in order against a fresh or existing database. Each step is
// idempotent so re-running the full set against an already-migrated
// database is a no-op, matching bd's migration convention.
package migrations

import "database/sql"

// Migration is a single idempotent schema step.
type Migration struct {
	Name  string
	Apply func(db *sql.DB) error
}

// All returns the ordered set of migrations to apply.
func All() []Migration {
	return []Migration{
		{Name: "001_init", Apply: migrate001Init},
	}
}

// Run applies every migration in order.
func Run(db *sql.DB) error {
	for _, m := range All() {
		if err := m.Apply(db); err != nil {
			return err
		}
	}
	return nil
}
