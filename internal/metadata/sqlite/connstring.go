package sqlite

import (
	"fmt"
	"strings"
)

// dsn builds a SQLite connection string with the pragmas the metadata
// store relies on: WAL for concurrent readers alongside the single writer,
// a busy timeout so concurrent engine/scheduler writers back off instead of
// failing immediately, and foreign key enforcement. Mirrors bd's
// SQLiteConnString / ephemeral-store DSN construction.
func dsn(path string) string {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000&_foreign_keys=1", path)
}
