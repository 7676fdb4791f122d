package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/rit1708/waitingroom/internal/metadata"
)

// ErrNotFound and ErrConflict alias the metadata package's sentinels so
// callers can type-check against metadata.ErrNotFound regardless of
// backend, mirroring bd's internal/storage/sqlite error-wrapping
// convention of one shared sentinel set reused by every backend.
var (
	ErrNotFound = metadata.ErrNotFound
	ErrConflict = metadata.ErrConflict
)

// wrapDBError wraps a database error with operation context, converting
// sql.ErrNoRows to ErrNotFound for consistent handling one layer up.
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
