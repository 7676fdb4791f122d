package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rit1708/waitingroom/internal/types"
)

func (s *store) CreateDomain(ctx context.Context, name string) (*types.Domain, error) {
	d := &types.Domain{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO domains (id, name, created_at) VALUES (?, ?, ?)`,
		d.ID, d.Name, d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, wrapDBError("CreateDomain", ErrConflict)
		}
		return nil, wrapDBError("CreateDomain", err)
	}
	return d, nil
}

func (s *store) GetDomainByName(ctx context.Context, name string) (*types.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM domains WHERE name = ?`, name,
	)
	return scanDomain(row)
}

func (s *store) GetDomainByID(ctx context.Context, id string) (*types.Domain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM domains WHERE id = ?`, id,
	)
	return scanDomain(row)
}

func (s *store) ListDomains(ctx context.Context) ([]*types.Domain, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM domains ORDER BY name`)
	if err != nil {
		return nil, wrapDBError("ListDomains", err)
	}
	defer rows.Close()

	var out []*types.Domain
	for rows.Next() {
		d := &types.Domain{}
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, wrapDBError("ListDomains", err)
		}
		out = append(out, d)
	}
	return out, wrapDBError("ListDomains", rows.Err())
}

func scanDomain(row *sql.Row) (*types.Domain, error) {
	d := &types.Domain{}
	if err := row.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
		return nil, wrapDBError("GetDomain", err)
	}
	return d, nil
}

// isUniqueViolation matches the ncruces/go-sqlite3 driver's error text for
// a UNIQUE constraint failure. The driver wraps libsqlite3's error
// strings verbatim, so string matching holds across the sqlite3 builds
// that ship with this driver.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
