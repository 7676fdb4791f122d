package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/rit1708/waitingroom/internal/types"
)

func (s *store) CreateToken(ctx context.Context, secret, name string, expiresAt *time.Time) (*types.Token, error) {
	t := &types.Token{
		ID:        uuid.NewString(),
		Secret:    secret,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (id, secret, name, created_at, expires_at, is_active) VALUES (?, ?, ?, ?, ?, 1)`,
		t.ID, t.Secret, t.Name, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, wrapDBError("CreateToken", ErrConflict)
		}
		return nil, wrapDBError("CreateToken", err)
	}
	return t, nil
}

const tokenColumns = `id, secret, name, created_at, expires_at, is_active, last_used_at`

func (s *store) GetTokenBySecret(ctx context.Context, secret string) (*types.Token, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+tokenColumns+` FROM tokens WHERE secret = ?`, secret)
	return scanToken(row)
}

func (s *store) ListTokens(ctx context.Context) ([]*types.Token, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+tokenColumns+` FROM tokens ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapDBError("ListTokens", err)
	}
	defer rows.Close()

	var out []*types.Token
	for rows.Next() {
		t, err := scanTokenRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, wrapDBError("ListTokens", rows.Err())
}

func (s *store) SetTokenActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tokens SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return wrapDBError("SetTokenActive", err)
	}
	return checkRowsAffected("SetTokenActive", res)
}

func (s *store) TouchTokenLastUsed(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tokens SET last_used_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return wrapDBError("TouchTokenLastUsed", err)
	}
	return checkRowsAffected("TouchTokenLastUsed", res)
}

func (s *store) DeleteToken(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = ?`, id)
	if err != nil {
		return wrapDBError("DeleteToken", err)
	}
	return checkRowsAffected("DeleteToken", res)
}

func checkRowsAffected(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError(op, err)
	}
	if n == 0 {
		return wrapDBError(op, ErrNotFound)
	}
	return nil
}

func scanToken(row *sql.Row) (*types.Token, error) {
	t := &types.Token{}
	if err := row.Scan(&t.ID, &t.Secret, &t.Name, &t.CreatedAt, &t.ExpiresAt, &t.IsActive, &t.LastUsedAt); err != nil {
		return nil, wrapDBError("GetToken", err)
	}
	return t, nil
}

func scanTokenRows(rows *sql.Rows) (*types.Token, error) {
	t := &types.Token{}
	if err := rows.Scan(&t.ID, &t.Secret, &t.Name, &t.CreatedAt, &t.ExpiresAt, &t.IsActive, &t.LastUsedAt); err != nil {
		return nil, wrapDBError("ListTokens", err)
	}
	return t, nil
}
