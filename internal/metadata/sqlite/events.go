package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/rit1708/waitingroom/internal/apperr"
	"github.com/rit1708/waitingroom/internal/types"
)

func (s *store) CreateEvent(ctx context.Context, domain, name string, queueLimit, intervalSec int) (*types.Event, error) {
	if queueLimit < 1 || queueLimit > 1000 {
		return nil, apperr.Newf(apperr.Validation, "queueLimit must be in [1, 1000], got %d", queueLimit)
	}
	if intervalSec < 1 || intervalSec > 3600 {
		return nil, apperr.Newf(apperr.Validation, "intervalSec must be in [1, 3600], got %d", intervalSec)
	}
	now := time.Now().UTC()
	e := &types.Event{
		ID:          uuid.NewString(),
		Name:        name,
		Domain:      domain,
		QueueLimit:  queueLimit,
		IntervalSec: intervalSec,
		IsActive:    false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, name, domain, queue_limit, interval_sec, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		e.ID, e.Name, e.Domain, e.QueueLimit, e.IntervalSec, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, wrapDBError("CreateEvent", ErrConflict)
		}
		return nil, wrapDBError("CreateEvent", err)
	}
	return e, nil
}

const eventColumns = `id, name, domain, queue_limit, interval_sec, is_active, created_at, updated_at`

func (s *store) GetEvent(ctx context.Context, id string) (*types.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id,
	)
	return scanEvent(row)
}

func (s *store) GetEventByDomainAndName(ctx context.Context, domain, name string) (*types.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE domain = ? AND name = ?`, domain, name,
	)
	return scanEvent(row)
}

func (s *store) ListEvents(ctx context.Context) ([]*types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events ORDER BY domain, name`)
	if err != nil {
		return nil, wrapDBError("ListEvents", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *store) ListActiveEvents(ctx context.Context) ([]*types.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+eventColumns+` FROM events WHERE is_active = 1`)
	if err != nil {
		return nil, wrapDBError("ListActiveEvents", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *store) SetEventActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE events SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id,
	)
	if err != nil {
		return wrapDBError("SetEventActive", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("SetEventActive", err)
	}
	if n == 0 {
		return wrapDBError("SetEventActive", ErrNotFound)
	}
	return nil
}

func scanEvent(row *sql.Row) (*types.Event, error) {
	e := &types.Event{}
	if err := row.Scan(&e.ID, &e.Name, &e.Domain, &e.QueueLimit, &e.IntervalSec, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, wrapDBError("GetEvent", err)
	}
	return e, nil
}

func scanEvents(rows *sql.Rows) ([]*types.Event, error) {
	var out []*types.Event
	for rows.Next() {
		e := &types.Event{}
		if err := rows.Scan(&e.ID, &e.Name, &e.Domain, &e.QueueLimit, &e.IntervalSec, &e.IsActive, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, wrapDBError("ListEvents", err)
		}
		out = append(out, e)
	}
	return out, wrapDBError("ListEvents", rows.Err())
}
