package sqlite

import (
	"context"
	"time"

	"github.com/rit1708/waitingroom/internal/types"
)

// InsertEntry appends a row to the entry journal. Best-effort by contract:
// callers must not fail an admission because this write failed.
func (s *store) InsertEntry(ctx context.Context, eventID, userID string, enteredAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (event_id, user_id, entered_at) VALUES (?, ?, ?)`,
		eventID, userID, enteredAt,
	)
	return wrapDBError("InsertEntry", err)
}

func (s *store) ListRecentEntries(ctx context.Context, eventID string, limit int) ([]*types.Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, user_id, entered_at FROM entries
		 WHERE event_id = ? ORDER BY entered_at DESC LIMIT ?`,
		eventID, limit,
	)
	if err != nil {
		return nil, wrapDBError("ListRecentEntries", err)
	}
	defer rows.Close()

	var out []*types.Entry
	for rows.Next() {
		e := &types.Entry{}
		if err := rows.Scan(&e.EventID, &e.UserID, &e.EnteredAt); err != nil {
			return nil, wrapDBError("ListRecentEntries", err)
		}
		out = append(out, e)
	}
	return out, wrapDBError("ListRecentEntries", rows.Err())
}
