package sqlite

import (
	"context"
	"database/sql"

	"github.com/fardannozami/flowcare/internal/domain"
)

// TouchUser records last_seen and the latest activity, creating the row on first sight.
func (s *Store) TouchUser(ctx context.Context, userID string, activity domain.Activity) error {
	if userID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "required"}
	}
	query := `
		INSERT INTO users (user_id, last_seen, activity_type, activity_at, activity_ref_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			last_seen = excluded.last_seen,
			activity_type = excluded.activity_type,
			activity_at = excluded.activity_at,
			activity_ref_date = excluded.activity_ref_date
	`
	_, err := s.db.ExecContext(ctx, query,
		userID,
		formatTime(activity.Timestamp),
		activity.Type,
		formatTime(activity.Timestamp),
		formatDate(activity.RefDate),
	)
	return domain.Unavailable("touch user", err)
}

func (s *Store) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `SELECT user_id, last_seen, activity_type, activity_at, activity_ref_date FROM users WHERE user_id = ?`
	var (
		u                 domain.User
		lastSeen          string
		kind, at, refDate sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&u.UserID, &lastSeen, &kind, &at, &refDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("get user", err)
	}

	if u.LastSeen, err = parseTime(lastSeen); err != nil {
		return nil, domain.Unavailable("get user", err)
	}
	if kind.Valid {
		a := domain.Activity{Type: kind.String}
		if at.Valid {
			if a.Timestamp, err = parseTime(at.String); err != nil {
				return nil, domain.Unavailable("get user", err)
			}
		}
		if refDate.Valid {
			if a.RefDate, err = parseDate(refDate.String); err != nil {
				return nil, domain.Unavailable("get user", err)
			}
		}
		u.LatestActivity = &a
	}
	return &u, nil
}
