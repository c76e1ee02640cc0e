package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fardannozami/flowcare/internal/domain"
)

const reminderColumns = `id, user_id, type, remind_at, payload, sent, created_at`

func scanReminder(row rowScanner) (*domain.Reminder, error) {
	var (
		r                   domain.Reminder
		remindAt, createdAt string
		payload             sql.NullString
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.Type, &remindAt, &payload, &r.Sent, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if r.RemindAt, err = parseTime(remindAt); err != nil {
		return nil, fmt.Errorf("parse remind_at: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &r.Payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
	}
	return &r, nil
}

func (s *Store) InsertReminder(ctx context.Context, reminder *domain.Reminder) error {
	if err := reminder.Validate(); err != nil {
		return err
	}
	if reminder.ID == "" {
		reminder.ID = uuid.NewString()
	}
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = s.now().UTC()
	}

	var payload sql.NullString
	if reminder.Payload != nil {
		b, err := json.Marshal(reminder.Payload)
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO reminders (` + reminderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.UserID,
		reminder.Type,
		formatTime(reminder.RemindAt),
		payload,
		reminder.Sent,
		formatTime(reminder.CreatedAt),
	)
	if err != nil {
		return domain.Unavailable("insert reminder", err)
	}
	return nil
}

func (s *Store) DueReminders(ctx context.Context, asOf time.Time) ([]*domain.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders
		WHERE sent = 0 AND remind_at <= ?
		ORDER BY remind_at, created_at`
	rows, err := s.db.QueryContext(ctx, query, formatTime(asOf))
	if err != nil {
		return nil, domain.Unavailable("list due reminders", err)
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, domain.Unavailable("list due reminders", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list due reminders", err)
	}
	return reminders, nil
}

func (s *Store) MarkReminderSent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE reminders SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		return domain.Unavailable("mark reminder sent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Unavailable("mark reminder sent", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
