package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/fardannozami/flowcare/internal/domain"
)

const dailyLogColumns = `id, user_id, log_date, mood, flow, symptoms, notes, created_at, updated_at`

func scanDailyLog(row rowScanner) (*domain.DailyLog, error) {
	var (
		l                    domain.DailyLog
		logDate, symptoms    string
		mood, flow, notes    sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&l.ID, &l.UserID, &logDate, &mood, &flow, &symptoms, &notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if l.LogDate, err = parseDate(logDate); err != nil {
		return nil, fmt.Errorf("parse log_date: %w", err)
	}
	if err := json.Unmarshal([]byte(symptoms), &l.Symptoms); err != nil {
		return nil, fmt.Errorf("decode symptoms: %w", err)
	}
	l.Mood = stringPtr(mood)
	l.Flow = stringPtr(flow)
	l.Notes = stringPtr(notes)
	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &l, nil
}

func (s *Store) InsertDailyLog(ctx context.Context, log *domain.DailyLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.Symptoms == nil {
		log.Symptoms = []string{}
	}
	now := s.now().UTC()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = now
	}
	if log.UpdatedAt.IsZero() {
		log.UpdatedAt = now
	}

	symptoms, err := json.Marshal(log.Symptoms)
	if err != nil {
		return fmt.Errorf("encode symptoms: %w", err)
	}

	query := `INSERT INTO daily_logs (` + dailyLogColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		log.ID,
		log.UserID,
		formatDate(log.LogDate),
		nullString(log.Mood),
		nullString(log.Flow),
		string(symptoms),
		nullString(log.Notes),
		formatTime(log.CreatedAt),
		formatTime(log.UpdatedAt),
	)
	if err != nil {
		return domain.Unavailable("insert daily log", err)
	}
	return nil
}

func (s *Store) DailyLogsBetween(ctx context.Context, userID string, from, to civil.Date) ([]*domain.DailyLog, error) {
	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs
		WHERE user_id = ? AND log_date >= ? AND log_date <= ?
		ORDER BY log_date, created_at, rowid`
	return s.queryDailyLogs(ctx, query, userID, formatDate(from), formatDate(to))
}

func (s *Store) RecentDailyLogs(ctx context.Context, userID string, limit int) ([]*domain.DailyLog, error) {
	query := `SELECT ` + dailyLogColumns + ` FROM daily_logs
		WHERE user_id = ? ORDER BY log_date DESC, created_at DESC LIMIT ?`
	return s.queryDailyLogs(ctx, query, userID, limit)
}

func (s *Store) queryDailyLogs(ctx context.Context, query string, args ...any) ([]*domain.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.Unavailable("list daily logs", err)
	}
	defer rows.Close()

	var logs []*domain.DailyLog
	for rows.Next() {
		l, err := scanDailyLog(rows)
		if err != nil {
			return nil, domain.Unavailable("list daily logs", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list daily logs", err)
	}
	return logs, nil
}
