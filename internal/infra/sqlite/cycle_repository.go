package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/fardannozami/flowcare/internal/domain"
)

const cycleColumns = `id, user_id, start_date, end_date, cycle_length_days, period_length_days, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCycle(row rowScanner) (*domain.Cycle, error) {
	var (
		c                    domain.Cycle
		start                string
		end, notes           sql.NullString
		cycleLen, periodLen  sql.NullInt64
		createdAt, updatedAt string
	)
	if err := row.Scan(&c.ID, &c.UserID, &start, &end, &cycleLen, &periodLen, &notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if c.StartDate, err = parseDate(start); err != nil {
		return nil, fmt.Errorf("parse start_date: %w", err)
	}
	if end.Valid {
		d, err := parseDate(end.String)
		if err != nil {
			return nil, fmt.Errorf("parse end_date: %w", err)
		}
		c.EndDate = &d
	}
	c.CycleLengthDays = intPtr(cycleLen)
	c.PeriodLengthDays = intPtr(periodLen)
	c.Notes = stringPtr(notes)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &c, nil
}

func (s *Store) InsertCycle(ctx context.Context, cycle *domain.Cycle) error {
	if err := cycle.Validate(); err != nil {
		return err
	}
	if cycle.ID == "" {
		cycle.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if cycle.CreatedAt.IsZero() {
		cycle.CreatedAt = now
	}
	if cycle.UpdatedAt.IsZero() {
		cycle.UpdatedAt = now
	}

	var end sql.NullString
	if cycle.EndDate != nil {
		end = sql.NullString{String: formatDate(*cycle.EndDate), Valid: true}
	}

	query := `INSERT INTO period_cycles (` + cycleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		cycle.ID,
		cycle.UserID,
		formatDate(cycle.StartDate),
		end,
		nullInt(cycle.CycleLengthDays),
		nullInt(cycle.PeriodLengthDays),
		nullString(cycle.Notes),
		formatTime(cycle.CreatedAt),
		formatTime(cycle.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEntry
	}
	if err != nil {
		return domain.Unavailable("insert cycle", err)
	}
	return nil
}

func (s *Store) GetCycle(ctx context.Context, userID string, start civil.Date) (*domain.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM period_cycles WHERE user_id = ? AND start_date = ?`
	c, err := scanCycle(s.db.QueryRowContext(ctx, query, userID, formatDate(start)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("get cycle", err)
	}
	return c, nil
}

func (s *Store) UpdateCycleEnd(ctx context.Context, userID string, start, end civil.Date, periodLength int, at time.Time) (*domain.Cycle, error) {
	if end.Before(start) {
		return nil, &domain.ValidationError{Field: "end_date", Reason: "before start_date"}
	}
	if err := domain.ValidatePeriodLength(periodLength); err != nil {
		return nil, err
	}

	query := `UPDATE period_cycles SET end_date = ?, period_length_days = ?, updated_at = ?
		WHERE user_id = ? AND start_date = ?`
	res, err := s.db.ExecContext(ctx, query, formatDate(end), periodLength, formatTime(at), userID, formatDate(start))
	if err != nil {
		return nil, domain.Unavailable("update cycle end", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, domain.Unavailable("update cycle end", err)
	} else if n == 0 {
		return nil, domain.ErrNotFound
	}
	return s.GetCycle(ctx, userID, start)
}

func (s *Store) PrecedingCycle(ctx context.Context, userID string, before civil.Date) (*domain.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM period_cycles
		WHERE user_id = ? AND start_date < ?
		ORDER BY start_date DESC LIMIT 1`
	c, err := scanCycle(s.db.QueryRowContext(ctx, query, userID, formatDate(before)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("find preceding cycle", err)
	}
	return c, nil
}

func (s *Store) SetCycleLength(ctx context.Context, id string, days int, at time.Time) error {
	if err := domain.ValidateCycleLength(days); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE period_cycles SET cycle_length_days = ?, updated_at = ? WHERE id = ?`,
		days, formatTime(at), id,
	)
	if err != nil {
		return domain.Unavailable("set cycle length", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) RecentCycles(ctx context.Context, userID string, limit int) ([]*domain.Cycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM period_cycles
		WHERE user_id = ? ORDER BY start_date DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, domain.Unavailable("list cycles", err)
	}
	defer rows.Close()

	var cycles []*domain.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, domain.Unavailable("list cycles", err)
		}
		cycles = append(cycles, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list cycles", err)
	}
	return cycles, nil
}

func (s *Store) RecentCycleLengths(ctx context.Context, userID string, limit int) ([]int, error) {
	query := `SELECT cycle_length_days FROM period_cycles
		WHERE user_id = ? AND cycle_length_days IS NOT NULL
		ORDER BY start_date DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, domain.Unavailable("list cycle lengths", err)
	}
	defer rows.Close()

	var lengths []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, domain.Unavailable("list cycle lengths", err)
		}
		lengths = append(lengths, n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Unavailable("list cycle lengths", err)
	}
	return lengths, nil
}
