package sqlite

import (
	"context"
	"database/sql"

	"github.com/fardannozami/flowcare/internal/domain"
)

func (s *Store) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	query := `SELECT user_id, avg_cycle_length_days, avg_period_length_days, luteal_phase_days, updated_at
		FROM period_preferences WHERE user_id = ?`
	row := s.db.QueryRowContext(ctx, query, userID)

	var (
		prefs                 domain.Preferences
		cycle, period, luteal sql.NullInt64
		updatedAt             string
	)
	err := row.Scan(&prefs.UserID, &cycle, &period, &luteal, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Unavailable("get preferences", err)
	}

	prefs.AvgCycleLengthDays = intPtr(cycle)
	prefs.AvgPeriodLengthDays = intPtr(period)
	prefs.LutealPhaseDays = intPtr(luteal)
	if prefs.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, domain.Unavailable("get preferences", err)
	}
	return &prefs, nil
}

// UpsertPreferences overwrites every preference field, creating the row on
// first write.
func (s *Store) UpsertPreferences(ctx context.Context, prefs *domain.Preferences) (*domain.Preferences, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = s.now().UTC()
	}

	query := `
		INSERT INTO period_preferences (user_id, avg_cycle_length_days, avg_period_length_days, luteal_phase_days, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			avg_cycle_length_days = excluded.avg_cycle_length_days,
			avg_period_length_days = excluded.avg_period_length_days,
			luteal_phase_days = excluded.luteal_phase_days,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		prefs.UserID,
		nullInt(prefs.AvgCycleLengthDays),
		nullInt(prefs.AvgPeriodLengthDays),
		nullInt(prefs.LutealPhaseDays),
		formatTime(prefs.UpdatedAt),
	)
	if err != nil {
		return nil, domain.Unavailable("upsert preferences", err)
	}
	return s.GetPreferences(ctx, prefs.UserID)
}
