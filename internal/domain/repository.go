package domain

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
)

// Lookups that find nothing return (nil, nil). Updates that match nothing
// return ErrNotFound.

type PreferenceRepository interface {
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	UpsertPreferences(ctx context.Context, prefs *Preferences) (*Preferences, error)
}

type CycleRepository interface {
	// InsertCycle fails with ErrDuplicateEntry when (user, start) exists.
	InsertCycle(ctx context.Context, cycle *Cycle) error
	GetCycle(ctx context.Context, userID string, start civil.Date) (*Cycle, error)
	// UpdateCycleEnd sets end date and period length on the cycle at (user, start).
	UpdateCycleEnd(ctx context.Context, userID string, start, end civil.Date, periodLength int, at time.Time) (*Cycle, error)
	// PrecedingCycle returns the cycle with the largest start strictly before the given date.
	PrecedingCycle(ctx context.Context, userID string, before civil.Date) (*Cycle, error)
	SetCycleLength(ctx context.Context, id string, days int, at time.Time) error
	// RecentCycles returns up to limit cycles, newest start first.
	RecentCycles(ctx context.Context, userID string, limit int) ([]*Cycle, error)
	// RecentCycleLengths returns up to limit non-null cycle lengths, newest start first.
	RecentCycleLengths(ctx context.Context, userID string, limit int) ([]int, error)
}

type DailyLogRepository interface {
	InsertDailyLog(ctx context.Context, log *DailyLog) error
	// DailyLogsBetween returns logs with from <= log_date <= to, ordered by
	// log_date then created_at.
	DailyLogsBetween(ctx context.Context, userID string, from, to civil.Date) ([]*DailyLog, error)
	// RecentDailyLogs returns up to limit logs, newest log_date first.
	RecentDailyLogs(ctx context.Context, userID string, limit int) ([]*DailyLog, error)
}

type ReminderRepository interface {
	InsertReminder(ctx context.Context, reminder *Reminder) error
	// DueReminders returns unsent reminders with remind_at <= asOf, oldest first.
	DueReminders(ctx context.Context, asOf time.Time) ([]*Reminder, error)
	// MarkReminderSent is idempotent; ErrNotFound when the id does not exist.
	MarkReminderSent(ctx context.Context, id string) error
}

type UserRepository interface {
	TouchUser(ctx context.Context, userID string, activity Activity) error
	GetUser(ctx context.Context, userID string) (*User, error)
}

// Store is a backend holding every collection.
type Store interface {
	PreferenceRepository
	CycleRepository
	DailyLogRepository
	ReminderRepository
	UserRepository

	// EnsureSchema is safe to call repeatedly. Only a failure to create a
	// collection is returned; index and validator failures land in the report.
	EnsureSchema(ctx context.Context) (SetupReport, error)
	Close() error
}
