package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/fardannozami/flowcare/internal/domain"
)

// Store keeps every collection in one SQLite database. Dates are stored as
// RFC3339 UTC-midnight text, so lexical order is chronological order.
type Store struct {
	db  *sql.DB
	log *zap.Logger
	now func() time.Time
}

var _ domain.Store = (*Store)(nil)

// Open opens the database file with the modernc driver. WAL and busy timeout
// avoid "database is locked" when the bot and the CLI share a file.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, log: logger, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

var tables = []struct {
	name string
	ddl  string
}{
	{"period_preferences", `
		CREATE TABLE IF NOT EXISTS period_preferences (
			user_id                TEXT PRIMARY KEY,
			avg_cycle_length_days  INTEGER CHECK (avg_cycle_length_days IS NULL OR avg_cycle_length_days BETWEEN 15 AND 90),
			avg_period_length_days INTEGER CHECK (avg_period_length_days IS NULL OR avg_period_length_days BETWEEN 1 AND 10),
			luteal_phase_days      INTEGER CHECK (luteal_phase_days IS NULL OR luteal_phase_days BETWEEN 8 AND 20),
			updated_at             TEXT NOT NULL
		)`},
	{"period_cycles", `
		CREATE TABLE IF NOT EXISTS period_cycles (
			id                 TEXT PRIMARY KEY,
			user_id            TEXT NOT NULL,
			start_date         TEXT NOT NULL,
			end_date           TEXT,
			cycle_length_days  INTEGER CHECK (cycle_length_days IS NULL OR cycle_length_days BETWEEN 10 AND 120),
			period_length_days INTEGER CHECK (period_length_days IS NULL OR period_length_days BETWEEN 1 AND 15),
			notes              TEXT,
			created_at         TEXT NOT NULL,
			updated_at         TEXT NOT NULL,
			CONSTRAINT uniq_user_start UNIQUE (user_id, start_date)
		)`},
	{"daily_logs", `
		CREATE TABLE IF NOT EXISTS daily_logs (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			log_date   TEXT NOT NULL,
			mood       TEXT,
			flow       TEXT CHECK (flow IS NULL OR flow IN ('none', 'light', 'medium', 'heavy')),
			symptoms   TEXT NOT NULL DEFAULT '[]',
			notes      TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`},
	{"reminders", `
		CREATE TABLE IF NOT EXISTS reminders (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			type       TEXT NOT NULL,
			remind_at  TEXT NOT NULL,
			payload    TEXT,
			sent       INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`},
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			user_id           TEXT PRIMARY KEY,
			last_seen         TEXT NOT NULL,
			activity_type     TEXT,
			activity_at       TEXT,
			activity_ref_date TEXT
		)`},
}

// (user_id, start_date) on cycles is served by the uniq_user_start constraint.
var indexes = []struct {
	name string
	ddl  string
}{
	{"by_user_created", `CREATE INDEX IF NOT EXISTS by_user_created ON period_cycles (user_id, created_at)`},
	{"by_user_logdate", `CREATE INDEX IF NOT EXISTS by_user_logdate ON daily_logs (user_id, log_date)`},
	{"by_user_remind_at", `CREATE INDEX IF NOT EXISTS by_user_remind_at ON reminders (user_id, remind_at)`},
	{"by_sent", `CREATE INDEX IF NOT EXISTS by_sent ON reminders (sent)`},
}

func (s *Store) EnsureSchema(ctx context.Context) (domain.SetupReport, error) {
	var report domain.SetupReport
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, t.ddl); err != nil {
			return report, domain.Unavailable("create table "+t.name, err)
		}
	}
	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx.ddl); err != nil {
			s.log.Warn("index setup failed, continuing without it", zap.String("index", idx.name), zap.Error(err))
			report.Fail(idx.name, err)
		}
	}
	return report, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// timeLayout keeps a fixed-width fraction so stored timestamps compare
// correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatDate(d civil.Date) string {
	return domain.ToCanonical(d).Format(time.RFC3339)
}

func parseDate(s string) (civil.Date, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return civil.Date{}, err
	}
	return domain.ToDate(t), nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
