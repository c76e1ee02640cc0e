package mongodb

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/fardannozami/flowcare/internal/domain"
)

// Documents mirror the domain records field for field. Decoding into a fixed
// struct drops any extra fields a foreign writer may have added.

type preferencesDoc struct {
	UserID              string    `bson:"user_id"`
	AvgCycleLengthDays  *int      `bson:"avg_cycle_length_days"`
	AvgPeriodLengthDays *int      `bson:"avg_period_length_days"`
	LutealPhaseDays     *int      `bson:"luteal_phase_days"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

func (d preferencesDoc) toDomain() *domain.Preferences {
	return &domain.Preferences{
		UserID:              d.UserID,
		AvgCycleLengthDays:  d.AvgCycleLengthDays,
		AvgPeriodLengthDays: d.AvgPeriodLengthDays,
		LutealPhaseDays:     d.LutealPhaseDays,
		UpdatedAt:           d.UpdatedAt,
	}
}

type cycleDoc struct {
	ID               string     `bson:"_id"`
	UserID           string     `bson:"user_id"`
	StartDate        time.Time  `bson:"start_date"`
	EndDate          *time.Time `bson:"end_date"`
	CycleLengthDays  *int       `bson:"cycle_length_days"`
	PeriodLengthDays *int       `bson:"period_length_days"`
	Notes            *string    `bson:"notes"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func newCycleDoc(c *domain.Cycle) cycleDoc {
	return cycleDoc{
		ID:               c.ID,
		UserID:           c.UserID,
		StartDate:        domain.ToCanonical(c.StartDate),
		EndDate:          canonicalPtr(c.EndDate),
		CycleLengthDays:  c.CycleLengthDays,
		PeriodLengthDays: c.PeriodLengthDays,
		Notes:            c.Notes,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func (d cycleDoc) toDomain() *domain.Cycle {
	return &domain.Cycle{
		ID:               d.ID,
		UserID:           d.UserID,
		StartDate:        domain.ToDate(d.StartDate),
		EndDate:          datePtr(d.EndDate),
		CycleLengthDays:  d.CycleLengthDays,
		PeriodLengthDays: d.PeriodLengthDays,
		Notes:            d.Notes,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type dailyLogDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	LogDate   time.Time `bson:"log_date"`
	Mood      *string   `bson:"mood"`
	Flow      *string   `bson:"flow"`
	Symptoms  []string  `bson:"symptoms"`
	Notes     *string   `bson:"notes"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func newDailyLogDoc(l *domain.DailyLog) dailyLogDoc {
	return dailyLogDoc{
		ID:        l.ID,
		UserID:    l.UserID,
		LogDate:   domain.ToCanonical(l.LogDate),
		Mood:      l.Mood,
		Flow:      l.Flow,
		Symptoms:  l.Symptoms,
		Notes:     l.Notes,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}

func (d dailyLogDoc) toDomain() *domain.DailyLog {
	symptoms := d.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	return &domain.DailyLog{
		ID:        d.ID,
		UserID:    d.UserID,
		LogDate:   domain.ToDate(d.LogDate),
		Mood:      d.Mood,
		Flow:      d.Flow,
		Symptoms:  symptoms,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type reminderDoc struct {
	ID        string         `bson:"_id"`
	UserID    string         `bson:"user_id"`
	Type      string         `bson:"type"`
	RemindAt  time.Time      `bson:"remind_at"`
	Payload   map[string]any `bson:"payload"`
	Sent      bool           `bson:"sent"`
	CreatedAt time.Time      `bson:"created_at"`
}

func (d reminderDoc) toDomain() *domain.Reminder {
	return &domain.Reminder{
		ID:        d.ID,
		UserID:    d.UserID,
		Type:      d.Type,
		RemindAt:  d.RemindAt.UTC(),
		Payload:   d.Payload,
		Sent:      d.Sent,
		CreatedAt: d.CreatedAt,
	}
}

type activityDoc struct {
	Type      string    `bson:"type"`
	Timestamp time.Time `bson:"timestamp"`
	RefDate   time.Time `bson:"ref_date"`
}

type userDoc struct {
	UserID         string       `bson:"user_id"`
	LastSeen       time.Time    `bson:"last_seen"`
	LatestActivity *activityDoc `bson:"latest_activity"`
}

func (d userDoc) toDomain() *domain.User {
	u := &domain.User{UserID: d.UserID, LastSeen: d.LastSeen}
	if a := d.LatestActivity; a != nil {
		u.LatestActivity = &domain.Activity{
			Type:      a.Type,
			Timestamp: a.Timestamp,
			RefDate:   domain.ToDate(a.RefDate),
		}
	}
	return u
}

func canonicalPtr(d *civil.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := domain.ToCanonical(*d)
	return &t
}

func datePtr(t *time.Time) *civil.Date {
	if t == nil {
		return nil
	}
	d := domain.ToDate(*t)
	return &d
}
