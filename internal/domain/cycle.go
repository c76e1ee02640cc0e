package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const (
	DefaultCycleLength  = 28
	DefaultLutealPhase  = 14
	FertileWindowRadius = 5
	// CycleAverageWindow is how many recent measured cycle lengths feed the average.
	CycleAverageWindow = 6
)

const (
	FlowNone   = "none"
	FlowLight  = "light"
	FlowMedium = "medium"
	FlowHeavy  = "heavy"
)

const ReminderUpcomingPeriod = "upcoming_period"

const (
	ActivityCycle    = "cycle"
	ActivityDailyLog = "daily_log"
)

// Preferences holds the user-declared averages. Nil fields are unset.
type Preferences struct {
	UserID              string    `json:"user_id" yaml:"user_id"`
	AvgCycleLengthDays  *int      `json:"avg_cycle_length_days,omitempty" yaml:"avg_cycle_length_days,omitempty"`
	AvgPeriodLengthDays *int      `json:"avg_period_length_days,omitempty" yaml:"avg_period_length_days,omitempty"`
	LutealPhaseDays     *int      `json:"luteal_phase_days,omitempty" yaml:"luteal_phase_days,omitempty"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"updated_at"`
}

func (p *Preferences) Validate() error {
	if p.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if err := checkRange("avg_cycle_length_days", p.AvgCycleLengthDays, 15, 90); err != nil {
		return err
	}
	if err := checkRange("avg_period_length_days", p.AvgPeriodLengthDays, 1, 10); err != nil {
		return err
	}
	return checkRange("luteal_phase_days", p.LutealPhaseDays, 8, 20)
}

// Cycle is one recorded period start. CycleLengthDays is the distance to the
// next recorded start and stays nil until that start is logged.
type Cycle struct {
	ID               string      `json:"id" yaml:"id"`
	UserID           string      `json:"user_id" yaml:"user_id"`
	StartDate        civil.Date  `json:"start_date" yaml:"start_date"`
	EndDate          *civil.Date `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	CycleLengthDays  *int        `json:"cycle_length_days,omitempty" yaml:"cycle_length_days,omitempty"`
	PeriodLengthDays *int        `json:"period_length_days,omitempty" yaml:"period_length_days,omitempty"`
	Notes            *string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt        time.Time   `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" yaml:"updated_at"`
}

func (c *Cycle) Validate() error {
	if c.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if !c.StartDate.IsValid() {
		return &ValidationError{Field: "start_date", Reason: "required"}
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return &ValidationError{Field: "end_date", Reason: "before start_date"}
	}
	if c.CycleLengthDays != nil {
		if err := ValidateCycleLength(*c.CycleLengthDays); err != nil {
			return err
		}
	}
	if c.PeriodLengthDays != nil {
		return ValidatePeriodLength(*c.PeriodLengthDays)
	}
	return nil
}

func ValidateCycleLength(days int) error {
	return checkRange("cycle_length_days", &days, 10, 120)
}

func ValidatePeriodLength(days int) error {
	return checkRange("period_length_days", &days, 1, 15)
}

// PeriodLength is the inclusive day count from start to end.
func PeriodLength(start, end civil.Date) int {
	return DaysBetween(start, end) + 1
}

type DailyLog struct {
	ID        string     `json:"id" yaml:"id"`
	UserID    string     `json:"user_id" yaml:"user_id"`
	LogDate   civil.Date `json:"log_date" yaml:"log_date"`
	Mood      *string    `json:"mood,omitempty" yaml:"mood,omitempty"`
	Flow      *string    `json:"flow,omitempty" yaml:"flow,omitempty"`
	Symptoms  []string   `json:"symptoms" yaml:"symptoms"`
	Notes     *string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}

func (l *DailyLog) Validate() error {
	if l.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if !l.LogDate.IsValid() {
		return &ValidationError{Field: "log_date", Reason: "required"}
	}
	if l.Flow != nil {
		switch *l.Flow {
		case FlowNone, FlowLight, FlowMedium, FlowHeavy:
		default:
			return &ValidationError{Field: "flow", Reason: fmt.Sprintf("%q is not one of none, light, medium, heavy", *l.Flow)}
		}
	}
	return nil
}

// NormalizeSymptoms trims and lower-cases tags and drops blanks and repeats,
// keeping first-seen order.
func NormalizeSymptoms(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

type Reminder struct {
	ID        string         `json:"id" yaml:"id"`
	UserID    string         `json:"user_id" yaml:"user_id"`
	Type      string         `json:"type" yaml:"type"`
	RemindAt  time.Time      `json:"remind_at" yaml:"remind_at"`
	Payload   map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
	Sent      bool           `json:"sent" yaml:"sent"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

func (r *Reminder) Validate() error {
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if r.Type == "" {
		return &ValidationError{Field: "type", Reason: "required"}
	}
	if r.RemindAt.IsZero() {
		return &ValidationError{Field: "remind_at", Reason: "required"}
	}
	return nil
}

// Message returns the human-readable text carried in the payload, if any.
func (r *Reminder) Message() string {
	if r.Payload == nil {
		return ""
	}
	msg, _ := r.Payload["message"].(string)
	return msg
}

// Activity is the latest thing a user did, mirrored onto the users collection.
type Activity struct {
	Type      string     `json:"type" yaml:"type"`
	Timestamp time.Time  `json:"timestamp" yaml:"timestamp"`
	RefDate   civil.Date `json:"ref_date" yaml:"ref_date"`
}

type User struct {
	UserID         string    `json:"user_id" yaml:"user_id"`
	LastSeen       time.Time `json:"last_seen" yaml:"last_seen"`
	LatestActivity *Activity `json:"latest_activity,omitempty" yaml:"latest_activity,omitempty"`
}

type Prediction struct {
	PredictedStart      civil.Date  `json:"predicted_start" yaml:"predicted_start"`
	PredictedEnd        *civil.Date `json:"predicted_end,omitempty" yaml:"predicted_end,omitempty"`
	AvgCycleLengthDays  int         `json:"avg_cycle_length_days" yaml:"avg_cycle_length_days"`
	AvgPeriodLengthDays *int        `json:"avg_period_length_days,omitempty" yaml:"avg_period_length_days,omitempty"`
}

type OvulationWindow struct {
	OvulationDay    civil.Date `json:"ovulation_day" yaml:"ovulation_day"`
	FertileStart    civil.Date `json:"fertile_start" yaml:"fertile_start"`
	FertileEnd      civil.Date `json:"fertile_end" yaml:"fertile_end"`
	LutealPhaseDays int        `json:"luteal_phase_days" yaml:"luteal_phase_days"`
}

type SymptomCount struct {
	Symptom string `json:"symptom" yaml:"symptom"`
	Count   int    `json:"count" yaml:"count"`
}

func checkRange(field string, v *int, lo, hi int) error {
	if v == nil {
		return nil
	}
	if *v < lo || *v > hi {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%d is outside %d-%d", *v, lo, hi)}
	}
	return nil
}
