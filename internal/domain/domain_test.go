package domain_test

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fardannozami/flowcare/internal/domain"
)

func TestCanonicalDateRoundTrip(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.February, Day: 29}

	ts := domain.ToCanonical(d)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, time.UTC, ts.Location())
	assert.Equal(t, d, domain.ToDate(ts))
	assert.True(t, ts.Equal(domain.ToCanonical(domain.ToDate(ts))))
}

func TestToDate_ReadsInUTC(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 2025-09-05 03:00 in Jakarta is still 2025-09-04 in UTC
	ts := time.Date(2025, 9, 5, 3, 0, 0, 0, jakarta)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.September, Day: 4}, domain.ToDate(ts))
}

func TestParseDate(t *testing.T) {
	d, err := domain.ParseDate("2025-07-11")
	require.NoError(t, err)
	assert.Equal(t, "2025-07-11", domain.FormatDate(d))

	for _, s := range []string{"", "11-07-2025", "2025-02-30", "today"} {
		_, err := domain.ParseDate(s)
		assert.ErrorIs(t, err, domain.ErrInvalid, "input %q", s)
	}
}

func TestDaysBetweenAndPeriodLength(t *testing.T) {
	a := civil.Date{Year: 2025, Month: time.July, Day: 11}
	b := civil.Date{Year: 2025, Month: time.August, Day: 8}
	assert.Equal(t, 28, domain.DaysBetween(a, b))
	assert.Equal(t, -28, domain.DaysBetween(b, a))
	assert.Equal(t, 1, domain.PeriodLength(a, a))
	assert.Equal(t, 5, domain.PeriodLength(a, a.AddDays(4)))
}

func TestPreferencesValidate(t *testing.T) {
	v := func(i int) *int { return &i }
	tests := []struct {
		name  string
		prefs domain.Preferences
		field string
	}{
		{"ok", domain.Preferences{UserID: "u", AvgCycleLengthDays: v(28), AvgPeriodLengthDays: v(5), LutealPhaseDays: v(14)}, ""},
		{"all unset", domain.Preferences{UserID: "u"}, ""},
		{"missing user", domain.Preferences{}, "user_id"},
		{"cycle too short", domain.Preferences{UserID: "u", AvgCycleLengthDays: v(14)}, "avg_cycle_length_days"},
		{"period too long", domain.Preferences{UserID: "u", AvgPeriodLengthDays: v(11)}, "avg_period_length_days"},
		{"luteal too short", domain.Preferences{UserID: "u", LutealPhaseDays: v(7)}, "luteal_phase_days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.prefs.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ve *domain.ValidationError
			require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, domain.ErrInvalid)
		})
	}
}

func TestCycleValidate(t *testing.T) {
	start := civil.Date{Year: 2025, Month: time.July, Day: 11}
	before := start.AddDays(-1)
	v := func(i int) *int { return &i }

	assert.NoError(t, (&domain.Cycle{UserID: "u", StartDate: start}).Validate())
	assert.ErrorIs(t, (&domain.Cycle{UserID: "u"}).Validate(), domain.ErrInvalid)
	assert.ErrorIs(t, (&domain.Cycle{UserID: "u", StartDate: start, EndDate: &before}).Validate(), domain.ErrInvalid)
	assert.ErrorIs(t, (&domain.Cycle{UserID: "u", StartDate: start, CycleLengthDays: v(9)}).Validate(), domain.ErrInvalid)
	assert.ErrorIs(t, (&domain.Cycle{UserID: "u", StartDate: start, PeriodLengthDays: v(16)}).Validate(), domain.ErrInvalid)
}

func TestDailyLogValidateFlow(t *testing.T) {
	day := civil.Date{Year: 2025, Month: time.September, Day: 2}
	for _, f := range []string{domain.FlowNone, domain.FlowLight, domain.FlowMedium, domain.FlowHeavy} {
		flow := f
		assert.NoError(t, (&domain.DailyLog{UserID: "u", LogDate: day, Flow: &flow}).Validate())
	}
	bad := "spotting"
	assert.ErrorIs(t, (&domain.DailyLog{UserID: "u", LogDate: day, Flow: &bad}).Validate(), domain.ErrInvalid)
}

func TestNormalizeSymptoms(t *testing.T) {
	got := domain.NormalizeSymptoms([]string{" Cramps", "fatigue", "", "CRAMPS", "  ", "Bloating "})
	assert.Equal(t, []string{"cramps", "fatigue", "bloating"}, got)
	assert.Equal(t, []string{}, domain.NormalizeSymptoms(nil))
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, domain.Unavailable("op", nil))

	cause := errors.New("socket closed")
	err := domain.Unavailable("insert cycle", cause)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert cycle: store unavailable: socket closed", err.Error())
}

func TestSetupReport(t *testing.T) {
	var r domain.SetupReport
	assert.True(t, r.OK())
	r.Fail("by_sent", errors.New("denied"))
	assert.False(t, r.OK())
	assert.Equal(t, "by_sent", r.Degraded[0].Name)
	assert.Equal(t, "failed", domain.WriteFailed.String())
}
