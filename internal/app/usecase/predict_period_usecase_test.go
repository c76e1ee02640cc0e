package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fardannozami/flowcare/internal/domain"
)

// =============================================================================
// PREDICT PERIOD USECASE TESTS
// =============================================================================
//
// Average cycle length resolution order:
// - declared preference (zero counts as unset)
// - rounded mean of up to 6 recent measured lengths
// - 28 days
//
// =============================================================================

func seedCycles(t *testing.T, f *fixture, userID string, lengths ...*int) {
	t.Helper()
	start := date(2025, 1, 1)
	for i, l := range lengths {
		c := &domain.Cycle{UserID: userID, StartDate: start.AddDays(i * 30), CycleLengthDays: l}
		require.NoError(t, f.store.InsertCycle(context.Background(), c))
	}
}

func TestPredictNextPeriod_NoCycles(t *testing.T) {
	f := newFixture()

	pred, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, pred)

	ovu, err := f.predictor.PredictOvulation(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, ovu)
}

func TestPredictNextPeriod_DefaultsTo28(t *testing.T) {
	f := newFixture()
	seedCycles(t, f, "u1", nil)

	pred, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, pred)

	assert.Equal(t, 28, pred.AvgCycleLengthDays)
	assert.Equal(t, date(2025, 1, 29), pred.PredictedStart)
	assert.Nil(t, pred.PredictedEnd)
	assert.Nil(t, pred.AvgPeriodLengthDays)
}

func TestPredictNextPeriod_HistoryMeanRoundsHalfToEven(t *testing.T) {
	tests := []struct {
		name    string
		lengths []*int
		want    int
	}{
		{"28 and 29 round down to even", []*int{intp(28), intp(29), nil}, 28},
		{"29 and 30 round up to even", []*int{intp(29), intp(30), nil}, 30},
		{"plain mean", []*int{intp(27), intp(29), intp(31), nil}, 29},
		{"nulls are ignored", []*int{intp(30), nil, intp(30), nil}, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			seedCycles(t, f, "u1", tt.lengths...)

			pred, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
			require.NoError(t, err)
			require.NotNil(t, pred)
			assert.Equal(t, tt.want, pred.AvgCycleLengthDays)
		})
	}
}

func TestPredictNextPeriod_UsesOnlySixMostRecentLengths(t *testing.T) {
	f := newFixture()
	// the oldest length (90) is outside the window
	seedCycles(t, f, "u1", intp(90), intp(30), intp(30), intp(30), intp(30), intp(30), intp(30), nil)

	pred, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, pred.AvgCycleLengthDays)
}

func TestPredictNextPeriod_PreferenceWins(t *testing.T) {
	f := newFixture()
	seedCycles(t, f, "u1", intp(35), nil)
	_, err := f.ledger.UpsertPreferences(context.Background(), "u1", intp(26), intp(4), nil)
	require.NoError(t, err)

	pred, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
	require.NoError(t, err)

	latest := date(2025, 1, 31)
	assert.Equal(t, 26, pred.AvgCycleLengthDays)
	assert.Equal(t, latest.AddDays(26), pred.PredictedStart)
	require.NotNil(t, pred.PredictedEnd)
	assert.Equal(t, latest.AddDays(26+3), *pred.PredictedEnd)
	require.NotNil(t, pred.AvgPeriodLengthDays)
	assert.Equal(t, 4, *pred.AvgPeriodLengthDays)
}

func TestPredictNextPeriod_ZeroPreferenceIsUnset(t *testing.T) {
	f := newFixture()
	seedCycles(t, f, "u1", intp(30), nil)
	// written directly; the store validator would reject 0
	f.store.prefs["u1"] = &domain.Preferences{UserID: "u1", AvgCycleLengthDays: intp(0), AvgPeriodLengthDays: intp(0)}

	pred, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 30, pred.AvgCycleLengthDays)
	assert.Nil(t, pred.PredictedEnd)
}

func TestPredictOvulation_Window(t *testing.T) {
	f := newFixture()
	seedCycles(t, f, "u1", nil)
	_, err := f.ledger.UpsertPreferences(context.Background(), "u1", intp(28), nil, intp(12))
	require.NoError(t, err)

	ovu, err := f.predictor.PredictOvulation(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, ovu)

	// 2025-01-01 + 28 = 2025-01-29, minus 12 days of luteal phase
	assert.Equal(t, date(2025, 1, 17), ovu.OvulationDay)
	assert.Equal(t, date(2025, 1, 12), ovu.FertileStart)
	assert.Equal(t, date(2025, 1, 22), ovu.FertileEnd)
	assert.Equal(t, 12, ovu.LutealPhaseDays)
}

func TestPredictOvulation_DefaultLuteal(t *testing.T) {
	f := newFixture()
	seedCycles(t, f, "u1", nil)

	ovu, err := f.predictor.PredictOvulation(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 14, ovu.LutealPhaseDays)
	assert.Equal(t, date(2025, 1, 15), ovu.OvulationDay)
}

func TestPredictNextPeriod_PropagatesStoreErrors(t *testing.T) {
	f := newFixture()
	seedCycles(t, f, "u1", nil)
	f.store.failGetPreferences = errBoom

	_, err := f.predictor.PredictNextPeriod(context.Background(), "u1")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
