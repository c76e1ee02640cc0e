package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fardannozami/flowcare/internal/app/usecase"
	"github.com/fardannozami/flowcare/internal/domain"
)

// =============================================================================
// SCHEDULE REMINDERS USECASE TESTS
// =============================================================================
//
// Reminders are materialized at D-3, D-1 and D of the predicted start. A
// failed insert is skipped and reported, never fatal.
//
// =============================================================================

func TestSchedulePeriodReminders_NoPrediction(t *testing.T) {
	f := newFixture()

	res, err := f.scheduler.SchedulePeriodReminders(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, usecase.ScheduleNothing, res.Status)
	assert.Empty(t, res.Reminders)
	assert.Empty(t, f.store.reminders)
}

func TestSchedulePeriodReminders_ThreeReminders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.ledger.AddCycle(ctx, "u1", date(2025, 9, 5), nil, nil)
	require.NoError(t, err)

	res, err := f.scheduler.SchedulePeriodReminders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, usecase.ScheduleOK, res.Status)
	require.Len(t, res.Reminders, 3)
	assert.Equal(t, 3, res.PersistedCount())

	want := []time.Time{
		time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 10, 3, 0, 0, 0, 0, time.UTC),
	}
	for i, sr := range res.Reminders {
		assert.True(t, sr.Persisted)
		assert.True(t, want[i].Equal(sr.Reminder.RemindAt), "reminder %d at %s, want %s", i, sr.Reminder.RemindAt, want[i])
		assert.Equal(t, domain.ReminderUpcomingPeriod, sr.Reminder.Type)
		assert.False(t, sr.Reminder.Sent)
		assert.Equal(t, "Your period is likely to start around 2025-10-03.", sr.Reminder.Message())
	}
}

func TestSchedulePeriodReminders_PartialFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.ledger.AddCycle(ctx, "u1", date(2025, 9, 5), nil, nil)
	require.NoError(t, err)
	f.store.failReminderAt = map[int]error{1: errBoom}

	res, err := f.scheduler.SchedulePeriodReminders(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, usecase.SchedulePartial, res.Status)
	require.Len(t, res.Reminders, 3, "every attempt is reported")
	assert.Equal(t, 2, res.PersistedCount())
	assert.False(t, res.Reminders[1].Persisted)
	assert.ErrorIs(t, res.Reminders[1].Err, domain.ErrStoreUnavailable)
	assert.Len(t, f.store.reminders, 2)
}

func TestSchedulePeriodReminders_AllFail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.ledger.AddCycle(ctx, "u1", date(2025, 9, 5), nil, nil)
	require.NoError(t, err)
	f.store.failReminderAt = map[int]error{0: errBoom, 1: errBoom, 2: errBoom}

	res, err := f.scheduler.SchedulePeriodReminders(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, usecase.ScheduleFailed, res.Status)
	assert.Zero(t, res.PersistedCount())
}

func TestDueRemindersAndMarkSent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.ledger.AddCycle(ctx, "u1", date(2025, 9, 5), nil, nil)
	require.NoError(t, err)
	_, err = f.scheduler.SchedulePeriodReminders(ctx, "u1")
	require.NoError(t, err)

	due, err := f.scheduler.DueReminders(ctx, time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.True(t, due[0].RemindAt.Before(due[1].RemindAt))

	require.NoError(t, f.scheduler.MarkSent(ctx, due[0].ID))
	require.NoError(t, f.scheduler.MarkSent(ctx, due[0].ID), "marking twice is harmless")

	due, err = f.scheduler.DueReminders(ctx, time.Date(2025, 10, 2, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, due, 1)

	assert.ErrorIs(t, f.scheduler.MarkSent(ctx, "missing"), domain.ErrNotFound)
}
