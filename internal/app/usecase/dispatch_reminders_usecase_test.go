package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fardannozami/flowcare/internal/app/usecase"
	"github.com/fardannozami/flowcare/internal/domain"
)

type sentMessage struct {
	userID  string
	message string
}

// mockNotifier records deliveries and fails for users listed in failFor.
type mockNotifier struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[string]bool
}

func (n *mockNotifier) Notify(ctx context.Context, userID, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[userID] {
		return errors.New("recipient unreachable")
	}
	n.sent = append(n.sent, sentMessage{userID: userID, message: message})
	return nil
}

func seedReminders(t *testing.T, store *mockStore, userIDs ...string) {
	t.Helper()
	for i, u := range userIDs {
		r := &domain.Reminder{
			UserID:   u,
			Type:     domain.ReminderUpcomingPeriod,
			RemindAt: time.Date(2025, 10, 1+i, 0, 0, 0, 0, time.UTC),
			Payload:  map[string]any{"message": "hello " + u},
		}
		require.NoError(t, store.InsertReminder(context.Background(), r))
	}
}

func TestDispatchReminders_DeliversAndMarksSent(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMockStore()
	seedReminders(t, store, "6281111", "6282222", "6283333")
	notifier := &mockNotifier{}
	uc := usecase.NewDispatchRemindersUsecase(store, notifier, nil)

	report, err := uc.Execute(context.Background(), time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, usecase.DispatchReport{Due: 2, Sent: 2}, report)
	assert.Equal(t, []sentMessage{
		{userID: "6281111", message: "hello 6281111"},
		{userID: "6282222", message: "hello 6282222"},
	}, notifier.sent)

	// a second run finds nothing new
	report, err = uc.Execute(context.Background(), time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, report.Due)
}

func TestDispatchReminders_FailedDeliveryStaysDue(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newMockStore()
	seedReminders(t, store, "6281111", "6282222")
	notifier := &mockNotifier{failFor: map[string]bool{"6281111": true}}
	uc := usecase.NewDispatchRemindersUsecase(store, notifier, nil)

	asOf := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)
	report, err := uc.Execute(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, usecase.DispatchReport{Due: 2, Sent: 1, Failed: 1}, report)

	due, err := store.DueReminders(context.Background(), asOf)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "6281111", due[0].UserID)
}

func TestDispatchReminders_StoreErrors(t *testing.T) {
	store := newMockStore()
	seedReminders(t, store, "6281111")
	uc := usecase.NewDispatchRemindersUsecase(store, &mockNotifier{}, nil)
	asOf := time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC)

	store.failMarkSent = errBoom
	_, err := uc.Execute(context.Background(), asOf)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	store.failDue = errBoom
	_, err = uc.Execute(context.Background(), asOf)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestDispatchReminders_StopsOnCancelledContext(t *testing.T) {
	store := newMockStore()
	seedReminders(t, store, "6281111")
	notifier := &mockNotifier{}
	uc := usecase.NewDispatchRemindersUsecase(store, notifier, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := uc.Execute(ctx, time.Date(2025, 10, 5, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, notifier.sent)
}
