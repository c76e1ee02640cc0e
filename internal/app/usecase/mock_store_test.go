package usecase_test

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/fardannozami/flowcare/internal/app/usecase"
	"github.com/fardannozami/flowcare/internal/domain"
)

// mockStore implements domain.Store in memory. The fail* fields inject
// errors into individual operations.
type mockStore struct {
	mu        sync.Mutex
	seq       int
	prefs     map[string]*domain.Preferences
	cycles    []*domain.Cycle
	logs      []*domain.DailyLog
	reminders []*domain.Reminder
	users     map[string]*domain.User

	failInsertCycle    error
	failPrecedingCycle error
	failSetCycleLength error
	failTouchUser      error
	failGetPreferences error
	failRecentCycles   error
	// failReminderAt fails InsertReminder for the given 0-based attempt numbers.
	failReminderAt map[int]error
	reminderCalls  int
	failDue        error
	failMarkSent   error
}

var _ domain.Store = (*mockStore)(nil)

var errBoom = domain.Unavailable("mock", errors.New("connection reset"))

func newMockStore() *mockStore {
	return &mockStore{
		prefs: make(map[string]*domain.Preferences),
		users: make(map[string]*domain.User),
	}
}

func (m *mockStore) nextID() string {
	m.seq++
	return "id-" + strconv.Itoa(m.seq)
}

func (m *mockStore) GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGetPreferences != nil {
		return nil, m.failGetPreferences
	}
	return m.prefs[userID], nil
}

func (m *mockStore) UpsertPreferences(ctx context.Context, prefs *domain.Preferences) (*domain.Preferences, error) {
	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *prefs
	m.prefs[prefs.UserID] = &cp
	return &cp, nil
}

func (m *mockStore) InsertCycle(ctx context.Context, cycle *domain.Cycle) error {
	if err := cycle.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsertCycle != nil {
		return m.failInsertCycle
	}
	for _, c := range m.cycles {
		if c.UserID == cycle.UserID && c.StartDate == cycle.StartDate {
			return domain.ErrDuplicateEntry
		}
	}
	cycle.ID = m.nextID()
	cp := *cycle
	m.cycles = append(m.cycles, &cp)
	return nil
}

func (m *mockStore) find(userID string, start civil.Date) *domain.Cycle {
	for _, c := range m.cycles {
		if c.UserID == userID && c.StartDate == start {
			return c
		}
	}
	return nil
}

func (m *mockStore) GetCycle(ctx context.Context, userID string, start civil.Date) (*domain.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.find(userID, start); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (m *mockStore) UpdateCycleEnd(ctx context.Context, userID string, start, end civil.Date, periodLength int, at time.Time) (*domain.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.find(userID, start)
	if c == nil {
		return nil, domain.ErrNotFound
	}
	c.EndDate = &end
	c.PeriodLengthDays = &periodLength
	c.UpdatedAt = at
	cp := *c
	return &cp, nil
}

// sortedCycles returns the user's cycles, newest start first.
func (m *mockStore) sortedCycles(userID string) []*domain.Cycle {
	var out []*domain.Cycle
	for _, c := range m.cycles {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out
}

func (m *mockStore) PrecedingCycle(ctx context.Context, userID string, before civil.Date) (*domain.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPrecedingCycle != nil {
		return nil, m.failPrecedingCycle
	}
	for _, c := range m.sortedCycles(userID) {
		if c.StartDate.Before(before) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockStore) SetCycleLength(ctx context.Context, id string, days int, at time.Time) error {
	if err := domain.ValidateCycleLength(days); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSetCycleLength != nil {
		return m.failSetCycleLength
	}
	for _, c := range m.cycles {
		if c.ID == id {
			c.CycleLengthDays = &days
			c.UpdatedAt = at
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) RecentCycles(ctx context.Context, userID string, limit int) ([]*domain.Cycle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecentCycles != nil {
		return nil, m.failRecentCycles
	}
	var out []*domain.Cycle
	for _, c := range m.sortedCycles(userID) {
		if len(out) == limit {
			break
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockStore) RecentCycleLengths(ctx context.Context, userID string, limit int) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int
	for _, c := range m.sortedCycles(userID) {
		if len(out) == limit {
			break
		}
		if c.CycleLengthDays != nil {
			out = append(out, *c.CycleLengthDays)
		}
	}
	return out, nil
}

func (m *mockStore) InsertDailyLog(ctx context.Context, log *domain.DailyLog) error {
	if err := log.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = m.nextID()
	// created_at doubles as insertion order
	log.CreatedAt = time.Unix(int64(m.seq), 0).UTC()
	cp := *log
	m.logs = append(m.logs, &cp)
	return nil
}

func (m *mockStore) DailyLogsBetween(ctx context.Context, userID string, from, to civil.Date) ([]*domain.DailyLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.DailyLog
	for _, l := range m.logs {
		if l.UserID == userID && !l.LogDate.Before(from) && !l.LogDate.After(to) {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LogDate != out[j].LogDate {
			return out[i].LogDate.Before(out[j].LogDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockStore) RecentDailyLogs(ctx context.Context, userID string, limit int) ([]*domain.DailyLog, error) {
	all, _ := m.DailyLogsBetween(ctx, userID, civil.Date{Year: 1, Month: 1, Day: 1}, civil.Date{Year: 9999, Month: 12, Day: 31})
	var out []*domain.DailyLog
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *mockStore) InsertReminder(ctx context.Context, reminder *domain.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	call := m.reminderCalls
	m.reminderCalls++
	if err := m.failReminderAt[call]; err != nil {
		return err
	}
	if err := reminder.Validate(); err != nil {
		return err
	}
	reminder.ID = m.nextID()
	cp := *reminder
	m.reminders = append(m.reminders, &cp)
	return nil
}

func (m *mockStore) DueReminders(ctx context.Context, asOf time.Time) ([]*domain.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDue != nil {
		return nil, m.failDue
	}
	var out []*domain.Reminder
	for _, r := range m.reminders {
		if !r.Sent && !r.RemindAt.After(asOf) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RemindAt.Before(out[j].RemindAt) })
	return out, nil
}

func (m *mockStore) MarkReminderSent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMarkSent != nil {
		return m.failMarkSent
	}
	for _, r := range m.reminders {
		if r.ID == id {
			r.Sent = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) TouchUser(ctx context.Context, userID string, activity domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTouchUser != nil {
		return m.failTouchUser
	}
	a := activity
	m.users[userID] = &domain.User{UserID: userID, LastSeen: activity.Timestamp, LatestActivity: &a}
	return nil
}

func (m *mockStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID], nil
}

func (m *mockStore) EnsureSchema(ctx context.Context) (domain.SetupReport, error) {
	return domain.SetupReport{}, nil
}

func (m *mockStore) Close() error { return nil }

// fixture wires every usecase against one mock store.
type fixture struct {
	store     *mockStore
	predictor *usecase.PredictPeriodUsecase
	ledger    *usecase.CycleLedgerUsecase
	insights  *usecase.SymptomInsightUsecase
	scheduler *usecase.ScheduleRemindersUsecase
	handler   *usecase.HandleMessageUsecase
}

func newFixture() *fixture {
	store := newMockStore()
	predictor := usecase.NewPredictPeriodUsecase(store)
	ledger := usecase.NewCycleLedgerUsecase(store, predictor, nil)
	insights := usecase.NewSymptomInsightUsecase(store)
	scheduler := usecase.NewScheduleRemindersUsecase(predictor, store, nil)
	return &fixture{
		store:     store,
		predictor: predictor,
		ledger:    ledger,
		insights:  insights,
		scheduler: scheduler,
		handler:   usecase.NewHandleMessageUsecase(ledger, predictor, insights, scheduler),
	}
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func datep(y int, m time.Month, d int) *civil.Date {
	v := date(y, m, d)
	return &v
}

func intp(v int) *int { return &v }

func entry(flow *string, symptoms ...string) usecase.DailyEntry {
	return usecase.DailyEntry{Flow: flow, Symptoms: symptoms}
}
