package usecase

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/fardannozami/flowcare/internal/domain"
)

// RecentDailyLogLimit is how many logs RecentDailyLogs returns by default.
const RecentDailyLogLimit = 30

// LedgerRepository is every collection the ledger writes to.
type LedgerRepository interface {
	domain.PreferenceRepository
	domain.CycleRepository
	domain.DailyLogRepository
	domain.UserRepository
}

// AddCycleResult carries the inserted cycle and how the secondary writes went.
type AddCycleResult struct {
	Cycle *domain.Cycle
	// Previous is the cycle whose length was back-filled, if any.
	Previous    *domain.Cycle
	Backfill    domain.WriteStatus
	BackfillErr error
	Mirror      domain.WriteStatus
}

// PrevAndPredicted holds the two latest starts and the predicted next one.
// Every field is nil when the user has no cycles.
type PrevAndPredicted struct {
	LatestStart        *civil.Date `json:"latest_start,omitempty" yaml:"latest_start,omitempty"`
	PreviousStart      *civil.Date `json:"previous_start,omitempty" yaml:"previous_start,omitempty"`
	PredictedNextStart *civil.Date `json:"predicted_next_start,omitempty" yaml:"predicted_next_start,omitempty"`
}

type CycleLedgerUsecase struct {
	repo      LedgerRepository
	predictor *PredictPeriodUsecase
	log       *zap.Logger
	now       func() time.Time
}

func NewCycleLedgerUsecase(repo LedgerRepository, predictor *PredictPeriodUsecase, logger *zap.Logger) *CycleLedgerUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CycleLedgerUsecase{repo: repo, predictor: predictor, log: logger, now: time.Now}
}

// AddCycle records a period start and back-fills the length of the cycle
// before it. Only the insert is critical. The back-fill and the users mirror
// are reported on the result and never undo the insert.
//
// The predecessor lookup is not isolated from concurrent inserts for the same
// user, so a racing insert can leave a stale length until the next AddCycle.
func (uc *CycleLedgerUsecase) AddCycle(ctx context.Context, userID string, start civil.Date, end *civil.Date, notes *string) (*AddCycleResult, error) {
	cycle := &domain.Cycle{
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Notes:     notes,
	}
	if end != nil {
		if end.Before(start) {
			return nil, &domain.ValidationError{Field: "end_date", Reason: "before start_date"}
		}
		periodLength := domain.PeriodLength(start, *end)
		cycle.PeriodLengthDays = &periodLength
	}
	if err := cycle.Validate(); err != nil {
		return nil, err
	}

	if err := uc.repo.InsertCycle(ctx, cycle); err != nil {
		return nil, err
	}

	result := &AddCycleResult{Cycle: cycle}
	result.Previous, result.Backfill, result.BackfillErr = uc.backfill(ctx, cycle)
	result.Mirror = uc.touch(ctx, userID, domain.ActivityCycle, start)
	return result, nil
}

func (uc *CycleLedgerUsecase) backfill(ctx context.Context, cycle *domain.Cycle) (*domain.Cycle, domain.WriteStatus, error) {
	prev, err := uc.repo.PrecedingCycle(ctx, cycle.UserID, cycle.StartDate)
	if err != nil {
		uc.log.Warn("back-fill lookup failed", zap.String("user_id", cycle.UserID), zap.Error(err))
		return nil, domain.WriteFailed, err
	}
	if prev == nil {
		return nil, domain.WriteSkipped, nil
	}

	days := domain.DaysBetween(prev.StartDate, cycle.StartDate)
	at := uc.now().UTC()
	if err := uc.repo.SetCycleLength(ctx, prev.ID, days, at); err != nil {
		uc.log.Warn("back-fill write failed",
			zap.String("user_id", cycle.UserID),
			zap.String("previous_start", prev.StartDate.String()),
			zap.Int("cycle_length_days", days),
			zap.Error(err),
		)
		return prev, domain.WriteFailed, err
	}
	prev.CycleLengthDays = &days
	prev.UpdatedAt = at
	return prev, domain.WriteOK, nil
}

func (uc *CycleLedgerUsecase) touch(ctx context.Context, userID, activityType string, ref civil.Date) domain.WriteStatus {
	err := uc.repo.TouchUser(ctx, userID, domain.Activity{
		Type:      activityType,
		Timestamp: uc.now().UTC(),
		RefDate:   ref,
	})
	if err != nil {
		uc.log.Warn("users mirror write failed", zap.String("user_id", userID), zap.Error(err))
		return domain.WriteFailed
	}
	return domain.WriteOK
}

// UpdateCycleEnd sets the end of the cycle that started at start.
func (uc *CycleLedgerUsecase) UpdateCycleEnd(ctx context.Context, userID string, start, end civil.Date) (*domain.Cycle, error) {
	if end.Before(start) {
		return nil, &domain.ValidationError{Field: "end_date", Reason: "before start_date"}
	}
	periodLength := domain.PeriodLength(start, end)
	if err := domain.ValidatePeriodLength(periodLength); err != nil {
		return nil, err
	}
	return uc.repo.UpdateCycleEnd(ctx, userID, start, end, periodLength, uc.now().UTC())
}

// LatestTwoStarts returns up to two start dates, newest first.
func (uc *CycleLedgerUsecase) LatestTwoStarts(ctx context.Context, userID string) ([]civil.Date, error) {
	cycles, err := uc.repo.RecentCycles(ctx, userID, 2)
	if err != nil {
		return nil, err
	}
	starts := make([]civil.Date, 0, len(cycles))
	for _, c := range cycles {
		starts = append(starts, c.StartDate)
	}
	return starts, nil
}

func (uc *CycleLedgerUsecase) PrevAndPredicted(ctx context.Context, userID string) (PrevAndPredicted, error) {
	var out PrevAndPredicted
	starts, err := uc.LatestTwoStarts(ctx, userID)
	if err != nil || len(starts) == 0 {
		return out, err
	}

	latest := starts[0]
	out.LatestStart = &latest
	if len(starts) == 2 {
		previous := starts[1]
		out.PreviousStart = &previous
	}

	prefs, err := uc.repo.GetPreferences(ctx, userID)
	if err != nil {
		return out, err
	}
	avgCycle, err := uc.predictor.averageCycleLength(ctx, userID, prefs)
	if err != nil {
		return out, err
	}
	predicted := latest.AddDays(avgCycle)
	out.PredictedNextStart = &predicted
	return out, nil
}

// Summary is the feedback line shown after a cycle is saved.
func (uc *CycleLedgerUsecase) Summary(pp PrevAndPredicted) string {
	var sb strings.Builder
	sb.WriteString("Cycle saved.")
	if pp.PreviousStart != nil {
		sb.WriteString(" Previous start: " + domain.FormatDate(*pp.PreviousStart) + ".")
	}
	if pp.PredictedNextStart != nil {
		sb.WriteString(" Predicted next start: " + domain.FormatDate(*pp.PredictedNextStart) + ".")
	}
	return sb.String()
}

// UpsertPreferences overwrites every preference field. An omitted luteal
// phase is stored as the default.
func (uc *CycleLedgerUsecase) UpsertPreferences(ctx context.Context, userID string, avgCycle, avgPeriod, luteal *int) (*domain.Preferences, error) {
	if luteal == nil {
		d := domain.DefaultLutealPhase
		luteal = &d
	}
	return uc.repo.UpsertPreferences(ctx, &domain.Preferences{
		UserID:              userID,
		AvgCycleLengthDays:  avgCycle,
		AvgPeriodLengthDays: avgPeriod,
		LutealPhaseDays:     luteal,
		UpdatedAt:           uc.now().UTC(),
	})
}

// DailyEntry is the caller-supplied part of a daily log.
type DailyEntry struct {
	Mood     *string
	Flow     *string
	Symptoms []string
	Notes    *string
}

// LogDailyResult carries the stored log and how the users mirror write went.
type LogDailyResult struct {
	Log    *domain.DailyLog
	Mirror domain.WriteStatus
}

// LogDaily stores a daily log with normalized symptom tags. Only the insert is
// critical; a failed users mirror write is reported on the result.
func (uc *CycleLedgerUsecase) LogDaily(ctx context.Context, userID string, day civil.Date, entry DailyEntry) (*LogDailyResult, error) {
	log := &domain.DailyLog{
		UserID:   userID,
		LogDate:  day,
		Mood:     entry.Mood,
		Flow:     entry.Flow,
		Symptoms: domain.NormalizeSymptoms(entry.Symptoms),
		Notes:    entry.Notes,
	}
	if log.Flow != nil {
		flow := strings.ToLower(strings.TrimSpace(*log.Flow))
		log.Flow = &flow
	}
	if err := log.Validate(); err != nil {
		return nil, err
	}
	if err := uc.repo.InsertDailyLog(ctx, log); err != nil {
		return nil, err
	}
	return &LogDailyResult{
		Log:    log,
		Mirror: uc.touch(ctx, userID, domain.ActivityDailyLog, day),
	}, nil
}

// RecentDailyLogs returns the latest logs, newest first. A non-positive limit
// means RecentDailyLogLimit.
func (uc *CycleLedgerUsecase) RecentDailyLogs(ctx context.Context, userID string, limit int) ([]*domain.DailyLog, error) {
	if limit <= 0 {
		limit = RecentDailyLogLimit
	}
	return uc.repo.RecentDailyLogs(ctx, userID, limit)
}
