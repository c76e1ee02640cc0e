package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fardannozami/flowcare/internal/domain"
)

// reminderOffsets are the days before the predicted start a reminder fires.
var reminderOffsets = []int{3, 1, 0}

// ScheduleStatus summarizes how many materialized reminders were stored.
type ScheduleStatus int

const (
	ScheduleOK ScheduleStatus = iota
	SchedulePartial
	ScheduleFailed
	// ScheduleNothing means there was no prediction to schedule against.
	ScheduleNothing
)

func (s ScheduleStatus) String() string {
	switch s {
	case ScheduleOK:
		return "ok"
	case SchedulePartial:
		return "partial"
	case ScheduleFailed:
		return "failed"
	case ScheduleNothing:
		return "nothing"
	}
	return "unknown"
}

// ScheduledReminder is one attempted reminder. Persisted is false when the
// insert failed, in which case Err holds the cause.
type ScheduledReminder struct {
	Reminder  *domain.Reminder
	Persisted bool
	Err       error
}

type ScheduleResult struct {
	Status    ScheduleStatus
	Reminders []ScheduledReminder
}

// PersistedCount is the number of reminders actually stored.
func (r *ScheduleResult) PersistedCount() int {
	n := 0
	for _, sr := range r.Reminders {
		if sr.Persisted {
			n++
		}
	}
	return n
}

type ScheduleRemindersUsecase struct {
	predictor *PredictPeriodUsecase
	repo      domain.ReminderRepository
	log       *zap.Logger
	now       func() time.Time
}

func NewScheduleRemindersUsecase(predictor *PredictPeriodUsecase, repo domain.ReminderRepository, logger *zap.Logger) *ScheduleRemindersUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRemindersUsecase{predictor: predictor, repo: repo, log: logger, now: time.Now}
}

// SchedulePeriodReminders writes three reminders at three days, one day and
// zero days before the predicted start. A failed insert is logged and
// skipped, so the result may hold fewer persisted reminders than attempts.
func (uc *ScheduleRemindersUsecase) SchedulePeriodReminders(ctx context.Context, userID string) (*ScheduleResult, error) {
	pred, err := uc.predictor.PredictNextPeriod(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pred == nil {
		return &ScheduleResult{Status: ScheduleNothing}, nil
	}

	message := fmt.Sprintf("Your period is likely to start around %s.", domain.FormatDate(pred.PredictedStart))
	createdAt := uc.now().UTC()

	result := &ScheduleResult{}
	for _, offset := range reminderOffsets {
		r := &domain.Reminder{
			UserID:    userID,
			Type:      domain.ReminderUpcomingPeriod,
			RemindAt:  domain.ToCanonical(pred.PredictedStart.AddDays(-offset)),
			Payload:   map[string]any{"message": message},
			CreatedAt: createdAt,
		}
		sr := ScheduledReminder{Reminder: r, Persisted: true}
		if err := uc.repo.InsertReminder(ctx, r); err != nil {
			uc.log.Warn("reminder insert failed, skipping",
				zap.String("user_id", userID),
				zap.Time("remind_at", r.RemindAt),
				zap.Error(err),
			)
			sr.Persisted = false
			sr.Err = err
		}
		result.Reminders = append(result.Reminders, sr)
	}

	switch n := result.PersistedCount(); {
	case n == len(result.Reminders):
		result.Status = ScheduleOK
	case n == 0:
		result.Status = ScheduleFailed
	default:
		result.Status = SchedulePartial
	}
	return result, nil
}

// DueReminders lists unsent reminders with remind_at <= asOf, oldest first.
func (uc *ScheduleRemindersUsecase) DueReminders(ctx context.Context, asOf time.Time) ([]*domain.Reminder, error) {
	return uc.repo.DueReminders(ctx, asOf.UTC())
}

// MarkSent flags a reminder as delivered. Marking twice is harmless.
func (uc *ScheduleRemindersUsecase) MarkSent(ctx context.Context, id string) error {
	return uc.repo.MarkReminderSent(ctx, id)
}
