package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/fardannozami/flowcare/internal/domain"
)

// Notifier delivers a reminder message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, message string) error
}

type DispatchReport struct {
	Due    int `json:"due" yaml:"due"`
	Sent   int `json:"sent" yaml:"sent"`
	Failed int `json:"failed" yaml:"failed"`
}

// DispatchRemindersUsecase delivers due reminders. A reminder is marked sent
// only after the notifier accepted it; failures stay due for the next run.
type DispatchRemindersUsecase struct {
	repo     domain.ReminderRepository
	notifier Notifier
	log      *zap.Logger
}

func NewDispatchRemindersUsecase(repo domain.ReminderRepository, notifier Notifier, logger *zap.Logger) *DispatchRemindersUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchRemindersUsecase{repo: repo, notifier: notifier, log: logger}
}

func (uc *DispatchRemindersUsecase) Execute(ctx context.Context, asOf time.Time) (DispatchReport, error) {
	var report DispatchReport

	due, err := uc.repo.DueReminders(ctx, asOf.UTC())
	if err != nil {
		return report, err
	}
	report.Due = len(due)

	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		msg := r.Message()
		if msg == "" {
			msg = "Reminder: " + r.Type
		}
		if err := uc.notifier.Notify(ctx, r.UserID, msg); err != nil {
			uc.log.Warn("reminder delivery failed", zap.String("reminder_id", r.ID), zap.String("user_id", r.UserID), zap.Error(err))
			report.Failed++
			continue
		}
		if err := uc.repo.MarkReminderSent(ctx, r.ID); err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return report, err
			}
			uc.log.Warn("reminder delivered but not marked sent", zap.String("reminder_id", r.ID), zap.Error(err))
			report.Failed++
			continue
		}
		report.Sent++
	}

	uc.log.Info("reminder dispatch finished", zap.Int("due", report.Due), zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
	return report, nil
}
