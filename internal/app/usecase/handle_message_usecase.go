package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/fardannozami/flowcare/internal/domain"
)

// HandleMessageUsecase routes chat commands. Anything that is not a known
// command gets an empty reply.
type HandleMessageUsecase struct {
	ledger    *CycleLedgerUsecase
	predictor *PredictPeriodUsecase
	insights  *SymptomInsightUsecase
	scheduler *ScheduleRemindersUsecase
}

func NewHandleMessageUsecase(ledger *CycleLedgerUsecase, predictor *PredictPeriodUsecase, insights *SymptomInsightUsecase, scheduler *ScheduleRemindersUsecase) *HandleMessageUsecase {
	return &HandleMessageUsecase{
		ledger:    ledger,
		predictor: predictor,
		insights:  insights,
		scheduler: scheduler,
	}
}

func (uc *HandleMessageUsecase) Execute(ctx context.Context, userID, name, msg string) (string, error) {
	fields := strings.Fields(msg)
	if len(fields) == 0 {
		return "", nil
	}
	args := fields[1:]

	var (
		reply string
		err   error
	)
	switch strings.ToLower(fields[0]) {
	case "#start":
		reply, err = uc.start(ctx, userID, args)
	case "#end":
		reply, err = uc.end(ctx, userID, args)
	case "#log":
		reply, err = uc.logDaily(ctx, userID, args)
	case "#predict":
		reply, err = uc.predict(ctx, userID, name)
	case "#symptoms":
		reply, err = uc.symptoms(ctx, userID)
	case "#remind":
		reply, err = uc.remind(ctx, userID)
	case "#prefs":
		reply, err = uc.prefs(ctx, userID, args)
	default:
		return "", nil
	}
	return userFacing(reply, err)
}

// userFacing turns business rule violations into a reply. Store failures are
// returned to the caller.
func userFacing(reply string, err error) (string, error) {
	switch {
	case err == nil:
		return reply, nil
	case errors.Is(err, domain.ErrDuplicateEntry):
		return "A cycle with this start date is already recorded.", nil
	case errors.Is(err, domain.ErrNotFound):
		return "No cycle found with that start date.", nil
	case errors.Is(err, domain.ErrInvalid), errors.Is(err, errUsage):
		return "Sorry, " + err.Error(), nil
	}
	return "", err
}

var errUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

func (uc *HandleMessageUsecase) start(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) == 0 {
		return "", usage("#start YYYY-MM-DD [YYYY-MM-DD] [notes]")
	}
	start, err := domain.ParseDate(args[0])
	if err != nil {
		return "", err
	}
	args = args[1:]

	var end *civil.Date
	if len(args) > 0 {
		if d, err := civil.ParseDate(args[0]); err == nil {
			end = &d
			args = args[1:]
		}
	}
	var notes *string
	if len(args) > 0 {
		n := strings.Join(args, " ")
		notes = &n
	}

	if _, err := uc.ledger.AddCycle(ctx, userID, start, end, notes); err != nil {
		return "", err
	}
	pp, err := uc.ledger.PrevAndPredicted(ctx, userID)
	if err != nil {
		return "", err
	}
	return uc.ledger.Summary(pp), nil
}

func (uc *HandleMessageUsecase) end(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) != 2 {
		return "", usage("#end START END")
	}
	start, err := domain.ParseDate(args[0])
	if err != nil {
		return "", err
	}
	end, err := domain.ParseDate(args[1])
	if err != nil {
		return "", err
	}

	cycle, err := uc.ledger.UpdateCycleEnd(ctx, userID, start, end)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Cycle %s ended on %s (%d days).",
		domain.FormatDate(cycle.StartDate), domain.FormatDate(end), *cycle.PeriodLengthDays), nil
}

func (uc *HandleMessageUsecase) logDaily(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) < 2 {
		return "", usage("#log YYYY-MM-DD symptom[,symptom] [mood]")
	}
	day, err := domain.ParseDate(args[0])
	if err != nil {
		return "", err
	}

	entry := DailyEntry{Symptoms: strings.Split(args[1], ",")}
	if len(args) > 2 {
		mood := strings.Join(args[2:], " ")
		entry.Mood = &mood
	}

	res, err := uc.ledger.LogDaily(ctx, userID, day, entry)
	if err != nil {
		return "", err
	}
	log := res.Log
	if len(log.Symptoms) == 0 {
		return fmt.Sprintf("Logged %s.", domain.FormatDate(day)), nil
	}
	return fmt.Sprintf("Logged %s: %s.", domain.FormatDate(day), strings.Join(log.Symptoms, ", ")), nil
}

func (uc *HandleMessageUsecase) predict(ctx context.Context, userID, name string) (string, error) {
	pred, err := uc.predictor.PredictNextPeriod(ctx, userID)
	if err != nil {
		return "", err
	}
	if pred == nil {
		return "No cycles recorded yet. Send #start YYYY-MM-DD first.", nil
	}
	ovu, err := uc.predictor.PredictOvulation(ctx, userID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s, your next period is predicted to start on %s", name, domain.FormatDate(pred.PredictedStart)))
	if pred.PredictedEnd != nil {
		sb.WriteString(fmt.Sprintf(" and end on %s", domain.FormatDate(*pred.PredictedEnd)))
	}
	sb.WriteString(fmt.Sprintf(" (average cycle %d days).", pred.AvgCycleLengthDays))
	if ovu != nil {
		sb.WriteString(fmt.Sprintf("\nOvulation: %s\nFertile window: %s to %s",
			domain.FormatDate(ovu.OvulationDay),
			domain.FormatDate(ovu.FertileStart),
			domain.FormatDate(ovu.FertileEnd)))
	}
	return sb.String(), nil
}

func (uc *HandleMessageUsecase) symptoms(ctx context.Context, userID string) (string, error) {
	top, err := uc.insights.TopPreperiodSymptoms(ctx, userID, DefaultSymptomWindowDays, DefaultSymptomLimit)
	if err != nil {
		return "", err
	}
	if len(top) == 0 {
		return "No pre-period symptoms logged yet.", nil
	}

	var sb strings.Builder
	sb.WriteString("Most frequent pre-period symptoms:")
	for i, s := range top {
		sb.WriteString(fmt.Sprintf("\n%d. %s (%d)", i+1, s.Symptom, s.Count))
	}
	return sb.String(), nil
}

func (uc *HandleMessageUsecase) remind(ctx context.Context, userID string) (string, error) {
	res, err := uc.scheduler.SchedulePeriodReminders(ctx, userID)
	if err != nil {
		return "", err
	}
	switch res.Status {
	case ScheduleNothing:
		return "No cycles recorded yet, nothing to remind you about.", nil
	case ScheduleFailed:
		return "Could not save your reminders. Please try again later.", nil
	}

	dates := make([]string, 0, len(res.Reminders))
	for _, r := range res.Reminders {
		if r.Persisted {
			dates = append(dates, domain.FormatDate(domain.ToDate(r.Reminder.RemindAt)))
		}
	}
	return fmt.Sprintf("Reminders set for %s.", strings.Join(dates, ", ")), nil
}

func (uc *HandleMessageUsecase) prefs(ctx context.Context, userID string, args []string) (string, error) {
	if len(args) < 2 || len(args) > 3 {
		return "", usage("#prefs CYCLE_DAYS PERIOD_DAYS [LUTEAL_DAYS]")
	}
	values := make([]*int, 3)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return "", usage("#prefs CYCLE_DAYS PERIOD_DAYS [LUTEAL_DAYS]")
		}
		values[i] = &v
	}

	p, err := uc.ledger.UpsertPreferences(ctx, userID, values[0], values[1], values[2])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Preferences saved: cycle %d days, period %d days, luteal phase %d days.",
		*p.AvgCycleLengthDays, *p.AvgPeriodLengthDays, *p.LutealPhaseDays), nil
}
