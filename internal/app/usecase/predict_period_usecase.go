package usecase

import (
	"context"
	"math"

	"github.com/fardannozami/flowcare/internal/domain"
)

// PredictionRepository is the read side the predictor needs.
type PredictionRepository interface {
	GetPreferences(ctx context.Context, userID string) (*domain.Preferences, error)
	RecentCycles(ctx context.Context, userID string, limit int) ([]*domain.Cycle, error)
	RecentCycleLengths(ctx context.Context, userID string, limit int) ([]int, error)
}

// PredictPeriodUsecase derives the next period and the ovulation window from
// stored cycles and preferences. It never reads the clock.
type PredictPeriodUsecase struct {
	repo PredictionRepository
}

func NewPredictPeriodUsecase(repo PredictionRepository) *PredictPeriodUsecase {
	return &PredictPeriodUsecase{repo: repo}
}

// PredictNextPeriod returns nil when the user has no cycles.
func (uc *PredictPeriodUsecase) PredictNextPeriod(ctx context.Context, userID string) (*domain.Prediction, error) {
	latest, err := uc.repo.RecentCycles(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, nil
	}

	prefs, err := uc.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	avgCycle, err := uc.averageCycleLength(ctx, userID, prefs)
	if err != nil {
		return nil, err
	}

	pred := &domain.Prediction{
		PredictedStart:     latest[0].StartDate.AddDays(avgCycle),
		AvgCycleLengthDays: avgCycle,
	}
	if p := prefValue(prefs, func(p *domain.Preferences) *int { return p.AvgPeriodLengthDays }); p > 0 {
		end := pred.PredictedStart.AddDays(p - 1)
		pred.PredictedEnd = &end
		pred.AvgPeriodLengthDays = &p
	}
	return pred, nil
}

// PredictOvulation returns nil exactly when PredictNextPeriod does.
func (uc *PredictPeriodUsecase) PredictOvulation(ctx context.Context, userID string) (*domain.OvulationWindow, error) {
	pred, err := uc.PredictNextPeriod(ctx, userID)
	if err != nil || pred == nil {
		return nil, err
	}

	prefs, err := uc.repo.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	luteal := prefValue(prefs, func(p *domain.Preferences) *int { return p.LutealPhaseDays })
	if luteal <= 0 {
		luteal = domain.DefaultLutealPhase
	}

	ovulation := pred.PredictedStart.AddDays(-luteal)
	return &domain.OvulationWindow{
		OvulationDay:    ovulation,
		FertileStart:    ovulation.AddDays(-domain.FertileWindowRadius),
		FertileEnd:      ovulation.AddDays(domain.FertileWindowRadius),
		LutealPhaseDays: luteal,
	}, nil
}

// averageCycleLength picks the declared preference, then the history average,
// then the default. A zero preference counts as unset.
func (uc *PredictPeriodUsecase) averageCycleLength(ctx context.Context, userID string, prefs *domain.Preferences) (int, error) {
	if v := prefValue(prefs, func(p *domain.Preferences) *int { return p.AvgCycleLengthDays }); v > 0 {
		return v, nil
	}

	lengths, err := uc.repo.RecentCycleLengths(ctx, userID, domain.CycleAverageWindow)
	if err != nil {
		return 0, err
	}
	if avg, ok := roundedMean(lengths); ok {
		return avg, nil
	}
	return domain.DefaultCycleLength, nil
}

// roundedMean rounds half to even, so 28.5 becomes 28 and 29.5 becomes 30.
func roundedMean(values []int) (int, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.RoundToEven(float64(sum) / float64(len(values)))), true
}

func prefValue(prefs *domain.Preferences, field func(*domain.Preferences) *int) int {
	if prefs == nil {
		return 0
	}
	if v := field(prefs); v != nil {
		return *v
	}
	return 0
}
