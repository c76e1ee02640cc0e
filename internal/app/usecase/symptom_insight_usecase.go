package usecase

import (
	"context"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/fardannozami/flowcare/internal/domain"
)

const (
	DefaultSymptomWindowDays = 3
	DefaultSymptomLimit      = 5
	// symptomStartsLookback caps how many recent starts are examined.
	symptomStartsLookback = 8
)

type InsightRepository interface {
	RecentCycles(ctx context.Context, userID string, limit int) ([]*domain.Cycle, error)
	DailyLogsBetween(ctx context.Context, userID string, from, to civil.Date) ([]*domain.DailyLog, error)
}

type SymptomInsightUsecase struct {
	repo InsightRepository
}

func NewSymptomInsightUsecase(repo InsightRepository) *SymptomInsightUsecase {
	return &SymptomInsightUsecase{repo: repo}
}

// TopPreperiodSymptoms tallies the symptoms logged in the windowDays before
// each recent period start. A log is credited to at most one start and each
// distinct tag counts once per log. Ties keep the order tags were first seen.
func (uc *SymptomInsightUsecase) TopPreperiodSymptoms(ctx context.Context, userID string, windowDays, limit int) ([]domain.SymptomCount, error) {
	if windowDays <= 0 {
		windowDays = DefaultSymptomWindowDays
	}
	if limit <= 0 {
		limit = DefaultSymptomLimit
	}

	cycles, err := uc.repo.RecentCycles(ctx, userID, symptomStartsLookback)
	if err != nil {
		return nil, err
	}
	if len(cycles) == 0 {
		return []domain.SymptomCount{}, nil
	}

	starts := make([]civil.Date, 0, len(cycles))
	earliest, latest := cycles[0].StartDate, cycles[0].StartDate
	for _, c := range cycles {
		starts = append(starts, c.StartDate)
		if c.StartDate.Before(earliest) {
			earliest = c.StartDate
		}
		if c.StartDate.After(latest) {
			latest = c.StartDate
		}
	}

	logs, err := uc.repo.DailyLogsBetween(ctx, userID, earliest.AddDays(-windowDays), latest)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	var order []string
	for _, l := range logs {
		if !precedesAnyStart(l.LogDate, starts, windowDays) {
			continue
		}
		seen := make(map[string]bool, len(l.Symptoms))
		for _, tag := range l.Symptoms {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	top := make([]domain.SymptomCount, 0, len(order))
	for _, tag := range order {
		top = append(top, domain.SymptomCount{Symptom: tag, Count: counts[tag]})
	}
	sort.SliceStable(top, func(i, j int) bool {
		return top[i].Count > top[j].Count
	})
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// precedesAnyStart reports whether day falls 1..window days before one of the starts.
func precedesAnyStart(day civil.Date, starts []civil.Date, window int) bool {
	for _, s := range starts {
		if delta := domain.DaysBetween(day, s); delta > 0 && delta <= window {
			return true
		}
	}
	return false
}
