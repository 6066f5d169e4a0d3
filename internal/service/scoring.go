package service

import (
	"sort"

	"github.com/civicdesk/backend/internal/models"
)

// ScoreWeights centralizes every scoring constant so deployments can tune
// routing without touching the ranking code.
type ScoreWeights struct {
	CategoryMatch        float64
	CoverageMatch        float64
	UrgentCapable        float64
	UrgentCapacityFloor  int
	ResolutionRateFactor float64
	FastResponseHours    float64
	FastResponseBonus    float64
	SlowResponseHours    float64
	SlowResponseBonus    float64
	LowLoadRatio         float64
	LowLoadBonus         float64
	MidLoadRatio         float64
	MidLoadBonus         float64
	OverloadPenalty      float64
}

func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		CategoryMatch:        100,
		CoverageMatch:        50,
		UrgentCapable:        30,
		UrgentCapacityFloor:  5,
		ResolutionRateFactor: 0.2,
		FastResponseHours:    12,
		FastResponseBonus:    20,
		SlowResponseHours:    24,
		SlowResponseBonus:    10,
		LowLoadRatio:         0.5,
		LowLoadBonus:         25,
		MidLoadRatio:         0.8,
		MidLoadBonus:         15,
		OverloadPenalty:      -50,
	}
}

type RankedUnit struct {
	Unit      models.HandlingUnit
	Score     float64
	OpenCount int
	LoadRatio float64
}

// WorkloadRatio maps an open count onto the unit's configured capacity.
// Units with no configured capacity count as saturated.
func WorkloadRatio(openCount, maxConcurrent int) float64 {
	if maxConcurrent <= 0 {
		return 1.0
	}
	return float64(openCount) / float64(maxConcurrent)
}

// Score is a pure function of its inputs. Callers must have already checked
// the category: a unit that does not handle the item's category is excluded
// from ranking entirely, not penalized here.
func (w ScoreWeights) Score(unit models.HandlingUnit, item models.WorkItem, workloadRatio float64) float64 {
	score := w.CategoryMatch

	if unit.Coverage.Contains(item.Location) {
		score += w.CoverageMatch
	}

	if item.Priority == models.PriorityUrgent && unit.Settings.MaxConcurrentItems > w.UrgentCapacityFloor {
		score += w.UrgentCapable
	}

	score += unit.Stats.ResolutionRatePercent * w.ResolutionRateFactor

	switch {
	case unit.Stats.AvgResponseTimeHours < w.FastResponseHours:
		score += w.FastResponseBonus
	case unit.Stats.AvgResponseTimeHours < w.SlowResponseHours:
		score += w.SlowResponseBonus
	}

	switch {
	case workloadRatio < w.LowLoadRatio:
		score += w.LowLoadBonus
	case workloadRatio < w.MidLoadRatio:
		score += w.MidLoadBonus
	case workloadRatio >= 1.0:
		score += w.OverloadPenalty
	}

	return score
}

// Rank orders category-capable units best first. Ties break on lower
// workload ratio, then lower unit ID, so identical inputs always produce an
// identical ordering.
func (w ScoreWeights) Rank(units []models.HandlingUnit, item models.WorkItem, openCounts map[string]int) []RankedUnit {
	ranked := make([]RankedUnit, 0, len(units))
	for _, u := range units {
		if !u.HandlesCategory(item.Category) {
			continue
		}
		open := openCounts[u.ID]
		ratio := WorkloadRatio(open, u.Settings.MaxConcurrentItems)
		ranked = append(ranked, RankedUnit{
			Unit:      u,
			Score:     w.Score(u, item, ratio),
			OpenCount: open,
			LoadRatio: ratio,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].LoadRatio != ranked[j].LoadRatio {
			return ranked[i].LoadRatio < ranked[j].LoadRatio
		}
		return ranked[i].Unit.ID < ranked[j].Unit.ID
	})
	return ranked
}
