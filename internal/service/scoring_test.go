package service

import (
	"testing"

	"github.com/civicdesk/backend/internal/models"
)

func waterUnit(id string, rate, avgResp float64, maxConcurrent int) models.HandlingUnit {
	return models.HandlingUnit{
		ID:         id,
		Name:       "Unit " + id,
		Active:     true,
		Categories: []string{"Water"},
		Coverage:   &models.CoverageArea{Lat: 51.1, Lon: 71.4, RadiusKm: 25},
		Settings:   models.UnitSettings{AutoAssign: true, MaxConcurrentItems: maxConcurrent},
		Stats:      models.UnitStats{ResolutionRatePercent: rate, AvgResponseTimeHours: avgResp},
	}
}

func urgentWaterItem() models.WorkItem {
	return models.WorkItem{
		ID:       "item-1",
		Category: "Water",
		Location: models.Location{Lat: 51.1, Lon: 71.4},
		Priority: models.PriorityUrgent,
		Status:   models.StatusNew,
	}
}

func TestRankPrefersStrongerUnit(t *testing.T) {
	unitA := waterUnit("unit-a", 80, 10, 10)
	unitB := waterUnit("unit-b", 50, 20, 10)
	loads := map[string]int{"unit-a": 2, "unit-b": 8}

	ranked := DefaultWeights().Rank([]models.HandlingUnit{unitB, unitA}, urgentWaterItem(), loads)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked units, got %d", len(ranked))
	}
	if ranked[0].Unit.ID != "unit-a" {
		t.Fatalf("expected unit-a to win, got %s", ranked[0].Unit.ID)
	}
	if ranked[0].Score <= ranked[1].Score {
		t.Fatalf("expected strictly higher score for winner, got %f vs %f", ranked[0].Score, ranked[1].Score)
	}
}

func TestRankExcludesCategoryMismatch(t *testing.T) {
	unit := waterUnit("unit-a", 90, 5, 10)
	item := urgentWaterItem()
	item.Category = "Traffic Management"

	ranked := DefaultWeights().Rank([]models.HandlingUnit{unit}, item, nil)
	if len(ranked) != 0 {
		t.Fatalf("expected category mismatch to exclude the unit, got %d candidates", len(ranked))
	}
}

func TestScoreWorkloadPenaltyMonotonic(t *testing.T) {
	unit := waterUnit("unit-a", 70, 15, 10)
	item := urgentWaterItem()
	w := DefaultWeights()

	prev := w.Score(unit, item, 0)
	for _, ratio := range []float64{0.3, 0.5, 0.79, 0.9, 1.0, 1.5} {
		score := w.Score(unit, item, ratio)
		if score > prev {
			t.Fatalf("score increased with workload ratio %f: %f > %f", ratio, score, prev)
		}
		prev = score
	}
}

func TestRankDeterministic(t *testing.T) {
	units := []models.HandlingUnit{
		waterUnit("unit-c", 60, 15, 10),
		waterUnit("unit-a", 60, 15, 10),
		waterUnit("unit-b", 60, 15, 10),
	}
	loads := map[string]int{"unit-a": 1, "unit-b": 1, "unit-c": 1}
	item := urgentWaterItem()
	w := DefaultWeights()

	first := w.Rank(units, item, loads)
	second := w.Rank(units, item, loads)
	for i := range first {
		if first[i].Unit.ID != second[i].Unit.ID {
			t.Fatalf("ordering differs at %d: %s vs %s", i, first[i].Unit.ID, second[i].Unit.ID)
		}
	}
	// Equal scores and ratios fall back to unit ID.
	if first[0].Unit.ID != "unit-a" || first[1].Unit.ID != "unit-b" || first[2].Unit.ID != "unit-c" {
		t.Fatalf("expected ID tie-break ordering, got %s %s %s", first[0].Unit.ID, first[1].Unit.ID, first[2].Unit.ID)
	}
}

func TestRankTieBreaksOnLowerLoad(t *testing.T) {
	// Same score band: both units land in the low-load bucket, so only the
	// ratio tie-break separates them.
	unitA := waterUnit("unit-z", 60, 15, 10)
	unitB := waterUnit("unit-a", 60, 15, 10)
	loads := map[string]int{"unit-z": 1, "unit-a": 4}

	ranked := DefaultWeights().Rank([]models.HandlingUnit{unitA, unitB}, urgentWaterItem(), loads)
	if ranked[0].Unit.ID != "unit-z" {
		t.Fatalf("expected lower-load unit-z first despite higher ID, got %s", ranked[0].Unit.ID)
	}
}

func TestWorkloadRatioNoCapacity(t *testing.T) {
	if r := WorkloadRatio(0, 0); r != 1.0 {
		t.Fatalf("expected zero-capacity unit to count as saturated, got %f", r)
	}
	if r := WorkloadRatio(3, 6); r != 0.5 {
		t.Fatalf("expected 0.5, got %f", r)
	}
}
