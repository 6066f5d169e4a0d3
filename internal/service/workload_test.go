package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/models"
)

type fakeCounts struct {
	unitCounts  map[string]int
	staffCounts map[string]int
	err         error
}

func (f *fakeCounts) CountOpenByUnit(_ context.Context, unitID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.unitCounts[unitID], nil
}

func (f *fakeCounts) CountOpenByStaff(_ context.Context, staffID string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.staffCounts[staffID], nil
}

func TestUnitLoadsJoinsAllCounts(t *testing.T) {
	store := &fakeCounts{unitCounts: map[string]int{"u1": 3, "u2": 7}}
	tracker := NewTracker(store, time.Second, false, zerolog.Nop())

	units := []models.HandlingUnit{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}}
	loads, err := tracker.UnitLoads(context.Background(), units)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loads["u1"] != 3 || loads["u2"] != 7 || loads["u3"] != 0 {
		t.Fatalf("unexpected loads: %+v", loads)
	}
}

func TestTrackerFailClosed(t *testing.T) {
	store := &fakeCounts{err: errors.New("connection refused")}
	tracker := NewTracker(store, time.Second, false, zerolog.Nop())

	_, err := tracker.OpenCountForUnit(context.Background(), "u1")
	var werr *WorkloadError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WorkloadError, got %v", err)
	}
	if werr.Scope != "unit" || werr.ID != "u1" {
		t.Fatalf("unexpected error detail: %+v", werr)
	}

	if _, err := tracker.UnitLoads(context.Background(), []models.HandlingUnit{{ID: "u1"}}); err == nil {
		t.Fatalf("expected UnitLoads to propagate the failure")
	}
}

func TestTrackerFailOpenCountsZero(t *testing.T) {
	store := &fakeCounts{err: errors.New("timeout")}
	tracker := NewTracker(store, time.Second, true, zerolog.Nop())

	n, err := tracker.OpenCountForStaff(context.Background(), "s1")
	if err != nil {
		t.Fatalf("fail-open should not surface the error, got %v", err)
	}
	if n != 0 {
		t.Fatalf("expected zero count under fail-open, got %d", n)
	}
}
