package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/models"
)

func TestSelectStaffPicksLeastLoaded(t *testing.T) {
	store := &fakeCounts{staffCounts: map[string]int{"s1": 5, "s2": 1, "s3": 3}}
	tracker := NewTracker(store, time.Second, false, zerolog.Nop())

	roster := []models.StaffMember{
		{ID: "s1", UnitID: "u1", Active: true},
		{ID: "s2", UnitID: "u1", Active: true},
		{ID: "s3", UnitID: "u1", Active: true},
	}
	picked, err := SelectStaff(context.Background(), tracker, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked == nil || picked.ID != "s2" {
		t.Fatalf("expected s2, got %+v", picked)
	}
}

func TestSelectStaffTieKeepsRosterOrder(t *testing.T) {
	store := &fakeCounts{staffCounts: map[string]int{"s1": 2, "s2": 2}}
	tracker := NewTracker(store, time.Second, false, zerolog.Nop())

	roster := []models.StaffMember{
		{ID: "s1", UnitID: "u1", Active: true},
		{ID: "s2", UnitID: "u1", Active: true},
	}
	picked, err := SelectStaff(context.Background(), tracker, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked.ID != "s1" {
		t.Fatalf("expected tie to keep first roster candidate, got %s", picked.ID)
	}
}

func TestSelectStaffSkipsInactive(t *testing.T) {
	store := &fakeCounts{staffCounts: map[string]int{"s1": 0, "s2": 9}}
	tracker := NewTracker(store, time.Second, false, zerolog.Nop())

	roster := []models.StaffMember{
		{ID: "s1", UnitID: "u1", Active: false},
		{ID: "s2", UnitID: "u1", Active: true},
	}
	picked, err := SelectStaff(context.Background(), tracker, roster)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked.ID != "s2" {
		t.Fatalf("expected inactive s1 skipped, got %s", picked.ID)
	}
}

func TestSelectStaffEmptyRoster(t *testing.T) {
	tracker := NewTracker(&fakeCounts{}, time.Second, false, zerolog.Nop())

	picked, err := SelectStaff(context.Background(), tracker, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if picked != nil {
		t.Fatalf("expected nil pick for empty roster, got %+v", picked)
	}
}
