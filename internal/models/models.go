package models

import (
	"time"

	"github.com/civicdesk/backend/internal/utils"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type ItemStatus string

const (
	StatusNew        ItemStatus = "new"
	StatusInProgress ItemStatus = "in_progress"
	StatusResolved   ItemStatus = "resolved"
	StatusClosed     ItemStatus = "closed"
	StatusRejected   ItemStatus = "rejected"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type WorkItem struct {
	ID         string      `json:"id"`
	Category   string      `json:"category"`
	Location   Location    `json:"location"`
	Priority   Priority    `json:"priority"`
	Status     ItemStatus  `json:"status"`
	ReporterID string      `json:"reporter_id"`
	Assignment *Assignment `json:"assignment,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CoverageArea is a circle around a unit's service center. A nil area means
// the unit declares no coverage and never earns the coverage bonus.
type CoverageArea struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	RadiusKm float64 `json:"radius_km"`
}

func (a *CoverageArea) Contains(loc Location) bool {
	if a == nil || a.RadiusKm <= 0 {
		return false
	}
	return utils.HaversineKm(a.Lat, a.Lon, loc.Lat, loc.Lon) <= a.RadiusKm
}

type UnitSettings struct {
	AutoAssign              bool    `json:"auto_assign"`
	MaxConcurrentItems      int     `json:"max_concurrent_items"`
	ResponseTimeTargetHours float64 `json:"response_time_target_hours"`
}

type UnitStats struct {
	ResolutionRatePercent float64 `json:"resolution_rate_percent"`
	AvgResponseTimeHours  float64 `json:"avg_response_time_hours"`
}

type HandlingUnit struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Active     bool          `json:"active"`
	Categories []string      `json:"categories"`
	Coverage   *CoverageArea `json:"coverage,omitempty"`
	Settings   UnitSettings  `json:"settings"`
	Stats      UnitStats     `json:"stats"`
}

func (u HandlingUnit) HandlesCategory(category string) bool {
	for _, c := range u.Categories {
		if c == category {
			return true
		}
	}
	return false
}

type StaffMember struct {
	ID     string `json:"id"`
	UnitID string `json:"unit_id"`
	Active bool   `json:"active"`
}

// Assignment is the current binding of a work item to a unit and optionally
// a staff member. At most one exists per item; a new one supersedes the old.
type Assignment struct {
	ItemID       string    `json:"item_id"`
	UnitID       string    `json:"unit_id"`
	StaffID      *string   `json:"staff_id"`
	AutoAssigned bool      `json:"auto_assigned"`
	AssignedAt   time.Time `json:"assigned_at"`
}

type TimelineEntry struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Data      []byte    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Data      []byte    `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
