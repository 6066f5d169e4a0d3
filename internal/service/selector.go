package service

import (
	"context"

	"github.com/civicdesk/backend/internal/models"
)

// SelectStaff picks the least-loaded active staff member from the unit's
// roster. Ties keep the earlier candidate in roster order, so repeated calls
// over the same roster and loads are stable. A nil result with a nil error
// means nobody is available and the assignment stays unit-only.
func SelectStaff(ctx context.Context, tracker *Tracker, roster []models.StaffMember) (*models.StaffMember, error) {
	var best *models.StaffMember
	bestLoad := 0
	for i := range roster {
		if !roster[i].Active {
			continue
		}
		load, err := tracker.OpenCountForStaff(ctx, roster[i].ID)
		if err != nil {
			return nil, err
		}
		if best == nil || load < bestLoad {
			best = &roster[i]
			bestLoad = load
		}
	}
	return best, nil
}
