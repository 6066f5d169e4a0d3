package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/events"
	"github.com/civicdesk/backend/internal/models"
	"github.com/civicdesk/backend/internal/notify"
	"github.com/civicdesk/backend/internal/registry"
)

const (
	TimelineAssigned = "assigned"

	EventItemAssigned = "work_item.assigned"

	NotifyUnitAssigned = "unit_assigned"
	NotifyItemAssigned = "item_assigned"
)

type ItemRepository interface {
	FindItem(ctx context.Context, id string) (models.WorkItem, error)
	UpdateAssignment(ctx context.Context, itemID string, a models.Assignment, status models.ItemStatus, entry models.TimelineEntry) error
}

type StaffDirectory interface {
	ListActiveStaffByUnit(ctx context.Context, unitID string) ([]models.StaffMember, error)
}

type RegistrySource interface {
	Snapshot() registry.Snapshot
}

// Coordinator runs the full routing pipeline: snapshot, workload, ranking,
// staff selection, commit, side effects. It holds no cross-call state other
// than the per-unit commit locks.
type Coordinator struct {
	Items    ItemRepository
	Staff    StaffDirectory
	Registry RegistrySource
	Workload *Tracker
	Notifier notify.Sink
	Events   events.Publisher
	Logger   zerolog.Logger
	Weights  ScoreWeights

	// Commits for the same unit are serialized, and the winner's open count
	// is re-read under its lock before committing, so a concurrent commit to
	// the same unit is observed and re-ranked against before this decision
	// is final. Overshoot remains possible across processes and is tolerated
	// downstream.
	unitLocks *xsync.Map[string, *sync.Mutex]
}

// Bounds the re-rank rounds when concurrent commits keep moving the
// winner's open count. Capacity is a soft target, so after this many rounds
// the latest ranking stands.
const maxReserveAttempts = 3

func NewCoordinator(items ItemRepository, staff StaffDirectory, reg RegistrySource, tracker *Tracker, notifier notify.Sink, pub events.Publisher, weights ScoreWeights, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		Items:     items,
		Staff:     staff,
		Registry:  reg,
		Workload:  tracker,
		Notifier:  notifier,
		Events:    pub,
		Logger:    logger,
		Weights:   weights,
		unitLocks: xsync.NewMap[string, *sync.Mutex](),
	}
}

// AssignItem routes a new work item. It returns nil with no error when no
// active unit handles the item's category; the item is left untouched.
func (c *Coordinator) AssignItem(ctx context.Context, itemID string) (*models.Assignment, error) {
	return c.assign(ctx, itemID, false)
}

// ForceReassign reruns the pipeline for an item; any existing assignment is
// replaced, never merged. Units that opted out of auto-assignment are still
// considered, since the rerun is operator-triggered.
func (c *Coordinator) ForceReassign(ctx context.Context, itemID string) (*models.Assignment, error) {
	return c.assign(ctx, itemID, true)
}

func (c *Coordinator) assign(ctx context.Context, itemID string, force bool) (*models.Assignment, error) {
	item, err := c.Items.FindItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !force && item.Assignment != nil {
		return nil, ErrAlreadyAssigned
	}

	snap := c.Registry.Snapshot()
	candidates := make([]models.HandlingUnit, 0, len(snap.Units))
	for _, u := range snap.Units {
		if !u.HandlesCategory(item.Category) {
			continue
		}
		if !force && !u.Settings.AutoAssign {
			continue
		}
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		c.Logger.Info().Str("item_id", itemID).Str("category", item.Category).Msg("no unit handles category, item left unassigned")
		return nil, nil
	}

	loads, err := c.Workload.UnitLoads(ctx, candidates)
	if err != nil {
		return nil, err
	}

	best, unlock, err := c.reserveUnit(ctx, item, candidates, loads)
	if err != nil {
		return nil, err
	}
	defer unlock()

	roster, err := c.Staff.ListActiveStaffByUnit(ctx, best.Unit.ID)
	if err != nil {
		return nil, err
	}
	staff, err := SelectStaff(ctx, c.Workload, roster)
	if err != nil {
		return nil, err
	}

	assignment := models.Assignment{
		ItemID:       item.ID,
		UnitID:       best.Unit.ID,
		AutoAssigned: true,
		AssignedAt:   time.Now().UTC(),
	}
	status := item.Status
	if staff != nil {
		assignment.StaffID = &staff.ID
		if item.Status == models.StatusNew {
			status = models.StatusInProgress
		}
	}

	entry, err := buildTimelineEntry(item, best, staff)
	if err != nil {
		return nil, err
	}

	if err := c.Items.UpdateAssignment(ctx, item.ID, assignment, status, entry); err != nil {
		return nil, err
	}

	c.emitSideEffects(ctx, item, best, assignment)
	return &assignment, nil
}

// reserveUnit ranks the candidates and returns the winner with its commit
// lock held. The winner's open count is re-read under the lock; if a
// concurrent assignment moved it since the ranking read, the count is
// refreshed and the ranking redone, so serialized calls for the same unit
// route on each other's commits instead of a shared stale read. Candidates
// must be non-empty and category-filtered.
func (c *Coordinator) reserveUnit(ctx context.Context, item models.WorkItem, candidates []models.HandlingUnit, loads map[string]int) (RankedUnit, func(), error) {
	for attempt := 0; ; attempt++ {
		best := c.Weights.Rank(candidates, item, loads)[0]
		mu, _ := c.unitLocks.LoadOrStore(best.Unit.ID, &sync.Mutex{})
		mu.Lock()

		fresh, err := c.Workload.OpenCountForUnit(ctx, best.Unit.ID)
		if err != nil {
			mu.Unlock()
			return RankedUnit{}, nil, err
		}
		if fresh == best.OpenCount || attempt >= maxReserveAttempts {
			best.OpenCount = fresh
			best.LoadRatio = WorkloadRatio(fresh, best.Unit.Settings.MaxConcurrentItems)
			best.Score = c.Weights.Score(best.Unit, item, best.LoadRatio)
			return best, mu.Unlock, nil
		}

		loads[best.Unit.ID] = fresh
		mu.Unlock()
	}
}

// UnitWorkload is a read-only diagnostic: the unit's current open count and
// ratio against its configured capacity.
type UnitWorkload struct {
	UnitID    string  `json:"unit_id"`
	OpenCount int     `json:"open_count"`
	Capacity  int     `json:"capacity"`
	LoadRatio float64 `json:"load_ratio"`
}

func (c *Coordinator) GetWorkload(ctx context.Context, unitID string) (UnitWorkload, error) {
	snap := c.Registry.Snapshot()
	var unit *models.HandlingUnit
	for i := range snap.Units {
		if snap.Units[i].ID == unitID {
			unit = &snap.Units[i]
			break
		}
	}
	if unit == nil {
		return UnitWorkload{}, ErrUnitNotFound
	}
	open, err := c.Workload.OpenCountForUnit(ctx, unitID)
	if err != nil {
		return UnitWorkload{}, err
	}
	return UnitWorkload{
		UnitID:    unitID,
		OpenCount: open,
		Capacity:  unit.Settings.MaxConcurrentItems,
		LoadRatio: WorkloadRatio(open, unit.Settings.MaxConcurrentItems),
	}, nil
}

func buildTimelineEntry(item models.WorkItem, best RankedUnit, staff *models.StaffMember) (models.TimelineEntry, error) {
	detail := map[string]any{
		"unit_id":    best.Unit.ID,
		"unit_name":  best.Unit.Name,
		"score":      best.Score,
		"open_count": best.OpenCount,
		"load_ratio": best.LoadRatio,
	}
	if staff != nil {
		detail["staff_id"] = staff.ID
	}
	data, err := json.Marshal(detail)
	if err != nil {
		return models.TimelineEntry{}, err
	}
	message := "Assigned to " + best.Unit.Name
	if staff == nil {
		message += " (awaiting staff)"
	}
	return models.TimelineEntry{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		Type:      TimelineAssigned,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// emitSideEffects runs after a successful commit. Failures here are logged
// and never surface to the caller.
func (c *Coordinator) emitSideEffects(ctx context.Context, item models.WorkItem, best RankedUnit, a models.Assignment) {
	if item.ReporterID != "" {
		err := c.Notifier.Notify(ctx, item.ReporterID, NotifyUnitAssigned,
			"Your report was routed",
			"Your report was assigned to "+best.Unit.Name,
			map[string]any{"item_id": item.ID, "unit_id": best.Unit.ID})
		if err != nil {
			c.Logger.Warn().Err(err).Str("item_id", item.ID).Msg("reporter notification failed")
		}
	}
	if a.StaffID != nil {
		err := c.Notifier.Notify(ctx, *a.StaffID, NotifyItemAssigned,
			"New work item assigned",
			"A "+string(item.Priority)+" priority item was assigned to you",
			map[string]any{"item_id": item.ID})
		if err != nil {
			c.Logger.Warn().Err(err).Str("item_id", item.ID).Msg("staff notification failed")
		}
	}

	payload := map[string]any{
		"item_id":     item.ID,
		"unit_id":     a.UnitID,
		"staff_id":    a.StaffID,
		"auto":        a.AutoAssigned,
		"assigned_at": a.AssignedAt,
	}
	if err := c.Events.Publish(ctx, EventItemAssigned, payload); err != nil {
		c.Logger.Warn().Err(err).Str("item_id", item.ID).Msg("assignment event publish failed")
	}
}
