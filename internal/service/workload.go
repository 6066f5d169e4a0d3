package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/civicdesk/backend/internal/models"
)

// WorkloadStore is the slice of the item store the tracker needs. Open means
// status in {new, in_progress}.
type WorkloadStore interface {
	CountOpenByUnit(ctx context.Context, unitID string) (int, error)
	CountOpenByStaff(ctx context.Context, staffID string) (int, error)
}

// Tracker answers open-count questions on demand, immediately before a
// decision. No caching: freshness matters more than throughput here.
type Tracker struct {
	Store    WorkloadStore
	Timeout  time.Duration
	FailOpen bool
	Logger   zerolog.Logger
}

func NewTracker(store WorkloadStore, timeout time.Duration, failOpen bool, logger zerolog.Logger) *Tracker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Tracker{Store: store, Timeout: timeout, FailOpen: failOpen, Logger: logger}
}

func (t *Tracker) OpenCountForUnit(ctx context.Context, unitID string) (int, error) {
	qctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	n, err := t.Store.CountOpenByUnit(qctx, unitID)
	if err != nil {
		return t.recover("unit", unitID, err)
	}
	return n, nil
}

func (t *Tracker) OpenCountForStaff(ctx context.Context, staffID string) (int, error) {
	qctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()
	n, err := t.Store.CountOpenByStaff(qctx, staffID)
	if err != nil {
		return t.recover("staff", staffID, err)
	}
	return n, nil
}

// UnitLoads fetches open counts for all candidate units concurrently and
// joins the results before any ranking happens.
func (t *Tracker) UnitLoads(ctx context.Context, units []models.HandlingUnit) (map[string]int, error) {
	counts := make([]int, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, u := range units {
		g.Go(func() error {
			n, err := t.OpenCountForUnit(gctx, u.ID)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	loads := make(map[string]int, len(units))
	for i, u := range units {
		loads[u.ID] = counts[i]
	}
	return loads, nil
}

// recover applies the configured failure policy. Fail-closed (the default)
// surfaces a WorkloadError and aborts the assignment attempt; the explicit
// fail-open mode counts an unreachable store as zero load and logs it.
func (t *Tracker) recover(scope, id string, err error) (int, error) {
	if t.FailOpen {
		t.Logger.Warn().Err(err).Str("scope", scope).Str("id", id).Msg("workload query failed, fail-open counts zero")
		return 0, nil
	}
	return 0, &WorkloadError{Scope: scope, ID: id, Err: err}
}
