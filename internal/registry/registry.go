// Package registry maintains an in-memory snapshot of the active handling
// units, refreshed on a fixed interval. The snapshot is replaced atomically,
// so concurrent readers never observe a partial update and never block on
// store I/O.
package registry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/civicdesk/backend/internal/models"
)

type UnitSource interface {
	FindAllActiveUnits(ctx context.Context) ([]models.HandlingUnit, error)
}

type Snapshot struct {
	Units    []models.HandlingUnit
	LoadedAt time.Time
}

type Registry struct {
	source   UnitSource
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger

	current atomic.Pointer[Snapshot]
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(source UnitSource, interval, timeout time.Duration, logger zerolog.Logger) *Registry {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Registry{
		source:   source,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
	r.current.Store(&Snapshot{})
	return r
}

// Start performs an initial refresh and launches the background loop. An
// initial load failure is returned so the caller can decide whether to run
// with an empty registry; the loop runs either way.
func (r *Registry) Start(ctx context.Context) error {
	err := r.Refresh(ctx)

	loopCtx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(loopCtx)
	return err
}

func (r *Registry) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error().Err(err).Msg("registry refresh failed, keeping previous snapshot")
			}
		}
	}
}

// Refresh loads all active units and swaps the snapshot. On failure the
// previous snapshot stays in place: stale-but-available beats unavailable.
func (r *Registry) Refresh(ctx context.Context) error {
	qctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	units, err := r.source.FindAllActiveUnits(qctx)
	if err != nil {
		return err
	}
	r.current.Store(&Snapshot{Units: units, LoadedAt: time.Now().UTC()})
	r.logger.Debug().Int("units", len(units)).Msg("registry refreshed")
	return nil
}

// Snapshot returns the latest snapshot. It never blocks on I/O.
func (r *Registry) Snapshot() Snapshot {
	return *r.current.Load()
}

// Stop cancels the refresh loop and waits for it to exit.
func (r *Registry) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
}
