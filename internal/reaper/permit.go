// Package reaper clears reset permits that lapsed without being redeemed.
// Issue-reset already refuses an expired permit; the sweep only keeps stored
// state honest.
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/account-service/internal/metrics"
	"github.com/robfig/cron/v3"
)

type permitClearer interface {
	ClearExpiredPermits(ctx context.Context, now time.Time) (int64, error)
}

type PermitReaper struct {
	store    permitClearer
	expr     string
	schedule cron.Schedule
	now      func() time.Time
	logger   *slog.Logger
}

// NewPermitReaper accepts a standard 5-field cron expression or a descriptor
// such as "@every 1m".
func NewPermitReaper(store permitClearer, expr string, logger *slog.Logger) (*PermitReaper, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse reap schedule %q: %w", expr, err)
	}
	return &PermitReaper{
		store:    store,
		expr:     expr,
		schedule: schedule,
		now:      time.Now,
		logger:   logger.With("component", "permit_reaper"),
	}, nil
}

// Start runs sweeps on the schedule until ctx is cancelled, then waits for a
// running sweep to finish.
func (r *PermitReaper) Start(ctx context.Context) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(r.schedule, cron.FuncJob(func() {
		if _, err := r.Reap(ctx); err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "reap permits", "error", err)
		}
	}))

	r.logger.Info("reaper started", "schedule", r.expr)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	r.logger.Info("reaper shut down")
}

// Reap runs one sweep.
func (r *PermitReaper) Reap(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.ReaperCycleDuration.Observe(time.Since(start).Seconds())
	}()

	n, err := r.store.ClearExpiredPermits(ctx, r.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.PermitsReapedTotal.Add(float64(n))
		r.logger.InfoContext(ctx, "cleared expired permits", "count", n)
	}
	return n, nil
}
