/**
 * @description
 * Cron scheduler for the periodic reconciliation sweep.
 */
package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Reconciler periodically re-derives campaign aggregates for recently active
// campaigns, repairing any drift left by a crash between commit and read.
type Reconciler struct {
	cron     *cron.Cron
	service  *Service
	logger   *slog.Logger
	schedule string
	lookback time.Duration
}

// NewReconciler creates a reconciler that runs on the given cron schedule and
// sweeps campaigns with decisions inside the lookback window.
func NewReconciler(service *Service, logger *slog.Logger, schedule string, lookback time.Duration) *Reconciler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Reconciler{
		cron:     c,
		service:  service,
		logger:   logger,
		schedule: schedule,
		lookback: lookback,
	}
}

// Start registers the sweep job and starts the cron scheduler.
func (r *Reconciler) Start() {
	if _, err := r.cron.AddFunc(r.schedule, r.runSweep); err != nil {
		r.logger.Error("failed to schedule reconciliation sweep", "error", err, "schedule", r.schedule)
		return
	}
	r.logger.Info("scheduled reconciliation sweep", "schedule", r.schedule, "lookback", r.lookback.String())
	r.cron.Start()
}

func (r *Reconciler) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reconciled, err := r.service.ReconcileRecentlyActive(ctx, r.lookback)
	if err != nil {
		r.logger.Error("reconciliation sweep failed", "error", err)
		return
	}
	r.logger.Info("reconciliation sweep complete", "campaigns", reconciled)
}

// Stop gracefully stops the cron scheduler.
func (r *Reconciler) Stop() context.Context {
	return r.cron.Stop()
}
