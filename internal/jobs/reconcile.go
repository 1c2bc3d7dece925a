// Package jobs runs periodic maintenance work on a cron schedule.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"festregistration/internal/domain"
)

// Reconciler is the part of the admin service the reconcile job needs.
type Reconciler interface {
	RecomputeAllCounters(ctx context.Context) (*domain.ReconcileReport, error)
}

// ReconcileJob recomputes every event's registered count from its
// registrations, repairing drift left by partial failures.
type ReconcileJob struct {
	reconciler Reconciler
	logger     *slog.Logger
	timeout    time.Duration
}

var _ cron.Job = (*ReconcileJob)(nil)

func NewReconcileJob(reconciler Reconciler, logger *slog.Logger, timeout time.Duration) *ReconcileJob {
	return &ReconcileJob{reconciler: reconciler, logger: logger, timeout: timeout}
}

// Run implements cron.Job.
func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	report, err := j.reconciler.RecomputeAllCounters(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "counter reconciliation failed", "error", err)
		return
	}
	attrs := []any{
		"events_checked", report.EventsChecked,
		"drifted", len(report.Drifted),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if len(report.Drifted) > 0 {
		j.logger.WarnContext(ctx, "counter reconciliation corrected drift", attrs...)
		return
	}
	j.logger.DebugContext(ctx, "counter reconciliation finished", attrs...)
}
