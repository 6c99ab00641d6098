// Package sweep holds the two daily jobs: the expiry sweep over every batch
// and the reminder for meal plans starting tomorrow. Both go through the same
// notification service as user actions, so repeated runs create nothing new.
package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/domain/models"
	"github.com/chung140204/TKPM-BTL-sub000/internal/observability"
	"github.com/chung140204/TKPM-BTL-sub000/internal/repository"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/expiry"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/notification"
)

const (
	JobExpiry   = "expiry_sweep"
	JobMealPlan = "meal_plan_reminder"
)

// Notifier is the notification surface the jobs use.
type Notifier interface {
	NotifyIfNeeded(ctx context.Context, batch *models.InventoryBatch) notification.Report
	NotifyMealReminder(ctx context.Context, plan models.MealPlan) notification.Report
}

// SweepReport summarizes one job run.
type SweepReport struct {
	Job           string           `json:"job"`
	Scanned       int              `json:"scanned"`
	StateChanges  int              `json:"stateChanges"`
	Notifications int              `json:"notifications"`
	Skipped       int              `json:"skipped"`
	Warnings      []models.Warning `json:"warnings,omitempty"`
	StartedAt     time.Time        `json:"startedAt"`
	Duration      time.Duration    `json:"duration"`
}

func (r *SweepReport) add(rep notification.Report) {
	if rep.StateChanged {
		r.StateChanges++
	}
	r.Notifications += len(rep.Created)
	r.Skipped += rep.Skipped
	r.Warnings = append(r.Warnings, rep.Warnings...)
}

// Jobs runs the sweeps.
type Jobs struct {
	batches  repository.BatchStore
	catalog  repository.CatalogStore
	notifier Notifier
	location *time.Location
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewJobs wires the jobs. Calendar days are taken in loc (UTC when nil).
func NewJobs(batches repository.BatchStore, catalog repository.CatalogStore, notifier Notifier, loc *time.Location, metrics *observability.Metrics, logger *zap.Logger) *Jobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Jobs{
		batches:  batches,
		catalog:  catalog,
		notifier: notifier,
		location: loc,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source.
func (j *Jobs) SetClock(now func() time.Time) { j.now = now }

// CheckExpiringBatches runs the notification pass over every batch that still
// holds quantity, across all scopes.
func (j *Jobs) CheckExpiringBatches(ctx context.Context) (SweepReport, error) {
	started := j.now()
	report := SweepReport{Job: JobExpiry, StartedAt: started}
	defer j.metrics.ObserveSweep(JobExpiry, time.Now())

	batches, err := j.batches.FindBatches(ctx, repository.BatchFilter{
		ExcludeStates:    []models.FreshnessState{models.StateUsedUp},
		PositiveQuantity: true,
	})
	if err != nil {
		return report, fmt.Errorf("load batches: %w", err)
	}

	for i := range batches {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		report.add(j.notifier.NotifyIfNeeded(ctx, &batches[i]))
	}

	report.Duration = j.now().Sub(started)
	j.logger.Info("expiry sweep finished",
		zap.Int("scanned", report.Scanned),
		zap.Int("state_changes", report.StateChanges),
		zap.Int("notifications", report.Notifications),
		zap.Int("skipped", report.Skipped),
		zap.Int("warnings", len(report.Warnings)))
	return report, nil
}

// CheckUpcomingMealPlans reminds the scope of every plan starting tomorrow.
func (j *Jobs) CheckUpcomingMealPlans(ctx context.Context) (SweepReport, error) {
	started := j.now()
	report := SweepReport{Job: JobMealPlan, StartedAt: started}
	defer j.metrics.ObserveSweep(JobMealPlan, time.Now())

	from, to := Tomorrow(started.In(j.location))
	plans, err := j.catalog.FindMealPlansStarting(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("load meal plans: %w", err)
	}

	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Scanned++
		report.add(j.notifier.NotifyMealReminder(ctx, plan))
	}

	report.Duration = j.now().Sub(started)
	j.logger.Info("meal plan reminders finished",
		zap.Time("from", from),
		zap.Int("plans", report.Scanned),
		zap.Int("notifications", report.Notifications),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// Tomorrow returns the [start, end) bounds of the day after now, in now's
// location.
func Tomorrow(now time.Time) (time.Time, time.Time) {
	start := expiry.Midnight(now).AddDate(0, 0, 1)
	return start, start.AddDate(0, 0, 1)
}
