package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/chung140204/TKPM-BTL-sub000/internal/config"
	"github.com/chung140204/TKPM-BTL-sub000/internal/service/sweep"
)

const jobTimeout = 5 * time.Minute

// Sweeper is the pair of daily entry points the scheduler triggers.
type Sweeper interface {
	CheckExpiringBatches(ctx context.Context) (sweep.SweepReport, error)
	CheckUpcomingMealPlans(ctx context.Context) (sweep.SweepReport, error)
}

// Scheduler triggers the daily sweeps.
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	cfg     config.SchedulerConfig
	logger  *zap.Logger
}

// NewScheduler creates a scheduler whose schedules are read in the configured
// timezone.
func NewScheduler(cfg config.SchedulerConfig, sweeper Sweeper, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		sweeper: sweeper,
		cfg:     cfg,
		logger:  logger,
	}, nil
}

// Start registers both jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("expiry_schedule", s.cfg.ExpiryCronSchedule),
		zap.String("meal_plan_schedule", s.cfg.MealPlanCronSchedule),
		zap.String("timezone", s.cfg.Timezone))

	if _, err := s.cron.AddFunc(s.cfg.ExpiryCronSchedule, s.runExpirySweep); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.MealPlanCronSchedule, s.runMealPlanReminders); err != nil {
		return fmt.Errorf("schedule meal plan reminders: %w", err)
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runExpirySweep() {
	s.run(sweep.JobExpiry, s.sweeper.CheckExpiringBatches)
}

func (s *Scheduler) runMealPlanReminders() {
	s.run(sweep.JobMealPlan, s.sweeper.CheckUpcomingMealPlans)
}

func (s *Scheduler) run(job string, fn func(context.Context) (sweep.SweepReport, error)) {
	s.logger.Info("running scheduled job", zap.String("job", job))
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := fn(ctx)
	if err != nil {
		s.logger.Error("scheduled job failed", zap.String("job", job), zap.Error(err))
		return
	}

	if len(report.Warnings) > 0 {
		s.logger.Warn("scheduled job finished with warnings",
			zap.String("job", job),
			zap.Int("warnings", len(report.Warnings)))
		return
	}
	s.logger.Info("scheduled job finished", zap.String("job", job), zap.Int("notifications", report.Notifications))
}
