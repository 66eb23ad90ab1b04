// Package scheduler runs due TIME_BASED workflows for the members of their audience list.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/campaignhq/automation/pkg/triggers"
	"github.com/campaignhq/automation/pkg/workflow"
	"github.com/robfig/cron/v3"
)

// EveryMinute is the tick schedule. Workflow schedules have minute resolution.
const EveryMinute = "* * * * *"

// Payload keys set on scheduled runs.
const (
	ScheduledAtKey = triggers.ScheduledAtKey
	ScheduleKey    = "schedule"
)

// TickSummary counts the work done by one tick. Runs counts executed runs; runs the
// controller skipped are counted in Skipped.
type TickSummary struct {
	Due     int
	Runs    int
	Skipped int
	Errors  int
}

// Scheduler checks every minute which TIME_BASED workflows are due.
type Scheduler struct {
	workflows persistence.WorkflowRepository
	lists     protocol.ListService
	runner    workflow.Runner
	now       func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the clock used to decide which schedules are due.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(workflows persistence.WorkflowRepository, lists protocol.ListService, runner workflow.Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		workflows: workflows,
		lists:     lists,
		runner:    runner,
		now:       time.Now,
		logger:    log.WithModule("scheduler"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start ticks every minute until Stop is called. Overlapping ticks are skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	cronLogger := cron.PrintfLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn))

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cronLogger),
		cron.Recover(cronLogger),
	))

	_, err := c.AddFunc(EveryMinute, func() {
		summary, err := s.Tick(ctx)
		if err != nil {
			s.logger.ErrorContext(ctx, "Scheduler tick failed", "error", err)

			return
		}

		if summary.Due > 0 {
			s.logger.InfoContext(ctx, "Scheduler tick completed",
				"due", summary.Due,
				"runs", summary.Runs,
				"skipped", summary.Skipped,
				"errors", summary.Errors,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add scheduler job: %w", err)
	}

	c.Start()
	s.cron = c

	s.logger.InfoContext(ctx, "Scheduler started")

	return nil
}

// Stop stops ticking and waits for a running tick to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return nil
	}

	select {
	case <-c.Stop().Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")

		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs every active TIME_BASED workflow whose schedule fires in the current minute,
// once per member of its audience list. Run errors are logged and counted.
func (s *Scheduler) Tick(ctx context.Context) (TickSummary, error) {
	var summary TickSummary

	now := s.now()

	definitions, err := s.workflows.ListActiveByTriggerType(ctx, models.TriggerTypeTimeBased)
	if err != nil {
		return summary, fmt.Errorf("failed to list scheduled workflows: %w", err)
	}

	for _, definition := range definitions {
		config, ok := definition.Trigger.Config.(models.ScheduleTrigger)
		if !ok {
			continue
		}

		logger := s.logger.With("workflow_id", definition.ID, "schedule", config.Schedule)

		schedule, err := models.ParseSchedule(config.Schedule, config.Timezone)
		if err != nil {
			logger.WarnContext(ctx, "Skipping workflow with invalid schedule", "error", err)

			continue
		}

		if !schedule.IsFireTime(now) {
			continue
		}

		if config.AudienceListID == "" {
			logger.WarnContext(ctx, "Scheduled workflow has no audience list")

			continue
		}

		summary.Due++

		members, err := s.lists.Members(ctx, config.AudienceListID)
		if err != nil {
			summary.Errors++

			logger.ErrorContext(ctx, "Failed to load audience", "list_id", config.AudienceListID, "error", err)

			continue
		}

		payload := map[string]any{
			ScheduledAtKey: now.UTC().Truncate(time.Minute).Format(time.RFC3339),
			ScheduleKey:    config.Schedule,
		}

		for _, contactID := range members {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}

			result, err := s.runner.Run(ctx, definition.ID, contactID, payload)
			if err != nil {
				summary.Errors++

				logger.ErrorContext(ctx, "Scheduled run failed", "contact_id", contactID, "error", err)

				continue
			}

			if result != nil && result.Status == models.RunStatusSkipped {
				summary.Skipped++

				logger.InfoContext(ctx, "Scheduled run skipped", "contact_id", contactID, "reason", result.Reason)

				continue
			}

			summary.Runs++
		}
	}

	return summary, nil
}
