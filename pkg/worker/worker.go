// Package worker consumes contact events from the event bus and drives the minute scheduler.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campaignhq/automation/pkg/eventbus"
	"github.com/campaignhq/automation/pkg/events"
	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/scheduler"
	"github.com/campaignhq/automation/pkg/workflow"
)

type Worker struct {
	id        string
	bus       eventbus.EventSubscriber
	router    *workflow.TriggerRouter
	scheduler *scheduler.Scheduler
	logger    *slog.Logger
}

// New creates a worker. A nil scheduler disables TIME_BASED workflows.
func New(id string, bus eventbus.EventSubscriber, router *workflow.TriggerRouter, s *scheduler.Scheduler) *Worker {
	return &Worker{
		id:        id,
		bus:       bus,
		router:    router,
		scheduler: s,
		logger:    log.WithModule("worker").With("worker_id", id),
	}
}

// Start registers the contact event handler, subscribes and starts the scheduler.
// It returns once everything is running; cancel ctx and call Stop to shut down.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker subscriptions")

	err := w.bus.Handle(events.ContactEventReceivedEvent, w.handleContactEvent)
	if err != nil {
		return fmt.Errorf("failed to register contact event handler: %w", err)
	}

	err = w.bus.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to events: %w", err)
	}

	if w.scheduler != nil {
		err = w.scheduler.Start(ctx)
		if err != nil {
			return err
		}
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Shutting down worker")

	if w.scheduler == nil {
		return nil
	}

	return w.scheduler.Stop(ctx)
}

// handleContactEvent never returns routing errors: a failed run is operator actionable
// and is not retried by redelivery.
func (w *Worker) handleContactEvent(ctx context.Context, event any) error {
	contactEvent, ok := event.(*events.ContactEvent)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for contact event", "type", fmt.Sprintf("%T", event))

		return nil
	}

	logger := w.logger.With("event_id", contactEvent.ID, "contact_id", contactEvent.ContactID)
	logger.InfoContext(ctx, "Processing contact event")

	err := w.router.HandleEvent(ctx, contactEvent)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to route contact event", "error", err)
	}

	return nil
}
