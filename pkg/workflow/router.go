package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campaignhq/automation/pkg/events"
	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/metrics"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/triggers"
)

// Runner runs one workflow for one contact.
type Runner interface {
	Run(ctx context.Context, workflowID, contactID string, payload map[string]any) (*models.ExecutionResult, error)
}

// RouteSummary counts the outcomes of routing one contact event.
type RouteSummary struct {
	Candidates int
	Completed  int
	Failed     int
	Skipped    int
	Errors     int
}

// eventTriggerTypes are the trigger types a contact event can satisfy.
var eventTriggerTypes = []models.TriggerType{
	models.TriggerTypeEventBased,
	models.TriggerTypeConditionBased,
}

// TriggerRouter runs every active event-driven workflow against an incoming contact event.
type TriggerRouter struct {
	workflows persistence.WorkflowRepository
	runner    Runner
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewTriggerRouter(workflows persistence.WorkflowRepository, runner Runner, m *metrics.Metrics) *TriggerRouter {
	return &TriggerRouter{
		workflows: workflows,
		runner:    runner,
		metrics:   m,
		logger:    log.WithModule("trigger_router"),
	}
}

// Route runs the candidate workflows of event one after another. Run errors are logged
// and counted; they do not stop the remaining workflows. Only a failure to list the
// candidates is returned.
func (r *TriggerRouter) Route(ctx context.Context, event *events.ContactEvent) (RouteSummary, error) {
	var summary RouteSummary

	if event == nil {
		return summary, errors.New("contact event is nil")
	}

	eventType, _ := event.Payload[triggers.EventTypeKey].(string)
	r.metrics.ObserveEvent(eventType)

	logger := r.logger.With("contact_id", event.ContactID, "event_id", event.ID, "event_type", eventType)

	for _, triggerType := range eventTriggerTypes {
		definitions, err := r.workflows.ListActiveByTriggerType(ctx, triggerType)
		if err != nil {
			return summary, fmt.Errorf("failed to list %s workflows: %w", triggerType, err)
		}

		for _, definition := range definitions {
			if event.CampaignID != "" && !definition.BelongsToCampaign(event.CampaignID) {
				continue
			}

			summary.Candidates++

			result, err := r.runner.Run(ctx, definition.ID, event.ContactID, event.Payload)
			if err != nil {
				summary.Errors++

				logger.ErrorContext(ctx, "Workflow run failed", "workflow_id", definition.ID, "error", err)

				continue
			}

			switch result.Status {
			case models.RunStatusCompleted:
				summary.Completed++
			case models.RunStatusFailed:
				summary.Failed++
			case models.RunStatusSkipped:
				summary.Skipped++
			}
		}
	}

	logger.InfoContext(ctx, "Contact event routed",
		"candidates", summary.Candidates,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"errors", summary.Errors,
	)

	return summary, nil
}

// HandleEvent adapts Route to an event bus handler.
func (r *TriggerRouter) HandleEvent(ctx context.Context, event any) error {
	contactEvent, ok := event.(*events.ContactEvent)
	if !ok || contactEvent == nil {
		return fmt.Errorf("unexpected event %T", event)
	}

	_, err := r.Route(ctx, contactEvent)

	return err
}
