package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/campaignhq/automation/pkg/eventbus"
	"github.com/campaignhq/automation/pkg/events"
	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/workflow"
)

// Execution runs workflows on demand and manages their executions.
type Execution struct {
	persistence persistence.Persistence
	runner      workflow.Runner
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewExecution creates a new execution service. publisher may be nil.
func NewExecution(persistence persistence.Persistence, runner workflow.Runner, publisher eventbus.EventPublisher) *Execution {
	return &Execution{
		persistence: persistence,
		runner:      runner,
		publisher:   publisher,
		logger:      log.WithModule("execution_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run runs a workflow for a contact on operator request.
func (e *Execution) Run(ctx context.Context, workflowID, contactID string, payload map[string]any) (*models.ExecutionResult, error) {
	if strings.TrimSpace(contactID) == "" {
		return nil, NewValidationError("Run", "CONTACT_REQUIRED", "contact id is required", ErrInvalidRequest)
	}

	return e.runner.Run(ctx, workflowID, contactID, payload)
}

// Invoke runs an API_TRIGGER workflow. method must equal the method configured on the trigger.
func (e *Execution) Invoke(
	ctx context.Context,
	workflowID, contactID, method string,
	payload map[string]any,
) (*models.ExecutionResult, error) {
	definition, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	trigger, ok := definition.Trigger.Config.(models.APITrigger)
	if !ok {
		return nil, NewConflictError("Invoke", "NOT_API_TRIGGER",
			fmt.Sprintf("workflow %s has a %s trigger", workflowID, definition.Trigger.Type),
			ErrNotAPITrigger,
		)
	}

	if !strings.EqualFold(trigger.Method, method) {
		return nil, NewConflictError("Invoke", "METHOD_MISMATCH",
			fmt.Sprintf("workflow %s expects %s, got %s", workflowID, trigger.Method, method),
			ErrTriggerMethodInvalid,
		)
	}

	return e.Run(ctx, workflowID, contactID, payload)
}

// ListByWorkflow returns the executions of an existing workflow, most recent first.
func (e *Execution) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error) {
	_, err := e.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	executions, err := e.persistence.ExecutionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}

	return executions, nil
}

// FetchByID retrieves an execution by its ID.
func (e *Execution) FetchByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.persistence.ExecutionRepository().GetByID(ctx, id)
}

// Stats aggregates the execution outcomes of a workflow.
func (e *Execution) Stats(ctx context.Context, workflowID string) (models.ExecutionStats, error) {
	executions, err := e.ListByWorkflow(ctx, workflowID)
	if err != nil {
		return models.ExecutionStats{}, err
	}

	return workflow.Analytics(workflowID, executions), nil
}

// Pause moves a RUNNING execution to PAUSED.
func (e *Execution) Pause(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.transition(ctx, "Pause", id, models.ExecutionStatusPaused, models.ExecutionStatusRunning)
}

// Resume moves a PAUSED execution back to RUNNING.
func (e *Execution) Resume(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.transition(ctx, "Resume", id, models.ExecutionStatusRunning, models.ExecutionStatusPaused)
}

// Cancel moves a RUNNING or PAUSED execution to CANCELLED.
func (e *Execution) Cancel(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return e.transition(ctx, "Cancel", id, models.ExecutionStatusCancelled,
		models.ExecutionStatusRunning, models.ExecutionStatusPaused)
}

func (e *Execution) transition(
	ctx context.Context,
	op, id string,
	to models.ExecutionStatus,
	from ...models.ExecutionStatus,
) (*models.WorkflowExecution, error) {
	current, err := e.persistence.ExecutionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(from, current.Status) {
		return nil, NewConflictError(op, "INVALID_TRANSITION",
			fmt.Sprintf("execution %s is %s and cannot become %s", id, current.Status, to),
			ErrInvalidTransition,
		)
	}

	patch := models.ExecutionPatch{Status: to}
	if to.IsTerminal() {
		completedAt := e.now()
		patch.CompletedAt = &completedAt
	}

	updated, err := e.persistence.ExecutionRepository().Update(ctx, id, patch)
	if err != nil {
		if persistence.IsExecutionFinalized(err) {
			return nil, NewConflictError(op, "INVALID_TRANSITION",
				fmt.Sprintf("execution %s finished before it could become %s", id, to),
				ErrInvalidTransition,
			)
		}

		return nil, fmt.Errorf("failed to update execution: %w", err)
	}

	e.logger.InfoContext(ctx, "Execution transitioned",
		"execution_id", id,
		"workflow_id", updated.WorkflowID,
		"from", current.Status,
		"to", to,
	)

	e.publishTransition(ctx, updated, current.Status)

	return updated, nil
}

func (e *Execution) publishTransition(ctx context.Context, execution *models.WorkflowExecution, from models.ExecutionStatus) {
	if e.publisher == nil {
		return
	}

	eventType, ok := events.TransitionEventType(execution.Status)
	if !ok {
		return
	}

	err := e.publisher.Publish(ctx, execution.WorkflowID, events.ExecutionTransitioned{
		BaseEvent:   events.NewBaseEvent(eventType, execution.WorkflowID),
		ExecutionID: execution.ID,
		From:        from,
		To:          execution.Status,
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish execution transition", "execution_id", execution.ID, "error", err)
	}
}
