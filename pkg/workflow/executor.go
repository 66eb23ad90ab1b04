// Package workflow runs workflow definitions for contacts and routes contact events to them.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campaignhq/automation/pkg/conditions"
	"github.com/campaignhq/automation/pkg/eventbus"
	"github.com/campaignhq/automation/pkg/events"
	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/metrics"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/otelhelper"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/campaignhq/automation/pkg/triggers"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ActionDispatcher executes a single action. Only a corrupt action yields an error.
type ActionDispatcher interface {
	Execute(ctx context.Context, action models.Action, contactID string, payload map[string]any) (models.ActionResult, error)
}

// Dependencies are the collaborators of an Executor.
type Dependencies struct {
	Workflows  persistence.WorkflowRepository
	Executions persistence.ExecutionRepository
	Contacts   protocol.ContactStore
	Dispatcher ActionDispatcher
	Classifier *triggers.Classifier

	// Publisher receives execution lifecycle events. Optional.
	Publisher eventbus.EventPublisher
}

// Executor is the workflow run controller.
type Executor struct {
	workflows  persistence.WorkflowRepository
	executions persistence.ExecutionRepository
	contacts   protocol.ContactStore
	dispatcher ActionDispatcher
	classifier *triggers.Classifier
	publisher  eventbus.EventPublisher

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() (string, error)
}

// Option configures an Executor.
type Option func(*Executor)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithClock replaces the clock used for execution timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithIDGenerator replaces the execution id generator.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(e *Executor) { e.newID = newID }
}

func NewExecutor(deps Dependencies, opts ...Option) *Executor {
	classifier := deps.Classifier
	if classifier == nil {
		classifier = triggers.NewClassifier()
	}

	e := &Executor{
		workflows:  deps.Workflows,
		executions: deps.Executions,
		contacts:   deps.Contacts,
		dispatcher: deps.Dispatcher,
		classifier: classifier,
		publisher:  deps.Publisher,
		logger:     log.WithModule("workflow_executor"),
		tracer:     otelhelper.NoopTracer(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      newExecutionID,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

func newExecutionID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Run evaluates a workflow for one contact and, when it applies, executes its actions in order.
//
// Skips (inactive, trigger not met, conditions not met) are returned as data and create no
// execution. Action failures are recorded in the results. An error is returned when the
// workflow or the contact cannot be found, when storage fails, or when the dispatcher
// rejects an action; in the last case the execution is first recorded as FAILED.
func (e *Executor) Run(ctx context.Context, workflowID, contactID string, payload map[string]any) (*models.ExecutionResult, error) {
	started := time.Now()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.ContactIDKey, contactID),
	)
	defer span.End()

	logger := e.logger.With("workflow_id", workflowID, "contact_id", contactID)

	result, err := e.run(ctx, span, logger, workflowID, contactID, payload)
	if err != nil {
		otelhelper.SetError(span, err, attribute.String(otelhelper.WorkflowIDKey, workflowID))

		if IsRunError(err) {
			e.metrics.ObserveRun(&models.ExecutionResult{Status: models.RunStatusFailed}, time.Since(started))
		}

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.RunStatusKey, string(result.Status)))

	if result.Status == models.RunStatusSkipped {
		span.SetAttributes(attribute.String(otelhelper.SkipReasonKey, string(result.Reason)))
	}

	e.metrics.ObserveRun(result, time.Since(started))

	return result, nil
}

func (e *Executor) run(
	ctx context.Context,
	span trace.Span,
	logger *slog.Logger,
	workflowID, contactID string,
	payload map[string]any,
) (*models.ExecutionResult, error) {
	definition, err := e.workflows.GetByID(ctx, workflowID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load workflow", "error", err)

		return nil, fmt.Errorf("failed to load workflow %s: %w", workflowID, err)
	}

	span.SetAttributes(
		attribute.String(otelhelper.WorkflowNameKey, definition.Name),
		attribute.String(otelhelper.TriggerTypeKey, string(definition.Trigger.Type)),
	)

	if definition.CampaignID != nil {
		span.SetAttributes(attribute.String(otelhelper.CampaignIDKey, *definition.CampaignID))
	}

	if !definition.IsActive {
		logger.DebugContext(ctx, "Workflow is inactive, skipping")

		return models.Skipped(models.SkipReasonInactive), nil
	}

	if !e.classifier.IsEligible(definition, payload) {
		logger.DebugContext(ctx, "Trigger not met, skipping", "trigger_type", definition.Trigger.Type)

		return models.Skipped(models.SkipReasonTriggerNotMet), nil
	}

	contact, err := e.contacts.GetContact(ctx, contactID)
	if err != nil {
		logger.WarnContext(ctx, "Failed to load contact", "error", err)

		return nil, fmt.Errorf("failed to load contact %s: %w", contactID, err)
	}

	if !conditions.EvaluateAll(definition.Conditions, mergeRecord(contact, payload)) {
		logger.DebugContext(ctx, "Conditions not met, skipping")

		return models.Skipped(models.SkipReasonConditionsNotMet), nil
	}

	return e.execute(ctx, span, logger, definition, contactID, payload)
}

func (e *Executor) execute(
	ctx context.Context,
	span trace.Span,
	logger *slog.Logger,
	definition *models.WorkflowDefinition,
	contactID string,
	payload map[string]any,
) (*models.ExecutionResult, error) {
	executionID, err := e.newID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate execution ID: %w", err)
	}

	execution := &models.WorkflowExecution{
		ID:         executionID,
		WorkflowID: definition.ID,
		ContactID:  contactID,
		Status:     models.ExecutionStatusRunning,
		Context: models.ExecutionContext{
			ContactID:      contactID,
			TriggerPayload: payload,
		},
		StartedAt: e.now(),
	}

	err = e.executions.Create(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution for workflow %s: %w", definition.ID, err)
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, executionID))

	logger = logger.With("execution_id", executionID)
	logger.InfoContext(ctx, "Execution started", "actions", len(definition.Actions))

	e.publish(ctx, logger, definition.ID, events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, definition.ID),
		ExecutionID: executionID,
		ContactID:   contactID,
		TriggerType: definition.Trigger.Type,
	})

	// The terminal record must be written even if the caller goes away mid-run.
	persistCtx := context.WithoutCancel(ctx)
	policy := definition.EffectiveFailurePolicy()
	results := make([]models.ActionResult, 0, len(definition.Actions))

	for index, action := range definition.Actions {
		result, err := e.dispatcher.Execute(ctx, action, contactID, payload)
		if err != nil {
			runErr := &RunError{
				WorkflowID:  definition.ID,
				ExecutionID: executionID,
				ActionIndex: index,
				Err:         err,
			}

			runErr.RecordErr = e.finish(persistCtx, logger, execution, models.ExecutionStatusFailed, runErr.Error(), results)

			return nil, runErr
		}

		results = append(results, result)

		if result.Status == models.ActionStatusFailed && policy == models.FailurePolicyAbort {
			message := fmt.Sprintf("action %d (%s) failed: %s", index, action.Type, result.Detail)

			otelhelper.SetFailure(span, message, attribute.Int(otelhelper.ActionIndexKey, index))

			err = e.finish(persistCtx, logger, execution, models.ExecutionStatusFailed, message, results)
			if err != nil {
				return nil, err
			}

			return &models.ExecutionResult{
				Status:      models.RunStatusFailed,
				ExecutionID: executionID,
				Results:     results,
			}, nil
		}
	}

	err = e.finish(persistCtx, logger, execution, models.ExecutionStatusCompleted, "", results)
	if err != nil {
		return nil, err
	}

	return &models.ExecutionResult{
		Status:      models.RunStatusCompleted,
		ExecutionID: executionID,
		Results:     results,
	}, nil
}

// finish writes the terminal status and publishes the matching lifecycle event.
func (e *Executor) finish(
	ctx context.Context,
	logger *slog.Logger,
	execution *models.WorkflowExecution,
	status models.ExecutionStatus,
	message string,
	results []models.ActionResult,
) error {
	completedAt := e.now()
	patch := models.ExecutionPatch{
		Status:      status,
		CompletedAt: &completedAt,
		Result:      results,
	}

	if message != "" {
		patch.ErrorMessage = &message
	}

	_, err := e.executions.Update(ctx, execution.ID, patch)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to record execution outcome", "status", status, "error", err)

		return fmt.Errorf("failed to record execution %s as %s: %w", execution.ID, status, err)
	}

	duration := completedAt.Sub(execution.StartedAt)

	if status == models.ExecutionStatusCompleted {
		logger.InfoContext(ctx, "Execution completed", "duration", duration)

		e.publish(ctx, logger, execution.WorkflowID, events.ExecutionCompleted{
			BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, execution.WorkflowID),
			ExecutionID: execution.ID,
			ContactID:   execution.ContactID,
			Results:     results,
			Duration:    duration,
		})

		return nil
	}

	logger.WarnContext(ctx, "Execution failed", "error", message, "duration", duration)

	e.publish(ctx, logger, execution.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, execution.WorkflowID),
		ExecutionID: execution.ID,
		ContactID:   execution.ContactID,
		Error:       message,
		Results:     results,
		Duration:    duration,
	})

	return nil
}

func (e *Executor) publish(ctx context.Context, logger *slog.Logger, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	err := e.publisher.Publish(ctx, key, event)
	if err != nil {
		logger.WarnContext(ctx, "Failed to publish execution event", "event_type", event.GetType(), "error", err)
	}
}

// mergeRecord overlays the trigger payload on the contact attributes.
func mergeRecord(contact, payload map[string]any) map[string]any {
	record := make(map[string]any, len(contact)+len(payload))

	for key, value := range contact {
		record[key] = value
	}

	for key, value := range payload {
		record[key] = value
	}

	return record
}
