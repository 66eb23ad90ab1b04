package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/validation"
	"github.com/google/uuid"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow manages workflow definitions.
type Workflow struct {
	persistence persistence.Persistence
	validator   *validation.Validator
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, validator *validation.Validator) *Workflow {
	if validator == nil {
		validator = validation.New(nil)
	}

	return &Workflow{
		persistence: persistence,
		validator:   validator,
		logger:      log.WithModule("workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

var allowedSorts = []string{persistence.SortByCreatedAt, persistence.SortByUpdatedAt, persistence.SortByName}

// ListWorkflowsRequest contains options for listing workflows.
type ListWorkflowsRequest struct {
	// Pagination
	Limit  int
	Offset int

	// Filtering
	OwnerID     string
	CampaignID  string
	IsActive    *bool
	TriggerType models.TriggerType

	// Sorting
	SortBy    string
	SortOrder string
}

// ListWorkflowsResponse contains the result of listing workflows.
type ListWorkflowsResponse struct {
	Workflows   []*models.WorkflowDefinition `json:"workflows"`
	TotalCount  int64                        `json:"total_count"`
	HasNextPage bool                         `json:"has_next_page"`
}

// ListWorkflows retrieves workflows with filtering, sorting, and pagination.
func (w *Workflow) ListWorkflows(ctx context.Context, req ListWorkflowsRequest) (*ListWorkflowsResponse, error) {
	opts := persistence.ListWorkflowsOptions{
		Limit:       req.Limit,
		Offset:      req.Offset,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
		OwnerID:     strings.TrimSpace(req.OwnerID),
		CampaignID:  req.CampaignID,
		IsActive:    req.IsActive,
		TriggerType: req.TriggerType,
	}

	if req.OwnerID != "" && opts.OwnerID == "" {
		return nil, ErrEmptyOwnerID
	}

	err := opts.Normalize()
	if err != nil {
		if slices.Contains(allowedSorts, opts.SortBy) {
			return nil, NewValidationError(
				"ListWorkflows",
				"INVALID_SORT_ORDER",
				fmt.Sprintf("invalid sort order '%s', allowed: asc, desc", opts.SortOrder),
				ErrInvalidSortOrder,
			)
		}

		return nil, NewValidationError(
			"ListWorkflows",
			"INVALID_SORT_FIELD",
			fmt.Sprintf("invalid sort field '%s', allowed: %s", opts.SortBy, strings.Join(allowedSorts, ", ")),
			ErrInvalidSortField,
		)
	}

	result, err := w.persistence.WorkflowRepository().ListWorkflows(ctx, opts)
	if err != nil {
		if persistence.IsInvalidSortField(err) {
			return nil, ErrInvalidSortField
		}

		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return &ListWorkflowsResponse{
		Workflows:   result.Workflows,
		TotalCount:  result.TotalCount,
		HasNextPage: result.HasNextPage,
	}, nil
}

// FetchByID retrieves a workflow by its ID.
func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.WorkflowDefinition, error) {
	return w.persistence.WorkflowRepository().GetByID(ctx, id)
}

// Create validates and stores a new definition. Definitions start inactive unless requested otherwise.
func (w *Workflow) Create(ctx context.Context, definition *models.WorkflowDefinition) (*models.WorkflowDefinition, error) {
	if definition == nil {
		return nil, ErrWorkflowNil
	}

	err := w.validator.Validate(definition)
	if err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate workflow ID: %w", err)
	}

	definition.ID = id.String()
	definition.DeletedAt = nil

	err = w.persistence.WorkflowRepository().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow created",
		"workflow_id", definition.ID,
		"trigger_type", definition.Trigger.Type,
		"actions", len(definition.Actions),
	)

	return definition, nil
}

// Update replaces a definition. Unless force is set, the update is refused while the
// workflow has RUNNING executions.
func (w *Workflow) Update(
	ctx context.Context,
	workflowID string,
	definition *models.WorkflowDefinition,
	force bool,
) (*models.WorkflowDefinition, error) {
	if definition == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if !force {
		err = w.ensureNoRunningExecutions(ctx, "Update", workflowID)
		if err != nil {
			return nil, err
		}
	}

	err = w.validator.Validate(definition)
	if err != nil {
		return nil, err
	}

	definition.ID = workflowID
	definition.CreatedAt = existing.CreatedAt
	definition.DeletedAt = nil

	err = w.persistence.WorkflowRepository().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow updated", "workflow_id", workflowID, "forced", force)

	return definition, nil
}

// SetActive activates or deactivates a workflow.
func (w *Workflow) SetActive(ctx context.Context, workflowID string, active bool) (*models.WorkflowDefinition, error) {
	definition, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if definition.IsActive == active {
		return definition, nil
	}

	definition.IsActive = active

	err = w.persistence.WorkflowRepository().Save(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("failed to set workflow active state: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow active state changed", "workflow_id", workflowID, "is_active", active)

	return definition, nil
}

// Delete soft deletes a workflow. Active workflows must be deactivated first.
func (w *Workflow) Delete(ctx context.Context, workflowID string) error {
	existing, err := w.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if existing.IsActive {
		return NewConflictError("Delete", "WORKFLOW_ACTIVE",
			fmt.Sprintf("workflow %s is active, deactivate it before deleting", workflowID),
			ErrWorkflowActive,
		)
	}

	err = w.persistence.WorkflowRepository().Delete(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", workflowID)

	return nil
}

func (w *Workflow) ensureNoRunningExecutions(ctx context.Context, op, workflowID string) error {
	running, err := w.persistence.ExecutionRepository().CountRunning(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to count running executions: %w", err)
	}

	if running > 0 {
		return NewConflictError(op, "EXECUTIONS_RUNNING",
			fmt.Sprintf("workflow %s has %d running executions", workflowID, running),
			ErrExecutionsRunning,
		)
	}

	return nil
}
