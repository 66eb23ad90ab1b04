// Package persistence provides data storage abstraction layer for workflow definitions and executions.
package persistence

import (
	"context"

	"github.com/campaignhq/automation/pkg/models"
)

type Persistence interface {
	WorkflowRepository() WorkflowRepository
	ExecutionRepository() ExecutionRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions. Deleted definitions are soft deleted
// and never returned by any read.
type WorkflowRepository interface {
	// GetByID returns the definition or ErrWorkflowNotFound.
	GetByID(ctx context.Context, id string) (*models.WorkflowDefinition, error)
	Save(ctx context.Context, definition *models.WorkflowDefinition) error
	Delete(ctx context.Context, id string) error
	ListWorkflows(ctx context.Context, opts ListWorkflowsOptions) (*WorkflowListResult, error)
	ListActiveByTriggerType(ctx context.Context, triggerType models.TriggerType) ([]*models.WorkflowDefinition, error)
	ListByCampaign(ctx context.Context, campaignID string) ([]*models.WorkflowDefinition, error)
}

// ExecutionRepository stores workflow executions.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.WorkflowExecution) error
	// Update applies patch and returns the stored execution.
	// Executions in a terminal status reject updates with ErrExecutionFinalized.
	Update(ctx context.Context, id string, patch models.ExecutionPatch) (*models.WorkflowExecution, error)
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowExecution, error)
	CountRunning(ctx context.Context, workflowID string) (int, error)
}

// ListWorkflowsOptions holds filtering, sorting and pagination parameters.
type ListWorkflowsOptions struct {
	Limit     int
	Offset    int
	SortBy    string // created_at, updated_at, name
	SortOrder string // asc, desc

	OwnerID     string
	CampaignID  string
	IsActive    *bool
	TriggerType models.TriggerType
}

// WorkflowListResult is a page of definitions.
type WorkflowListResult struct {
	Workflows   []*models.WorkflowDefinition
	TotalCount  int64
	HasNextPage bool
}

// Sort fields accepted by ListWorkflows.
const (
	SortByCreatedAt = "created_at"
	SortByUpdatedAt = "updated_at"
	SortByName      = "name"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Normalize applies defaults and rejects sort parameters outside the allowlist.
func (o *ListWorkflowsOptions) Normalize() error {
	if o.Limit <= 0 || o.Limit > MaxListLimit {
		o.Limit = DefaultListLimit
	}

	if o.Offset < 0 {
		o.Offset = 0
	}

	if o.SortBy == "" {
		o.SortBy = SortByCreatedAt
	}

	if o.SortOrder == "" {
		o.SortOrder = SortOrderDesc
	}

	switch o.SortBy {
	case SortByCreatedAt, SortByUpdatedAt, SortByName:
	default:
		return NewInvalidSortFieldError(o.SortBy)
	}

	if o.SortOrder != SortOrderAsc && o.SortOrder != SortOrderDesc {
		return NewInvalidSortFieldError(o.SortOrder)
	}

	return nil
}

// Matches reports whether definition passes the filters of o.
func (o *ListWorkflowsOptions) Matches(definition *models.WorkflowDefinition) bool {
	if o.OwnerID != "" && definition.OwnerID != o.OwnerID {
		return false
	}

	if o.CampaignID != "" && !definition.BelongsToCampaign(o.CampaignID) {
		return false
	}

	if o.IsActive != nil && definition.IsActive != *o.IsActive {
		return false
	}

	if o.TriggerType != "" && definition.Trigger.Type != o.TriggerType {
		return false
	}

	return true
}
