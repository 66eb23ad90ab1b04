// Package web provides HTTP request and response types for the automation API.
package web

import "github.com/campaignhq/automation/pkg/models"

// RunWorkflowRequest represents the request body for running a workflow for one contact.
type RunWorkflowRequest struct {
	ContactID string         `json:"contact_id" validate:"required"`
	Payload   map[string]any `json:"payload"`
}

// ListExecutionsResponse represents the executions of a workflow.
type ListExecutionsResponse struct {
	WorkflowID string                      `json:"workflow_id"`
	Executions []*models.WorkflowExecution `json:"executions"`
	TotalCount int                         `json:"total_count"`
}

// ValidationProblem is the body returned when a workflow definition is rejected.
type ValidationProblem struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail"`
	Instance string   `json:"instance"`
	Problems []string `json:"problems"`
}
