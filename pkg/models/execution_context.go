package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusPaused    ExecutionStatus = "PAUSED"    // Operator tooling only
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED" // Operator tooling only
)

// IsTerminal reports whether no further transition is allowed from the status.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ExecutionContext is the accumulated input of a run and, once finished, its action results.
type ExecutionContext struct {
	ContactID      string         `json:"contact_id"`
	TriggerPayload map[string]any `json:"trigger_payload,omitempty"`
	Result         []ActionResult `json:"result,omitempty"`
}

// WorkflowExecution is one timestamped attempt to run a workflow for one contact.
type WorkflowExecution struct {
	ID           string           `json:"id"`
	WorkflowID   string           `json:"workflow_id"`
	ContactID    string           `json:"contact_id"`
	Status       ExecutionStatus  `json:"status"`
	Context      ExecutionContext `json:"context"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// ExecutionPatch carries the fields an Update may change on an execution.
type ExecutionPatch struct {
	Status       ExecutionStatus
	CompletedAt  *time.Time
	ErrorMessage *string
	Result       []ActionResult
}

// Apply writes the patch onto execution.
func (p ExecutionPatch) Apply(execution *WorkflowExecution) {
	if p.Status != "" {
		execution.Status = p.Status
	}

	if p.CompletedAt != nil {
		completedAt := *p.CompletedAt
		execution.CompletedAt = &completedAt
	}

	if p.ErrorMessage != nil {
		execution.ErrorMessage = *p.ErrorMessage
	}

	if p.Result != nil {
		execution.Context.Result = p.Result
	}
}

// ActionStatus is the outcome of a single action.
type ActionStatus string

const (
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
)

// ActionResult records the outcome of one dispatched action.
type ActionResult struct {
	Type       ActionType   `json:"type"`
	Status     ActionStatus `json:"status"`
	Detail     string       `json:"detail,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// RunStatus is the outcome of a Run call as seen by the caller.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// SkipReason explains why a run did not create an execution.
type SkipReason string

const (
	SkipReasonInactive         SkipReason = "inactive"
	SkipReasonTriggerNotMet    SkipReason = "trigger_not_met"
	SkipReasonConditionsNotMet SkipReason = "conditions_not_met"
)

// ExecutionResult is returned by a run: either a skip or a finished execution.
type ExecutionResult struct {
	Status      RunStatus      `json:"status"`
	Reason      SkipReason     `json:"reason,omitempty"`
	ExecutionID string         `json:"execution_id,omitempty"`
	Results     []ActionResult `json:"results,omitempty"`
}

// Skipped builds a skipped result.
func Skipped(reason SkipReason) *ExecutionResult {
	return &ExecutionResult{Status: RunStatusSkipped, Reason: reason}
}

// ExecutionStats aggregates execution outcomes of a workflow.
type ExecutionStats struct {
	WorkflowID  string  `json:"workflow_id"`
	Total       int     `json:"total"`
	Running     int     `json:"running"`
	Completed   int     `json:"completed"`
	Failed      int     `json:"failed"`
	Paused      int     `json:"paused"`
	Cancelled   int     `json:"cancelled"`
	SuccessRate float64 `json:"success_rate"`
	FailureRate float64 `json:"failure_rate"`
}
