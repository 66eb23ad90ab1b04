// Package models defines the core domain models for campaign workflow automation.
package models

import "time"

// FailurePolicy decides what a run does after an action reports a failure.
type FailurePolicy string

const (
	FailurePolicyContinue FailurePolicy = "continue" // Keep executing the remaining actions
	FailurePolicyAbort    FailurePolicy = "abort"    // Stop at the first failed action
)

// WorkflowDefinition is an automation rule: a trigger, guard conditions and an ordered action list.
type WorkflowDefinition struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"                     validate:"required,min=3"`
	Description   string        `json:"description"`
	OwnerID       string        `json:"owner_id"                 validate:"required"`
	CampaignID    *string       `json:"campaign_id,omitempty"`
	Trigger       Trigger       `json:"trigger"`
	Conditions    []Condition   `json:"conditions"               validate:"dive"`
	Actions       []Action      `json:"actions"`
	IsActive      bool          `json:"is_active"`
	FailurePolicy FailurePolicy `json:"failure_policy,omitempty" validate:"omitempty,oneof=continue abort"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}

// EffectiveFailurePolicy returns the configured policy, defaulting to continue.
func (w *WorkflowDefinition) EffectiveFailurePolicy() FailurePolicy {
	if w.FailurePolicy == "" {
		return FailurePolicyContinue
	}

	return w.FailurePolicy
}

// BelongsToCampaign reports whether the definition is owned by the given campaign.
func (w *WorkflowDefinition) BelongsToCampaign(campaignID string) bool {
	return w.CampaignID != nil && *w.CampaignID == campaignID
}
