// Package events defines event types and structures for contact events and execution lifecycle notifications.
package events

import (
	"time"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every automation event.
const Topic = "automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Inbound contact activity.
	ContactEventReceivedEvent EventType = "contact.event.received"

	// Execution lifecycle events.
	ExecutionStartedEvent   EventType = "workflow.execution.started"
	ExecutionCompletedEvent EventType = "workflow.execution.completed"
	ExecutionFailedEvent    EventType = "workflow.execution.failed"
	ExecutionPausedEvent    EventType = "workflow.execution.paused"
	ExecutionResumedEvent   EventType = "workflow.execution.resumed"
	ExecutionCancelledEvent EventType = "workflow.execution.cancelled"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// ContactEvent is an activity reported for a contact, such as a signup or a purchase.
// The payload carries eventType and eventSource next to the event attributes.
type ContactEvent struct {
	BaseEvent

	ContactID  string         `json:"contact_id"`
	CampaignID string         `json:"campaign_id,omitempty"`
	Payload    map[string]any `json:"payload"`
}

func (c ContactEvent) GetType() EventType {
	return ContactEventReceivedEvent
}

// NewContactEvent builds a contact event. eventType and eventSource are stored in the payload
// under the keys trigger classification reads.
func NewContactEvent(contactID, eventType, eventSource string, attributes map[string]any) *ContactEvent {
	payload := make(map[string]any, len(attributes)+2)
	for key, value := range attributes {
		payload[key] = value
	}

	payload["eventType"] = eventType
	payload["eventSource"] = eventSource

	return &ContactEvent{
		BaseEvent: NewBaseEvent(ContactEventReceivedEvent, ""),
		ContactID: contactID,
		Payload:   payload,
	}
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID string             `json:"execution_id"`
	ContactID   string             `json:"contact_id"`
	TriggerType models.TriggerType `json:"trigger_type"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID string                `json:"execution_id"`
	ContactID   string                `json:"contact_id"`
	Results     []models.ActionResult `json:"results"`
	Duration    time.Duration         `json:"duration"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID string                `json:"execution_id"`
	ContactID   string                `json:"contact_id"`
	Error       string                `json:"error"`
	Results     []models.ActionResult `json:"results,omitempty"`
	Duration    time.Duration         `json:"duration"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// ExecutionTransitioned records an operator transition: pause, resume or cancel.
type ExecutionTransitioned struct {
	BaseEvent

	ExecutionID string                 `json:"execution_id"`
	From        models.ExecutionStatus `json:"from"`
	To          models.ExecutionStatus `json:"to"`
}

func (e ExecutionTransitioned) GetType() EventType {
	return e.Type
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// TransitionEventType returns the lifecycle event published when an execution enters status.
func TransitionEventType(status models.ExecutionStatus) (EventType, bool) {
	switch status {
	case models.ExecutionStatusPaused:
		return ExecutionPausedEvent, true
	case models.ExecutionStatusRunning:
		return ExecutionResumedEvent, true
	case models.ExecutionStatusCancelled:
		return ExecutionCancelledEvent, true
	default:
		return "", false
	}
}
