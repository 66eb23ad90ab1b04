package events

import (
	"encoding/json"
	"testing"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContactEvent(t *testing.T) {
	attributes := map[string]any{"plan": "pro"}
	event := NewContactEvent("contact-1", "signup", "web", attributes)

	assert.Equal(t, ContactEventReceivedEvent, event.GetType())
	assert.Equal(t, ContactEventReceivedEvent, event.Type)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, map[string]any{"plan": "pro", "eventType": "signup", "eventSource": "web"}, event.Payload)
	assert.Equal(t, map[string]any{"plan": "pro"}, attributes)
}

func TestContactEvent_JSON(t *testing.T) {
	event := NewContactEvent("contact-1", "purchase", "shop", map[string]any{"amount": 42})
	event.CampaignID = "camp-1"

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded ContactEvent
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "contact-1", decoded.ContactID)
	assert.Equal(t, "camp-1", decoded.CampaignID)
	assert.Equal(t, "purchase", decoded.Payload["eventType"])
	assert.InDelta(t, 42, decoded.Payload["amount"], 0)
}

func TestTransitionEventType(t *testing.T) {
	tests := []struct {
		status   models.ExecutionStatus
		expected EventType
		ok       bool
	}{
		{models.ExecutionStatusPaused, ExecutionPausedEvent, true},
		{models.ExecutionStatusRunning, ExecutionResumedEvent, true},
		{models.ExecutionStatusCancelled, ExecutionCancelledEvent, true},
		{models.ExecutionStatusCompleted, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			eventType, ok := TransitionEventType(tt.status)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, eventType)
		})
	}
}
