package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowDefinition_UnmarshalTaggedUnions(t *testing.T) {
	raw := `{
		"id": "wf-1",
		"name": "Welcome series",
		"owner_id": "tenant-1",
		"campaign_id": "camp-9",
		"trigger": {"type": "EVENT_BASED", "config": {"event_type": "signup", "event_source": "web"}},
		"conditions": [{"field": "country", "operator": "in", "value": ["NG", "GH"]}],
		"actions": [
			{"type": "add_to_list", "config": {"list_id": "L1"}},
			{"type": "send_email", "config": {"template_id": "T1"}},
			{"type": "webhook", "config": {"url": "https://hooks.example.com/x", "timeout_seconds": 5}}
		],
		"is_active": true
	}`

	var definition WorkflowDefinition
	require.NoError(t, json.Unmarshal([]byte(raw), &definition))

	assert.Equal(t, TriggerTypeEventBased, definition.Trigger.Type)
	assert.Equal(t, EventTrigger{EventType: "signup", EventSource: "web"}, definition.Trigger.Config)
	assert.True(t, definition.BelongsToCampaign("camp-9"))
	assert.False(t, definition.BelongsToCampaign("camp-90"))

	require.Len(t, definition.Actions, 3)
	assert.Equal(t, ListConfig{ListID: "L1"}, definition.Actions[0].Config)
	assert.Equal(t, MessageConfig{TemplateID: "T1"}, definition.Actions[1].Config)
	assert.Equal(t, WebhookConfig{URL: "https://hooks.example.com/x", TimeoutSeconds: 5}, definition.Actions[2].Config)
	assert.Equal(t, FailurePolicyContinue, definition.EffectiveFailurePolicy())
}

func TestTrigger_RoundTripKeepsConfig(t *testing.T) {
	trigger := NewTrigger(ScheduleTrigger{Schedule: "0 9 * * 1", Timezone: "Africa/Lagos"})

	data, err := json.Marshal(trigger)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"TIME_BASED","config":{"schedule":"0 9 * * 1","timezone":"Africa/Lagos"}}`, string(data))

	var decoded Trigger
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, trigger, decoded)
}

func TestTrigger_UnmarshalUnknownType(t *testing.T) {
	var trigger Trigger

	err := json.Unmarshal([]byte(`{"type":"LUNAR","config":{}}`), &trigger)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedTriggerType)
}

func TestTrigger_ManualWithoutConfig(t *testing.T) {
	var trigger Trigger

	require.NoError(t, json.Unmarshal([]byte(`{"type":"MANUAL"}`), &trigger))
	assert.Equal(t, ManualTrigger{}, trigger.Config)
}

func TestAction_UnknownTypeKeepsRawConfig(t *testing.T) {
	var action Action

	require.NoError(t, json.Unmarshal([]byte(`{"type":"unknown_action","config":{"foo":"bar"}}`), &action))

	assert.Equal(t, ActionType("unknown_action"), action.Type)
	assert.Nil(t, action.Config)
	assert.False(t, action.Type.IsKnown())

	data, err := json.Marshal(action)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"unknown_action","config":{"foo":"bar"}}`, string(data))
}

func TestAction_InvalidConfigShape(t *testing.T) {
	var action Action

	err := json.Unmarshal([]byte(`{"type":"wait","config":{"duration_seconds":"ten"}}`), &action)
	assert.Error(t, err)
}

func TestActionConfig_Validation(t *testing.T) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name    string
		config  ActionConfig
		wantErr bool
	}{
		{"message with template", MessageConfig{TemplateID: "T1"}, false},
		{"message with body", MessageConfig{Body: "Hello"}, false},
		{"message without content", MessageConfig{Subject: "Hi"}, true},
		{"list without id", ListConfig{}, true},
		{"update without fields", UpdateContactConfig{}, true},
		{"negative wait", WaitConfig{DurationSeconds: -1}, true},
		{"webhook bad url", WebhookConfig{URL: "not a url"}, true},
		{"webhook bad method", WebhookConfig{URL: "https://example.com", Method: "GET"}, true},
		{"webhook ok", WebhookConfig{URL: "https://example.com", Method: "POST"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExecutionStatusRunning.IsTerminal())
	assert.False(t, ExecutionStatusPaused.IsTerminal())
	assert.True(t, ExecutionStatusCompleted.IsTerminal())
	assert.True(t, ExecutionStatusFailed.IsTerminal())
	assert.True(t, ExecutionStatusCancelled.IsTerminal())
}

func TestExecutionPatch_Apply(t *testing.T) {
	completedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	message := "boom"
	execution := &WorkflowExecution{ID: "exec-1", Status: ExecutionStatusRunning}

	ExecutionPatch{
		Status:       ExecutionStatusFailed,
		CompletedAt:  &completedAt,
		ErrorMessage: &message,
		Result:       []ActionResult{{Type: ActionWait, Status: ActionStatusCompleted}},
	}.Apply(execution)

	assert.Equal(t, ExecutionStatusFailed, execution.Status)
	assert.Equal(t, completedAt, *execution.CompletedAt)
	assert.Equal(t, "boom", execution.ErrorMessage)
	assert.Len(t, execution.Context.Result, 1)
}

func TestSchedule_IsFireTime(t *testing.T) {
	schedule, err := ParseSchedule("30 9 * * *", "Africa/Lagos")
	require.NoError(t, err)

	lagos, err := time.LoadLocation("Africa/Lagos")
	require.NoError(t, err)

	assert.True(t, schedule.IsFireTime(time.Date(2026, 3, 1, 9, 30, 0, 0, lagos)))
	assert.True(t, schedule.IsFireTime(time.Date(2026, 3, 1, 9, 30, 59, 0, lagos)))
	assert.False(t, schedule.IsFireTime(time.Date(2026, 3, 1, 9, 31, 0, 0, lagos)))

	// 08:30 UTC is 09:30 in Lagos (UTC+1).
	assert.True(t, schedule.IsFireTime(time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)))
	assert.False(t, schedule.IsFireTime(time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)))
}

func TestParseSchedule_Invalid(t *testing.T) {
	_, err := ParseSchedule("61 * * * *", "UTC")
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = ParseSchedule("* * * * *", "Mars/Olympus")
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = ParseSchedule("", "UTC")
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}
