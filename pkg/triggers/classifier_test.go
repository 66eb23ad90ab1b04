package triggers

import (
	"testing"
	"time"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/stretchr/testify/assert"
)

func definitionWith(config models.TriggerConfig) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:       "wf-1",
		Name:     "Welcome series",
		OwnerID:  "tenant-1",
		Trigger:  models.NewTrigger(config),
		IsActive: true,
	}
}

func TestClassifier_EventBased(t *testing.T) {
	classifier := NewClassifier()
	definition := definitionWith(models.EventTrigger{EventType: "signup", EventSource: "web"})

	tests := []struct {
		name     string
		payload  map[string]any
		expected bool
	}{
		{
			name:     "matching type and source",
			payload:  map[string]any{"eventType": "signup", "eventSource": "web"},
			expected: true,
		},
		{
			name:     "different source",
			payload:  map[string]any{"eventType": "signup", "eventSource": "mobile"},
			expected: false,
		},
		{
			name:     "different type",
			payload:  map[string]any{"eventType": "purchase", "eventSource": "web"},
			expected: false,
		},
		{
			name:     "snake case keys",
			payload:  map[string]any{"event_type": "signup", "event_source": "web"},
			expected: true,
		},
		{
			name:     "missing source",
			payload:  map[string]any{"eventType": "signup"},
			expected: false,
		},
		{
			name:     "non string type",
			payload:  map[string]any{"eventType": 42, "eventSource": "web"},
			expected: false,
		},
		{
			name:     "empty payload",
			payload:  map[string]any{},
			expected: false,
		},
		{
			name:     "nil payload",
			payload:  nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.IsEligible(definition, tt.payload))
		})
	}
}

func TestClassifier_ConditionBased(t *testing.T) {
	classifier := NewClassifier()
	definition := definitionWith(models.ConditionTrigger{Conditions: []models.Condition{
		{Field: "order.total", Operator: models.OperatorGreaterThan, Value: 100},
		{Field: "order.currency", Operator: models.OperatorIn, Value: []any{"NGN", "GHS"}},
	}})

	assert.True(t, classifier.IsEligible(definition, map[string]any{
		"order": map[string]any{"total": 250, "currency": "NGN"},
	}))
	assert.False(t, classifier.IsEligible(definition, map[string]any{
		"order": map[string]any{"total": 50, "currency": "NGN"},
	}))
	assert.False(t, classifier.IsEligible(definition, nil))
}

func TestClassifier_ConditionBasedWithoutConditions(t *testing.T) {
	classifier := NewClassifier()
	definition := definitionWith(models.ConditionTrigger{})

	assert.True(t, classifier.IsEligible(definition, map[string]any{}))
	assert.False(t, classifier.IsEligible(definition, nil))
}

func TestClassifier_AlwaysEligibleTriggers(t *testing.T) {
	classifier := NewClassifier()

	for _, config := range []models.TriggerConfig{
		models.ManualTrigger{},
		models.APITrigger{Endpoint: "/hooks/welcome", Method: "POST"},
	} {
		definition := definitionWith(config)

		assert.True(t, classifier.IsEligible(definition, nil), config.TriggerType())
		assert.True(t, classifier.IsEligible(definition, map[string]any{"x": 1}), config.TriggerType())
	}
}

func TestClassifier_TimeBased(t *testing.T) {
	lagos, err := time.LoadLocation("Africa/Lagos")
	if err != nil {
		t.Skip("timezone database unavailable")
	}

	definition := definitionWith(models.ScheduleTrigger{Schedule: "0 9 * * 1", Timezone: "Africa/Lagos"})

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"monday 09:00 in Lagos", time.Date(2026, 3, 2, 9, 0, 0, 0, lagos), true},
		{"monday 09:00:45 in Lagos", time.Date(2026, 3, 2, 9, 0, 45, 0, lagos), true},
		{"monday 08:00 UTC is 09:00 in Lagos", time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), true},
		{"monday 09:01 in Lagos", time.Date(2026, 3, 2, 9, 1, 0, 0, lagos), false},
		{"monday 09:00 UTC is 10:00 in Lagos", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), false},
		{"tuesday 09:00 in Lagos", time.Date(2026, 3, 3, 9, 0, 0, 0, lagos), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classifier := NewClassifier(WithClock(func() time.Time { return tt.now }))

			assert.Equal(t, tt.expected, classifier.IsEligible(definition, nil))
		})
	}
}

func TestClassifier_TimeBasedScheduledAt(t *testing.T) {
	definition := definitionWith(models.ScheduleTrigger{Schedule: "30 9 * * *", Timezone: "Africa/Lagos"})

	// 08:31:04 UTC is 09:31 in Lagos, one minute after the fire time.
	classifier := NewClassifier(WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 8, 31, 4, 0, time.UTC)
	}))

	tests := []struct {
		name     string
		payload  map[string]any
		expected bool
	}{
		{"no payload uses the clock", nil, false},
		{"no fire time uses the clock", map[string]any{"schedule": "30 9 * * *"}, false},
		{"fire time string", map[string]any{ScheduledAtKey: "2026-03-02T08:30:00Z"}, true},
		{"fire time value", map[string]any{ScheduledAtKey: time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)}, true},
		{"fire time off schedule", map[string]any{ScheduledAtKey: "2026-03-02T08:29:00Z"}, false},
		{"unparsable fire time uses the clock", map[string]any{ScheduledAtKey: "09:30"}, false},
		{"future fire time uses the clock", map[string]any{ScheduledAtKey: "2026-03-03T08:30:00Z"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifier.IsEligible(definition, tt.payload))
		})
	}
}

func TestClassifier_TimeBasedInvalidSchedule(t *testing.T) {
	classifier := NewClassifier(WithClock(func() time.Time {
		return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	}))

	assert.False(t, classifier.IsEligible(definitionWith(models.ScheduleTrigger{Schedule: "not a cron", Timezone: "UTC"}), nil))
	assert.False(t, classifier.IsEligible(definitionWith(models.ScheduleTrigger{Schedule: "* * * * *", Timezone: "Nowhere/Atlantis"}), nil))
}

func TestClassifier_MissingConfiguration(t *testing.T) {
	classifier := NewClassifier()

	definition := &models.WorkflowDefinition{
		ID:      "wf-broken",
		Trigger: models.Trigger{Type: models.TriggerTypeEventBased},
	}

	assert.False(t, classifier.IsEligible(definition, map[string]any{"eventType": "signup", "eventSource": "web"}))
	assert.False(t, classifier.IsEligible(nil, nil))
}
