// Package triggers decides whether a workflow's trigger admits an incoming event.
package triggers

import (
	"log/slog"
	"time"

	"github.com/campaignhq/automation/pkg/conditions"
	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/models"
)

// Event payload keys compared by EVENT_BASED triggers. Snake case variants are accepted as well.
const (
	EventTypeKey   = "eventType"
	EventSourceKey = "eventSource"

	eventTypeAltKey   = "event_type"
	eventSourceAltKey = "event_source"
)

// ScheduledAtKey carries the fire time of a scheduled run as an RFC 3339 timestamp.
// TIME_BASED triggers are judged against it instead of the clock, so a run that starts
// after the fire minute has passed is still eligible.
const ScheduledAtKey = "scheduledAt"

// Classifier answers whether a definition is eligible to run for a payload.
// It keeps no state besides its clock and is safe for concurrent use.
type Classifier struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock replaces the wall clock used by TIME_BASED triggers.
func WithClock(now func() time.Time) Option {
	return func(c *Classifier) {
		c.now = now
	}
}

// WithLogger sets the logger used to report unusable trigger configurations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		c.logger = logger
	}
}

func NewClassifier(opts ...Option) *Classifier {
	classifier := &Classifier{
		now:    time.Now,
		logger: log.WithModule("trigger_classifier"),
	}

	for _, opt := range opts {
		opt(classifier)
	}

	return classifier
}

// IsEligible reports whether definition may run for payload. A nil payload means no event.
func (c *Classifier) IsEligible(definition *models.WorkflowDefinition, payload map[string]any) bool {
	if definition == nil {
		return false
	}

	switch config := definition.Trigger.Config.(type) {
	case models.ManualTrigger:
		return true
	case models.APITrigger:
		return true
	case models.EventTrigger:
		return matchesEvent(config, payload)
	case models.ConditionTrigger:
		return payload != nil && conditions.EvaluateAll(config.Conditions, payload)
	case models.ScheduleTrigger:
		return c.isFireTime(definition.ID, config, payload)
	default:
		c.logger.Warn("Unsupported trigger configuration",
			"workflow_id", definition.ID,
			"trigger_type", definition.Trigger.Type,
		)

		return false
	}
}

func (c *Classifier) isFireTime(workflowID string, config models.ScheduleTrigger, payload map[string]any) bool {
	schedule, err := models.ParseSchedule(config.Schedule, config.Timezone)
	if err != nil {
		c.logger.Warn("Invalid schedule on time based trigger",
			"workflow_id", workflowID,
			"schedule", config.Schedule,
			"timezone", config.Timezone,
			"error", err,
		)

		return false
	}

	return schedule.IsFireTime(c.fireTime(payload))
}

// fireTime returns the scheduled fire time from payload, or now when there is none.
// A fire time in the future is ignored.
func (c *Classifier) fireTime(payload map[string]any) time.Time {
	now := c.now()

	var scheduledAt time.Time

	switch value := payload[ScheduledAtKey].(type) {
	case time.Time:
		scheduledAt = value
	case string:
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return now
		}

		scheduledAt = parsed
	default:
		return now
	}

	if scheduledAt.After(now) {
		return now
	}

	return scheduledAt
}

func matchesEvent(config models.EventTrigger, payload map[string]any) bool {
	if payload == nil {
		return false
	}

	eventType, ok := lookupString(payload, EventTypeKey, eventTypeAltKey)
	if !ok || eventType != config.EventType {
		return false
	}

	eventSource, ok := lookupString(payload, EventSourceKey, eventSourceAltKey)

	return ok && eventSource == config.EventSource
}

func lookupString(payload map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if value, ok := payload[key].(string); ok {
			return value, true
		}
	}

	return "", false
}
