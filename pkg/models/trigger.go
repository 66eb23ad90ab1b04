package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TriggerType identifies how a workflow becomes eligible to run.
type TriggerType string

const (
	TriggerTypeTimeBased      TriggerType = "TIME_BASED"
	TriggerTypeEventBased     TriggerType = "EVENT_BASED"
	TriggerTypeConditionBased TriggerType = "CONDITION_BASED"
	TriggerTypeManual         TriggerType = "MANUAL"
	TriggerTypeAPI            TriggerType = "API_TRIGGER"
)

// ErrUnsupportedTriggerType is returned when decoding a trigger of an unknown type.
var ErrUnsupportedTriggerType = errors.New("unsupported trigger type")

// TriggerConfig is the type-specific payload of a Trigger.
type TriggerConfig interface {
	TriggerType() TriggerType
}

// ScheduleTrigger fires when the current minute matches a cron schedule in a timezone.
type ScheduleTrigger struct {
	Schedule       string `json:"schedule"                   validate:"required"`
	Timezone       string `json:"timezone"                   validate:"required"`
	AudienceListID string `json:"audience_list_id,omitempty"`
}

func (ScheduleTrigger) TriggerType() TriggerType { return TriggerTypeTimeBased }

// EventTrigger fires for events matching both type and source.
type EventTrigger struct {
	EventType   string `json:"event_type"   validate:"required"`
	EventSource string `json:"event_source" validate:"required"`
}

func (EventTrigger) TriggerType() TriggerType { return TriggerTypeEventBased }

// ConditionTrigger fires when every condition holds against the event payload.
type ConditionTrigger struct {
	Conditions []Condition `json:"conditions" validate:"required,dive"`
}

func (ConditionTrigger) TriggerType() TriggerType { return TriggerTypeConditionBased }

// ManualTrigger fires whenever an operator runs the workflow.
type ManualTrigger struct{}

func (ManualTrigger) TriggerType() TriggerType { return TriggerTypeManual }

// APITrigger fires when the workflow is invoked through its API endpoint.
type APITrigger struct {
	Endpoint string `json:"endpoint" validate:"required"`
	Method   string `json:"method"   validate:"required,oneof=GET POST PUT PATCH DELETE"`
}

func (APITrigger) TriggerType() TriggerType { return TriggerTypeAPI }

// Trigger is a tagged union of trigger type and its configuration.
type Trigger struct {
	Type   TriggerType
	Config TriggerConfig
}

// NewTrigger builds a Trigger whose type is taken from its configuration.
func NewTrigger(config TriggerConfig) Trigger {
	return Trigger{Type: config.TriggerType(), Config: config}
}

type triggerEnvelope struct {
	Type   TriggerType     `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (t Trigger) MarshalJSON() ([]byte, error) {
	config := t.Config
	if config == nil {
		config = ManualTrigger{}
	}

	raw, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}

	return json.Marshal(triggerEnvelope{Type: t.Type, Config: raw})
}

func (t *Trigger) UnmarshalJSON(data []byte) error {
	var envelope triggerEnvelope

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return err
	}

	config, err := DecodeTriggerConfig(envelope.Type, envelope.Config)
	if err != nil {
		return err
	}

	t.Type = envelope.Type
	t.Config = config

	return nil
}

// DecodeTriggerConfig decodes raw configuration into the concrete type for triggerType.
func DecodeTriggerConfig(triggerType TriggerType, raw json.RawMessage) (TriggerConfig, error) {
	var config TriggerConfig

	switch triggerType {
	case TriggerTypeTimeBased:
		config = &ScheduleTrigger{}
	case TriggerTypeEventBased:
		config = &EventTrigger{}
	case TriggerTypeConditionBased:
		config = &ConditionTrigger{}
	case TriggerTypeManual:
		return ManualTrigger{}, nil
	case TriggerTypeAPI:
		config = &APITrigger{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedTriggerType, triggerType)
	}

	if len(raw) > 0 && string(raw) != "null" {
		err := json.Unmarshal(raw, config)
		if err != nil {
			return nil, fmt.Errorf("invalid %s trigger config: %w", triggerType, err)
		}
	}

	return derefTriggerConfig(config), nil
}

func derefTriggerConfig(config TriggerConfig) TriggerConfig {
	switch c := config.(type) {
	case *ScheduleTrigger:
		return *c
	case *EventTrigger:
		return *c
	case *ConditionTrigger:
		return *c
	case *APITrigger:
		return *c
	default:
		return config
	}
}
