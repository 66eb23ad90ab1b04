package models

import (
	"encoding/json"
	"fmt"
)

// ActionType identifies the side effect an action performs.
type ActionType string

const (
	ActionSendEmail      ActionType = "send_email"
	ActionSendSMS        ActionType = "send_sms"
	ActionSendWhatsApp   ActionType = "send_whatsapp"
	ActionAddToList      ActionType = "add_to_list"
	ActionRemoveFromList ActionType = "remove_from_list"
	ActionUpdateContact  ActionType = "update_contact"
	ActionWait           ActionType = "wait"
	ActionWebhook        ActionType = "webhook"
)

// ActionTypes lists every action type the dispatcher knows how to execute.
var ActionTypes = []ActionType{
	ActionSendEmail,
	ActionSendSMS,
	ActionSendWhatsApp,
	ActionAddToList,
	ActionRemoveFromList,
	ActionUpdateContact,
	ActionWait,
	ActionWebhook,
}

// IsKnown reports whether the action type is supported.
func (a ActionType) IsKnown() bool {
	for _, known := range ActionTypes {
		if a == known {
			return true
		}
	}

	return false
}

// ActionConfig is the type-specific payload of an Action.
type ActionConfig interface {
	actionConfig()
}

// MessageConfig configures send_email, send_sms and send_whatsapp.
type MessageConfig struct {
	TemplateID string         `json:"template_id,omitempty" validate:"required_without=Body"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"        validate:"required_without=TemplateID"`
	Variables  map[string]any `json:"variables,omitempty"`
}

// ListConfig configures add_to_list and remove_from_list.
type ListConfig struct {
	ListID string `json:"list_id" validate:"required"`
}

// UpdateContactConfig configures update_contact.
type UpdateContactConfig struct {
	Fields map[string]any `json:"fields" validate:"required,min=1"`
}

// WaitConfig configures wait. The duration is recorded but execution is not suspended.
type WaitConfig struct {
	DurationSeconds int `json:"duration_seconds" validate:"min=0"`
}

// WebhookConfig configures webhook.
type WebhookConfig struct {
	URL            string            `json:"url"                       validate:"required,url"`
	Method         string            `json:"method,omitempty"          validate:"omitempty,oneof=POST PUT PATCH"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" validate:"omitempty,min=1,max=300"`
}

func (MessageConfig) actionConfig()       {}
func (ListConfig) actionConfig()          {}
func (UpdateContactConfig) actionConfig() {}
func (WaitConfig) actionConfig()          {}
func (WebhookConfig) actionConfig()       {}

// Action is one externally observable side effect of a run.
// Actions of an unknown type keep their raw configuration in Raw and a nil Config.
type Action struct {
	Type   ActionType
	Config ActionConfig
	Raw    json.RawMessage
}

// NewAction builds an Action of the given type.
func NewAction(actionType ActionType, config ActionConfig) Action {
	return Action{Type: actionType, Config: config}
}

type actionEnvelope struct {
	Type   ActionType      `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (a Action) MarshalJSON() ([]byte, error) {
	raw := a.Raw

	if a.Config != nil {
		encoded, err := json.Marshal(a.Config)
		if err != nil {
			return nil, err
		}

		raw = encoded
	}

	return json.Marshal(actionEnvelope{Type: a.Type, Config: raw})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var envelope actionEnvelope

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return err
	}

	config, err := DecodeActionConfig(envelope.Type, envelope.Config)
	if err != nil {
		return err
	}

	a.Type = envelope.Type
	a.Config = config
	a.Raw = envelope.Config

	return nil
}

// DecodeActionConfig decodes raw configuration for actionType. Unknown types yield a nil config.
func DecodeActionConfig(actionType ActionType, raw json.RawMessage) (ActionConfig, error) {
	var target any

	switch actionType {
	case ActionSendEmail, ActionSendSMS, ActionSendWhatsApp:
		target = &MessageConfig{}
	case ActionAddToList, ActionRemoveFromList:
		target = &ListConfig{}
	case ActionUpdateContact:
		target = &UpdateContactConfig{}
	case ActionWait:
		target = &WaitConfig{}
	case ActionWebhook:
		target = &WebhookConfig{}
	default:
		return nil, nil
	}

	if len(raw) > 0 && string(raw) != "null" {
		err := json.Unmarshal(raw, target)
		if err != nil {
			return nil, fmt.Errorf("invalid %s action config: %w", actionType, err)
		}
	}

	switch c := target.(type) {
	case *MessageConfig:
		return *c, nil
	case *ListConfig:
		return *c, nil
	case *UpdateContactConfig:
		return *c, nil
	case *WaitConfig:
		return *c, nil
	case *WebhookConfig:
		return *c, nil
	}

	return nil, nil
}
