package actions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/protocol"
)

const defaultWebhookTimeout = 10 * time.Second

var errMissingCollaborator = errors.New("collaborator not configured")

func invalidConfig(action models.Action) error {
	return fmt.Errorf("invalid configuration for %s action: got %T", action.Type, action.Config)
}

type messageHandler struct {
	sender  protocol.ChannelSender
	channel models.ActionType
}

func (h *messageHandler) Handle(ctx context.Context, action models.Action, contactID string, payload map[string]any) (string, error) {
	config, ok := action.Config.(models.MessageConfig)
	if !ok {
		return "", invalidConfig(action)
	}

	if h.sender == nil {
		return "", fmt.Errorf("channel sender: %w", errMissingCollaborator)
	}

	config = withEventVariables(config, payload)

	var (
		messageID string
		err       error
	)

	switch h.channel {
	case models.ActionSendSMS:
		messageID, err = h.sender.SendSMS(ctx, contactID, config)
	case models.ActionSendWhatsApp:
		messageID, err = h.sender.SendWhatsApp(ctx, contactID, config)
	default:
		messageID, err = h.sender.SendEmail(ctx, contactID, config)
	}

	if err != nil {
		return "", err
	}

	return "message_id=" + messageID, nil
}

// withEventVariables exposes the trigger payload to templates as the "event" variable.
func withEventVariables(config models.MessageConfig, payload map[string]any) models.MessageConfig {
	if len(payload) == 0 {
		return config
	}

	variables := make(map[string]any, len(config.Variables)+1)
	for key, value := range config.Variables {
		variables[key] = value
	}

	if _, exists := variables["event"]; !exists {
		variables["event"] = payload
	}

	config.Variables = variables

	return config
}

type listHandler struct {
	lists protocol.ListService
	add   bool
}

func (h *listHandler) Handle(ctx context.Context, action models.Action, contactID string, _ map[string]any) (string, error) {
	config, ok := action.Config.(models.ListConfig)
	if !ok {
		return "", invalidConfig(action)
	}

	if h.lists == nil {
		return "", fmt.Errorf("list service: %w", errMissingCollaborator)
	}

	if h.add {
		err := h.lists.AddMember(ctx, contactID, config.ListID)
		if err != nil {
			return "", err
		}

		return "added to list " + config.ListID, nil
	}

	err := h.lists.RemoveMember(ctx, contactID, config.ListID)
	if err != nil {
		return "", err
	}

	return "removed from list " + config.ListID, nil
}

type updateContactHandler struct {
	contacts protocol.ContactMutator
}

func (h *updateContactHandler) Handle(ctx context.Context, action models.Action, contactID string, _ map[string]any) (string, error) {
	config, ok := action.Config.(models.UpdateContactConfig)
	if !ok {
		return "", invalidConfig(action)
	}

	if h.contacts == nil {
		return "", fmt.Errorf("contact mutator: %w", errMissingCollaborator)
	}

	err := h.contacts.Update(ctx, contactID, config.Fields)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("updated %d fields", len(config.Fields)), nil
}

// waitHandler resolves immediately. The configured duration is only recorded.
type waitHandler struct{}

func (waitHandler) Handle(_ context.Context, action models.Action, _ string, _ map[string]any) (string, error) {
	config, ok := action.Config.(models.WaitConfig)
	if !ok {
		return "", invalidConfig(action)
	}

	return fmt.Sprintf("wait of %ds resolved immediately", config.DurationSeconds), nil
}

type webhookHandler struct {
	client protocol.WebhookClient
}

func (h *webhookHandler) Handle(ctx context.Context, action models.Action, contactID string, payload map[string]any) (string, error) {
	config, ok := action.Config.(models.WebhookConfig)
	if !ok {
		return "", invalidConfig(action)
	}

	if h.client == nil {
		return "", fmt.Errorf("webhook client: %w", errMissingCollaborator)
	}

	timeout := defaultWebhookTimeout
	if config.TimeoutSeconds > 0 {
		timeout = time.Duration(config.TimeoutSeconds) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := config.Method
	if method == "" {
		method = http.MethodPost
	}

	status, err := h.client.Post(ctx, protocol.WebhookRequest{
		URL:     config.URL,
		Method:  method,
		Headers: config.Headers,
		Payload: map[string]any{
			"contact_id": contactID,
			"event":      payload,
		},
	})
	if err != nil {
		return "", fmt.Errorf("webhook %s: %w", config.URL, err)
	}

	return fmt.Sprintf("%s %s responded %d", method, config.URL, status), nil
}
