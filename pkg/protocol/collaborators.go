// Package protocol defines the contracts between the automation engine and its external collaborators.
package protocol

import (
	"context"

	"github.com/campaignhq/automation/pkg/models"
)

// ContactStore reads contact records used to evaluate workflow conditions.
type ContactStore interface {
	// GetContact returns the contact attributes or ErrContactNotFound.
	GetContact(ctx context.Context, contactID string) (map[string]any, error)
}

// ContactMutator writes contact attributes.
type ContactMutator interface {
	Update(ctx context.Context, contactID string, fields map[string]any) error
}

// ListService manages list membership.
type ListService interface {
	AddMember(ctx context.Context, contactID, listID string) error
	RemoveMember(ctx context.Context, contactID, listID string) error
	// Members returns the contact ids of a list. Used to fan out scheduled workflows.
	Members(ctx context.Context, listID string) ([]string, error)
}

// ChannelSender delivers messages. Each call returns the provider message id.
// No retry happens on this side of the contract.
type ChannelSender interface {
	SendEmail(ctx context.Context, contactID string, config models.MessageConfig) (string, error)
	SendSMS(ctx context.Context, contactID string, config models.MessageConfig) (string, error)
	SendWhatsApp(ctx context.Context, contactID string, config models.MessageConfig) (string, error)
}

// WebhookRequest is one outbound webhook call.
type WebhookRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Payload any
}

// WebhookClient posts payloads to external endpoints and returns the response status.
type WebhookClient interface {
	Post(ctx context.Context, request WebhookRequest) (int, error)
}
