package protocol

import (
	"context"

	"github.com/campaignhq/automation/pkg/models"
)

// ActionHandler performs the side effect of one action type.
// The returned detail is recorded on the action result; an error marks the action as failed.
type ActionHandler interface {
	Handle(ctx context.Context, action models.Action, contactID string, payload map[string]any) (string, error)
}

// ActionHandlerFunc adapts a function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, action models.Action, contactID string, payload map[string]any) (string, error)

func (f ActionHandlerFunc) Handle(ctx context.Context, action models.Action, contactID string, payload map[string]any) (string, error) {
	return f(ctx, action, contactID, payload)
}
