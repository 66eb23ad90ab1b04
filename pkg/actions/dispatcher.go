// Package actions executes workflow actions against the external collaborators.
package actions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/metrics"
	"github.com/campaignhq/automation/pkg/models"
	"github.com/campaignhq/automation/pkg/otelhelper"
	"github.com/campaignhq/automation/pkg/protocol"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrUnknownActionType is returned for an action type with no registered handler.
// It signals a corrupt definition and is the only error Execute returns.
var ErrUnknownActionType = errors.New("unknown action type")

// Dependencies are the collaborators the built-in handlers call.
type Dependencies struct {
	Channels protocol.ChannelSender
	Lists    protocol.ListService
	Contacts protocol.ContactMutator
	Webhooks protocol.WebhookClient
}

// Dispatcher maps each action type to exactly one handler.
type Dispatcher struct {
	handlers map[models.ActionType]protocol.ActionHandler
	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tracer }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithClock replaces the clock used to timestamp action results.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher with a handler for every built-in action type.
func NewDispatcher(deps Dependencies, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[models.ActionType]protocol.ActionHandler),
		logger:   log.WithModule("action_dispatcher"),
		tracer:   otelhelper.NoopTracer(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.Register(models.ActionSendEmail, &messageHandler{sender: deps.Channels, channel: models.ActionSendEmail})
	d.Register(models.ActionSendSMS, &messageHandler{sender: deps.Channels, channel: models.ActionSendSMS})
	d.Register(models.ActionSendWhatsApp, &messageHandler{sender: deps.Channels, channel: models.ActionSendWhatsApp})
	d.Register(models.ActionAddToList, &listHandler{lists: deps.Lists, add: true})
	d.Register(models.ActionRemoveFromList, &listHandler{lists: deps.Lists})
	d.Register(models.ActionUpdateContact, &updateContactHandler{contacts: deps.Contacts})
	d.Register(models.ActionWait, waitHandler{})
	d.Register(models.ActionWebhook, &webhookHandler{client: deps.Webhooks})

	return d
}

// Register sets the handler of an action type, replacing any previous one.
func (d *Dispatcher) Register(actionType models.ActionType, handler protocol.ActionHandler) {
	d.handlers[actionType] = handler
}

// Execute runs one action. Collaborator failures are reported in the result, never as an error.
func (d *Dispatcher) Execute(ctx context.Context, action models.Action, contactID string, payload map[string]any) (models.ActionResult, error) {
	handler, ok := d.handlers[action.Type]
	if !ok {
		return models.ActionResult{}, fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)
	}

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "action.execute",
		attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		attribute.String(otelhelper.ContactIDKey, contactID),
	)
	defer span.End()

	logger := d.logger.With("action_type", action.Type, "contact_id", contactID)

	result := models.ActionResult{
		Type:      action.Type,
		StartedAt: d.now(),
	}

	detail, err := d.handle(ctx, handler, action, contactID, payload)

	result.FinishedAt = d.now()

	if err != nil {
		result.Status = models.ActionStatusFailed
		result.Detail = err.Error()

		otelhelper.SetError(span, err, attribute.String(otelhelper.ActionTypeKey, string(action.Type)))
		logger.WarnContext(ctx, "Action failed", "error", err)
	} else {
		result.Status = models.ActionStatusCompleted
		result.Detail = detail

		logger.DebugContext(ctx, "Action completed", "detail", detail)
	}

	span.SetAttributes(attribute.String(otelhelper.ActionStatusKey, string(result.Status)))
	d.metrics.ObserveAction(result)

	return result, nil
}

func (d *Dispatcher) handle(
	ctx context.Context,
	handler protocol.ActionHandler,
	action models.Action,
	contactID string,
	payload map[string]any,
) (detail string, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("action handler panicked: %v", recovered)
		}
	}()

	return handler.Handle(ctx, action, contactID, payload)
}
