// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/campaignhq/automation/pkg/actions"
	"github.com/campaignhq/automation/pkg/crm"
	"github.com/campaignhq/automation/pkg/eventbus"
	"github.com/campaignhq/automation/pkg/metrics"
	"github.com/campaignhq/automation/pkg/otelhelper"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/protocol"
	"github.com/campaignhq/automation/pkg/senders"
	"github.com/campaignhq/automation/pkg/webhook"
	"github.com/campaignhq/automation/pkg/workflow"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
)

// NewSender returns a gateway sender for gatewayURL, or a log sender when it is empty.
func NewSender(gatewayURL string) protocol.ChannelSender {
	if gatewayURL == "" {
		return senders.NewLogSender()
	}

	return senders.NewGatewaySender(gatewayURL, nil)
}

// Engine holds the collaborators needed to run workflows.
type Engine struct {
	Persistence persistence.Persistence
	CRM         crm.Store
	Sender      protocol.ChannelSender
	Publisher   eventbus.EventPublisher
	Tracer      trace.Tracer
	Metrics     *metrics.Metrics
}

// EngineConfig selects the engine's backends.
type EngineConfig struct {
	ServiceName string
	DatabaseURL string
	// CRMURL defaults to DatabaseURL.
	CRMURL      string
	RedisURL    string
	CacheTTL    time.Duration
	GatewayURL  string
	OTelEnabled bool
}

// NewEngine opens every backend named by config. The returned cleanup closes them in reverse order.
// Metrics are registered on registerer.
func NewEngine(ctx context.Context, logger *slog.Logger, config EngineConfig, registerer prometheus.Registerer) (*Engine, func(), error) {
	p, err := NewPersistence(ctx, logger, config.DatabaseURL, config.RedisURL, config.CacheTTL)
	if err != nil {
		return nil, nil, err
	}

	crmURL := config.CRMURL
	if crmURL == "" {
		crmURL = config.DatabaseURL
	}

	store, closeStore, err := NewCRM(ctx, logger, crmURL)
	if err != nil {
		_ = p.Close(ctx)

		return nil, nil, err
	}

	tracer := otelhelper.NoopTracer()
	shutdown := otelhelper.Shutdown(func(context.Context) error { return nil })

	if config.OTelEnabled {
		tracer, shutdown, err = otelhelper.NewTracer(ctx, config.ServiceName)
		if err != nil {
			_ = closeStore()
			_ = p.Close(ctx)

			return nil, nil, err
		}
	}

	cleanup := func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down tracer", "error", err)
		}

		if err := closeStore(); err != nil {
			logger.Error("Failed to close CRM store", "error", err)
		}

		if err := p.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}

	return &Engine{
		Persistence: p,
		CRM:         store,
		Sender:      NewSender(config.GatewayURL),
		Tracer:      tracer,
		Metrics:     metrics.New(registerer),
	}, cleanup, nil
}

// NewExecutor wires the action dispatcher and the run controller.
func (e Engine) NewExecutor() *workflow.Executor {
	tracer := e.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	dispatcher := actions.NewDispatcher(
		actions.Dependencies{
			Channels: e.Sender,
			Lists:    e.CRM,
			Contacts: e.CRM,
			Webhooks: webhook.NewClient(&http.Client{}),
		},
		actions.WithTracer(tracer),
		actions.WithMetrics(e.Metrics),
	)

	return workflow.NewExecutor(
		workflow.Dependencies{
			Workflows:  e.Persistence.WorkflowRepository(),
			Executions: e.Persistence.ExecutionRepository(),
			Contacts:   e.CRM,
			Dispatcher: dispatcher,
			Publisher:  e.Publisher,
		},
		workflow.WithTracer(tracer),
		workflow.WithMetrics(e.Metrics),
	)
}
