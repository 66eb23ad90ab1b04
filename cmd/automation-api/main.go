package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/campaignhq/automation/pkg/cmd"
	"github.com/campaignhq/automation/pkg/log"
	"github.com/campaignhq/automation/pkg/scheduler"
	"github.com/campaignhq/automation/pkg/worker"
	"github.com/campaignhq/automation/pkg/workflow"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "automation-api"
)

func main() {
	logger := log.WithModule("api")

	flags := append([]cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "Port to run the API server on",
			Value:   defaultPort,
			Sources: cli.EnvVars("PORT"),
		},
		&cli.BoolFlag{
			Name:    "embedded-worker",
			Usage:   "Also consume contact events and run scheduled workflows in this process",
			Sources: cli.EnvVars("EMBEDDED_WORKER"),
		},
	}, cmd.EngineFlags()...)

	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Manage campaign workflows and run them",
		EnableShellCompletion: true,
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing campaign automation API")

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			engine, cleanup, err := cmd.NewEngine(ctx, logger, cmd.EngineConfigFromCommand(command, serviceName), prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}

			defer cleanup()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, logger)
			if err != nil {
				return err
			}

			defer func() {
				if closeErr := eventBus.Close(); closeErr != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", closeErr)
				}
			}()

			engine.Publisher = eventBus
			executor := engine.NewExecutor()

			if command.Bool("embedded-worker") {
				workflows := engine.Persistence.WorkflowRepository()
				w := worker.New(
					"embedded-"+uuid.NewString()[:8],
					eventBus,
					workflow.NewTriggerRouter(workflows, executor, engine.Metrics),
					scheduler.New(workflows, engine.CRM, executor),
				)

				err = w.Start(ctx)
				if err != nil {
					return err
				}

				defer func() {
					if stopErr := w.Stop(context.Background()); stopErr != nil {
						logger.ErrorContext(ctx, "Failed to stop worker", "error", stopErr)
					}
				}()
			}

			app := NewAPI(logger, engine.Persistence, executor, eventBus, prometheus.DefaultGatherer).App()

			go func() {
				<-ctx.Done()

				if shutdownErr := app.Shutdown(); shutdownErr != nil {
					logger.Error("Failed to shut down API", "error", shutdownErr)
				}
			}()

			return app.Listen(":" + strconv.Itoa(command.Int("port")))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("API exited with error", "error", err)
		os.Exit(1)
	}
}
