package main

import (
	"context"
	"os"
	"os/signal"
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

const serviceName = "automation-worker"

func main() {
	flags := append([]cli.Flag{
		&cli.StringFlag{
			Name:    "worker-id",
			Aliases: []string{"id"},
			Usage:   "Custom worker ID (auto-generated if not provided)",
			Sources: cli.EnvVars("WORKER_ID"),
		},
		&cli.BoolFlag{
			Name:    "disable-scheduler",
			Usage:   "Only consume contact events; do not run TIME_BASED workflows",
			Sources: cli.EnvVars("DISABLE_SCHEDULER"),
		},
	}, cmd.EngineFlags()...)

	command := &cli.Command{
		Name:                  serviceName,
		EnableShellCompletion: true,
		Usage:                 "Route contact events and scheduled runs to campaign workflows",
		Flags:                 flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule(serviceName).With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing campaign automation worker")

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
			workflows := engine.Persistence.WorkflowRepository()

			var s *scheduler.Scheduler
			if !command.Bool("disable-scheduler") {
				s = scheduler.New(workflows, engine.CRM, executor)
			}

			w := worker.New(workerID, eventBus, workflow.NewTriggerRouter(workflows, executor, engine.Metrics), s)

			err = w.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()

			return w.Stop(context.Background())
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule(serviceName).Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
}
