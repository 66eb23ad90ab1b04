package cmd

import (
	"time"

	cli "github.com/urfave/cli/v3"
)

// EngineFlags are the backend flags shared by the API and the worker.
func EngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for workflows and executions (file://, postgres://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "crm-url",
			Usage:   "Contact and list store URL (file://, postgres://); defaults to the database URL",
			Sources: cli.EnvVars("CRM_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Value:   "localhost:9092",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the workflow definition cache (disabled when empty)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.DurationFlag{
			Name:    "cache-ttl",
			Usage:   "Time to live of cached workflow definitions",
			Value:   5 * time.Minute,
			Sources: cli.EnvVars("CACHE_TTL"),
		},
		&cli.StringFlag{
			Name:    "channel-gateway-url",
			Usage:   "Messaging gateway base URL; messages are only logged when empty",
			Sources: cli.EnvVars("CHANNEL_GATEWAY_URL"),
		},
		&cli.BoolFlag{
			Name:    "otel-enabled",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// EngineConfigFromCommand reads EngineFlags from command.
func EngineConfigFromCommand(command *cli.Command, serviceName string) EngineConfig {
	return EngineConfig{
		ServiceName: serviceName,
		DatabaseURL: command.String("database-url"),
		CRMURL:      command.String("crm-url"),
		RedisURL:    command.String("redis-url"),
		CacheTTL:    command.Duration("cache-ttl"),
		GatewayURL:  command.String("channel-gateway-url"),
		OTelEnabled: command.Bool("otel-enabled"),
	}
}
