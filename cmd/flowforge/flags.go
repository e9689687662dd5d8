package main

import (
	cli "github.com/urfave/cli/v3"
)

// commonFlags configure the engine shared by every command.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Persistence URL (file://path, postgres://..., redis://...)",
			Value:   "file://./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Execution event bus (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers, used when the event bus is kafka",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "ai-provider",
			Usage:   "AI provider (gemini, openai); chosen from the configured keys when empty",
			Sources: cli.EnvVars("AI_PROVIDER"),
		},
		&cli.StringFlag{
			Name:    "gemini-api-key",
			Usage:   "Gemini API key",
			Sources: cli.EnvVars("GEMINI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "OpenAI API key",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "encryption-key",
			Usage:   "Hex key for integration credentials; a random key is used when empty",
			Sources: cli.EnvVars("ENCRYPTION_KEY"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP (configured by OTEL_EXPORTER_OTLP_*)",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
	}
}
