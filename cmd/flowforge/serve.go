package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BabaVossRS3/FlowForge/pkg/web"
	cli "github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the API, trigger receivers and scheduler",
		Flags: append(commonFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "whatsapp-verify-token",
				Usage:   "Token expected by the WhatsApp webhook subscription handshake",
				Value:   web.DefaultWhatsAppVerifyToken,
				Sources: cli.EnvVars("WHATSAPP_VERIFY_TOKEN"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, err := newEngine(ctx, command, "api")
			if err != nil {
				return err
			}

			logger := engine.logger
			logger.InfoContext(ctx, "Initializing FlowForge")

			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
				defer cancel()

				if err := engine.scheduler.Stop(shutdownCtx); err != nil {
					logger.ErrorContext(shutdownCtx, "Failed to stop scheduler", "error", err)
				}

				if err := engine.Close(shutdownCtx); err != nil {
					logger.ErrorContext(shutdownCtx, "Failed to close engine", "error", err)
				}
			}()

			if err := subscribeExecutionEvents(ctx, engine.eventBus, logger); err != nil {
				logger.WarnContext(ctx, "Execution events will not be logged", "error", err)
			}

			if err := engine.scheduler.Initialize(ctx); err != nil {
				return err
			}

			engine.scheduler.Start(ctx)

			api := NewAPI(logger, engine, command.String("whatsapp-verify-token"))

			return api.Start(ctx, command.Int("port"))
		},
	}
}
