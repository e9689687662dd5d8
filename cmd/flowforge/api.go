package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/BabaVossRS3/FlowForge/pkg/services"
	"github.com/BabaVossRS3/FlowForge/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	engine      *engine
	validate    *validator.Validate
	verifyToken string
}

func NewAPI(logger *slog.Logger, engine *engine, verifyToken string) *API {
	return &API{
		logger:      logger,
		engine:      engine,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		verifyToken: verifyToken,
	}
}

func (a *API) App() *fiber.App {
	e := a.engine

	handlers := web.NewAPIHandlers(
		services.NewWorkflow(e.persistence, e.scheduler, e.runner, e.ai, a.logger),
		services.NewTriggers(e.persistence.Workflows(), e.runner, a.logger),
		e.credentials,
		a.validate,
		a.logger,
		web.WithWhatsAppVerifyToken(a.verifyToken),
	)

	app := fiber.New(fiber.Config{AppName: "FlowForge"})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("FlowForge API")
	})

	handlers.Register(app)

	return app
}

// Start serves until ctx is done, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	errs := make(chan error, 1)

	go func() {
		errs <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "API listening", "port", port)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "shutting down API")

		return app.ShutdownWithContext(context.WithoutCancel(ctx))
	}
}
