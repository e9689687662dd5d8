package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BabaVossRS3/FlowForge/pkg/actions"
	"github.com/BabaVossRS3/FlowForge/pkg/ai"
	"github.com/BabaVossRS3/FlowForge/pkg/cmd"
	"github.com/BabaVossRS3/FlowForge/pkg/credentials"
	"github.com/BabaVossRS3/FlowForge/pkg/eventbus"
	"github.com/BabaVossRS3/FlowForge/pkg/log"
	"github.com/BabaVossRS3/FlowForge/pkg/messaging"
	"github.com/BabaVossRS3/FlowForge/pkg/otelhelper"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/scheduler"
	"github.com/BabaVossRS3/FlowForge/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// engine is the set of components every command runs on.
type engine struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	ai          ai.Provider
	credentials *credentials.Store
	runner      *workflow.Runner
	scheduler   *scheduler.Scheduler

	closers []func(context.Context) error
}

func newEngine(ctx context.Context, command *cli.Command, module string) (*engine, error) {
	log.Setup(command.String("log-level"), command.String("log-format"))

	e := &engine{logger: log.WithModule(module)}

	tracing := command.Bool("tracing")

	var executorOpts []workflow.ExecutorOption

	if tracing {
		tracer, shutdown, err := otelhelper.NewTracer(ctx, "flowforge")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}

		e.closers = append(e.closers, shutdown)
		executorOpts = append(executorOpts, workflow.WithTracer(tracer))
	}

	p, err := cmd.NewPersistence(ctx, e.logger, command.String("database-url"))
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	e.persistence = p
	e.closers = append(e.closers, p.Close)

	bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), tracing, e.logger)
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	e.eventBus = bus
	e.closers = append(e.closers, func(context.Context) error { return bus.Close() })

	provider, err := cmd.NewAIProvider(cmd.AIConfig{
		Provider:     command.String("ai-provider"),
		GeminiAPIKey: command.String("gemini-api-key"),
		OpenAIAPIKey: command.String("openai-api-key"),
	}, e.logger)
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	e.ai = provider

	vault, err := credentials.NewVault(command.String("encryption-key"))
	if err != nil {
		return nil, e.fail(ctx, err)
	}

	e.credentials = credentials.NewStore(p.Integrations(), vault, e.logger)

	client := messaging.NewHTTPClient(0)
	dispatcher := actions.NewDispatcher(actions.Dependencies{
		Credentials: e.credentials,
		AI:          provider,
		Chat:        messaging.DefaultRegistry(client),
		Mailer:      messaging.NewSMTPMailer(e.logger),
		HTTPClient:  client,
	}, e.logger)

	executor := workflow.NewExecutor(dispatcher, workflow.NewAIConditionEvaluator(provider, e.logger), e.logger, executorOpts...)
	e.runner = workflow.NewRunner(executor, p.Workflows(), bus, e.logger)
	e.scheduler = scheduler.New(e.runner, p.Workflows(), e.logger)

	return e, nil
}

func (e *engine) fail(ctx context.Context, err error) error {
	return errors.Join(err, e.Close(ctx))
}

// Close releases the components in reverse order of creation.
func (e *engine) Close(ctx context.Context) error {
	var errs []error

	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	e.closers = nil

	return errors.Join(errs...)
}
