// Package redis provides Redis persistence for workflows, their execution logs and integrations.
//
// Keys, under a configurable prefix:
//
//	<prefix>:workflow:<id>            workflow document without its logs (JSON)
//	<prefix>:workflow:<id>:logs       execution logs, one JSON entry per list element
//	<prefix>:workflows                set of all workflow ids
//	<prefix>:workflows:active         set of active workflow ids
//	<prefix>:user:<userId>:workflows  set of the user's workflow ids
//	<prefix>:user:<userId>:integrations  hash of integration id to JSON
package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	goredis "github.com/redis/go-redis/v9"
)

const defaultPrefix = "flowforge"

type Persistence struct {
	client           *goredis.Client
	logger           *slog.Logger
	prefix           string
	workflowRepo     *WorkflowRepository
	integrationsRepo *IntegrationRepository
}

type Option func(*Persistence)

// WithPrefix sets the key prefix. Default is "flowforge".
func WithPrefix(prefix string) Option {
	return func(p *Persistence) {
		p.prefix = prefix
	}
}

// NewPersistence connects to the redis:// or rediss:// URL and verifies the connection.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string, opts ...Option) (*Persistence, error) {
	options, err := goredis.ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := goredis.NewClient(options)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewPersistenceWithClient(client, logger, opts...), nil
}

func NewPersistenceWithClient(client *goredis.Client, logger *slog.Logger, opts ...Option) *Persistence {
	p := &Persistence{
		client: client,
		logger: logger,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(p)
	}

	k := keys{prefix: p.prefix}
	p.workflowRepo = &WorkflowRepository{client: client, logger: logger, keys: k}
	p.integrationsRepo = &IntegrationRepository{client: client, keys: k}

	return p
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflowRepo
}

func (p *Persistence) Integrations() persistence.IntegrationRepository {
	return p.integrationsRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

type keys struct {
	prefix string
}

func (k keys) workflow(id string) string {
	return k.prefix + ":workflow:" + id
}

func (k keys) logs(id string) string {
	return k.prefix + ":workflow:" + id + ":logs"
}

func (k keys) all() string {
	return k.prefix + ":workflows"
}

func (k keys) active() string {
	return k.prefix + ":workflows:active"
}

func (k keys) owned(userID string) string {
	return k.prefix + ":user:" + userID + ":workflows"
}

func (k keys) integrations(userID string) string {
	return k.prefix + ":user:" + userID + ":integrations"
}
