// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BabaVossRS3/FlowForge/pkg/persistence"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence/file"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence/postgresql"
	"github.com/BabaVossRS3/FlowForge/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"file", "postgres", "postgresql", "redis", "rediss"}

// NewPersistence picks the store from the URL scheme. URLs without a known scheme are file paths.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)
	logger.InfoContext(ctx, "initializing persistence", "provider", provider)

	switch provider {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		if databaseURL == "" {
			return nil, fmt.Errorf("%w: empty database url", ErrInvalidConfiguration)
		}

		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
