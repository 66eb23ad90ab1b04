package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/campaignhq/automation/pkg/cache"
	"github.com/campaignhq/automation/pkg/persistence"
	"github.com/campaignhq/automation/pkg/persistence/file"
	"github.com/campaignhq/automation/pkg/persistence/postgresql"
)

// NewPersistence selects the storage from the URL scheme (file://, postgres://, postgresql://).
// A non-empty redisURL wraps the workflow repository with a read-through cache.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL, redisURL string, cacheTTL time.Duration) (persistence.Persistence, error) {
	var (
		p   persistence.Persistence
		err error
	)

	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err = postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}
	case "file":
		p = file.NewPersistence(databaseURL)
	default:
		return nil, fmt.Errorf("unsupported database URL %q (supported: file://, postgres://)", databaseURL)
	}

	if redisURL == "" {
		return p, nil
	}

	client, err := cache.Connect(ctx, redisURL)
	if err != nil {
		_ = p.Close(ctx)

		return nil, err
	}

	logger.InfoContext(ctx, "Workflow cache enabled", "ttl", cacheTTL)

	return cache.NewPersistence(p, client, cacheTTL), nil
}

func parseProvider(url string) string {
	scheme, _, found := strings.Cut(url, "://")
	if !found {
		return "file"
	}

	return scheme
}
