package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ryxhub/flowengine/pkg/persistence"
	"github.com/ryxhub/flowengine/pkg/persistence/file"
	"github.com/ryxhub/flowengine/pkg/persistence/postgresql"
	"github.com/ryxhub/flowengine/pkg/persistence/redis"
)

// NewPersistence picks the store from the URL scheme. URLs without a known scheme are
// directories for the file store.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres persistence: %w", err)
		}

		return p, nil
	case "redis", "rediss":
		p, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis persistence: %w", err)
		}

		return p, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
