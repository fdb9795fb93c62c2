package database

import (
	"context"
	"fmt"
	"time"

	"github.com/gogotex/ocrsearch/internal/config"
	"github.com/gogotex/ocrsearch/internal/document/repository"
	"github.com/gogotex/ocrsearch/pkg/logger"
)

const maxConnectAttempts = 5

// OpenStore connects the backend named by cfg.Driver, retrying with
// exponential backoff to tolerate startup races with the database container.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (repository.Store, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		s, err := openStore(ctx, cfg)
		if err == nil {
			return s, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to open %s store: %v", attempt, maxConnectAttempts, cfg.Driver, err)
		if attempt < maxConnectAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not open %s store after %d attempts: %w", cfg.Driver, maxConnectAttempts, lastErr)
}

func openStore(ctx context.Context, cfg config.StoreConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "memory":
		return repository.NewMemoryRepo(), nil
	case "mongo", "mongodb":
		return OpenMongo(ctx, cfg)
	case "postgres", "sqlite":
		db, err := OpenGorm(ctx, cfg.Driver, cfg.URL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLRepo(db)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
