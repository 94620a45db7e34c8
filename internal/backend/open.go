// Package backend opens the task store selected in the configuration.
package backend

import (
	"context"
	"fmt"

	"taskmaster/internal/backend/breaker"
	"taskmaster/internal/backend/cassandra"
	"taskmaster/internal/backend/googletasks"
	"taskmaster/internal/backend/mongo"
	"taskmaster/internal/backend/neo4j"
	"taskmaster/internal/backend/postgres"
	"taskmaster/internal/backend/sqlite"
	"taskmaster/internal/backend/supabase"
	"taskmaster/internal/config"
	"taskmaster/internal/logging"
	"taskmaster/internal/service"
)

// Open connects to the configured backend and, unless disabled, puts it
// behind a circuit breaker.
func Open(ctx context.Context, cfg *config.Config) (service.Backend, error) {
	b, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.Breaker.Enabled {
		return b, nil
	}
	return breaker.Wrap(b, breaker.Settings{
		MaxFailures: cfg.Breaker.MaxFailures,
		Timeout:     cfg.Breaker.Timeout,
		Logger:      logging.Logger,
	}), nil
}

func open(ctx context.Context, cfg *config.Config) (service.Backend, error) {
	switch cfg.Backend {
	case config.BackendSupabase:
		return supabase.New(ctx, cfg)
	case config.BackendPostgres:
		return postgres.New(ctx, cfg)
	case config.BackendMongo:
		return mongo.New(ctx, cfg)
	case config.BackendNeo4j:
		return neo4j.New(ctx, cfg)
	case config.BackendCassandra:
		return cassandra.New(ctx, cfg)
	case config.BackendSQLite:
		return sqlite.New(ctx, cfg)
	case config.BackendGoogleTasks:
		return googletasks.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown backend: %q", cfg.Backend)
	}
}
