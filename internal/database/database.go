package database

import (
	"context"
	"fmt"
	"time"

	"po-pipeline/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ApplicationName tags every purchase order store session in pg_stat_activity.
const ApplicationName = "po-pipeline"

// NewPool opens the connection pool backing the purchase order store. With
// cfg.AutoMigrate set, pending schema migrations are applied before the pool
// is returned.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	logger = logger.With().Str("store", "purchase_orders").Logger()

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = time.Duration(cfg.MaxConnLifetime) * time.Second
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.RuntimeParams["application_name"] = ApplicationName

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Int("max_connections", cfg.MaxConnections).
		Int("min_connections", cfg.MinConnections).
		Bool("auto_migrate", cfg.AutoMigrate).
		Msg("opening purchase order store")

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := migrateUp(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, err
		}
	}

	logger.Info().Msg("purchase order store ready")

	return pool, nil
}

func migrateUp(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	m, err := NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("failed to migrate purchase order store: %w", err)
	}
	return nil
}
