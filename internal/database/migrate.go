package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded SQL migrations through goose.
type Migrator struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewMigrator wraps the pool in a database/sql handle for goose.
func NewMigrator(pool *pgxpool.Pool, logger zerolog.Logger) (*Migrator, error) {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger.With().Str("component", "migrate").Logger()})
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set migration dialect: %w", err)
	}

	return &Migrator{
		db:     stdlib.OpenDBFromPool(pool),
		logger: logger.With().Str("component", "migrate").Logger(),
	}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, m.db, migrationsDir); err != nil {
		if isNoMigrationErr(err) {
			m.logger.Info().Msg("no migrations to apply")
			return nil
		}
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	m.logger.Info().Msg("migrations applied")
	return nil
}

// Down rolls back the given number of migrations. Steps <= 0 means one.
func (m *Migrator) Down(ctx context.Context, steps int) error {
	if steps <= 0 {
		steps = 1
	}

	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, m.db, migrationsDir); err != nil {
			if isNoMigrationErr(err) {
				m.logger.Info().Msg("no migrations to roll back")
				return nil
			}
			return fmt.Errorf("failed to roll back migration: %w", err)
		}
	}

	m.logger.Info().Int("steps", steps).Msg("migrations rolled back")
	return nil
}

// Status logs the applied state of every migration.
func (m *Migrator) Status(ctx context.Context) error {
	if err := goose.StatusContext(ctx, m.db, migrationsDir); err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	v, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// Close releases the database/sql handle. The underlying pool stays open.
func (m *Migrator) Close() error {
	return m.db.Close()
}

func isNoMigrationErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoMigrationFiles) {
		return true
	}
	return strings.Contains(err.Error(), "no migration")
}

// gooseLogger routes goose output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msg(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
