package integration

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"po-pipeline/internal/catalog"
	"po-pipeline/internal/database"
	"po-pipeline/internal/handler"
	"po-pipeline/internal/model"
	"po-pipeline/internal/repository"
	"po-pipeline/internal/router"
	"po-pipeline/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testAPIKey = "test-api-key"

// TestDB represents a migrated test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a PostgreSQL container and applies the schema migrations.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	migrator, err := database.NewMigrator(pool, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(ctx))
	require.NoError(t, migrator.Close())

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes every order. Items and history cascade.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	if _, err := pool.Exec(context.Background(), "TRUNCATE purchase_orders CASCADE"); err != nil {
		t.Fatalf("failed to clean purchase orders: %v", err)
	}
}

// serverOptions tweak the stack built by setupTestServer.
type serverOptions struct {
	policy model.TransitionPolicy
	skus   []string
}

// setupTestServer wires the real repository, service, handler and router
// against testDB. A non-empty skus list enables catalogue validation.
func setupTestServer(t *testing.T, testDB *TestDB, opts serverOptions) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	ctx := context.Background()

	if opts.policy == "" {
		opts.policy = model.PolicyAdjacent
	}

	var validator catalog.Validator
	if len(opts.skus) > 0 {
		path := filepath.Join(t.TempDir(), "skus.gz")
		require.NoError(t, catalog.WriteFile(path, opts.skus))

		v, err := catalog.NewValidator(ctx, &catalog.ValidatorConfig{
			FilePaths:     []string{path},
			MinMatchCount: 1,
		}, catalog.NewFileLoader(logger), logger)
		require.NoError(t, err)
		t.Cleanup(func() {
			v.Close()
		})
		validator = v
	}

	repo := repository.NewPurchaseOrderRepository(testDB.Pool, logger)
	svc := service.NewPurchaseOrderService(repo, opts.policy, validator, logger)

	return router.New(router.Options{
		PurchaseOrders: handler.NewPurchaseOrderHandler(svc, logger),
		APIKey:         testAPIKey,
		Logger:         logger,
		Registry:       prometheus.NewRegistry(),
	})
}

// rejectedSKU is refused by the trigger installed with rejectItemsWithSKU.
const rejectedSKU = "REJECTED-BY-STORE"

// rejectItemsWithSKU installs a trigger that fails any item insert carrying
// rejectedSKU, so a write can be made to fail after the order row is in.
func rejectItemsWithSKU(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE OR REPLACE FUNCTION reject_test_sku() RETURNS trigger AS $$
		BEGIN
			IF NEW.sku = '`+rejectedSKU+`' THEN
				RAISE EXCEPTION 'item rejected';
			END IF;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		CREATE TRIGGER reject_test_sku BEFORE INSERT ON purchase_order_items
		FOR EACH ROW EXECUTE FUNCTION reject_test_sku()`)
	require.NoError(t, err)

	t.Cleanup(func() {
		if _, err := pool.Exec(ctx, "DROP TRIGGER IF EXISTS reject_test_sku ON purchase_order_items"); err != nil {
			t.Logf("failed to drop trigger: %v", err)
		}
		if _, err := pool.Exec(ctx, "DROP FUNCTION IF EXISTS reject_test_sku()"); err != nil {
			t.Logf("failed to drop trigger function: %v", err)
		}
	})
}
