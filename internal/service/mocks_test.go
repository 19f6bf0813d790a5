package service

import (
	"context"
	"time"

	"po-pipeline/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository.
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPurchaseOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.PurchaseOrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) DeleteItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.PurchaseOrder, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) List(ctx context.Context, filter model.ListFilter) ([]model.PurchaseOrder, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.Status, at time.Time) error {
	args := m.Called(ctx, tx, id, status, at)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseOrderRepository) AppendHistory(ctx context.Context, tx pgx.Tx, entry *model.HistoryEntry) error {
	args := m.Called(ctx, tx, entry)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) ListHistory(ctx context.Context, orderID uuid.UUID, page model.Page) ([]model.HistoryEntry, error) {
	args := m.Called(ctx, orderID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HistoryEntry), args.Error(1)
}

func (m *MockPurchaseOrderRepository) StatusTotals(ctx context.Context) ([]model.StatusTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusTotal), args.Error(1)
}

// MockCatalogValidator is a mock implementation of catalog.Validator.
type MockCatalogValidator struct {
	mock.Mock
}

func (m *MockCatalogValidator) Validate(ctx context.Context, skus []string) error {
	args := m.Called(ctx, skus)
	return args.Error(0)
}

func (m *MockCatalogValidator) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx; the service never calls them directly.
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }
