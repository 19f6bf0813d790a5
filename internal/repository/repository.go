package repository

import (
	"context"
	"time"

	"po-pipeline/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PurchaseOrderRepository defines the interface for purchase order data access operations.
// Methods taking a pgx.Tx must be called inside a transaction obtained from BeginTx.
type PurchaseOrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Create inserts a new order row within the provided transaction.
	Create(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder) error

	// CreateItems inserts order items within the provided transaction.
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.PurchaseOrderItem) error

	// DeleteItems removes every item of an order and returns how many were removed.
	DeleteItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error)

	// GetByID retrieves an order with its items. It returns nil, nil when no order has the id.
	GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)

	// GetForUpdate retrieves an order row (without items) and locks it until the transaction ends.
	// It returns nil, nil when no order has the id.
	GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.PurchaseOrder, error)

	// List retrieves orders with their items, most recent order date first.
	List(ctx context.Context, filter model.ListFilter) ([]model.PurchaseOrder, error)

	// Update writes every mutable column of an order.
	Update(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder) error

	// UpdateStatus writes only the status of an order.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.Status, at time.Time) error

	// Delete removes an order; items and history go with it. It reports whether a row existed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// AppendHistory records one status transition.
	AppendHistory(ctx context.Context, tx pgx.Tx, entry *model.HistoryEntry) error

	// ListHistory retrieves the transitions of an order, most recent first.
	ListHistory(ctx context.Context, orderID uuid.UUID, page model.Page) ([]model.HistoryEntry, error)

	// StatusTotals returns order count and summed value per status.
	StatusTotals(ctx context.Context) ([]model.StatusTotal, error)
}
