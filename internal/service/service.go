package service

import (
	"context"

	"po-pipeline/internal/model"

	"github.com/google/uuid"
)

// PurchaseOrderService defines operations for purchase order management.
type PurchaseOrderService interface {
	// Create validates the request and stores the order, its items and the
	// initial history entry in one transaction.
	Create(ctx context.Context, req *model.CreateRequest) (*model.PurchaseOrder, error)

	// List retrieves orders matching the filter with their items.
	List(ctx context.Context, filter model.ListFilter) ([]model.PurchaseOrder, error)

	// GetByID retrieves one order with its items. Missing orders yield model.ErrOrderNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)

	// UpdateStatus moves an order to the requested status under the configured transition policy.
	UpdateStatus(ctx context.Context, id uuid.UUID, req *model.StatusRequest) (*model.PurchaseOrder, error)

	// Advance moves an order one step forward in the pipeline.
	Advance(ctx context.Context, id uuid.UUID, note *string) (*model.PurchaseOrder, error)

	// Revert moves an order one step back in the pipeline.
	Revert(ctx context.Context, id uuid.UUID, note *string) (*model.PurchaseOrder, error)

	// Update applies a partial update. A non-empty item list replaces all items.
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateRequest) (*model.PurchaseOrder, error)

	// Delete removes an order together with its items and history.
	Delete(ctx context.Context, id uuid.UUID) error

	// History lists the status transitions of an order, most recent first.
	History(ctx context.Context, id uuid.UUID, page model.Page) ([]model.HistoryEntry, error)

	// Metrics aggregates order values by pipeline stage.
	Metrics(ctx context.Context) (*model.FinancialMetrics, error)
}
