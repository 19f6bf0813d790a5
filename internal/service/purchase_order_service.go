package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"po-pipeline/internal/catalog"
	"po-pipeline/internal/model"
	"po-pipeline/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// purchaseOrderService implements PurchaseOrderService.
type purchaseOrderService struct {
	repo      repository.PurchaseOrderRepository
	policy    model.TransitionPolicy
	validator catalog.Validator
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPurchaseOrderService creates a new purchase order service.
// validator may be nil, in which case SKUs are not checked against a catalogue.
func NewPurchaseOrderService(
	repo repository.PurchaseOrderRepository,
	policy model.TransitionPolicy,
	validator catalog.Validator,
	logger zerolog.Logger,
) PurchaseOrderService {
	if policy == "" {
		policy = model.PolicyAdjacent
	}
	return &purchaseOrderService{
		repo:      repo,
		policy:    policy,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger.With().Str("service", "purchase_order").Logger(),
	}
}

// Create validates the request and stores the order, its items and the
// initial history entry in one transaction.
func (s *purchaseOrderService) Create(ctx context.Context, req *model.CreateRequest) (*model.PurchaseOrder, error) {
	if req == nil {
		return nil, model.ErrMissingOrderDate
	}
	if req.OrderDate == nil || req.OrderDate.IsZero() {
		return nil, model.ErrMissingOrderDate
	}
	if err := s.validateItems(ctx, req.Items); err != nil {
		return nil, err
	}

	value := model.ItemsTotal(req.Items)
	if req.Value != nil {
		value = *req.Value
	}
	if !model.ValidAmount(value) {
		return nil, model.ErrInvalidValue
	}

	now := s.now()
	order := &model.PurchaseOrder{
		ID:               uuid.New(),
		Supplier:         normaliseText(req.Supplier),
		Value:            value,
		OrderDate:        *req.OrderDate,
		ExpectedDelivery: nonZeroDate(req.ExpectedDelivery),
		Notes:            normaliseText(req.Notes),
		Status:           model.InitialStatus,
		Items:            buildItems(uuid.Nil, req.Items),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	err := s.inTx(ctx, "create purchase order", func(tx pgx.Tx) error {
		if err := s.repo.Create(ctx, tx, order); err != nil {
			return err
		}
		if err := s.repo.CreateItems(ctx, tx, order.Items); err != nil {
			s.logger.Error().
				Err(err).
				Str("order_id", order.ID.String()).
				Int("item_count", len(order.Items)).
				Msg("failed to create purchase order items")
			return err
		}
		return s.repo.AppendHistory(ctx, tx, &model.HistoryEntry{
			ID:        uuid.New(),
			OrderID:   order.ID,
			NewStatus: order.Status,
			MovedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Int("item_count", len(order.Items)).
		Str("value", order.Value.String()).
		Msg("purchase order created successfully")

	return order, nil
}

// List retrieves orders matching the filter with their items.
func (s *purchaseOrderService) List(ctx context.Context, filter model.ListFilter) ([]model.PurchaseOrder, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}
	page, err := model.NewPage(filter.Page.Limit, filter.Page.Offset)
	if err != nil {
		return nil, err
	}
	filter.Page = page
	filter.Supplier = strings.TrimSpace(filter.Supplier)

	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list purchase orders")
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves one order with its items.
func (s *purchaseOrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get purchase order")
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus moves an order to the requested status.
func (s *purchaseOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req *model.StatusRequest) (*model.PurchaseOrder, error) {
	if req == nil {
		return nil, model.ErrMissingStatus
	}
	target, err := model.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	return s.move(ctx, id, req.Note, func(current model.Status) (model.Status, error) {
		return target, nil
	})
}

// Advance moves an order one step forward in the pipeline.
func (s *purchaseOrderService) Advance(ctx context.Context, id uuid.UUID, note *string) (*model.PurchaseOrder, error) {
	return s.move(ctx, id, note, func(current model.Status) (model.Status, error) {
		next, ok := current.Next()
		if !ok {
			return "", fmt.Errorf("%w: %s is the final status", model.ErrInvalidTransition, current)
		}
		return next, nil
	})
}

// Revert moves an order one step back in the pipeline.
func (s *purchaseOrderService) Revert(ctx context.Context, id uuid.UUID, note *string) (*model.PurchaseOrder, error) {
	return s.move(ctx, id, note, func(current model.Status) (model.Status, error) {
		prev, ok := current.Previous()
		if !ok {
			return "", fmt.Errorf("%w: %s is the initial status", model.ErrInvalidTransition, current)
		}
		return prev, nil
	})
}

// move locks the order, picks the target status from the current one and
// applies the transition.
func (s *purchaseOrderService) move(
	ctx context.Context,
	id uuid.UUID,
	note *string,
	target func(current model.Status) (model.Status, error),
) (*model.PurchaseOrder, error) {
	err := s.inTx(ctx, "update purchase order status", func(tx pgx.Tx) error {
		order, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}

		to, err := target(order.Status)
		if err != nil {
			return err
		}

		changed, err := s.transition(ctx, tx, order, to, note)
		if err != nil || !changed {
			return err
		}
		return s.repo.UpdateStatus(ctx, tx, order.ID, order.Status, order.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// transition checks the move against the policy, records it in the history
// and sets the new status on order. Moving to the current status is a no-op.
func (s *purchaseOrderService) transition(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder, to model.Status, note *string) (bool, error) {
	from := order.Status
	if from == to {
		s.logger.Debug().
			Str("order_id", order.ID.String()).
			Str("status", string(to)).
			Msg("status unchanged")
		return false, nil
	}

	if !s.policy.Allows(from, to) {
		s.logger.Warn().
			Str("order_id", order.ID.String()).
			Str("from", string(from)).
			Str("to", string(to)).
			Str("policy", string(s.policy)).
			Msg("status transition rejected")
		return false, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
	}

	now := s.now()
	entry := &model.HistoryEntry{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PreviousStatus: &from,
		NewStatus:      to,
		MovedAt:        now,
		Note:           normaliseText(note),
	}
	if err := s.repo.AppendHistory(ctx, tx, entry); err != nil {
		return false, err
	}

	order.Status = to
	order.UpdatedAt = now

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("purchase order status changed")

	return true, nil
}

// Update applies a partial update.
func (s *purchaseOrderService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateRequest) (*model.PurchaseOrder, error) {
	if req == nil || !req.HasChanges() {
		return nil, model.ErrEmptyUpdate
	}
	if req.Value != nil && !model.ValidAmount(*req.Value) {
		return nil, model.ErrInvalidValue
	}
	if req.OrderDate != nil && req.OrderDate.IsZero() {
		return nil, model.ErrMissingOrderDate
	}

	var target *model.Status
	if req.Status != nil {
		st, err := model.ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		target = &st
	}

	replaceItems := len(req.Items) > 0
	if replaceItems {
		if err := s.validateItems(ctx, req.Items); err != nil {
			return nil, err
		}
	}

	err := s.inTx(ctx, "update purchase order", func(tx pgx.Tx) error {
		order, err := s.repo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return model.ErrOrderNotFound
		}

		if req.Supplier != nil {
			order.Supplier = normaliseText(req.Supplier)
		}
		if req.Value != nil {
			order.Value = *req.Value
		}
		if req.OrderDate != nil {
			order.OrderDate = *req.OrderDate
		}
		if req.ExpectedDelivery != nil {
			order.ExpectedDelivery = nonZeroDate(req.ExpectedDelivery)
		}
		if req.Notes != nil {
			order.Notes = normaliseText(req.Notes)
		}
		if target != nil {
			if _, err := s.transition(ctx, tx, order, *target, req.Note); err != nil {
				return err
			}
		}
		order.UpdatedAt = s.now()

		if err := s.repo.Update(ctx, tx, order); err != nil {
			return err
		}

		if replaceItems {
			removed, err := s.repo.DeleteItems(ctx, tx, order.ID)
			if err != nil {
				return err
			}
			items := buildItems(order.ID, req.Items)
			if err := s.repo.CreateItems(ctx, tx, items); err != nil {
				return err
			}
			s.logger.Debug().
				Str("order_id", order.ID.String()).
				Int64("removed", removed).
				Int("added", len(items)).
				Msg("purchase order items replaced")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", id.String()).
		Bool("items_replaced", replaceItems).
		Msg("purchase order updated successfully")

	return s.GetByID(ctx, id)
}

// Delete removes an order together with its items and history.
func (s *purchaseOrderService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete purchase order")
		return fmt.Errorf("failed to delete purchase order: %w", err)
	}
	if !deleted {
		return model.ErrOrderNotFound
	}

	s.logger.Info().Str("order_id", id.String()).Msg("purchase order deleted")
	return nil
}

// History lists the status transitions of an order. Unknown orders have none.
func (s *purchaseOrderService) History(ctx context.Context, id uuid.UUID, page model.Page) ([]model.HistoryEntry, error) {
	page, err := model.NewPage(page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.ListHistory(ctx, id, page)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to list purchase order history")
		return nil, fmt.Errorf("failed to list purchase order history: %w", err)
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	return entries, nil
}

// Metrics aggregates order values by pipeline stage.
func (s *purchaseOrderService) Metrics(ctx context.Context) (*model.FinancialMetrics, error) {
	totals, err := s.repo.StatusTotals(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to compute purchase order metrics")
		return nil, fmt.Errorf("failed to compute purchase order metrics: %w", err)
	}

	metrics := model.ComputeMetrics(totals)
	return &metrics, nil
}

// inTx runs fn inside a transaction, rolling back when fn or the commit fails.
func (s *purchaseOrderService) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("operation", op).Msg("failed to begin transaction")
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Str("operation", op).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("operation", op).Msg("failed to commit transaction")
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	return nil
}

// validateItems checks every item and, when a catalogue is configured, its SKU.
func (s *purchaseOrderService) validateItems(ctx context.Context, items []model.ItemRequest) error {
	skus := make([]string, 0, len(items))
	for i, item := range items {
		item.SKU = strings.TrimSpace(item.SKU)
		if err := item.Validate(); err != nil {
			s.logger.Warn().
				Int("item_index", i).
				Str("sku", item.SKU).
				Int("quantity", item.Quantity).
				Str("unit_price", item.UnitPrice.String()).
				Msg("invalid purchase order item")
			return err
		}
		skus = append(skus, item.SKU)
	}

	if s.validator == nil || len(skus) == 0 {
		return nil
	}
	if err := s.validator.Validate(ctx, skus); err != nil {
		s.logger.Warn().Err(err).Int("sku_count", len(skus)).Msg("catalogue check failed")
		return err
	}
	return nil
}

// buildItems assigns fresh ids to the requested items in request order.
func buildItems(orderID uuid.UUID, reqs []model.ItemRequest) []model.PurchaseOrderItem {
	items := make([]model.PurchaseOrderItem, len(reqs))
	for i, r := range reqs {
		items[i] = model.PurchaseOrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			SKU:       strings.TrimSpace(r.SKU),
			Quantity:  r.Quantity,
			UnitPrice: r.UnitPrice,
		}
	}
	return items
}

// normaliseText trims s and maps blank input to nil.
func normaliseText(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

func nonZeroDate(d *model.Date) *model.Date {
	if d == nil || d.IsZero() {
		return nil
	}
	return d
}
