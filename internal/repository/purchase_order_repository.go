package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"po-pipeline/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const orderColumns = `id, supplier, value, order_date, expected_delivery, notes, status, created_at, updated_at`

// purchaseOrderRepository implements the PurchaseOrderRepository interface using PostgreSQL.
type purchaseOrderRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewPurchaseOrderRepository creates a new PostgreSQL-backed purchase order repository.
func NewPurchaseOrderRepository(db DB, logger zerolog.Logger) PurchaseOrderRepository {
	return &purchaseOrderRepository{
		db:     db,
		logger: logger.With().Str("repository", "purchase_order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *purchaseOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Create inserts a new order row within the provided transaction.
func (r *purchaseOrderRepository) Create(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder) error {
	query := `
		INSERT INTO purchase_orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := tx.Exec(ctx, query,
		order.ID,
		order.Supplier,
		order.Value,
		order.OrderDate.Time,
		dateArg(order.ExpectedDelivery),
		order.Notes,
		string(order.Status),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create purchase order")
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Msg("purchase order created")

	return nil
}

// CreateItems inserts order items within the provided transaction.
func (r *purchaseOrderRepository) CreateItems(ctx context.Context, tx pgx.Tx, items []model.PurchaseOrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO purchase_order_items (id, order_id, line_no, sku, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(query, item.ID, item.OrderID, i+1, item.SKU, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("sku", items[i].SKU).
				Msg("failed to create purchase order item")
			return fmt.Errorf("failed to create purchase order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("purchase order items created")

	return nil
}

// DeleteItems removes every item of an order and returns how many were removed.
func (r *purchaseOrderRepository) DeleteItems(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE order_id = $1`, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to delete purchase order items")
		return 0, fmt.Errorf("failed to delete purchase order items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetByID retrieves an order with its items.
func (r *purchaseOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1`

	order, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("purchase order not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query purchase order")
		return nil, fmt.Errorf("failed to query purchase order: %w", err)
	}

	items, err := r.itemsFor(ctx, r.db, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	order.Items = nonNilItems(items[id])

	return order, nil
}

// GetForUpdate retrieves an order row and locks it until the transaction ends.
func (r *purchaseOrderRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1 FOR UPDATE`

	order, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock purchase order")
		return nil, fmt.Errorf("failed to lock purchase order: %w", err)
	}
	return order, nil
}

// List retrieves orders with their items, most recent order date first.
func (r *purchaseOrderRepository) List(ctx context.Context, filter model.ListFilter) ([]model.PurchaseOrder, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Supplier != "" {
		args = append(args, "%"+escapeLike(filter.Supplier)+"%")
		conditions = append(conditions, "supplier ILIKE $"+strconv.Itoa(len(args)))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + orderColumns + ` FROM purchase_orders`)
	if len(conditions) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY order_date DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.db.Query(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query purchase orders")
		return nil, fmt.Errorf("failed to query purchase orders: %w", err)
	}
	defer rows.Close()

	orders := []model.PurchaseOrder{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan purchase order row")
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating purchase order rows")
		return nil, fmt.Errorf("error iterating purchase orders: %w", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}
	items, err := r.itemsFor(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = nonNilItems(items[orders[i].ID])
	}

	return orders, nil
}

// Update writes every mutable column of an order.
func (r *purchaseOrderRepository) Update(ctx context.Context, tx pgx.Tx, order *model.PurchaseOrder) error {
	query := `
		UPDATE purchase_orders
		SET supplier = $2, value = $3, order_date = $4, expected_delivery = $5,
		    notes = $6, status = $7, updated_at = $8
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, query,
		order.ID,
		order.Supplier,
		order.Value,
		order.OrderDate.Time,
		dateArg(order.ExpectedDelivery),
		order.Notes,
		string(order.Status),
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to update purchase order")
		return fmt.Errorf("failed to update purchase order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// UpdateStatus writes only the status of an order.
func (r *purchaseOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.Status, at time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE purchase_orders SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Str("status", string(status)).
			Msg("failed to update purchase order status")
		return fmt.Errorf("failed to update purchase order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// Delete removes an order. Items and history are removed by ON DELETE CASCADE.
func (r *purchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete purchase order")
		return false, fmt.Errorf("failed to delete purchase order: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// AppendHistory records one status transition.
func (r *purchaseOrderRepository) AppendHistory(ctx context.Context, tx pgx.Tx, entry *model.HistoryEntry) error {
	query := `
		INSERT INTO purchase_order_history (id, order_id, previous_status, new_status, moved_at, note)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	var previous *string
	if entry.PreviousStatus != nil {
		p := string(*entry.PreviousStatus)
		previous = &p
	}

	_, err := tx.Exec(ctx, query,
		entry.ID,
		entry.OrderID,
		previous,
		string(entry.NewStatus),
		entry.MovedAt,
		entry.Note,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", entry.OrderID.String()).
			Str("new_status", string(entry.NewStatus)).
			Msg("failed to append purchase order history")
		return fmt.Errorf("failed to append purchase order history: %w", err)
	}
	return nil
}

// ListHistory retrieves the transitions of an order, most recent first.
func (r *purchaseOrderRepository) ListHistory(ctx context.Context, orderID uuid.UUID, page model.Page) ([]model.HistoryEntry, error) {
	query := `
		SELECT id, order_id, previous_status, new_status, moved_at, note
		FROM purchase_order_history
		WHERE order_id = $1
		ORDER BY moved_at DESC, seq DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, orderID, page.Limit, page.Offset)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to query purchase order history")
		return nil, fmt.Errorf("failed to query purchase order history: %w", err)
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var (
			e        model.HistoryEntry
			previous *string
			next     string
		)
		if err := rows.Scan(&e.ID, &e.OrderID, &previous, &next, &e.MovedAt, &e.Note); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan purchase order history row")
			return nil, fmt.Errorf("failed to scan purchase order history: %w", err)
		}
		if previous != nil {
			p := model.Status(*previous)
			e.PreviousStatus = &p
		}
		e.NewStatus = model.Status(next)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating purchase order history rows")
		return nil, fmt.Errorf("error iterating purchase order history: %w", err)
	}

	return entries, nil
}

// StatusTotals returns order count and summed value per status.
func (r *purchaseOrderRepository) StatusTotals(ctx context.Context) ([]model.StatusTotal, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(value), 0)
		FROM purchase_orders
		GROUP BY status
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query purchase order totals")
		return nil, fmt.Errorf("failed to query purchase order totals: %w", err)
	}
	defer rows.Close()

	var totals []model.StatusTotal
	for rows.Next() {
		var (
			t      model.StatusTotal
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count, &t.Value); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan purchase order totals row")
			return nil, fmt.Errorf("failed to scan purchase order totals: %w", err)
		}
		t.Status = model.Status(status)
		t.Count = int(count)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating purchase order totals: %w", err)
	}

	return totals, nil
}

// itemsFor loads the items of the given orders keyed by order id.
func (r *purchaseOrderRepository) itemsFor(ctx context.Context, q querier, orderIDs []uuid.UUID) (map[uuid.UUID][]model.PurchaseOrderItem, error) {
	ids := make([]string, len(orderIDs))
	for i, id := range orderIDs {
		ids[i] = id.String()
	}

	query := `
		SELECT id, order_id, sku, quantity, unit_price
		FROM purchase_order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY order_id, line_no
	`

	rows, err := q.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("order_count", len(ids)).Msg("failed to query purchase order items")
		return nil, fmt.Errorf("failed to query purchase order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]model.PurchaseOrderItem, len(orderIDs))
	for rows.Next() {
		var item model.PurchaseOrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.SKU, &item.Quantity, &item.UnitPrice); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan purchase order item row")
			return nil, fmt.Errorf("failed to scan purchase order item: %w", err)
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating purchase order item rows")
		return nil, fmt.Errorf("error iterating purchase order items: %w", err)
	}

	return items, nil
}

func scanOrder(row pgx.Row) (*model.PurchaseOrder, error) {
	var (
		o         model.PurchaseOrder
		orderDate time.Time
		expected  *time.Time
		status    string
	)
	err := row.Scan(
		&o.ID,
		&o.Supplier,
		&o.Value,
		&orderDate,
		&expected,
		&o.Notes,
		&status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.OrderDate = model.NewDate(orderDate)
	if expected != nil {
		d := model.NewDate(*expected)
		o.ExpectedDelivery = &d
	}
	o.Status = model.Status(status)
	return &o, nil
}

func dateArg(d *model.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}

func nonNilItems(items []model.PurchaseOrderItem) []model.PurchaseOrderItem {
	if items == nil {
		return []model.PurchaseOrderItem{}
	}
	return items
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
