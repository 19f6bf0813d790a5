package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"po-pipeline/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func mustDate(t *testing.T, s string) model.Date {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

// insertOrder writes an order and its items in one committed transaction.
func insertOrder(t *testing.T, repo PurchaseOrderRepository, order *model.PurchaseOrder) {
	t.Helper()
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	require.NoError(t, repo.Create(ctx, tx, order))
	require.NoError(t, repo.CreateItems(ctx, tx, order.Items))
	require.NoError(t, tx.Commit(ctx))
}

func newOrder(supplier string, value string, date model.Date, status model.Status, skus ...string) *model.PurchaseOrder {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.New()
	items := make([]model.PurchaseOrderItem, len(skus))
	for i, sku := range skus {
		items[i] = model.PurchaseOrderItem{
			ID:        uuid.New(),
			OrderID:   id,
			SKU:       sku,
			Quantity:  i + 1,
			UnitPrice: decimal.RequireFromString("2.50"),
		}
	}
	return &model.PurchaseOrder{
		ID:        id,
		Supplier:  strPtr(supplier),
		Value:     decimal.RequireFromString(value),
		OrderDate: date,
		Status:    status,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTestRepo(t *testing.T) (PurchaseOrderRepository, *pgxpool.Pool, func()) {
	pool, cleanup := setupTestDB(t)
	return NewPurchaseOrderRepository(pool, zerolog.Nop()), pool, cleanup
}

func TestPurchaseOrderRepository_CreateAndGetByID(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	order := newOrder("Acme", "120.50", mustDate(t, "2024-03-01"), model.StatusPlaced, "SKU-B", "SKU-A", "SKU-C")
	expected := mustDate(t, "2024-04-15")
	order.ExpectedDelivery = &expected
	order.Notes = strPtr("urgent")
	insertOrder(t, repo, order)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, "Acme", *got.Supplier)
	assert.True(t, order.Value.Equal(got.Value))
	assert.Equal(t, "2024-03-01", got.OrderDate.String())
	require.NotNil(t, got.ExpectedDelivery)
	assert.Equal(t, "2024-04-15", got.ExpectedDelivery.String())
	assert.Equal(t, "urgent", *got.Notes)
	assert.Equal(t, model.StatusPlaced, got.Status)

	require.Len(t, got.Items, 3)
	// Items come back in insertion order.
	assert.Equal(t, "SKU-B", got.Items[0].SKU)
	assert.Equal(t, "SKU-A", got.Items[1].SKU)
	assert.Equal(t, "SKU-C", got.Items[2].SKU)
	assert.Equal(t, 2, got.Items[1].Quantity)
	assert.True(t, decimal.RequireFromString("2.50").Equal(got.Items[0].UnitPrice))
}

func TestPurchaseOrderRepository_GetByID_NotFound(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	got, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPurchaseOrderRepository_GetByID_NoItems(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	order := newOrder("Acme", "0", mustDate(t, "2024-03-01"), model.StatusPlaced)
	order.Supplier = nil
	insertOrder(t, repo, order)

	got, err := repo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Supplier)
	assert.Nil(t, got.ExpectedDelivery)
	assert.NotNil(t, got.Items)
	assert.Empty(t, got.Items)
}

func TestPurchaseOrderRepository_CreateItems_RollsBackWithOrder(t *testing.T) {
	repo, pool, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	order := newOrder("Acme", "10", mustDate(t, "2024-03-01"), model.StatusPlaced, "OK", strings.Repeat("X", 65))

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, order))

	err = repo.CreateItems(ctx, tx, order.Items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create purchase order item")
	require.NoError(t, tx.Rollback(ctx))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders`).Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_order_items`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestPurchaseOrderRepository_List(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	a := newOrder("Acme Parts", "100", mustDate(t, "2024-01-10"), model.StatusPlaced, "A1")
	b := newOrder("Globex", "200", mustDate(t, "2024-03-10"), model.StatusInTransit, "B1", "B2")
	c := newOrder("acme_tools", "300", mustDate(t, "2024-02-10"), model.StatusInTransit)
	d := newOrder("100% Steel", "400", mustDate(t, "2024-04-10"), model.StatusReceived)
	for _, o := range []*model.PurchaseOrder{a, b, c, d} {
		insertOrder(t, repo, o)
	}

	inTransit := model.StatusInTransit

	tests := []struct {
		name     string
		filter   model.ListFilter
		expected []uuid.UUID
	}{
		{
			name:     "All orders newest order date first",
			filter:   model.ListFilter{Page: model.Page{Limit: 50}},
			expected: []uuid.UUID{d.ID, b.ID, c.ID, a.ID},
		},
		{
			name:     "Status filter",
			filter:   model.ListFilter{Status: &inTransit, Page: model.Page{Limit: 50}},
			expected: []uuid.UUID{b.ID, c.ID},
		},
		{
			name:     "Supplier filter is case-insensitive substring",
			filter:   model.ListFilter{Supplier: "ACME", Page: model.Page{Limit: 50}},
			expected: []uuid.UUID{c.ID, a.ID},
		},
		{
			name:     "Supplier filter treats underscore literally",
			filter:   model.ListFilter{Supplier: "acme_", Page: model.Page{Limit: 50}},
			expected: []uuid.UUID{c.ID},
		},
		{
			name:     "Supplier filter treats percent literally",
			filter:   model.ListFilter{Supplier: "0%", Page: model.Page{Limit: 50}},
			expected: []uuid.UUID{d.ID},
		},
		{
			name:     "Combined filters",
			filter:   model.ListFilter{Status: &inTransit, Supplier: "glob", Page: model.Page{Limit: 50}},
			expected: []uuid.UUID{b.ID},
		},
		{
			name:     "Pagination",
			filter:   model.ListFilter{Page: model.Page{Limit: 2, Offset: 1}},
			expected: []uuid.UUID{b.ID, c.ID},
		},
		{
			name:     "Offset past end",
			filter:   model.ListFilter{Page: model.Page{Limit: 2, Offset: 10}},
			expected: []uuid.UUID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			require.NotNil(t, orders)

			ids := make([]uuid.UUID, len(orders))
			for i, o := range orders {
				ids[i] = o.ID
				assert.NotNil(t, o.Items)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}

	orders, err := repo.List(ctx, model.ListFilter{Supplier: "Globex", Page: model.Page{Limit: 50}})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, "B1", orders[0].Items[0].SKU)
	assert.Equal(t, "B2", orders[0].Items[1].SKU)
}

func TestPurchaseOrderRepository_UpdateAndReplaceItems(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	order := newOrder("Acme", "100", mustDate(t, "2024-01-10"), model.StatusPlaced, "OLD-1", "OLD-2")
	insertOrder(t, repo, order)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	locked, err := repo.GetForUpdate(ctx, tx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, locked)
	assert.Empty(t, locked.Items)

	locked.Supplier = strPtr("Globex")
	locked.Value = decimal.RequireFromString("99.99")
	locked.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, tx, locked))

	removed, err := repo.DeleteItems(ctx, tx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	newItems := []model.PurchaseOrderItem{
		{ID: uuid.New(), OrderID: order.ID, SKU: "NEW-1", Quantity: 3, UnitPrice: decimal.RequireFromString("1.10")},
	}
	require.NoError(t, repo.CreateItems(ctx, tx, newItems))
	require.NoError(t, tx.Commit(ctx))

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Globex", *got.Supplier)
	assert.Equal(t, "99.99", got.Value.StringFixed(2))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "NEW-1", got.Items[0].SKU)
	assert.Equal(t, newItems[0].ID, got.Items[0].ID)
}

func TestPurchaseOrderRepository_Update_NotFound(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	missing := newOrder("Acme", "1", mustDate(t, "2024-01-10"), model.StatusPlaced)
	assert.ErrorIs(t, repo.Update(ctx, tx, missing), model.ErrOrderNotFound)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, tx, missing.ID, model.StatusCustoms, time.Now()), model.ErrOrderNotFound)

	locked, err := repo.GetForUpdate(ctx, tx, missing.ID)
	require.NoError(t, err)
	assert.Nil(t, locked)
}

func TestPurchaseOrderRepository_StatusAndHistory(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	order := newOrder("Acme", "100", mustDate(t, "2024-01-10"), model.StatusPlaced)
	insertOrder(t, repo, order)

	// Same timestamp for every entry to check the tie-break on insertion order.
	movedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	steps := []model.Status{model.StatusManufacturing, model.StatusInTransit, model.StatusCustoms}
	previous := model.StatusPlaced
	for _, next := range steps {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)

		require.NoError(t, repo.UpdateStatus(ctx, tx, order.ID, next, movedAt))
		prev := previous
		require.NoError(t, repo.AppendHistory(ctx, tx, &model.HistoryEntry{
			ID:             uuid.New(),
			OrderID:        order.ID,
			PreviousStatus: &prev,
			NewStatus:      next,
			MovedAt:        movedAt,
			Note:           strPtr("moved to " + string(next)),
		}))
		require.NoError(t, tx.Commit(ctx))
		previous = next
	}

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCustoms, got.Status)

	history, err := repo.ListHistory(ctx, order.ID, model.Page{Limit: 50})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.StatusCustoms, history[0].NewStatus)
	assert.Equal(t, model.StatusInTransit, *history[0].PreviousStatus)
	assert.Equal(t, model.StatusInTransit, history[1].NewStatus)
	assert.Equal(t, model.StatusManufacturing, history[2].NewStatus)
	assert.Equal(t, model.StatusPlaced, *history[2].PreviousStatus)
	assert.Equal(t, "moved to fabricacao", *history[2].Note)

	page, err := repo.ListHistory(ctx, order.ID, model.Page{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, model.StatusInTransit, page[0].NewStatus)

	none, err := repo.ListHistory(ctx, uuid.New(), model.Page{Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPurchaseOrderRepository_Delete(t *testing.T) {
	repo, pool, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()
	order := newOrder("Acme", "100", mustDate(t, "2024-01-10"), model.StatusPlaced, "A", "B")
	insertOrder(t, repo, order)

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.AppendHistory(ctx, tx, &model.HistoryEntry{
		ID:        uuid.New(),
		OrderID:   order.ID,
		NewStatus: model.StatusPlaced,
		MovedAt:   time.Now(),
	}))
	require.NoError(t, tx.Commit(ctx))

	deleted, err := repo.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_order_items WHERE order_id = $1`, order.ID).Scan(&count))
	assert.Equal(t, 0, count)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_order_history WHERE order_id = $1`, order.ID).Scan(&count))
	assert.Equal(t, 0, count)

	deleted, err = repo.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPurchaseOrderRepository_StatusTotals(t *testing.T) {
	repo, _, cleanup := newTestRepo(t)
	defer cleanup()

	ctx := context.Background()

	totals, err := repo.StatusTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, totals)

	orders := []*model.PurchaseOrder{
		newOrder("A", "100", mustDate(t, "2024-01-01"), model.StatusPlaced),
		newOrder("B", "200", mustDate(t, "2024-01-01"), model.StatusManufacturing),
		newOrder("C", "300", mustDate(t, "2024-01-01"), model.StatusInTransit),
		newOrder("D", "400", mustDate(t, "2024-01-01"), model.StatusCustoms),
		newOrder("E", "500", mustDate(t, "2024-01-01"), model.StatusReceived),
		newOrder("F", "0.10", mustDate(t, "2024-01-01"), model.StatusPlaced),
	}
	for _, o := range orders {
		insertOrder(t, repo, o)
	}

	totals, err = repo.StatusTotals(ctx)
	require.NoError(t, err)

	byStatus := map[model.Status]model.StatusTotal{}
	for _, st := range totals {
		byStatus[st.Status] = st
	}
	require.Len(t, byStatus, 5)
	assert.Equal(t, 2, byStatus[model.StatusPlaced].Count)
	assert.Equal(t, "100.10", byStatus[model.StatusPlaced].Value.StringFixed(2))
	assert.Equal(t, "500.00", byStatus[model.StatusReceived].Value.StringFixed(2))

	metrics := model.ComputeMetrics(totals)
	assert.Equal(t, "100.10", metrics.Placed.StringFixed(2))
	assert.Equal(t, "900.00", metrics.InTransit.StringFixed(2))
	assert.Equal(t, "500.00", metrics.Received.StringFixed(2))
	assert.Equal(t, "1000.10", metrics.Pending.StringFixed(2))
	assert.Equal(t, "1500.10", metrics.GrandTotal.StringFixed(2))
}
