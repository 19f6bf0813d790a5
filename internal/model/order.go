package model

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrder represents a supplier order tracked through the status pipeline.
type PurchaseOrder struct {
	ID               uuid.UUID           `json:"id" db:"id"`
	Supplier         *string             `json:"supplier" db:"supplier"`
	Value            decimal.Decimal     `json:"value" db:"value"`
	OrderDate        Date                `json:"orderDate" db:"order_date"`
	ExpectedDelivery *Date               `json:"expectedDelivery" db:"expected_delivery"`
	Notes            *string             `json:"notes" db:"notes"`
	Status           Status              `json:"status" db:"status"`
	Items            []PurchaseOrderItem `json:"items"`
	CreatedAt        time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time           `json:"updatedAt" db:"updated_at"`
}

// PurchaseOrderItem represents a line on a purchase order.
type PurchaseOrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"-" db:"order_id"`
	SKU       string          `json:"sku" db:"sku"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice" db:"unit_price"`
}

// Subtotal returns quantity times unit price.
func (i PurchaseOrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HistoryEntry is an immutable record of one status transition.
type HistoryEntry struct {
	ID             uuid.UUID `json:"id" db:"id"`
	OrderID        uuid.UUID `json:"orderId" db:"order_id"`
	PreviousStatus *Status   `json:"previousStatus" db:"previous_status"`
	NewStatus      Status    `json:"newStatus" db:"new_status"`
	MovedAt        time.Time `json:"movedAt" db:"moved_at"`
	Note           *string   `json:"note,omitempty" db:"note"`
}

// ItemRequest represents a single item in a create or update request.
type ItemRequest struct {
	SKU       string          `json:"sku"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Storage limits of the purchase order columns.
const (
	MaxSKULength = 64
	MaxQuantity  = math.MaxInt32
	// AmountScale is the number of decimal places kept for money.
	AmountScale = 2
)

// maxAmount is the exclusive upper bound of a NUMERIC(14,2) amount.
var maxAmount = decimal.New(1, 12)

// ValidAmount reports whether d is a non-negative amount that the store holds
// exactly: at most AmountScale decimal places and below 10^12. Amounts with
// more places are rejected rather than rounded.
func ValidAmount(d decimal.Decimal) bool {
	if d.IsNegative() || !d.LessThan(maxAmount) {
		return false
	}
	return d.Equal(d.Round(AmountScale))
}

// Validate checks the item has a SKU of at most MaxSKULength characters, a
// quantity between 1 and MaxQuantity and a storable unit price.
func (r ItemRequest) Validate() error {
	if r.SKU == "" || utf8.RuneCountInString(r.SKU) > MaxSKULength {
		return ErrInvalidItem
	}
	if r.Quantity <= 0 || r.Quantity > MaxQuantity {
		return ErrInvalidItem
	}
	if !ValidAmount(r.UnitPrice) {
		return ErrInvalidItem
	}
	return nil
}

// CreateRequest represents the request payload for creating a purchase order.
type CreateRequest struct {
	Supplier         *string          `json:"supplier,omitempty"`
	Value            *decimal.Decimal `json:"value,omitempty"`
	OrderDate        *Date            `json:"orderDate"`
	ExpectedDelivery *Date            `json:"expectedDelivery,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	Items            []ItemRequest    `json:"items"`
}

// UpdateRequest represents a partial update. Nil fields are left unchanged.
// A non-empty Items list replaces every existing item of the order.
type UpdateRequest struct {
	Supplier         *string          `json:"supplier,omitempty"`
	Value            *decimal.Decimal `json:"value,omitempty"`
	OrderDate        *Date            `json:"orderDate,omitempty"`
	ExpectedDelivery *Date            `json:"expectedDelivery,omitempty"`
	Notes            *string          `json:"notes,omitempty"`
	Status           *string          `json:"status,omitempty"`
	Items            []ItemRequest    `json:"items,omitempty"`
	Note             *string          `json:"note,omitempty"`
}

// HasChanges reports whether the request carries at least one field to write.
func (r *UpdateRequest) HasChanges() bool {
	return r.Supplier != nil || r.Value != nil || r.OrderDate != nil ||
		r.ExpectedDelivery != nil || r.Notes != nil || r.Status != nil || len(r.Items) > 0
}

// StatusRequest is the payload of a direct status write.
type StatusRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note,omitempty"`
}

// StepRequest is the optional payload of an advance or revert call.
type StepRequest struct {
	Note *string `json:"note,omitempty"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	Success bool      `json:"success"`
	ID      uuid.UUID `json:"id"`
}

// ListFilter narrows list queries.
type ListFilter struct {
	Status   *Status
	Supplier string
	Page     Page
}

// Pagination bounds.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Page is a limit/offset window.
type Page struct {
	Limit  int
	Offset int
}

// NewPage normalises a limit/offset pair. A zero limit selects the default and
// limits above MaxPageLimit are clamped.
func NewPage(limit, offset int) (Page, error) {
	if limit < 0 || offset < 0 {
		return Page{}, ErrInvalidPagination
	}
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Page{Limit: limit, Offset: offset}, nil
}

// ItemsTotal sums the subtotals of the requested items.
func ItemsTotal(items []ItemRequest) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}
