package handler

import (
	"context"
	"net/http"
	"strings"

	"po-pipeline/internal/model"
	"po-pipeline/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// PurchaseOrderHandler handles purchase order HTTP requests.
type PurchaseOrderHandler struct {
	service service.PurchaseOrderService
	logger  zerolog.Logger
}

// NewPurchaseOrderHandler creates a new purchase order handler.
func NewPurchaseOrderHandler(service service.PurchaseOrderService, logger zerolog.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "purchase_order").Logger(),
	}
}

// Create handles POST /api/purchase-orders.
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error(), h.logger)
		return
	}

	order, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, "failed to create purchase order", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /api/purchase-orders.
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error(), h.logger)
		return
	}

	filter := model.ListFilter{
		Supplier: strings.TrimSpace(r.URL.Query().Get("supplier")),
		Page:     page,
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request", err.Error(), h.logger)
			return
		}
		filter.Status = &status
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "failed to list purchase orders", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// Metrics handles GET /api/purchase-orders/metrics.
func (h *PurchaseOrderHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.service.Metrics(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to compute purchase order metrics", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

// History handles GET /api/purchase-orders/{id}/history.
func (h *PurchaseOrderHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID format", err.Error(), h.logger)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error(), h.logger)
		return
	}

	entries, err := h.service.History(r.Context(), id, page)
	if err != nil {
		writeServiceError(w, err, "failed to list purchase order history", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// GetByID handles GET /api/purchase-orders/{id}.
func (h *PurchaseOrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID format", err.Error(), h.logger)
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to retrieve purchase order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/purchase-orders/{id}/status.
func (h *PurchaseOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID format", err.Error(), h.logger)
		return
	}

	var req model.StatusRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error(), h.logger)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err, "failed to update purchase order status", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Advance handles POST /api/purchase-orders/{id}/advance.
func (h *PurchaseOrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.Advance, "failed to advance purchase order")
}

// Revert handles POST /api/purchase-orders/{id}/revert.
func (h *PurchaseOrderHandler) Revert(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.service.Revert, "failed to revert purchase order")
}

// stepFunc moves an order one pipeline step.
type stepFunc func(ctx context.Context, id uuid.UUID, note *string) (*model.PurchaseOrder, error)

func (h *PurchaseOrderHandler) step(w http.ResponseWriter, r *http.Request, move stepFunc, summary string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID format", err.Error(), h.logger)
		return
	}

	var req model.StepRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error(), h.logger)
		return
	}

	order, err := move(r.Context(), id, req.Note)
	if err != nil {
		writeServiceError(w, err, summary, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Update handles PUT /api/purchase-orders/{id}.
func (h *PurchaseOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID format", err.Error(), h.logger)
		return
	}

	var req model.UpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error(), h.logger)
		return
	}

	order, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, err, "failed to update purchase order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/purchase-orders/{id}.
func (h *PurchaseOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid purchase order ID format", err.Error(), h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to delete purchase order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, model.DeleteResponse{Success: true, ID: id})
}
