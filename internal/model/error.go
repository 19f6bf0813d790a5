package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Standard error codes for domain errors
const (
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeMissingField       = "MISSING_FIELD"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeInvalidItem        = "INVALID_ITEM"
	ErrCodeInvalidValue       = "INVALID_VALUE"
	ErrCodeInvalidPagination  = "INVALID_PAGINATION"
	ErrCodeUnknownSKU         = "UNKNOWN_SKU"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeUnauthorised       = "UNAUTHORIZED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeInvalidOrderDate   = "INVALID_ORDER_DATE"
	ErrCodeInvalidIdentifier  = "INVALID_IDENTIFIER"
	ErrCodeEmptyUpdatePayload = "EMPTY_UPDATE"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrMissingStatus     = NewDomainError(ErrCodeMissingField, "status is required")
	ErrInvalidStatus     = NewDomainError(ErrCodeInvalidStatus, "status must be one of pedido, fabricacao, transito, alfandega, recebido")
	ErrInvalidTransition = NewDomainError(ErrCodeInvalidTransition, "status transition is not allowed")
	ErrInvalidItem       = NewDomainError(ErrCodeInvalidItem, "items need a sku of at most 64 characters, a quantity between 1 and 2147483647 and a non-negative unit price with at most 2 decimal places below 1000000000000")
	ErrInvalidValue      = NewDomainError(ErrCodeInvalidValue, "value must be a non-negative amount with at most 2 decimal places below 1000000000000")
	ErrMissingOrderDate  = NewDomainError(ErrCodeInvalidOrderDate, "orderDate is required")
	ErrInvalidPagination = NewDomainError(ErrCodeInvalidPagination, "limit and offset must be non-negative")
	ErrUnknownSKU        = NewDomainError(ErrCodeUnknownSKU, "one or more SKUs are not in the stock catalogue")
	ErrOrderNotFound     = NewDomainError(ErrCodeOrderNotFound, "purchase order not found")
	ErrEmptyUpdate       = NewDomainError(ErrCodeEmptyUpdatePayload, "update payload has no fields")
)

// IsValidation reports whether err is a domain error the caller can fix by changing the request.
func IsValidation(err error) bool {
	var de *DomainError
	if !errors.As(err, &de) {
		return false
	}
	switch de.Code {
	case ErrCodeOrderNotFound, ErrCodeInvalidTransition, ErrCodeInternalError:
		return false
	}
	return true
}
