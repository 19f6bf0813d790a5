package catalog

import (
	"context"
)

// Validator checks purchase order SKUs against the stock catalogue.
type Validator interface {
	// Validate returns an error wrapping model.ErrUnknownSKU naming every SKU
	// that does not appear in at least MinMatchCount catalogue files.
	Validate(ctx context.Context, skus []string) error

	// Close releases resources held by the validator.
	Close() error
}

// SKUSet is a read-only set of catalogue SKUs.
type SKUSet interface {
	// Contains checks if a SKU exists in the set.
	Contains(sku string) bool

	// Size returns the number of SKUs in the set.
	Size() int
}

// Loader reads one catalogue file.
type Loader interface {
	// Load reads a gzipped catalogue file with one SKU per line.
	Load(ctx context.Context, path string) (SKUSet, error)
}
