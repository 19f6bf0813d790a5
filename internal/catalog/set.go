package catalog

import (
	"strings"
	"unicode/utf8"

	"po-pipeline/internal/model"
)

// skuSet holds the SKUs of one catalogue file.
type skuSet struct {
	skus    map[string]struct{}
	skipped int
}

func newSKUSet(capacity int) *skuSet {
	return &skuSet{skus: make(map[string]struct{}, capacity)}
}

// add records one catalogue line. Comment lines starting with '#' are
// ignored, and SKUs no order item could carry are counted as skipped.
func (s *skuSet) add(line string) {
	sku := strings.TrimSpace(line)
	if sku == "" || strings.HasPrefix(sku, "#") {
		return
	}
	if utf8.RuneCountInString(sku) > model.MaxSKULength {
		s.skipped++
		return
	}
	s.skus[sku] = struct{}{}
}

// Contains reports whether sku is listed. Lookups are case-sensitive.
func (s *skuSet) Contains(sku string) bool {
	_, ok := s.skus[sku]
	return ok
}

// Size returns the number of distinct SKUs.
func (s *skuSet) Size() int {
	return len(s.skus)
}

// Skipped returns how many lines were too long to be a SKU.
func (s *skuSet) Skipped() int {
	return s.skipped
}
