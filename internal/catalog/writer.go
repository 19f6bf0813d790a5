package catalog

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile writes skus to path as a gzipped catalogue, one SKU per line.
// Missing parent directories are created.
func WriteFile(path string, skus []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalogue directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create catalogue file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	for _, sku := range skus {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", sku); err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to write sku: %w", err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush catalogue file: %w", err)
	}
	return file.Close()
}

// SampleCatalogues is a small fixture set used by the sample command.
// With a min match of 2 the valid SKUs are BOLT-M8, NUT-M8, WASHER-8,
// SCREW-4X40 and ANCHOR-10; the rest appear in one file only.
var SampleCatalogues = map[string][]string{
	"catalog1.gz": {"BOLT-M8", "NUT-M8", "WASHER-8", "ONLY-ONE-1", "SCREW-4X40"},
	"catalog2.gz": {"BOLT-M8", "NUT-M8", "WASHER-8", "ONLY-TWO-2", "ANCHOR-10"},
	"catalog3.gz": {"ANCHOR-10", "SCREW-4X40", "WASHER-8", "ONLY-THREE-3", "RIVET-5"},
}
