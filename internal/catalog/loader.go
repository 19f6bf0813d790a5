package catalog

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// initialSetCapacity sizes new sets for a typical supplier catalogue.
const initialSetCapacity = 100_000

// fileLoader implements Loader for gzipped catalogue files on local disk.
type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a new file-based catalogue loader.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "catalog-loader").Logger(),
	}
}

// Load reads a gzipped catalogue file and returns its SKUs.
func (l *fileLoader) Load(ctx context.Context, path string) (SKUSet, error) {
	l.logger.Info().Str("file", path).Msg("loading catalogue file")

	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open catalogue file")
		return nil, fmt.Errorf("failed to open catalogue file %s: %w", path, err)
	}
	defer file.Close()

	set, err := readSKUs(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read catalogue file")
		return nil, fmt.Errorf("failed to read catalogue file %s: %w", path, err)
	}

	l.logger.Info().
		Str("file", path).
		Int("skus_loaded", set.Size()).
		Int("skus_skipped", set.Skipped()).
		Msg("catalogue file loaded successfully")

	return set, nil
}

// readSKUs decompresses r and collects one SKU per line.
func readSKUs(ctx context.Context, r io.Reader) (*skuSet, error) {
	gzipReader, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	set := newSKUSet(initialSetCapacity)

	scanner := bufio.NewScanner(gzipReader)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineCount := 0
	for scanner.Scan() {
		if lineCount%100_000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lineCount++

		set.add(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return set, nil
}
