package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"po-pipeline/internal/model"

	"github.com/rs/zerolog"
)

// validator implements Validator over catalogue sets loaded at start-up.
// The sets are read-only after construction.
type validator struct {
	sets          []SKUSet
	minMatchCount int
	logger        zerolog.Logger
}

// ValidatorConfig holds configuration for the catalogue validator.
type ValidatorConfig struct {
	// FilePaths is the list of catalogue files to load.
	FilePaths []string

	// MinMatchCount is how many files a SKU must appear in. Default: 1
	MinMatchCount int
}

// NewValidator loads every catalogue file concurrently and returns a validator.
func NewValidator(ctx context.Context, cfg *ValidatorConfig, loader Loader, logger zerolog.Logger) (Validator, error) {
	if cfg == nil || len(cfg.FilePaths) == 0 {
		return nil, fmt.Errorf("at least one catalogue file is required")
	}

	minMatch := cfg.MinMatchCount
	if minMatch < 1 {
		minMatch = 1
	}
	if minMatch > len(cfg.FilePaths) {
		return nil, fmt.Errorf("min match count %d exceeds catalogue file count %d", minMatch, len(cfg.FilePaths))
	}

	logger = logger.With().Str("component", "catalog-validator").Logger()

	logger.Info().
		Int("file_count", len(cfg.FilePaths)).
		Int("min_match_count", minMatch).
		Msg("initialising catalogue validator")

	type loadResult struct {
		index int
		set   SKUSet
		err   error
	}

	resultChan := make(chan loadResult, len(cfg.FilePaths))
	var wg sync.WaitGroup

	for i, path := range cfg.FilePaths {
		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			set, err := loader.Load(ctx, path)
			resultChan <- loadResult{index: index, set: set, err: err}
		}(i, path)
	}

	wg.Wait()
	close(resultChan)

	results := make([]loadResult, len(cfg.FilePaths))
	for result := range resultChan {
		results[result.index] = result
	}

	v := &validator{
		sets:          make([]SKUSet, 0, len(cfg.FilePaths)),
		minMatchCount: minMatch,
		logger:        logger,
	}

	total := 0
	for i, result := range results {
		if result.err != nil {
			logger.Error().
				Err(result.err).
				Str("file", cfg.FilePaths[i]).
				Msg("failed to load catalogue file")
			return nil, fmt.Errorf("failed to load catalogue file %s: %w", cfg.FilePaths[i], result.err)
		}
		v.sets = append(v.sets, result.set)
		total += result.set.Size()
	}

	logger.Info().
		Int("total_skus", total).
		Msg("catalogue validator initialised successfully")

	return v, nil
}

// Validate checks every SKU and reports all unknown ones in a single error.
func (v *validator) Validate(ctx context.Context, skus []string) error {
	var unknown []string
	seen := make(map[string]struct{}, len(skus))

	for _, sku := range skus {
		if _, dup := seen[sku]; dup {
			continue
		}
		seen[sku] = struct{}{}

		if err := ctx.Err(); err != nil {
			return err
		}
		if matches := v.countMatches(ctx, sku); matches < v.minMatchCount {
			v.logger.Debug().
				Str("sku", sku).
				Int("match_count", matches).
				Msg("sku not found in sufficient catalogue files")
			unknown = append(unknown, sku)
		}
	}

	if len(unknown) > 0 {
		return fmt.Errorf("%w: %s", model.ErrUnknownSKU, strings.Join(unknown, ", "))
	}
	return nil
}

// countMatches counts how many catalogue sets contain sku, stopping as soon
// as the outcome against minMatchCount is decided.
func (v *validator) countMatches(ctx context.Context, sku string) int {
	if len(v.sets) == 1 {
		if v.sets[0].Contains(sku) {
			return 1
		}
		return 0
	}

	// Buffered so workers never block after an early return.
	resultChan := make(chan bool, len(v.sets))
	doneChan := make(chan struct{})
	defer close(doneChan)

	for _, set := range v.sets {
		go func(s SKUSet) {
			select {
			case <-doneChan:
				return
			case <-ctx.Done():
				return
			default:
			}

			select {
			case resultChan <- s.Contains(sku):
			case <-doneChan:
			case <-ctx.Done():
			}
		}(set)
	}

	matches, checked := 0, 0
	for checked < len(v.sets) {
		select {
		case found := <-resultChan:
			checked++
			if found {
				matches++
				if matches >= v.minMatchCount {
					return matches
				}
			}
			if matches+len(v.sets)-checked < v.minMatchCount {
				return matches
			}
		case <-ctx.Done():
			return matches
		}
	}

	return matches
}

// Close releases the loaded sets.
func (v *validator) Close() error {
	v.sets = nil
	v.logger.Info().Msg("catalogue validator closed")
	return nil
}
