package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"po-pipeline/internal/catalog"
	"po-pipeline/internal/config"
	"po-pipeline/internal/model"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with SKU catalogue files",
	}

	checkCmd := &cobra.Command{
		Use:   "check [sku...]",
		Short: "Check SKUs against catalogue files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetStringSlice("file")
			minMatch, _ := cmd.Flags().GetInt("min-match")
			return checkSKUs(cmd, files, minMatch, args)
		},
	}
	checkCmd.Flags().StringSlice("file", nil, "Catalogue file to load (repeatable)")
	checkCmd.Flags().Int("min-match", 1, "Number of files a SKU must appear in")
	_ = checkCmd.MarkFlagRequired("file")

	sampleCmd := &cobra.Command{
		Use:   "sample",
		Short: "Write sample catalogue files",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			return writeSamples(cmd, dir)
		},
	}
	sampleCmd.Flags().String("dir", "data/catalog", "Directory to write the sample files to")

	cmd.AddCommand(checkCmd, sampleCmd)
	return cmd
}

func checkSKUs(cmd *cobra.Command, files []string, minMatch int, skus []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	v, err := newCatalogValidator(ctx, config.CatalogConfig{
		Enabled:       true,
		FilePaths:     files,
		MinMatchCount: minMatch,
	}, config.S3Config{}, zerolog.Nop())
	if err != nil {
		return err
	}
	defer v.Close()

	out := cmd.OutOrStdout()
	var unknown []string
	for _, sku := range skus {
		if err := v.Validate(ctx, []string{sku}); err != nil {
			if !errors.Is(err, model.ErrUnknownSKU) {
				return err
			}
			unknown = append(unknown, sku)
			fmt.Fprintf(out, "%s\tunknown\n", sku)
			continue
		}
		fmt.Fprintf(out, "%s\tok\n", sku)
	}

	if len(unknown) > 0 {
		return fmt.Errorf("%w: %d of %d", model.ErrUnknownSKU, len(unknown), len(skus))
	}
	return nil
}

func writeSamples(cmd *cobra.Command, dir string) error {
	names := make([]string, 0, len(catalog.SampleCatalogues))
	for name := range catalog.SampleCatalogues {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		skus := catalog.SampleCatalogues[name]
		if err := catalog.WriteFile(path, skus); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d skus\n", path, len(skus))
	}
	return nil
}
