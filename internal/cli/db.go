package cli

import (
	"context"
	"fmt"

	"po-pipeline/internal/config"
	"po-pipeline/internal/database"

	"github.com/spf13/cobra"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			pool, err := database.NewPool(ctx, cfg.Database, config.NewLogger(cfg.Logger))
			if err != nil {
				return err
			}
			defer pool.Close()

			var dbName string
			if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
				return fmt.Errorf("failed to query current database: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "connected to database %s\n", dbName)
			return nil
		},
	})

	return cmd
}
