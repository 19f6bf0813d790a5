package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the po-pipeline command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "po-pipeline",
		Short:         "Purchase order pipeline service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newCatalogCmd())
	root.AddCommand(newDBCmd())

	return root
}

// Execute runs the CLI.
func Execute() error {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
