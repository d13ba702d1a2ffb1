package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jward/quarry/internal/sqlcatalog"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog row counts and fingerprint",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cat, err := sqlcatalog.Open(flagCatalog)
	if err != nil {
		return err
	}
	defer cat.Close()
	if err := cat.Migrate(); err != nil {
		return err
	}

	stats, err := cat.CatalogStats(ctx)
	if err != nil {
		return fmt.Errorf("reading stats: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Callables\t%d\n", stats.Callables)
	fmt.Fprintf(tw, "Parameters\t%d\n", stats.Parameters)
	fmt.Fprintf(tw, "Decorators\t%d\n", stats.Decorators)
	fmt.Fprintf(tw, "Classes\t%d\n", stats.Classes)
	fmt.Fprintf(tw, "Attributes\t%d\n", stats.Attributes)
	fmt.Fprintf(tw, "Fingerprint\t%s\n", stats.Fingerprint)
	return tw.Flush()
}
