package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/quarry"
	"github.com/jward/quarry/internal/queryfile"
	"github.com/jward/quarry/internal/sqlcatalog"
)

var flagCatalog string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "quarry",
	Short:         "Declarative taint model generation for Python catalogs",
	Long:          "Quarry evaluates declarative rules against a SQLite catalog of Python callables and classes, synthesizing taint models for every matching program element.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCatalog, "catalog", "", "catalog database path (required)")
	rootCmd.MarkPersistentFlagRequired("catalog")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(statsCmd)
}

var (
	flagRules   string
	flagOutput  string
	flagWorkers int
	flagVerbose bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a rule document to the catalog and emit models",
	Long:  "Loads a YAML rule document, evaluates every rule against the catalog's callables and attributes in parallel, and writes the joined models as JSON lines.",
	Args:  cobra.NoArgs,
	RunE:  runApply,
}

func init() {
	applyCmd.Flags().StringVar(&flagRules, "rules", "", "rule document path (required)")
	applyCmd.Flags().StringVar(&flagOutput, "output", "-", "output path, or - for stdout")
	applyCmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker count (default: NumCPU)")
	applyCmd.Flags().BoolVar(&flagVerbose, "verbose", false, "log every rule match to stderr")
	applyCmd.MarkFlagRequired("rules")
}

func runApply(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	doc, err := queryfile.Load(flagRules)
	if err != nil {
		return err
	}

	cat, err := sqlcatalog.Open(flagCatalog)
	if err != nil {
		return err
	}
	defer cat.Close()
	if err := cat.Migrate(); err != nil {
		return err
	}

	callables, err := cat.Callables(ctx)
	if err != nil {
		return fmt.Errorf("listing callables: %w", err)
	}

	engine := quarry.New(cat,
		quarry.WithDeclaredKinds(doc.Sources, doc.Sinks),
		quarry.WithWorkers(flagWorkers),
		quarry.WithVerbose(flagVerbose),
	)

	applyStart := time.Now()
	models, err := engine.Apply(ctx, doc.Queries, callables, nil)
	if err != nil {
		return err
	}
	applyDuration := time.Since(applyStart)

	if flagVerbose {
		for _, m := range engine.Matches() {
			fmt.Fprintln(os.Stderr, m)
		}
	}

	if flagOutput == "-" {
		if err := quarry.WriteModels(os.Stdout, models); err != nil {
			return fmt.Errorf("writing models: %w", err)
		}
	} else if err := quarry.DumpModels(flagOutput, models); err != nil {
		return fmt.Errorf("writing models: %w", err)
	}

	// Timing summary to stderr.
	fmt.Fprintf(os.Stderr, "Applied %d rules to %d callables in %s (evaluate: %s)\n",
		len(doc.Queries),
		len(callables),
		time.Since(start).Round(time.Millisecond),
		applyDuration.Round(time.Millisecond),
	)
	fmt.Fprintf(os.Stderr, "Models: %d targets\n", len(models.Targets()))

	return nil
}
