package main

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yishak-cs/bundle-miner/internal/ingest"
)

func newImportHistoryCmd(g *globalOptions) *cobra.Command {
	var (
		source  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "import-history <orders>",
		Short: "Load a historical order export into Neo4j",
		Long: `import-history stores every order of the export as an Order node linked to its
products. Analyses started with --graph-history, and the server when no historical
file is uploaded, validate enhanced bundles against these orders.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := ingest.ReadTableFile(args[0])
			if err != nil {
				return err
			}
			h, stats, err := ingest.NewIngester(g.log).LoadHistoricalLog(t)
			if err != nil {
				return err
			}
			if source == "" {
				source = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			gs, _, closeGraph, err := openGraph(ctx, g.log)
			if err != nil {
				return err
			}
			defer closeGraph()

			n, err := gs.ImportHistoricalLog(ctx, h, source)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d orders from %s as source %q (%d rows skipped)\n",
				n, args[0], source, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "tag stored on imported orders (default: file name)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "abort the import after this long")
	return cmd
}

func newStatusCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show node and relationship counts of the graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			gs, client, closeGraph, err := openGraph(ctx, g.log)
			if err != nil {
				return err
			}
			defer closeGraph()

			if err := client.Health(ctx); err != nil {
				return fmt.Errorf("graph unreachable: %w", err)
			}
			counts, err := gs.ImportStatus(ctx)
			if err != nil {
				return err
			}

			keys := make([]string, 0, len(counts))
			for k := range counts {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			out := cmd.OutOrStdout()
			for _, k := range keys {
				fmt.Fprintf(out, "%-20s %d\n", k, counts[k])
			}
			return nil
		},
	}
}
