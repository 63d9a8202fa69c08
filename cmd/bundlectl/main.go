package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yishak-cs/bundle-miner/internal/database"
	"github.com/yishak-cs/bundle-miner/pkg/helper"
	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	verbose bool
	log     *logger.Logger
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "bundlectl",
		Short: "Mine product bundles from marketplace order exports",
		Long: `bundlectl runs frequent-itemset mining over order exports, reports which catalog
products never sold, and manages the historical order log kept in Neo4j.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !g.verbose {
				g.log = logger.Nop()
				return nil
			}
			l, err := logger.New("development")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			g.log = l
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log pipeline progress to stderr")

	root.AddCommand(
		newAnalyzeCmd(g),
		newProductsCmd(g),
		newDatesCmd(g),
		newImportHistoryCmd(g),
		newStatusCmd(g),
	)
	return root
}

var errGraphDisabled = errors.New("NEO4J_URI is not set")

// openGraph connects to the graph configured in the environment. The returned close
// function must be called once the store is no longer used.
func openGraph(ctx context.Context, log *logger.Logger) (*database.GraphStore, *database.Neo4jClient, func(), error) {
	cfg, err := helper.LoadAppConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if !cfg.Neo4j.Enabled() {
		return nil, nil, nil, errGraphDisabled
	}
	client, err := database.NewNeo4jClient(cfg.Neo4j, log)
	if err != nil {
		return nil, nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(context.Background()); err != nil {
			log.Warn("failed to close Neo4j connection", "error", err)
		}
	}
	gs := database.NewGraphStore(client, log)
	if err := gs.EnsureSchema(ctx); err != nil {
		closeFn()
		return nil, nil, nil, err
	}
	return gs, client, closeFn, nil
}
