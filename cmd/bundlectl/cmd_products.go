package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/yishak-cs/bundle-miner/internal/ingest"
	"github.com/yishak-cs/bundle-miner/internal/models"
	"github.com/yishak-cs/bundle-miner/internal/services"
)

func newProductsCmd(g *globalOptions) *cobra.Command {
	var (
		productColumn string
		format        string
		limit         int
	)
	cmd := &cobra.Command{
		Use:   "products <transactions> <catalog>",
		Short: "List catalog products that never appear in the order export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			transactions, err := ingest.ReadTableFile(args[0])
			if err != nil {
				return err
			}
			catalog, err := ingest.ReadTableFile(args[1])
			if err != nil {
				return err
			}

			svc := services.NewBundlingService(g.log, services.Config{}, nil, nil)
			pa, err := svc.AnalyzeProducts(transactions, catalog, productColumn)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(pa)
			case "table":
				printProducts(out, pa, limit)
				return nil
			}
			return fmt.Errorf("unknown output format %q", format)
		},
	}
	cmd.Flags().StringVar(&productColumn, "product-column", "", "product column of the order export (default \"Seller SKU\")")
	cmd.Flags().StringVarP(&format, "output", "o", "table", "output format: table or json")
	cmd.Flags().IntVar(&limit, "limit", 50, "unsold products to list, 0 for all")
	return cmd
}

func printProducts(w io.Writer, pa *models.ProductAnalysis, limit int) {
	fmt.Fprintln(w, titleStyle.Render("Product sales"))
	fmt.Fprintf(w, "Catalog products: %d\n", pa.TotalProducts)
	fmt.Fprintf(w, "Sold: %d (%.2f%%)\n", pa.SoldCount, pa.SoldPercentage)
	fmt.Fprintf(w, "Unsold: %d (%.2f%%)\n", pa.UnsoldCount, pa.UnsoldPercentage)
	if pa.CaseInsensitive {
		fmt.Fprintln(w, mutedStyle.Render("Matched SKUs case-insensitively"))
	}
	if len(pa.Unsold) == 0 {
		return
	}

	unsold := pa.Unsold
	if limit > 0 && len(unsold) > limit {
		unsold = unsold[:limit]
	}
	t := table.New().Border(lipgloss.NormalBorder()).Headers("SKU", "Code", "Sales")
	for _, p := range unsold {
		t.Row(p.SKU, p.Code, strconv.Itoa(p.SalesCount))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, t.String())
}
