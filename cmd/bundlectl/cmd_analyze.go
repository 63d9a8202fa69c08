package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/yishak-cs/bundle-miner/internal/export"
	"github.com/yishak-cs/bundle-miner/internal/ingest"
	"github.com/yishak-cs/bundle-miner/internal/models"
	"github.com/yishak-cs/bundle-miner/internal/services"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

type analyzeOptions struct {
	products   string
	historical string

	params        models.Params
	dates         models.DateRange
	orderColumn   string
	productColumn string

	format     string
	exportPath string
	top        int
	timeout    time.Duration
	graph      bool
	historyTag string
}

func newAnalyzeCmd(g *globalOptions) *cobra.Command {
	o := &analyzeOptions{params: models.DefaultParams()}
	cmd := &cobra.Command{
		Use:   "analyze <transactions.csv|xlsx>",
		Short: "Mine association rules from an order export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, g, o, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.products, "products", "", "product catalog used to find unsold items")
	f.StringVar(&o.historical, "historical", "", "historical order export used to validate enhanced bundles")
	f.Float64Var(&o.params.MinSupport, "min-support", o.params.MinSupport, "minimum itemset support (0, 1]")
	f.Float64Var(&o.params.MinConfidence, "min-confidence", o.params.MinConfidence, "minimum rule confidence")
	f.Float64Var(&o.params.MinLift, "min-lift", o.params.MinLift, "minimum rule lift")
	f.IntVar(&o.params.MinSupportCount, "min-support-count", o.params.MinSupportCount, "minimum orders an item must appear in")
	f.StringVar(&o.dates.Column, "date-column", "", "timestamp column to filter on")
	f.StringVar(&o.dates.Start, "start-date", "", "first day to keep (inclusive)")
	f.StringVar(&o.dates.End, "end-date", "", "last day to keep (inclusive)")
	f.StringVar(&o.orderColumn, "order-column", "", "order id column (default \"Order ID\")")
	f.StringVar(&o.productColumn, "product-column", "", "product column (default \"Seller SKU\")")
	f.StringVarP(&o.format, "output", "o", "table", "output format: table or json")
	f.StringVar(&o.exportPath, "export", "", "write the exported rules as CSV to this path")
	f.IntVar(&o.top, "top", 20, "rules to print in table output, 0 for all")
	f.DurationVar(&o.timeout, "timeout", 10*time.Minute, "abort the analysis after this long")
	f.BoolVar(&o.graph, "graph-history", false, "read historical orders from Neo4j when no file is given")
	f.StringVar(&o.historyTag, "history-source", "", "only use graph orders imported under this source")
	return cmd
}

func runAnalyze(cmd *cobra.Command, g *globalOptions, o *analyzeOptions, path string) error {
	if o.format != "table" && o.format != "json" {
		return fmt.Errorf("unknown output format %q", o.format)
	}

	req := services.AnalysisRequest{
		Params:        o.params,
		DateRange:     o.dates,
		OrderColumn:   o.orderColumn,
		ProductColumn: o.productColumn,
	}
	var err error
	if req.Transactions, err = ingest.ReadTableFile(path); err != nil {
		return err
	}
	if req.Catalog, err = readOptional(o.products); err != nil {
		return err
	}
	if req.Historical, err = readOptional(o.historical); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()

	var history services.HistorySource
	if o.graph {
		gs, _, closeGraph, err := openGraph(ctx, g.log)
		if err != nil {
			return fmt.Errorf("graph history: %w", err)
		}
		defer closeGraph()
		history = gs
	}

	svc := services.NewBundlingService(g.log, services.Config{HistoryTag: o.historyTag}, history, nil)
	res, err := svc.RunAnalysis(ctx, req)
	if err != nil {
		return err
	}

	if o.exportPath != "" {
		if err := writeExport(o.exportPath, res.ExportRules()); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if o.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printAnalysis(out, res, o.top)
	if o.exportPath != "" {
		fmt.Fprintf(out, "\nExported %d rules to %s\n", len(res.ExportRules()), o.exportPath)
	}
	return nil
}

func readOptional(path string) (*ingest.Table, error) {
	if path == "" {
		return nil, nil
	}
	return ingest.ReadTableFile(path)
}

func writeExport(path string, rules []models.RuleRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := export.WriteRulesCSV(f, rules); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printAnalysis(w io.Writer, res *models.AnalysisResult, top int) {
	s := res.Summary
	fmt.Fprintln(w, titleStyle.Render("Analysis "+s.ID))
	fmt.Fprintf(w, "Transactions: %d (of %d orders, %d single-item)\n", s.TotalTransactions, s.OriginalOrders, s.SingleItemOrders)
	fmt.Fprintf(w, "Unique products: %d, deepest itemset level: %d\n", s.UniqueProducts, s.MaxItemsetLevel)
	fmt.Fprintf(w, "Rules: %d after removing %d duplicates\n", s.OriginalRulesCount, s.Dedup.Removed)
	if s.EnhancementReason != "" {
		fmt.Fprintln(w, mutedStyle.Render("Enhancement: "+s.EnhancementReason))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, ruleTable(res.Rules, top, false))

	if s.EnhancedRulesCount > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Enhanced bundles (%d)", s.EnhancedRulesCount)))
		fmt.Fprintln(w, ruleTable(res.EnhancedRules, top, true))
	}
}

func ruleTable(rules []models.RuleRecord, top int, enhanced bool) string {
	if top > 0 && len(rules) > top {
		rules = rules[:top]
	}
	headers := []string{"Rule", "Support", "Confidence", "Lift"}
	if enhanced {
		headers = []string{"Bundle", "Added", "Seen", "Support", "Base Confidence"}
	}

	t := table.New().Border(lipgloss.NormalBorder()).Headers(headers...)
	for _, r := range rules {
		if enhanced {
			bundle := r.EnhancedRule
			if bundle == "" {
				bundle = r.Rule
			}
			t.Row(bundle, r.AddedItem, strconv.Itoa(r.HistoricalOccurrenceCount),
				formatFloat(r.EnhancedSupport), formatFloat(r.Confidence))
			continue
		}
		t.Row(r.Rule, formatFloat(r.ItemsetSupport), formatFloat(r.Confidence), formatFloat(r.Lift))
	}
	return t.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
