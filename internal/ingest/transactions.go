package ingest

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/metrics"
	"github.com/yishak-cs/bundle-miner/internal/models"
)

const (
	DefaultOrderColumn   = "Order ID"
	DefaultProductColumn = "Seller SKU"
	DefaultSKUIDColumn   = "SKU ID"
)

type PrepareOptions struct {
	OrderColumn   string
	ProductColumn string
	// SKUIDColumn is optional; when the table has it, rows without a SKU id are skipped.
	SKUIDColumn     string
	MinSupportCount int
	DateRange       models.DateRange
}

func DefaultPrepareOptions() PrepareOptions {
	return PrepareOptions{
		OrderColumn:     DefaultOrderColumn,
		ProductColumn:   DefaultProductColumn,
		SKUIDColumn:     DefaultSKUIDColumn,
		MinSupportCount: 2,
	}
}

// Prepared is the transaction set handed to the miner.
type Prepared struct {
	Transactions []eclat.Transaction
	// Candidates are the products with at least MinSupportCount rows, most frequent first.
	Candidates []eclat.ItemCount
	// OriginalOrders counts distinct orders before product filtering.
	OriginalOrders   int
	SingleItemOrders int
	Stats            models.IngestStats
}

func (p *Prepared) CandidateItems() []string {
	out := make([]string, len(p.Candidates))
	for i, c := range p.Candidates {
		out[i] = c.Item
	}
	return out
}

// TransactionCount is the number of transactions handed to the miner.
func (p *Prepared) TransactionCount() int {
	return len(p.Transactions)
}

type txRow struct {
	order   string
	product string
}

// rowOutcome is the per-row verdict of the preparation loop.
type rowOutcome struct {
	row    txRow
	reason string
}

func (o rowOutcome) ok() bool { return o.reason == "" }

// PrepareTransactions groups order rows into transactions. Rows missing an order id or a
// product are skipped. Products occurring in fewer than MinSupportCount rows are dropped
// from every order, orders left empty disappear, and the remaining orders are numbered
// 1..N in first-appearance order.
func (in *Ingester) PrepareTransactions(t *Table, opts PrepareOptions) (*Prepared, error) {
	if opts.DateRange.Enabled() {
		filtered, err := FilterByDateRange(t, opts.DateRange.Column, opts.DateRange.Start, opts.DateRange.End)
		if err != nil {
			return nil, err
		}
		in.log.Info("filtered transactions by date",
			"column", opts.DateRange.Column,
			"start", opts.DateRange.Start,
			"end", opts.DateRange.End,
			"rows_before", t.Len(),
			"rows_after", filtered.Len(),
		)
		if filtered.Len() == 0 {
			return nil, &apierr.EmptyResultError{Reason: "no rows in the selected date range"}
		}
		t = filtered
	}

	orderIdx := findColumnIndex(t.Columns, opts.OrderColumn)
	productIdx := findColumnIndex(t.Columns, opts.ProductColumn)
	var missing []string
	if orderIdx < 0 {
		missing = append(missing, opts.OrderColumn)
	}
	if productIdx < 0 {
		missing = append(missing, opts.ProductColumn)
	}
	if len(missing) > 0 {
		in.log.Error("required columns not found", "missing", missing, "available", t.Columns)
		return nil, &apierr.InputShapeError{Source: t.Name, Missing: missing, Available: t.Columns}
	}
	skuIdx := -1
	if opts.SKUIDColumn != "" {
		skuIdx = findColumnIndex(t.Columns, opts.SKUIDColumn)
	}

	var (
		stats  models.IngestStats
		rows   []txRow
		counts = make(map[string]int)
		orders = make(map[string]struct{})
	)
	for _, r := range t.Rows {
		out := classifyRow(r, orderIdx, productIdx, skuIdx)
		if !out.ok() {
			stats.Skip(out.reason)
			continue
		}
		stats.Processed++
		rows = append(rows, out.row)
		counts[out.row.product]++
		orders[out.row.order] = struct{}{}
	}
	metrics.RecordSkippedRows("transactions", stats.Skipped)
	in.log.Info("transaction rows processed",
		"processed", stats.Processed,
		"skipped", stats.Skipped,
		"skip_reasons", stats.SkipReasons,
	)

	var candidates []eclat.ItemCount
	for item, n := range counts {
		if n >= opts.MinSupportCount {
			candidates = append(candidates, eclat.ItemCount{Item: item, Count: n})
		}
	}
	slices.SortFunc(candidates, func(a, b eclat.ItemCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return cmp.Compare(a.Item, b.Item)
	})
	in.log.Info("filtered products by support count",
		"min_support_count", opts.MinSupportCount,
		"products", len(counts),
		"candidates", len(candidates),
	)

	keep := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		keep[c.Item] = struct{}{}
	}
	var (
		orderPos = make(map[string]int)
		baskets  [][]string
	)
	for _, r := range rows {
		if _, ok := keep[r.product]; !ok {
			continue
		}
		pos, ok := orderPos[r.order]
		if !ok {
			pos = len(baskets)
			orderPos[r.order] = pos
			baskets = append(baskets, nil)
		}
		baskets[pos] = append(baskets[pos], r.product)
	}

	p := &Prepared{
		Candidates:     candidates,
		OriginalOrders: len(orders),
		Stats:          stats,
	}
	for i, b := range baskets {
		tx := eclat.NewTransaction(i+1, b...)
		if tx.Items.Len() == 1 {
			p.SingleItemOrders++
		}
		p.Transactions = append(p.Transactions, tx)
	}
	in.log.Info("transactions prepared",
		"orders", p.OriginalOrders,
		"transactions", len(p.Transactions),
		"multi_item", len(p.Transactions)-p.SingleItemOrders,
		"single_item", p.SingleItemOrders,
	)

	if len(p.Transactions) == 0 {
		return nil, &apierr.EmptyResultError{
			Reason: fmt.Sprintf("no transactions remain after keeping products with support count >= %d", opts.MinSupportCount),
		}
	}
	return p, nil
}

func classifyRow(r []string, orderIdx, productIdx, skuIdx int) rowOutcome {
	order := Cell(r, orderIdx)
	if isBlank(order) {
		return rowOutcome{reason: "empty order id"}
	}
	product := Cell(r, productIdx)
	if isBlank(product) {
		return rowOutcome{reason: "empty product"}
	}
	if skuIdx >= 0 && isBlank(Cell(r, skuIdx)) {
		return rowOutcome{reason: "empty sku id"}
	}
	return rowOutcome{row: txRow{order: order, product: product}}
}
