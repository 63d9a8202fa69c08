package ingest

import (
	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/metrics"
	"github.com/yishak-cs/bundle-miner/internal/models"
)

// historicalSKUFallback is the Seller SKU position in the standard order export.
const historicalSKUFallback = 6

// LoadHistoricalLog reads an order export into a historical log. The order id is the first
// column; the product is the first column naming both "seller" and "sku".
func (in *Ingester) LoadHistoricalLog(t *Table) (*eclat.HistoricalLog, models.IngestStats, error) {
	var stats models.IngestStats
	if len(t.Columns) == 0 {
		return nil, stats, &apierr.InputShapeError{Source: t.Name, Missing: []string{"Order ID", "Seller SKU"}}
	}
	skuIdx := columnWithWords(t.Columns, "seller", "sku")
	if skuIdx < 0 && len(t.Columns) > historicalSKUFallback {
		skuIdx = historicalSKUFallback
	}
	if skuIdx < 0 {
		return nil, stats, &apierr.InputShapeError{Source: t.Name, Missing: []string{"Seller SKU"}, Available: t.Columns}
	}

	h := eclat.NewHistoricalLog()
	for _, row := range t.Rows {
		order := Cell(row, 0)
		if isBlank(order) {
			stats.Skip("empty order id")
			continue
		}
		sku := Cell(row, skuIdx)
		if isBlank(sku) {
			stats.Skip("empty product")
			continue
		}
		h.Add(order, sku)
		stats.Processed++
	}
	metrics.RecordSkippedRows("historical", stats.Skipped)
	in.log.Info("historical log loaded",
		"rows", t.Len(),
		"orders", h.Len(),
		"sku_column", t.Columns[skuIdx],
		"skipped", stats.Skipped,
	)
	return h, stats, nil
}
