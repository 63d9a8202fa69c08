package ingest

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/metrics"
	"github.com/yishak-cs/bundle-miner/internal/models"
)

// AnalyzeProductSales splits a product catalog into products that appear in the transaction
// table and products that never sold. Catalog SKUs are matched exactly against the
// transaction product column; when nothing matches, the comparison is retried ignoring case.
func (in *Ingester) AnalyzeProductSales(transactions, catalog *Table, productColumn string) (*models.ProductAnalysis, error) {
	if len(catalog.Columns) == 0 {
		return nil, &apierr.InputShapeError{Source: catalog.Name, Missing: []string{"Seller SKU"}}
	}
	skuIdx := columnWithWords(catalog.Columns, "sku", "penjual")
	if skuIdx < 0 {
		skuIdx = columnWithWords(catalog.Columns, "sku", "seller")
	}
	if skuIdx < 0 {
		skuIdx = 0
	}
	codeIdx := columnWithWords(catalog.Columns, "kode", "produk")
	if codeIdx < 0 {
		codeIdx = columnWithWords(catalog.Columns, "code")
	}
	if codeIdx < 0 || codeIdx == skuIdx {
		codeIdx = -1
		if len(catalog.Columns) > 1 && skuIdx != 1 {
			codeIdx = 1
		}
	}

	txIdx := findColumnIndex(transactions.Columns, productColumn)
	if txIdx < 0 {
		return nil, &apierr.InputShapeError{Source: transactions.Name, Missing: []string{productColumn}, Available: transactions.Columns}
	}

	res := &models.ProductAnalysis{SKUColumn: catalog.Columns[skuIdx]}
	if codeIdx >= 0 {
		res.CodeColumn = catalog.Columns[codeIdx]
	}
	in.log.Info("starting product analysis",
		"catalog_rows", catalog.Len(),
		"sku_column", res.SKUColumn,
		"code_column", res.CodeColumn,
	)

	codes := make(map[string]string)
	for i, row := range catalog.Rows {
		sku := Cell(row, skuIdx)
		if isBlank(sku) {
			res.Stats.Skip("empty sku")
			continue
		}
		code := Cell(row, codeIdx)
		if isBlank(code) {
			code = fmt.Sprintf("P%d", i+1)
		}
		codes[sku] = code
		res.Stats.Processed++
	}
	metrics.RecordSkippedRows("catalog", res.Stats.Skipped)
	in.log.Info("catalog processed", "processed", res.Stats.Processed, "skipped", res.Stats.Skipped)
	if len(codes) == 0 {
		return nil, &apierr.EmptyResultError{Reason: "no valid products found in the product catalog"}
	}

	sales := make(map[string]int)
	for _, row := range transactions.Rows {
		p := Cell(row, txIdx)
		if isBlank(p) {
			continue
		}
		sales[p]++
	}

	sold := make(map[string]int)
	for sku := range codes {
		if n, ok := sales[sku]; ok {
			sold[sku] = n
		}
	}
	if len(sold) == 0 {
		lowered := make(map[string]int, len(sales))
		for p, n := range sales {
			lowered[strings.ToLower(p)] += n
		}
		for sku := range codes {
			if n, ok := lowered[strings.ToLower(sku)]; ok {
				sold[sku] = n
			}
		}
		res.CaseInsensitive = len(sold) > 0
	}

	for _, sku := range slices.Sorted(maps.Keys(codes)) {
		if n, ok := sold[sku]; ok {
			res.Sold = append(res.Sold, models.ProductSales{SKU: sku, Code: codes[sku], SalesCount: n})
		} else {
			res.Unsold = append(res.Unsold, models.ProductSales{SKU: sku, Code: codes[sku]})
		}
	}
	slices.SortStableFunc(res.Sold, func(a, b models.ProductSales) int {
		return cmp.Compare(b.SalesCount, a.SalesCount)
	})

	res.TotalProducts = len(codes)
	res.SoldCount = len(res.Sold)
	res.UnsoldCount = len(res.Unsold)
	res.SoldPercentage = float64(res.SoldCount) / float64(res.TotalProducts) * 100
	res.UnsoldPercentage = float64(res.UnsoldCount) / float64(res.TotalProducts) * 100

	in.log.Info("product analysis complete",
		"total", res.TotalProducts,
		"sold", res.SoldCount,
		"unsold", res.UnsoldCount,
		"case_insensitive", res.CaseInsensitive,
	)
	return res, nil
}
