package models

import (
	"time"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
)

// IngestStats aggregates per-row outcomes of one table pass.
type IngestStats struct {
	Processed   int            `json:"processed"`
	Skipped     int            `json:"skipped"`
	SkipReasons map[string]int `json:"skip_reasons,omitempty"`
}

func (s *IngestStats) Skip(reason string) {
	s.Skipped++
	if s.SkipReasons == nil {
		s.SkipReasons = make(map[string]int)
	}
	s.SkipReasons[reason]++
}

// ProductSales is one catalog entry with the number of transaction rows that sold it.
type ProductSales struct {
	SKU        string `json:"sku"`
	Code       string `json:"code"`
	SalesCount int    `json:"sales_count"`
}

// ProductAnalysis compares a product catalog against the transaction table.
type ProductAnalysis struct {
	TotalProducts    int            `json:"total_products"`
	SoldCount        int            `json:"sold_products_count"`
	UnsoldCount      int            `json:"unsold_products_count"`
	SoldPercentage   float64        `json:"sold_percentage"`
	UnsoldPercentage float64        `json:"unsold_percentage"`
	Sold             []ProductSales `json:"sold_products"`
	Unsold           []ProductSales `json:"unsold_products"`
	// CaseInsensitive is set when no SKU matched exactly and the comparison fell back to
	// lower-cased codes.
	CaseInsensitive bool        `json:"case_insensitive_match"`
	SKUColumn       string      `json:"sku_column"`
	CodeColumn      string      `json:"code_column"`
	Stats           IngestStats `json:"stats"`
}

// UnsoldSKUs lists the unsold catalog identifiers in report order.
func (p *ProductAnalysis) UnsoldSKUs() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.Unsold))
	for _, u := range p.Unsold {
		if u.SKU != "" {
			out = append(out, u.SKU)
		} else if u.Code != "" {
			out = append(out, u.Code)
		}
	}
	return out
}

// AnalysisSummary is the run metadata reported next to the rules.
type AnalysisSummary struct {
	ID                 string            `json:"id"`
	CreatedAt          time.Time         `json:"created_at"`
	Params             Params            `json:"params"`
	DateRange          *DateRange        `json:"date_range,omitempty"`
	ProcessTime        time.Duration     `json:"process_time_ns"`
	TotalTransactions  int               `json:"total_transactions"`
	OriginalOrders     int               `json:"original_orders"`
	SingleItemOrders   int               `json:"single_item_orders"`
	UniqueProducts     int               `json:"unique_product_count"`
	TopProducts        []eclat.ItemCount `json:"top_products"`
	MaxItemsetLevel    int               `json:"max_itemset_level"`
	DeepestLevelCount  int               `json:"deepest_level_count"`
	LevelCounts        map[int]int       `json:"level_counts"`
	RulesGenerated     int               `json:"rules_generated"`
	OriginalRulesCount int               `json:"original_rules_count"`
	EnhancedRulesCount int               `json:"enhanced_rules_count"`
	Dedup              eclat.DedupStats  `json:"dedup"`
	Lift               eclat.LiftStats   `json:"lift_distribution"`
	HasUnsoldProducts  bool              `json:"has_unsold_products"`
	HasHistorical      bool              `json:"has_historical_validation"`
	EnhancementReason  string            `json:"enhancement_reason,omitempty"`
	Ingest             IngestStats       `json:"ingest"`
	Published          bool              `json:"published"`
}

// AnalysisResult is a finished run as retained by the result store.
type AnalysisResult struct {
	Summary         AnalysisSummary  `json:"summary"`
	Rules           []RuleRecord     `json:"rules"`
	EnhancedRules   []RuleRecord     `json:"enhanced_rules,omitempty"`
	ProductAnalysis *ProductAnalysis `json:"product_analysis,omitempty"`
}

// ExportRules picks the rule list a download should contain: enhanced rules when the run
// validated any, the plain ranking otherwise.
func (r *AnalysisResult) ExportRules() []RuleRecord {
	if r.Summary.EnhancedRulesCount > 0 {
		return r.EnhancedRules
	}
	return r.Rules
}
