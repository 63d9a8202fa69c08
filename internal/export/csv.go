// Package export renders rule records for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/yishak-cs/bundle-miner/internal/models"
)

var baseHeader = []string{
	"Itemset_Size", "Antecedent", "Consequent", "Rule",
	"Antecedent_Support_Count", "Consequent_Support_Count", "Itemset_Support_Count",
	"Antecedent_Support", "Consequent_Support", "Itemset_Support",
	"Confidence", "Lift", "Expected_Support",
}

var enhancedHeader = []string{
	"Added_Unsold_Product", "Enhanced_Rule",
	"Historical_Occurrence_Count", "Historical_Total_Transactions", "Enhanced_Support",
}

// WriteRulesCSV writes one row per rule. Enhanced columns are added when any rule carries them.
func WriteRulesCSV(w io.Writer, rules []models.RuleRecord) error {
	enhanced := false
	for _, r := range rules {
		if r.EnhancedRule != "" {
			enhanced = true
			break
		}
	}

	cw := csv.NewWriter(w)
	header := baseHeader
	if enhanced {
		header = append(append([]string{}, baseHeader...), enhancedHeader...)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range rules {
		row := []string{
			strconv.Itoa(r.ItemsetSize),
			r.Antecedent,
			r.Consequent,
			r.Rule,
			strconv.Itoa(r.AntecedentSupportCount),
			strconv.Itoa(r.ConsequentSupportCount),
			strconv.Itoa(r.ItemsetSupportCount),
			formatFloat(r.AntecedentSupport),
			formatFloat(r.ConsequentSupport),
			formatFloat(r.ItemsetSupport),
			formatFloat(r.Confidence),
			formatFloat(r.Lift),
			formatFloat(r.ExpectedSupport),
		}
		if enhanced {
			row = append(row,
				r.AddedItem,
				r.EnhancedRule,
				strconv.Itoa(r.HistoricalOccurrenceCount),
				strconv.Itoa(r.HistoricalTotalTransactions),
				formatFloat(r.EnhancedSupport),
			)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
