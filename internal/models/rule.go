package models

import (
	"math"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
)

// RuleRecord is the presentation form of a rule. Ratios are rounded for display only;
// filtering and ranking happen on the unrounded values.
type RuleRecord struct {
	ItemsetSize            int      `json:"itemset_size"`
	Antecedent             string   `json:"antecedent"`
	Consequent             string   `json:"consequent"`
	Rule                   string   `json:"rule"`
	AntecedentItems        []string `json:"antecedent_items"`
	ConsequentItems        []string `json:"consequent_items"`
	ItemsetID              []string `json:"itemset_id"`
	AntecedentSupportCount int      `json:"antecedent_support_count"`
	ConsequentSupportCount int      `json:"consequent_support_count"`
	ItemsetSupportCount    int      `json:"itemset_support_count"`
	AntecedentSupport      float64  `json:"antecedent_support"`
	ConsequentSupport      float64  `json:"consequent_support"`
	ItemsetSupport         float64  `json:"itemset_support"`
	Confidence             float64  `json:"confidence"`
	Lift                   float64  `json:"lift"`
	ExpectedSupport        float64  `json:"expected_support"`

	// Set only for rules extended with an unsold item.
	AddedItem                   string  `json:"added_unsold_product,omitempty"`
	EnhancedRule                string  `json:"enhanced_rule,omitempty"`
	HistoricalOccurrenceCount   int     `json:"historical_occurrence_count,omitempty"`
	HistoricalTotalTransactions int     `json:"historical_total_transactions,omitempty"`
	EnhancedSupport             float64 `json:"enhanced_support,omitempty"`
}

func NewRuleRecord(r eclat.AssociationRule) RuleRecord {
	return RuleRecord{
		ItemsetSize:            r.Size(),
		Antecedent:             r.Antecedent.String(),
		Consequent:             r.Consequent.String(),
		Rule:                   r.Rule(),
		AntecedentItems:        r.Antecedent,
		ConsequentItems:        r.Consequent,
		ItemsetID:              r.ItemsetID,
		AntecedentSupportCount: r.AntecedentSupportCount,
		ConsequentSupportCount: r.ConsequentSupportCount,
		ItemsetSupportCount:    r.ItemsetSupportCount,
		AntecedentSupport:      round(r.AntecedentSupport, 4),
		ConsequentSupport:      round(r.ConsequentSupport, 4),
		ItemsetSupport:         round(r.ItemsetSupport, 4),
		Confidence:             round(r.Confidence, 4),
		Lift:                   round(r.Lift, 4),
		ExpectedSupport:        round(r.ExpectedSupport, 6),
	}
}

func NewEnhancedRuleRecord(e eclat.EnhancedRule) RuleRecord {
	rec := NewRuleRecord(e.AssociationRule)
	if !e.Enhanced {
		return rec
	}
	rec.ItemsetSize = len(e.CombinationID)
	rec.ItemsetID = e.CombinationID
	rec.AddedItem = e.AddedItem
	rec.EnhancedRule = e.EnhancedRuleString()
	rec.HistoricalOccurrenceCount = e.HistoricalOccurrenceCount
	rec.HistoricalTotalTransactions = e.HistoricalTotalTransactions
	rec.EnhancedSupport = round(e.EnhancedSupport, 4)
	return rec
}

func RuleRecords(rules []eclat.AssociationRule) []RuleRecord {
	out := make([]RuleRecord, 0, len(rules))
	for _, r := range rules {
		out = append(out, NewRuleRecord(r))
	}
	return out
}

func EnhancedRuleRecords(rules []eclat.EnhancedRule) []RuleRecord {
	out := make([]RuleRecord, 0, len(rules))
	for _, r := range rules {
		out = append(out, NewEnhancedRuleRecord(r))
	}
	return out
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
