package eclat

import (
	"slices"

	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

// HistoricalOrder is one order of the independent validation log.
type HistoricalOrder struct {
	OrderID string
	Items   Itemset
}

// HistoricalLog is an order-id keyed collection of item sets, kept in first-seen order.
type HistoricalLog struct {
	orders []HistoricalOrder
	index  map[string]int
}

func NewHistoricalLog() *HistoricalLog {
	return &HistoricalLog{index: make(map[string]int)}
}

// Add merges items into the order, collapsing duplicates.
func (h *HistoricalLog) Add(orderID string, items ...string) {
	if i, ok := h.index[orderID]; ok {
		h.orders[i].Items = NewItemset(append(slices.Clone(h.orders[i].Items), items...)...)
		return
	}
	h.index[orderID] = len(h.orders)
	h.orders = append(h.orders, HistoricalOrder{OrderID: orderID, Items: NewItemset(items...)})
}

func (h *HistoricalLog) Len() int {
	if h == nil {
		return 0
	}
	return len(h.orders)
}

func (h *HistoricalLog) Orders() []HistoricalOrder {
	if h == nil {
		return nil
	}
	return h.orders
}

// CountSupersets counts orders containing every item of s.
func (h *HistoricalLog) CountSupersets(s Itemset) int {
	n := 0
	for _, o := range h.Orders() {
		if o.Items.ContainsAll(s) {
			n++
		}
	}
	return n
}

// EnhancedRule is a two-item rule extended with an unsold item that co-occurred with both
// of its items in the historical log.
type EnhancedRule struct {
	AssociationRule

	// Enhanced is false for plain two-item rules passed through when no unsold items exist.
	Enhanced                    bool
	AddedItem                   string
	HistoricalOccurrenceCount   int
	HistoricalTotalTransactions int
	EnhancedSupport             float64
	// CombinationID is the sorted union of all three items.
	CombinationID Itemset
}

// EnhancedRuleString renders "A + B + U" for enhanced rules and the plain rule otherwise.
func (e EnhancedRule) EnhancedRuleString() string {
	if !e.Enhanced {
		return e.Rule()
	}
	return e.Antecedent.String() + " + " + e.Consequent.String() + " + " + e.AddedItem
}

// EnhancementResult is the outcome of one validation pass.
type EnhancementResult struct {
	// Original holds the two-item rules the pass started from.
	Original []AssociationRule
	Enhanced []EnhancedRule
	// EnhancedCount is the number of occurrence-backed enhanced rules; 0 on fallbacks.
	EnhancedCount        int
	HistoricalValidation bool
	CandidatesChecked    int
	Dedup                DedupStats
	// Reason explains an empty or fallback result.
	Reason string
}

const (
	ReasonNoTwoItemRules = "no two-item rules passed the thresholds"
	ReasonNoUnsoldItems  = "no unsold items supplied; two-item rules returned without enhancement"
	ReasonNoHistory      = "historical transaction log is missing or empty"
)

// Validator extends two-item rules with unsold items confirmed by a historical log.
type Validator struct {
	log *logger.Logger
}

func NewValidator(log *logger.Logger) *Validator {
	return &Validator{log: logger.OrNop(log).With("component", "Validator")}
}

// TwoItemRules keeps the rules over exactly two items.
func TwoItemRules(rules []AssociationRule) []AssociationRule {
	var out []AssociationRule
	for _, r := range rules {
		if r.Size() == 2 {
			out = append(out, r)
		}
	}
	return out
}

// Enhance proposes {a, b, u} for every two-item rule {a, b} and unsold item u, counts the
// historical orders containing all three, and keeps the combinations seen at least once.
// rules should already be filtered and deduplicated; rules over other sizes are ignored.
func (v *Validator) Enhance(rules []AssociationRule, unsold []string, history *HistoricalLog) EnhancementResult {
	base := TwoItemRules(rules)
	res := EnhancementResult{Original: base}

	if len(base) == 0 {
		res.Reason = ReasonNoTwoItemRules
		v.log.Warn("cannot create enhanced rules", "reason", res.Reason)
		return res
	}

	unsoldSet := NewItemset(unsold...)
	if len(unsoldSet) == 0 {
		res.Reason = ReasonNoUnsoldItems
		res.Enhanced = make([]EnhancedRule, 0, len(base))
		for _, r := range base {
			res.Enhanced = append(res.Enhanced, EnhancedRule{AssociationRule: r, CombinationID: r.ItemsetID})
		}
		v.log.Warn("returning two-item rules without enhancement", "rules", len(base))
		return res
	}

	total := history.Len()
	if total == 0 {
		res.Reason = ReasonNoHistory
		res.Enhanced = []EnhancedRule{}
		v.log.Warn("historical validation unavailable", "reason", res.Reason)
		return res
	}
	res.HistoricalValidation = true

	var candidates []EnhancedRule
	for _, r := range base {
		for _, u := range unsoldSet {
			if r.ItemsetID.Contains(u) {
				continue
			}
			combo := r.ItemsetID.Union(Itemset{u})
			res.CandidatesChecked++
			count := history.CountSupersets(combo)
			if count == 0 {
				continue
			}
			candidates = append(candidates, EnhancedRule{
				AssociationRule:             r,
				Enhanced:                    true,
				AddedItem:                   u,
				HistoricalOccurrenceCount:   count,
				HistoricalTotalTransactions: total,
				EnhancedSupport:             float64(count) / float64(total),
				CombinationID:               combo,
			})
		}
	}

	res.Enhanced, res.Dedup = DeduplicateEnhancedRules(candidates)
	slices.SortStableFunc(res.Enhanced, func(a, b EnhancedRule) int {
		return b.HistoricalOccurrenceCount - a.HistoricalOccurrenceCount
	})
	res.EnhancedCount = len(res.Enhanced)

	v.log.Info("enhanced rules validated",
		"base_rules", len(base),
		"unsold_items", len(unsoldSet),
		"historical_transactions", total,
		"candidates", res.CandidatesChecked,
		"enhanced", res.EnhancedCount,
		"duplicates_removed", res.Dedup.Removed,
	)
	return res
}

// DeduplicateEnhancedRules keeps one rule per three-item combination: the one with the
// highest historical occurrence count, then confidence, then lift.
func DeduplicateEnhancedRules(rules []EnhancedRule) ([]EnhancedRule, DedupStats) {
	kept, removed := dedupeBy(rules,
		func(r EnhancedRule) string { return r.CombinationID.Key() },
		betterEnhanced,
	)
	if kept == nil {
		kept = []EnhancedRule{}
	}
	return kept, dedupStats(len(rules), kept, removed, EnhancedRule.EnhancedRuleString)
}

func betterEnhanced(a, b EnhancedRule) bool {
	if a.HistoricalOccurrenceCount != b.HistoricalOccurrenceCount {
		return a.HistoricalOccurrenceCount > b.HistoricalOccurrenceCount
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return a.Lift > b.Lift
}
