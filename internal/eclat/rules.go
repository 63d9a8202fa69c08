package eclat

import (
	"cmp"
	"slices"

	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

// MaxLift is the anomaly cap. Rules above it come from tiny samples and are dropped
// before any threshold filtering.
const MaxLift = 100.0

// AssociationRule is "Antecedent -> Consequent" over one mined itemset.
// All derived metrics are computed once by NewAssociationRule.
type AssociationRule struct {
	Antecedent Itemset
	Consequent Itemset
	// ItemsetID is the sorted union of both sides, identical for every split of the same
	// item combination.
	ItemsetID Itemset

	AntecedentSupportCount int
	ConsequentSupportCount int
	ItemsetSupportCount    int

	AntecedentSupport float64
	ConsequentSupport float64
	ItemsetSupport    float64
	ExpectedSupport   float64
	Confidence        float64
	Lift              float64
}

// NewAssociationRule derives supports, confidence and lift from raw counts.
// Zero denominators yield 0 rather than an error.
func NewAssociationRule(antecedent, consequent Itemset, antecedentCount, consequentCount, itemsetCount, total int) AssociationRule {
	r := AssociationRule{
		Antecedent:             antecedent,
		Consequent:             consequent,
		ItemsetID:              antecedent.Union(consequent),
		AntecedentSupportCount: antecedentCount,
		ConsequentSupportCount: consequentCount,
		ItemsetSupportCount:    itemsetCount,
	}
	if total > 0 {
		n := float64(total)
		r.AntecedentSupport = float64(antecedentCount) / n
		r.ConsequentSupport = float64(consequentCount) / n
		r.ItemsetSupport = float64(itemsetCount) / n
	}
	// Confidence and lift come straight from the counts so exact ratios stay exact at
	// the threshold boundaries.
	if r.AntecedentSupport > 0 {
		r.Confidence = float64(itemsetCount) / float64(antecedentCount)
	}
	r.ExpectedSupport = r.AntecedentSupport * r.ConsequentSupport
	if r.ExpectedSupport > 0 {
		r.Lift = float64(itemsetCount*total) / float64(antecedentCount*consequentCount)
	}
	return r
}

// Size is the number of items in the rule.
func (r AssociationRule) Size() int {
	return len(r.ItemsetID)
}

// Rule renders "A + B -> C".
func (r AssociationRule) Rule() string {
	return r.Antecedent.String() + " -> " + r.Consequent.String()
}

// Thresholds are the user-facing rule filters.
type Thresholds struct {
	MinSupport    float64
	MinConfidence float64
	MinLift       float64
}

func (t Thresholds) Allows(r AssociationRule) bool {
	return r.ItemsetSupport >= t.MinSupport &&
		r.Confidence >= t.MinConfidence &&
		r.Lift >= t.MinLift
}

// Synthesizer expands mined itemsets into association rules.
type Synthesizer struct {
	log *logger.Logger
}

func NewSynthesizer(log *logger.Logger) *Synthesizer {
	return &Synthesizer{log: logger.OrNop(log).With("component", "Synthesizer")}
}

// Synthesize emits a rule for every non-trivial bipartition of every itemset of size >= 2
// whose two sides are themselves present in the lattice. Rules with lift above MaxLift are
// discarded here, before any threshold filtering.
func (s *Synthesizer) Synthesize(lat *Lattice) []AssociationRule {
	var rules []AssociationRule
	missing, anomalies := 0, 0

	for _, lv := range lat.Levels() {
		if lv.Size < 2 {
			continue
		}
		for _, e := range lv.Entries() {
			n := len(e.Items)
			for mask := 1; mask < (1<<n)-1; mask++ {
				antecedent, consequent := split(e.Items, mask)
				antCount, ok := lat.SupportCount(antecedent)
				if !ok {
					missing++
					continue
				}
				consCount, ok := lat.SupportCount(consequent)
				if !ok {
					missing++
					continue
				}
				r := NewAssociationRule(antecedent, consequent, antCount, consCount, e.SupportCount(), lat.TotalTransactions)
				if r.Lift > MaxLift {
					anomalies++
					continue
				}
				rules = append(rules, r)
			}
		}
	}

	s.log.Info("association rules synthesized", "rules", len(rules), "skipped_missing_support", missing, "skipped_lift_anomaly", anomalies)
	return rules
}

// split partitions a canonical itemset by bitmask: set bits go to the antecedent.
// Both halves stay canonical because the input order is preserved.
func split(items Itemset, mask int) (Itemset, Itemset) {
	var a, c Itemset
	for i, it := range items {
		if mask&(1<<i) != 0 {
			a = append(a, it)
		} else {
			c = append(c, it)
		}
	}
	return a, c
}

// FilterRules keeps the rules allowed by t, preserving order.
func FilterRules(rules []AssociationRule, t Thresholds) []AssociationRule {
	out := make([]AssociationRule, 0, len(rules))
	for _, r := range rules {
		if t.Allows(r) {
			out = append(out, r)
		}
	}
	return out
}

// SortRules orders rules by lift, then confidence, then itemset support, all descending.
func SortRules(rules []AssociationRule) {
	slices.SortStableFunc(rules, func(a, b AssociationRule) int {
		if c := cmp.Compare(b.Lift, a.Lift); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Confidence, a.Confidence); c != 0 {
			return c
		}
		return cmp.Compare(b.ItemsetSupport, a.ItemsetSupport)
	})
}
