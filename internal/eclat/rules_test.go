package eclat_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
)

// xyzBaskets reproduces support(X)=support(Y)=3, support(XY)=2 over 5 orders.
func xyzBaskets() []eclat.Transaction {
	return buildTransactions(
		[]string{"X", "Y"},
		[]string{"X", "Y"},
		[]string{"X", "Z"},
		[]string{"Y", "Z"},
		[]string{"Z"},
	)
}

func TestSynthesize_PairRuleMetrics(t *testing.T) {
	lat := mine(t, xyzBaskets(), 0.2)
	rules := eclat.NewSynthesizer(nil).Synthesize(lat)
	filtered := eclat.FilterRules(rules, eclat.Thresholds{MinSupport: 0.2, MinConfidence: 0.5, MinLift: 1.0})

	r, ok := findRule(filtered, eclat.Itemset{"X"}, eclat.Itemset{"Y"})
	require.True(t, ok, "X -> Y must pass the thresholds")
	require.Equal(t, "X -> Y", r.Rule())
	require.Equal(t, 2, r.ItemsetSupportCount)
	require.Equal(t, 3, r.AntecedentSupportCount)
	require.InDelta(t, 0.4, r.ItemsetSupport, 1e-9)
	require.InDelta(t, 2.0/3.0, r.Confidence, 1e-9)
	require.InDelta(t, 0.4/(0.6*0.6), r.Lift, 1e-9)
	require.InDelta(t, 0.36, r.ExpectedSupport, 1e-9)
	require.Equal(t, eclat.Itemset{"X", "Y"}, r.ItemsetID)

	for _, fr := range filtered {
		require.NotContains(t, fr.ItemsetID, "Z", "rules with Z have lift below 1")
	}
}

func TestSynthesize_OverlappingBasketsFallBelowLift(t *testing.T) {
	lat := mine(t, buildTransactions(
		[]string{"X", "Y"},
		[]string{"X", "Y"},
		[]string{"X", "Z"},
		[]string{"Y", "Z"},
		[]string{"X", "Y", "Z"},
	), 0.2)
	rules := eclat.NewSynthesizer(nil).Synthesize(lat)

	r, ok := findRule(rules, eclat.Itemset{"X"}, eclat.Itemset{"Y"})
	require.True(t, ok)
	require.InDelta(t, 0.75, r.Confidence, 1e-9)
	require.InDelta(t, 0.9375, r.Lift, 1e-9)

	filtered := eclat.FilterRules(rules, eclat.Thresholds{MinSupport: 0.2, MinConfidence: 0.5, MinLift: 1.0})
	require.Empty(t, filtered)
}

func TestSynthesize_LiftAnomalyExcluded(t *testing.T) {
	baskets := [][]string{{"A", "B"}, {"A", "B"}}
	for i := 0; i < 298; i++ {
		baskets = append(baskets, []string{"C", "D"})
	}
	lat := mine(t, buildTransactions(baskets...), 0.005)

	rules := eclat.NewSynthesizer(nil).Synthesize(lat)
	require.NotEmpty(t, rules)
	for _, r := range rules {
		require.False(t, r.ItemsetID.Equal(eclat.Itemset{"A", "B"}), "lift 150 rule must never be emitted")
		require.LessOrEqual(t, r.Lift, eclat.MaxLift)
	}

	direct := eclat.NewAssociationRule(eclat.Itemset{"A"}, eclat.Itemset{"B"}, 2, 2, 2, 300)
	require.InDelta(t, 150.0, direct.Lift, 1e-9)
}

func TestSynthesize_AllBipartitions(t *testing.T) {
	lat := mine(t, groceryBaskets(), 0.2)
	rules := eclat.NewSynthesizer(nil).Synthesize(lat)

	perItemset := map[string]int{}
	for _, r := range rules {
		require.NotEmpty(t, r.Antecedent)
		require.NotEmpty(t, r.Consequent)
		for _, it := range r.Antecedent {
			require.False(t, r.Consequent.Contains(it), "sides must be disjoint")
		}
		require.Equal(t, r.ItemsetID, r.Antecedent.Union(r.Consequent))
		perItemset[r.ItemsetID.Key()]++
	}

	quad := eclat.NewItemset("bread", "butter", "eggs", "milk")
	require.Equal(t, 14, perItemset[quad.Key()], "2^4 - 2 splits")
}

func TestSynthesize_LiftSymmetry(t *testing.T) {
	lat := mine(t, groceryBaskets(), 0.2)
	rules := eclat.NewSynthesizer(nil).Synthesize(lat)

	ab := eclat.NewItemset("bread", "milk")
	c := eclat.Itemset{"eggs"}
	forward, ok := findRule(rules, ab, c)
	require.True(t, ok)
	backward, ok := findRule(rules, c, ab)
	require.True(t, ok)
	require.InDelta(t, forward.Lift, backward.Lift, 1e-12)
	require.Equal(t, forward.ItemsetID, backward.ItemsetID)
}

func TestSynthesize_ConfidenceBounded(t *testing.T) {
	lat := mine(t, groceryBaskets(), 0.1)
	for _, r := range eclat.NewSynthesizer(nil).Synthesize(lat) {
		require.GreaterOrEqual(t, r.Confidence, 0.0)
		require.LessOrEqual(t, r.Confidence, 1.0+1e-12)
	}
}

func TestFilterRules_ThresholdMonotonicity(t *testing.T) {
	lat := mine(t, groceryBaskets(), 0.1)
	rules := eclat.NewSynthesizer(nil).Synthesize(lat)
	base := eclat.Thresholds{MinSupport: 0.1, MinConfidence: 0.2, MinLift: 0.5}
	baseCount := len(eclat.FilterRules(rules, base))

	raised := []eclat.Thresholds{
		{MinSupport: 0.3, MinConfidence: base.MinConfidence, MinLift: base.MinLift},
		{MinSupport: base.MinSupport, MinConfidence: 0.7, MinLift: base.MinLift},
		{MinSupport: base.MinSupport, MinConfidence: base.MinConfidence, MinLift: 1.2},
	}
	for _, th := range raised {
		require.LessOrEqual(t, len(eclat.FilterRules(rules, th)), baseCount)
	}
}

func TestFilterRules_KeepsRulesOnThresholdBoundary(t *testing.T) {
	tests := []struct {
		name                              string
		antCount, consCount, count, total int
		thresholds                        eclat.Thresholds
	}{
		{"lift exactly one", 4, 15, 3, 20, eclat.Thresholds{MinLift: 1.0}},
		{"confidence exactly one fifth", 5, 5, 1, 25, eclat.Thresholds{MinConfidence: 0.2}},
		{"confidence one fifth over larger counts", 35, 7, 7, 49, eclat.Thresholds{MinConfidence: 0.2}},
		{"support exactly min", 4, 4, 2, 10, eclat.Thresholds{MinSupport: 0.2}},
		{"all three on the edge", 10, 10, 2, 50, eclat.Thresholds{MinSupport: 0.04, MinConfidence: 0.2, MinLift: 1.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, tt.antCount, tt.consCount, tt.count, tt.total)
			require.True(t, tt.thresholds.Allows(r), "support=%v confidence=%v lift=%v", r.ItemsetSupport, r.Confidence, r.Lift)
			require.Len(t, eclat.FilterRules([]eclat.AssociationRule{r}, tt.thresholds), 1)
		})
	}
}

func TestNewAssociationRule_ExactBoundariesAcrossSmallCounts(t *testing.T) {
	liftOne := eclat.Thresholds{MinLift: 1.0}
	confFifth := eclat.Thresholds{MinConfidence: 0.2}
	for n := 1; n <= 60; n++ {
		for a := 1; a <= n; a++ {
			for c := 1; c <= n; c++ {
				if a*c%n == 0 {
					if s := a * c / n; s >= 1 && s <= min(a, c) {
						r := eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, a, c, s, n)
						require.True(t, liftOne.Allows(r), "n=%d a=%d c=%d s=%d lift=%v", n, a, c, s, r.Lift)
					}
				}
				if a%5 == 0 && a/5 <= c {
					r := eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, a, c, a/5, n)
					require.True(t, confFifth.Allows(r), "n=%d a=%d s=%d confidence=%v", n, a, a/5, r.Confidence)
				}
			}
		}
	}
}

func TestNewAssociationRule_ExactRatios(t *testing.T) {
	r := eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, 4, 15, 3, 20)
	require.Equal(t, 1.0, r.Lift)
	require.Equal(t, 0.75, r.Confidence)

	r = eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, 5, 5, 1, 25)
	require.Equal(t, 0.2, r.Confidence)
	require.Equal(t, 1.0, r.Lift)
}

func TestNewAssociationRule_ZeroDenominators(t *testing.T) {
	r := eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, 0, 0, 0, 0)
	require.Zero(t, r.Confidence)
	require.Zero(t, r.Lift)
	require.Zero(t, r.ExpectedSupport)

	r = eclat.NewAssociationRule(eclat.Itemset{"a"}, eclat.Itemset{"b"}, 0, 4, 0, 10)
	require.Zero(t, r.Confidence)
	require.Zero(t, r.Lift)
}

func TestSortRules(t *testing.T) {
	mk := func(name string, antCount, consCount, count int) eclat.AssociationRule {
		return eclat.NewAssociationRule(eclat.Itemset{name}, eclat.Itemset{name + "'"}, antCount, consCount, count, 64)
	}
	rules := []eclat.AssociationRule{
		mk("low-lift", 32, 32, 16), // lift 1, conf .5
		mk("high-lift", 8, 8, 2),   // lift 2, conf .25
		mk("tie-conf", 4, 16, 2),   // lift 2, conf .5
	}
	eclat.SortRules(rules)
	require.Equal(t, "tie-conf", rules[0].Antecedent[0])
	require.Equal(t, "high-lift", rules[1].Antecedent[0])
	require.Equal(t, "low-lift", rules[2].Antecedent[0])
}
