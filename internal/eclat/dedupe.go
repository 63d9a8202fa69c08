package eclat

// DedupStats summarizes one deduplication pass.
type DedupStats struct {
	Input    int            `json:"input"`
	Output   int            `json:"output"`
	Removed  int            `json:"removed"`
	Examples []DedupExample `json:"examples,omitempty"`
}

// DedupExample records which rule survived a group and which were dropped.
type DedupExample struct {
	Kept    string   `json:"kept"`
	Removed []string `json:"removed"`
}

const maxDedupExamples = 3

// DeduplicateRules keeps one rule per ItemsetID: the one with the highest confidence, then
// lift, then itemset support. Complete ties keep the rule reached first. Group order follows
// the first appearance of each ItemsetID, so deduplicating twice is a no-op.
func DeduplicateRules(rules []AssociationRule) ([]AssociationRule, DedupStats) {
	kept, removed := dedupeBy(rules,
		func(r AssociationRule) string { return r.ItemsetID.Key() },
		betterRule,
	)
	return kept, dedupStats(len(rules), kept, removed, AssociationRule.Rule)
}

func betterRule(a, b AssociationRule) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Lift != b.Lift {
		return a.Lift > b.Lift
	}
	return a.ItemsetSupportCount > b.ItemsetSupportCount
}

// dedupeBy groups items by key and keeps, per group, the element no other element is
// better than. removed[i] holds the losers of kept[i]'s group.
func dedupeBy[T any](items []T, key func(T) string, better func(a, b T) bool) (kept []T, removed [][]T) {
	groups := make(map[string]int)
	for _, it := range items {
		k := key(it)
		gi, ok := groups[k]
		if !ok {
			groups[k] = len(kept)
			kept = append(kept, it)
			removed = append(removed, nil)
			continue
		}
		if better(it, kept[gi]) {
			removed[gi] = append(removed[gi], kept[gi])
			kept[gi] = it
		} else {
			removed[gi] = append(removed[gi], it)
		}
	}
	return kept, removed
}

func dedupStats[T any](input int, kept []T, removed [][]T, label func(T) string) DedupStats {
	st := DedupStats{Input: input, Output: len(kept), Removed: input - len(kept)}
	for i, losers := range removed {
		if len(losers) == 0 || len(st.Examples) == maxDedupExamples {
			continue
		}
		ex := DedupExample{Kept: label(kept[i])}
		for _, l := range losers {
			ex.Removed = append(ex.Removed, label(l))
		}
		st.Examples = append(st.Examples, ex)
	}
	return st
}
