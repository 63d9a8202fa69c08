package eclat

import (
	"fmt"
	"slices"
	"strings"
)

const keySeparator = "\x1f"

// Itemset is a canonical, sorted and duplicate-free set of item codes.
// Build it with NewItemset so equality reduces to sequence equality.
type Itemset []string

// NewItemset sorts and deduplicates items. Empty codes are dropped.
func NewItemset(items ...string) Itemset {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it != "" {
			out = append(out, it)
		}
	}
	slices.Sort(out)
	return Itemset(slices.Compact(out))
}

// Key is a map key unique to the item combination.
func (s Itemset) Key() string {
	return strings.Join(s, keySeparator)
}

func (s Itemset) Len() int {
	return len(s)
}

// String renders the items joined by " + ", the label format used for rule sides.
func (s Itemset) String() string {
	return strings.Join(s, " + ")
}

func (s Itemset) Equal(o Itemset) bool {
	return slices.Equal(s, o)
}

func (s Itemset) Contains(item string) bool {
	_, found := slices.BinarySearch(s, item)
	return found
}

// ContainsAll reports whether sub is a subset of s. Both must be canonical.
func (s Itemset) ContainsAll(sub Itemset) bool {
	if len(sub) > len(s) {
		return false
	}
	i := 0
	for _, want := range sub {
		for i < len(s) && s[i] < want {
			i++
		}
		if i == len(s) || s[i] != want {
			return false
		}
		i++
	}
	return true
}

// Union merges two canonical itemsets.
func (s Itemset) Union(o Itemset) Itemset {
	out := make(Itemset, 0, len(s)+len(o))
	i, j := 0, 0
	for i < len(s) && j < len(o) {
		switch {
		case s[i] < o[j]:
			out = append(out, s[i])
			i++
		case s[i] > o[j]:
			out = append(out, o[j])
			j++
		default:
			out = append(out, s[i])
			i++
			j++
		}
	}
	out = append(out, s[i:]...)
	return append(out, o[j:]...)
}

// sharedCount returns the number of items present in both canonical itemsets.
func sharedCount(a, b Itemset) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}

func compareItemsets(a, b Itemset) int {
	return slices.Compare(a, b)
}

// TIDList is an ascending list of transaction ids.
type TIDList []int

// Intersect returns the ids present in both lists.
func (t TIDList) Intersect(o TIDList) TIDList {
	out := make(TIDList, 0, min(len(t), len(o)))
	i, j := 0, 0
	for i < len(t) && j < len(o) {
		switch {
		case t[i] < o[j]:
			i++
		case t[i] > o[j]:
			j++
		default:
			out = append(out, t[i])
			i++
			j++
		}
	}
	return out
}

// IntersectAll folds Intersect over lists. It returns nil for no input.
func IntersectAll(lists ...TIDList) TIDList {
	if len(lists) == 0 {
		return nil
	}
	out := lists[0]
	for _, l := range lists[1:] {
		out = out.Intersect(l)
		if len(out) == 0 {
			break
		}
	}
	return out
}

// Transaction is one order reduced to its distinct item codes.
type Transaction struct {
	ID    int
	Items Itemset
}

func NewTransaction(id int, items ...string) Transaction {
	return Transaction{ID: id, Items: NewItemset(items...)}
}

// Label is the display id, e.g. "T12".
func (t Transaction) Label() string {
	return fmt.Sprintf("T%d", t.ID)
}

// ItemCount pairs an item with how many transactions contain it.
type ItemCount struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// TopItems returns the n most frequent items, ties broken by item code.
func TopItems(transactions []Transaction, n int) []ItemCount {
	counts := make(map[string]int)
	for _, tx := range transactions {
		for _, it := range tx.Items {
			counts[it]++
		}
	}
	out := make([]ItemCount, 0, len(counts))
	for it, c := range counts {
		out = append(out, ItemCount{Item: it, Count: c})
	}
	slices.SortFunc(out, func(a, b ItemCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Item, b.Item)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
