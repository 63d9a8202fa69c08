package eclat

import "slices"

// Entry is one supported itemset and the transactions containing it.
type Entry struct {
	Items Itemset
	TIDs  TIDList
}

// SupportCount is the number of transactions containing the itemset.
func (e Entry) SupportCount() int {
	return len(e.TIDs)
}

// Level holds the supported itemsets of one size, sorted by items.
type Level struct {
	Size    int
	entries []Entry
	index   map[string]int
}

func newLevel(size int, entries []Entry) Level {
	slices.SortFunc(entries, func(a, b Entry) int {
		return compareItemsets(a.Items, b.Items)
	})
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Items.Key()] = i
	}
	return Level{Size: size, entries: entries, index: index}
}

func (l Level) Len() int {
	return len(l.entries)
}

// Entries returns the level's itemsets in canonical order. Callers must not modify them.
func (l Level) Entries() []Entry {
	return l.entries
}

func (l Level) Lookup(items Itemset) (Entry, bool) {
	i, ok := l.index[items.Key()]
	if !ok {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Lattice is the result of one mining run: levels 1..MaxSize, each non-empty.
type Lattice struct {
	TotalTransactions int
	MinSupport        float64
	// MinSupportCount is MinSupport * TotalTransactions, not rounded.
	MinSupportCount float64

	levels []Level
}

func (l *Lattice) Levels() []Level {
	if l == nil {
		return nil
	}
	return l.levels
}

// Level returns the level for itemsets of size k.
func (l *Lattice) Level(k int) (Level, bool) {
	if l == nil || k < 1 || k > len(l.levels) {
		return Level{}, false
	}
	return l.levels[k-1], true
}

// MaxSize is the size of the deepest non-empty level, 0 when nothing was mined.
func (l *Lattice) MaxSize() int {
	if l == nil {
		return 0
	}
	return len(l.levels)
}

func (l *Lattice) Empty() bool {
	return l.MaxSize() == 0
}

// ItemsetCount is the total number of supported itemsets over all levels.
func (l *Lattice) ItemsetCount() int {
	n := 0
	for _, lv := range l.Levels() {
		n += lv.Len()
	}
	return n
}

// LevelCounts maps itemset size to the number of supported itemsets of that size.
func (l *Lattice) LevelCounts() map[int]int {
	out := make(map[int]int, l.MaxSize())
	for _, lv := range l.Levels() {
		out[lv.Size] = lv.Len()
	}
	return out
}

// SupportCount looks up the support count of a canonical itemset of any mined size.
func (l *Lattice) SupportCount(items Itemset) (int, bool) {
	lv, ok := l.Level(len(items))
	if !ok {
		return 0, false
	}
	e, ok := lv.Lookup(items)
	if !ok {
		return 0, false
	}
	return e.SupportCount(), true
}
