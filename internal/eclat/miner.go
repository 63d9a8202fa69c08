package eclat

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

// MaxItemsetSize caps the depth of the level-wise search.
const MaxItemsetSize = 10

// MinerConfig tunes the miner. Zero values select the defaults.
type MinerConfig struct {
	// MaxSize is the largest itemset size to mine, at most MaxItemsetSize.
	MaxSize int
	// Workers bounds the goroutines used for pairwise intersections of one level.
	Workers int
}

// Miner builds TID-list indexes level by level (ECLAT, vertical format).
type Miner struct {
	log     *logger.Logger
	maxSize int
	workers int
}

func NewMiner(log *logger.Logger, cfg MinerConfig) *Miner {
	if cfg.MaxSize < 1 || cfg.MaxSize > MaxItemsetSize {
		cfg.MaxSize = MaxItemsetSize
	}
	if cfg.Workers < 1 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Miner{
		log:     logger.OrNop(log).With("component", "Miner"),
		maxSize: cfg.MaxSize,
		workers: cfg.Workers,
	}
}

// Mine produces one level per itemset size, from 1 up to the deepest size that still has
// supported itemsets. Only items in candidates are indexed. An itemset is supported when
// its support count is >= minSupport * len(transactions).
//
// Cancelling ctx aborts the whole run; partial lattices are never returned.
func (m *Miner) Mine(ctx context.Context, transactions []Transaction, candidates []string, minSupport float64) (*Lattice, error) {
	total := len(transactions)
	lat := &Lattice{
		TotalTransactions: total,
		MinSupport:        minSupport,
		MinSupportCount:   minSupport * float64(total),
	}
	m.log.Info("starting itemset mining",
		"transactions", total,
		"candidates", len(candidates),
		"min_support", minSupport,
		"min_support_count", lat.MinSupportCount,
	)

	start := time.Now()
	level1, indexed := m.singletons(transactions, candidates, lat.MinSupportCount)
	m.log.Info("itemset level mined", "size", 1, "candidates", indexed, "supported", len(level1), "elapsed", time.Since(start))
	if len(level1) == 0 {
		return lat, nil
	}
	lat.levels = append(lat.levels, newLevel(1, level1))

	prev := lat.levels[0].Entries()
	for k := 2; k <= m.maxSize; k++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("mining aborted before level %d: %w", k, err)
		}
		start = time.Now()
		next, checked, err := m.join(ctx, prev, k, lat.MinSupportCount)
		if err != nil {
			return nil, fmt.Errorf("failed to mine level %d: %w", k, err)
		}
		m.log.Info("itemset level mined", "size", k, "candidates", checked, "supported", len(next), "elapsed", time.Since(start))
		if len(next) == 0 {
			break
		}
		lv := newLevel(k, next)
		lat.levels = append(lat.levels, lv)
		prev = lv.Entries()
	}

	m.log.Info("itemset mining completed", "max_size", lat.MaxSize(), "itemsets", lat.ItemsetCount())
	return lat, nil
}

// singletons indexes every candidate item and keeps the supported ones.
// It also returns how many distinct candidate items occurred at all.
func (m *Miner) singletons(transactions []Transaction, candidates []string, minCount float64) ([]Entry, int) {
	allowed := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		allowed[c] = struct{}{}
	}

	tidlists := make(map[string]TIDList)
	for _, tx := range transactions {
		for _, item := range tx.Items {
			if _, ok := allowed[item]; !ok {
				continue
			}
			tidlists[item] = append(tidlists[item], tx.ID)
		}
	}

	entries := make([]Entry, 0, len(tidlists))
	for item, tids := range tidlists {
		slices.Sort(tids)
		tids = slices.Compact(tids)
		if !supported(len(tids), minCount) {
			continue
		}
		entries = append(entries, Entry{Items: Itemset{item}, TIDs: tids})
	}
	return entries, len(tidlists)
}

// join builds level k from level k-1. Two parents combine when they share exactly k-2
// items; the child's TID-list is the intersection of the parents' lists, which equals the
// intersection of its members' single-item lists.
//
// Rows of the pair matrix run concurrently and are merged in row order, so the output does
// not depend on scheduling.
func (m *Miner) join(ctx context.Context, prev []Entry, k int, minCount float64) ([]Entry, int, error) {
	rows := make([][]Entry, len(prev))
	checked := make([]int, len(prev))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for i := range prev {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var out []Entry
			for j := i + 1; j < len(prev); j++ {
				a, b := prev[i], prev[j]
				if sharedCount(a.Items, b.Items) != k-2 {
					continue
				}
				checked[i]++
				tids := a.TIDs.Intersect(b.TIDs)
				if len(tids) == 0 || !supported(len(tids), minCount) {
					continue
				}
				out = append(out, Entry{Items: a.Items.Union(b.Items), TIDs: tids})
			}
			rows[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	total := 0
	seen := make(map[string]struct{})
	var merged []Entry
	for i, row := range rows {
		total += checked[i]
		for _, e := range row {
			key := e.Items.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, e)
		}
	}
	return merged, total, nil
}

func supported(count int, minCount float64) bool {
	return float64(count) >= minCount
}
