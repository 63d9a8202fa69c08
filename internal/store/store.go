// Package store keeps finished analyses in memory so their rules can be fetched, exported
// and queried after the upload request returns.
package store

import (
	"container/list"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"

	"github.com/yishak-cs/bundle-miner/internal/metrics"
	"github.com/yishak-cs/bundle-miner/internal/models"
)

const DefaultCapacity = 50

// ResultStore is a thread-safe LRU of analysis results keyed by analysis id.
type ResultStore struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	// order holds ids; front is the most recently used.
	order *list.List
}

func NewResultStore(capacity int) *ResultStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResultStore{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

type entry struct {
	id     string
	result *models.AnalysisResult
}

// Put stores r under its summary id, evicting the least recently used result at capacity.
func (s *ResultStore) Put(r *models.AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(r)
	metrics.StoredResults.Set(float64(s.order.Len()))
}

func (s *ResultStore) putLocked(r *models.AnalysisResult) {
	id := r.Summary.ID
	if el, ok := s.items[id]; ok {
		el.Value.(*entry).result = r
		s.order.MoveToFront(el)
		return
	}
	s.items[id] = s.order.PushFront(&entry{id: id, result: r})
	for s.order.Len() > s.capacity {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*entry).id)
	}
}

func (s *ResultStore) Get(id string) (*models.AnalysisResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[id]
	if !ok {
		return nil, false
	}
	s.order.MoveToFront(el)
	return el.Value.(*entry).result, true
}

func (s *ResultStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[id]
	if !ok {
		return false
	}
	s.order.Remove(el)
	delete(s.items, id)
	metrics.StoredResults.Set(float64(s.order.Len()))
	return true
}

func (s *ResultStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Summaries lists stored runs, most recently used first.
func (s *ResultStore) Summaries() []models.AnalysisSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AnalysisSummary, 0, s.order.Len())
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(*entry).result.Summary)
	}
	return out
}

// Snapshot writes every stored result as JSON, least recently used first, so Restore
// rebuilds the same recency order.
func (s *ResultStore) Snapshot(w io.Writer) error {
	s.mu.Lock()
	results := make([]*models.AnalysisResult, 0, s.order.Len())
	for el := s.order.Back(); el != nil; el = el.Prev() {
		results = append(results, el.Value.(*entry).result)
	}
	s.mu.Unlock()

	if err := json.NewEncoder(w).Encode(results); err != nil {
		return fmt.Errorf("failed to encode result snapshot: %w", err)
	}
	return nil
}

// Restore loads a snapshot written by Snapshot and returns the number of results read.
func (s *ResultStore) Restore(r io.Reader) (int, error) {
	var results []*models.AnalysisResult
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return 0, fmt.Errorf("failed to decode result snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, res := range results {
		if res == nil || res.Summary.ID == "" {
			continue
		}
		s.putLocked(res)
		n++
	}
	metrics.StoredResults.Set(float64(s.order.Len()))
	return n, nil
}
