package crawler

import (
	"fmt"
	"sort"
	"sync"
)

// Order selects how Snapshot arranges the accumulated records.
type Order string

// Supported snapshot orders.
const (
	// OrderArrival keeps batches in the order page tasks appended them.
	OrderArrival Order = "arrival"
	// OrderPage stable-sorts batches by page index; records within a page keep document order.
	OrderPage Order = "page"
)

// ParseOrder validates a configured order name.
func ParseOrder(raw string) (Order, error) {
	switch Order(raw) {
	case OrderArrival, OrderPage:
		return Order(raw), nil
	default:
		return "", fmt.Errorf("unknown order %q", raw)
	}
}

// AggregateStats are the per-run counters tracked alongside the records.
type AggregateStats struct {
	PagesSucceeded int
	PagesFailed    int
	Records        int
	Rejected       int
}

type batch struct {
	page    int
	records []Record
}

// Aggregator is the single shared collection page tasks append into. Every
// mutation happens under one mutex; callers do their fetch and extract work
// before calling Append so the critical section only covers the append.
type Aggregator struct {
	mu      sync.Mutex
	batches []batch
	stats   AggregateStats
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Append atomically adds one page's records to the collection.
func (a *Aggregator) Append(task PageTask, records []Record, rejected int) {
	cp := append([]Record(nil), records...)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.batches = append(a.batches, batch{page: task.Index, records: cp})
	a.stats.PagesSucceeded++
	a.stats.Records += len(cp)
	a.stats.Rejected += rejected
}

// RecordFailure counts a page that contributed nothing.
func (a *Aggregator) RecordFailure(PageTask, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.PagesFailed++
}

// Snapshot returns the accumulated records. Callers must ensure no writers are
// still active; the orchestrator joins every task first. The result is never nil.
func (a *Aggregator) Snapshot(order Order) []Record {
	a.mu.Lock()
	defer a.mu.Unlock()

	batches := append([]batch(nil), a.batches...)
	if order == OrderPage {
		sort.SliceStable(batches, func(i, j int) bool {
			return batches[i].page < batches[j].page
		})
	}
	out := make([]Record, 0, a.stats.Records)
	for _, b := range batches {
		out = append(out, b.records...)
	}
	return out
}

// Stats returns a copy of the run counters.
func (a *Aggregator) Stats() AggregateStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}
