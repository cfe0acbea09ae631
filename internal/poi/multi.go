package poi

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Ch00k/cvs-compass/internal/errors"
	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

// duplicateRadius is how close two same-named stores must be to count as one
const duplicateRadius = 30.0

// MultiSearcher queries several searchers concurrently and merges the results
type MultiSearcher struct {
	searchers []Searcher
	workers   int
	timeout   time.Duration
	logger    *logrus.Entry
}

// MultiOption configures a MultiSearcher
type MultiOption func(*MultiSearcher)

// WithWorkers bounds the number of searchers queried at once
func WithWorkers(n int) MultiOption {
	return func(m *MultiSearcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithSourceTimeout bounds each searcher's query
func WithSourceTimeout(d time.Duration) MultiOption {
	return func(m *MultiSearcher) {
		m.timeout = d
	}
}

// WithMultiLogger sets the logger
func WithMultiLogger(logger *logrus.Entry) MultiOption {
	return func(m *MultiSearcher) {
		m.logger = logger
	}
}

// NewMultiSearcher creates a searcher over searchers
func NewMultiSearcher(searchers []Searcher, opts ...MultiOption) *MultiSearcher {
	m := &MultiSearcher{
		searchers: searchers,
		workers:   4,
		timeout:   15 * time.Second,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements Searcher
func (m *MultiSearcher) Name() string { return "multi" }

type sourceResult struct {
	source string
	items  []Item
	err    error
	took   time.Duration
}

// SearchNearby implements Searcher. A source failing is logged and skipped;
// the search fails only when every source fails.
func (m *MultiSearcher) SearchNearby(ctx context.Context, q Query) ([]Item, error) {
	if len(m.searchers) == 0 {
		return nil, apperrors.SearchFailed(nil, errors.New("no search sources configured"))
	}

	workChan := make(chan Searcher, len(m.searchers))
	resultChan := make(chan sourceResult, len(m.searchers))

	numWorkers := min(m.workers, len(m.searchers))
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.worker(ctx, q, workChan, resultChan)
		}()
	}

	for _, s := range m.searchers {
		workChan <- s
	}
	close(workChan)

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var merged []Item
	var failed []string
	var lastErr error
	for result := range resultChan {
		if result.err != nil {
			m.logger.WithError(result.err).WithField("source", result.source).Warn("Search source failed")
			failed = append(failed, result.source)
			lastErr = result.err
			continue
		}
		m.logger.WithField("source", result.source).Debugf("Found %d stores in %v", len(result.items), result.took)
		merged = append(merged, result.items...)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(failed) == len(m.searchers) {
		return nil, apperrors.SearchFailed(failed, lastErr)
	}

	withDistance(merged, q.Center)
	SortByDistance(merged)
	return filter(Dedup(merged), q), nil
}

func (m *MultiSearcher) worker(ctx context.Context, q Query, workChan <-chan Searcher, resultChan chan<- sourceResult) {
	for s := range workChan {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, m.timeout)
		items, err := s.SearchNearby(sctx, q)
		cancel()
		resultChan <- sourceResult{source: s.Name(), items: items, err: err, took: time.Since(start)}
	}
}

// Dedup drops items that repeat an earlier item's id, or its name within
// 30 metres. The first occurrence wins.
func Dedup(items []Item) []Item {
	seen := make(map[string]bool, len(items))
	byName := make(map[string][]geo.Location)
	out := make([]Item, 0, len(items))

	for _, item := range items {
		if item.ID != "" && seen[item.ID] {
			continue
		}
		key := normalize(item.Name)
		duplicate := false
		for _, loc := range byName[key] {
			if geo.Distance(loc, item.Location) <= duplicateRadius {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		if item.ID != "" {
			seen[item.ID] = true
		}
		byName[key] = append(byName[key], item.Location)
		out = append(out, item)
	}
	return out
}
