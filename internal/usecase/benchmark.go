package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"codesearch/internal/domain"
	"codesearch/internal/port"
)

// Mode selects the retrieval strategy a benchmark run exercises.
type Mode string

const (
	ModeLexical  Mode = "lexical"
	ModeVector   Mode = "vector"
	ModeHybrid   Mode = "hybrid"
	ModeFallback Mode = "fallback"
)

const epsilon = 1e-9

// SearchFunc is one retrieval strategy: query in, top-k ranked hits out.
type SearchFunc func(query string, k int) ([]domain.LexicalHit, error)

// Harness replays labeled queries against a committed index, measuring
// ranking quality and latency. It is read-only and side-effect-free on the
// index and may be run repeatedly with different modes.
type Harness struct {
	queries   []domain.BenchmarkQuery
	searchers map[Mode]SearchFunc
}

// NewHarness wires the lexical mode from the given retriever. The fallback
// mode widens k to give recall-starved corpora a second chance, then trims.
func NewHarness(retriever port.Retriever, queries []domain.BenchmarkQuery) *Harness {
	h := &Harness{
		queries:   queries,
		searchers: make(map[Mode]SearchFunc),
	}
	h.searchers[ModeLexical] = retriever.Search
	h.searchers[ModeFallback] = func(query string, k int) ([]domain.LexicalHit, error) {
		hits, err := retriever.Search(query, k*3)
		if err != nil {
			return nil, err
		}
		if len(hits) > k {
			hits = hits[:k]
		}
		return hits, nil
	}
	return h
}

// Register attaches an alternate retrieval strategy (vector, hybrid) whose
// internals live outside this core.
func (h *Harness) Register(mode Mode, fn SearchFunc) {
	h.searchers[mode] = fn
}

// Run executes every query under the given mode and aggregates the metrics.
func (h *Harness) Run(mode Mode) (*domain.BenchmarkResult, error) {
	search, ok := h.searchers[mode]
	if !ok {
		return nil, fmt.Errorf("retrieval mode not available: %s", mode)
	}

	var (
		recallSum    float64
		precisionSum float64
		mrrSum       float64
		ndcgSum      float64
		latencies    []time.Duration
	)

	start := time.Now()
	for _, q := range h.queries {
		k := q.K
		if k < 1 {
			k = 1
		}

		qStart := time.Now()
		hits, err := search(q.Query, k)
		if err != nil {
			return nil, fmt.Errorf("query %s failed: %w", q.ID, err)
		}
		latencies = append(latencies, time.Since(qStart))

		hitIDs := make([]uint64, len(hits))
		for i, hit := range hits {
			hitIDs[i] = hit.ChunkID
		}

		recallSum += recallAtK(hitIDs, q.ExpectedChunkIDs)
		precisionSum += precisionAtK(hitIDs, q.ExpectedChunkIDs)
		mrrSum += reciprocalRank(hitIDs, q.ExpectedChunkIDs)
		ndcgSum += ndcg(hitIDs, q.ExpectedChunkIDs, k)
	}
	wall := time.Since(start)

	n := len(h.queries)
	denom := float64(n)
	if denom < 1 {
		denom = 1
	}

	return &domain.BenchmarkResult{
		Mode:            string(mode),
		RecallAtK:       recallSum / denom,
		PrecisionAtK:    precisionSum / denom,
		MRR:             mrrSum / denom,
		NDCG:            ndcgSum / denom,
		MedianLatencyMS: medianMS(latencies),
		ThroughputQPS:   float64(n) / math.Max(wall.Seconds(), epsilon),
		TotalWallTime:   wall,
		QueryCount:      n,
	}, nil
}

// LoadQueries reads benchmark queries from a JSON fixture file.
func LoadQueries(path string) ([]domain.BenchmarkQuery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark fixture: %w", err)
	}
	var queries []domain.BenchmarkQuery
	if err := json.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("malformed benchmark fixture: %w", err)
	}
	return queries, nil
}

func recallAtK(retrieved, expected []uint64) float64 {
	denom := float64(len(expected))
	if denom < 1 {
		denom = 1
	}
	return float64(intersectCount(retrieved, expected)) / denom
}

// precisionAtK returns 1.0 for an empty hit set. That is an intentional
// convention to avoid division by zero, not a bug: an empty result retrieves
// nothing irrelevant.
func precisionAtK(retrieved, expected []uint64) float64 {
	if len(retrieved) == 0 {
		return 1.0
	}
	return float64(intersectCount(retrieved, expected)) / float64(len(retrieved))
}

// reciprocalRank uses 0-based rank: 1/(rank+1), or 0 when no relevant hit
// appears.
func reciprocalRank(retrieved, expected []uint64) float64 {
	relevant := toSet(expected)
	for i, id := range retrieved {
		if _, ok := relevant[id]; ok {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func ndcg(retrieved, expected []uint64, k int) float64 {
	relevant := toSet(expected)

	dcg := 0.0
	for rank, id := range retrieved {
		if _, ok := relevant[id]; ok {
			dcg += 1.0 / math.Log2(float64(rank+2))
		}
	}

	ideal := len(expected)
	if k < ideal {
		ideal = k
	}
	idcg := 0.0
	for rank := 0; rank < ideal; rank++ {
		idcg += 1.0 / math.Log2(float64(rank+2))
	}

	return dcg / math.Max(idcg, epsilon)
}

func intersectCount(retrieved, expected []uint64) int {
	relevant := toSet(expected)
	count := 0
	for _, id := range retrieved {
		if _, ok := relevant[id]; ok {
			count++
			delete(relevant, id)
		}
	}
	return count
}

func toSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func medianMS(latencies []time.Duration) float64 {
	if len(latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(latencies))
	copy(sorted, latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid].Microseconds()) / 1000.0
	}
	return float64((sorted[mid-1] + sorted[mid]).Microseconds()) / 2000.0
}
