package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

// DefaultTop and MaxTop bound the ranked lists in AggregatedStats.
const (
	DefaultTop = 10
	MaxTop     = 100
)

type AggregatedStats struct {
	TotalValidations  int64            `json:"total_validations"`
	CodeValidations   int64            `json:"code_validations"`
	ImportValidations int64            `json:"import_validations"`
	Valid             int64            `json:"valid"`
	Invalid           int64            `json:"invalid"`
	CacheHits         int64            `json:"cache_hits"`
	CacheMisses       int64            `json:"cache_misses"`
	ErrorsByType      map[string]int64 `json:"errors_by_type"`
	AvgLatencyMs      float64          `json:"avg_latency_ms"`
	P50LatencyMs      float64          `json:"p50_latency_ms"`
	P95LatencyMs      float64          `json:"p95_latency_ms"`
	P99LatencyMs      float64          `json:"p99_latency_ms"`
	TopUnknownClasses []NameCount      `json:"top_unknown_classes"`
	TopMissingMethods []NameCount      `json:"top_missing_methods"`
	PerMinute         float64          `json:"validations_per_minute"`
}

type NameCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Aggregator folds validation events into running statistics. Events arrive
// either directly through Record or from Kafka through Handler.
type Aggregator struct {
	mu             sync.RWMutex
	stats          AggregatedStats
	latencies      []float64
	unknownClasses map[string]int64
	missingMethods map[string]int64
	startTime      time.Time
	logger         *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		stats:          AggregatedStats{ErrorsByType: make(map[string]int64)},
		latencies:      make([]float64, 0, 1024),
		unknownClasses: make(map[string]int64),
		missingMethods: make(map[string]int64),
		startTime:      time.Now(),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// Start consumes events with consumer until ctx is cancelled. The consumer
// must have been created with a.Handler().
func (a *Aggregator) Start(ctx context.Context, consumer *kafka.Consumer) error {
	a.logger.Info("analytics aggregator starting")
	return consumer.Start(ctx)
}

// Handler decodes Kafka messages into events and records them.
func (a *Aggregator) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ValidationEvent](value)
		if err != nil {
			return err
		}
		a.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event ValidationEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalValidations++
	switch event.Type {
	case EventCodeValidation:
		a.stats.CodeValidations++
		if event.CacheHit {
			a.stats.CacheHits++
		} else {
			a.stats.CacheMisses++
		}
	case EventImportValidation:
		a.stats.ImportValidations++
	}
	if event.Valid {
		a.stats.Valid++
	} else {
		a.stats.Invalid++
	}
	for t, n := range event.ErrorTypes {
		a.stats.ErrorsByType[t] += int64(n)
	}
	for _, c := range event.UnknownClasses {
		a.unknownClasses[c]++
	}
	for _, m := range event.MissingMethods {
		a.missingMethods[m]++
	}

	if len(a.latencies) == maxLatencySamples {
		copy(a.latencies, a.latencies[1:])
		a.latencies = a.latencies[:maxLatencySamples-1]
	}
	a.latencies = append(a.latencies, event.LatencyMs)
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(DefaultTop)
}

// StatsTop is Stats with the unknown-class and missing-method rankings cut
// to n entries.
func (a *Aggregator) StatsTop(n int) AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	stats.ErrorsByType = make(map[string]int64, len(a.stats.ErrorsByType))
	for t, n := range a.stats.ErrorsByType {
		stats.ErrorsByType[t] = n
	}
	if len(a.latencies) > 0 {
		sorted := append([]float64(nil), a.latencies...)
		sort.Float64s(sorted)
		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopUnknownClasses = topN(a.unknownClasses, n)
	stats.TopMissingMethods = topN(a.missingMethods, n)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.PerMinute = float64(stats.TotalValidations) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n largest counts, ties broken by name.
func topN(counts map[string]int64, n int) []NameCount {
	result := make([]NameCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, NameCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
