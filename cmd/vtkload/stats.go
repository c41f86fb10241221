package main

import (
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// Stats accumulates request outcomes from concurrent workers.
type Stats struct {
	mu          sync.Mutex
	total       int64
	success     int64
	errors      int64
	invalid     int64
	cacheHits   int64
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// RecordRequest records one request. res is nil unless the service answered
// 200 with a decodable report.
func (s *Stats) RecordRequest(d time.Duration, status int, res *validateResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if err != nil || status == 0 {
		s.errors++
		return
	}
	s.statusCodes[status]++
	s.latencies = append(s.latencies, d)
	if res == nil {
		s.errors++
		return
	}
	s.success++
	if !res.IsValid {
		s.invalid++
	}
	if res.CacheHit {
		s.cacheHits++
	}
}

// Summary is a point-in-time digest of Stats.
type Summary struct {
	Total, Success, Errors, Invalid, CacheHits int64
	RPS                                        float64
	Min, Avg, P50, P90, P95, P99, Max, StdDev  time.Duration
	StatusCodes                                map[int]int64
}

func (s *Stats) Summarize(elapsed time.Duration) Summary {
	s.mu.Lock()
	sum := Summary{
		Total:       s.total,
		Success:     s.success,
		Errors:      s.errors,
		Invalid:     s.invalid,
		CacheHits:   s.cacheHits,
		StatusCodes: make(map[int]int64, len(s.statusCodes)),
	}
	for code, n := range s.statusCodes {
		sum.StatusCodes[code] = n
	}
	latencies := append([]time.Duration(nil), s.latencies...)
	s.mu.Unlock()

	if elapsed > 0 {
		sum.RPS = float64(sum.Total) / elapsed.Seconds()
	}
	if len(latencies) == 0 {
		return sum
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var total time.Duration
	for _, l := range latencies {
		total += l
	}
	sum.Avg = total / time.Duration(len(latencies))
	sum.Min = latencies[0]
	sum.Max = latencies[len(latencies)-1]
	sum.P50 = percentile(latencies, 50)
	sum.P90 = percentile(latencies, 90)
	sum.P95 = percentile(latencies, 95)
	sum.P99 = percentile(latencies, 99)

	var sq float64
	for _, l := range latencies {
		diff := float64(l - sum.Avg)
		sq += diff * diff
	}
	sum.StdDev = time.Duration(math.Sqrt(sq / float64(len(latencies))))
	return sum
}

func (s Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", s.Total)
	fmt.Fprintf(w, "Successful:      %d\n", s.Success)
	fmt.Fprintf(w, "Errors:          %d\n", s.Errors)
	if s.Total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(s.Errors)/float64(s.Total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", s.RPS)
	}
	if s.Success > 0 {
		fmt.Fprintf(w, "Invalid Code:    %d\n", s.Invalid)
		fmt.Fprintf(w, "Cache Hit Rate:  %.1f%%\n", float64(s.CacheHits)/float64(s.Success)*100)
	}

	if s.Max > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", s.Min)
		fmt.Fprintf(w, "Avg:    %s\n", s.Avg)
		fmt.Fprintf(w, "P50:    %s\n", s.P50)
		fmt.Fprintf(w, "P90:    %s\n", s.P90)
		fmt.Fprintf(w, "P95:    %s\n", s.P95)
		fmt.Fprintf(w, "P99:    %s\n", s.P99)
		fmt.Fprintf(w, "Max:    %s\n", s.Max)
		fmt.Fprintf(w, "StdDev: %s\n", s.StdDev)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Status Codes ===")
	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, s.StatusCodes[code])
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
