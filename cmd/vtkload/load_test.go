package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	var sorted []time.Duration
	for i := 1; i <= 100; i++ {
		sorted = append(sorted, time.Duration(i)*time.Millisecond)
	}
	tests := []struct {
		p    float64
		want time.Duration
	}{
		{50, 50 * time.Millisecond},
		{99, 99 * time.Millisecond},
		{100, 100 * time.Millisecond},
		{0, 1 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := percentile(sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %s, want %s", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 50) != 0 {
		t.Error("empty input should yield 0")
	}
}

func TestStatsSummarize(t *testing.T) {
	s := NewStats()
	s.RecordRequest(10*time.Millisecond, 200, &validateResponse{IsValid: true, CacheHit: true}, nil)
	s.RecordRequest(30*time.Millisecond, 200, &validateResponse{IsValid: false}, nil)
	s.RecordRequest(5*time.Millisecond, 503, nil, nil)
	s.RecordRequest(0, 0, nil, context.DeadlineExceeded)

	sum := s.Summarize(time.Second)
	if sum.Total != 4 || sum.Success != 2 || sum.Errors != 2 {
		t.Fatalf("unexpected counts %+v", sum)
	}
	if sum.Invalid != 1 || sum.CacheHits != 1 {
		t.Errorf("unexpected invalid/cache counts %+v", sum)
	}
	if sum.StatusCodes[200] != 2 || sum.StatusCodes[503] != 1 {
		t.Errorf("unexpected status codes %v", sum.StatusCodes)
	}
	if sum.Min != 5*time.Millisecond || sum.Max != 30*time.Millisecond || sum.Avg != 15*time.Millisecond {
		t.Errorf("unexpected latency summary min=%s avg=%s max=%s", sum.Min, sum.Avg, sum.Max)
	}

	var buf bytes.Buffer
	sum.Print(&buf)
	for _, want := range []string{"Total Requests:  4", "Cache Hit Rate:  50.0%", "503: 1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("report missing %q:\n%s", want, buf.String())
		}
	}
}

func TestRunAgainstServer(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/validate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		n := calls.Add(1)
		json.NewEncoder(w).Encode(validateResponse{IsValid: true, CacheHit: n > 1})
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	stats := run(ctx, loadConfig{BaseURL: srv.URL, Concurrency: 2}, srv.Client())

	sum := stats.Summarize(200 * time.Millisecond)
	if sum.Success == 0 {
		t.Fatal("expected successful requests")
	}
	if sum.StatusCodes[http.StatusBadRequest] != 0 {
		t.Errorf("server rejected %d requests", sum.StatusCodes[http.StatusBadRequest])
	}
}
