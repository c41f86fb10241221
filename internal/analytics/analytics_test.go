package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/internal/validation"
	"github.com/patrickoleary/vtkapi-mcp/pkg/kafka"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	err     error
}

func (p *fakePublisher) PublishBatch(ctx context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func invalidResult() *validation.Result {
	return &validation.Result{
		Errors: []validation.Error{
			{Type: validation.ErrorUnknownClass, Message: "Unknown class 'vtkFakeReader'", Identifier: "vtkFakeReader"},
			{Type: validation.ErrorMethod, Message: "Method 'FakeMethod' not found", Identifier: "vtkActor.FakeMethod"},
			{Type: validation.ErrorMethod, Message: "Method 'Other' not found", Identifier: "vtkActor.Other"},
		},
	}
}

func TestNewCodeEvent(t *testing.T) {
	ev := NewCodeEvent(invalidResult(), 1500*time.Microsecond, true, "req-1")
	if ev.Type != EventCodeValidation || ev.Valid || ev.ErrorCount != 3 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.ErrorTypes["method"] != 2 || ev.ErrorTypes["unknown_class"] != 1 {
		t.Errorf("error types = %v", ev.ErrorTypes)
	}
	if len(ev.UnknownClasses) != 1 || ev.UnknownClasses[0] != "vtkFakeReader" {
		t.Errorf("unknown classes = %v", ev.UnknownClasses)
	}
	if len(ev.MissingMethods) != 2 {
		t.Errorf("missing methods = %v", ev.MissingMethods)
	}
	if ev.LatencyMs != 1.5 || !ev.CacheHit || ev.RequestID != "req-1" {
		t.Errorf("unexpected latency/cache/request fields: %+v", ev)
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(NewCodeEvent(invalidResult(), 4*time.Millisecond, false, ""))
	agg.Record(NewCodeEvent(invalidResult(), 2*time.Millisecond, true, ""))
	agg.Record(NewImportEvent(validation.ImportResult{Valid: true}, time.Millisecond, ""))

	st := agg.Stats()
	if st.TotalValidations != 3 || st.CodeValidations != 2 || st.ImportValidations != 1 {
		t.Fatalf("unexpected totals %+v", st)
	}
	if st.Valid != 1 || st.Invalid != 2 || st.CacheHits != 1 || st.CacheMisses != 1 {
		t.Errorf("unexpected counters %+v", st)
	}
	if st.ErrorsByType["method"] != 4 {
		t.Errorf("errors by type = %v", st.ErrorsByType)
	}
	if len(st.TopUnknownClasses) != 1 || st.TopUnknownClasses[0] != (NameCount{"vtkFakeReader", 2}) {
		t.Errorf("top unknown classes = %v", st.TopUnknownClasses)
	}
	if len(st.TopMissingMethods) != 2 || st.TopMissingMethods[0].Name != "vtkActor.FakeMethod" {
		t.Errorf("top missing methods = %v", st.TopMissingMethods)
	}
	if st.P50LatencyMs != 2 || st.AvgLatencyMs < 2.3 || st.AvgLatencyMs > 2.4 {
		t.Errorf("latency p50=%v avg=%v", st.P50LatencyMs, st.AvgLatencyMs)
	}
}

func TestAggregatorHandler(t *testing.T) {
	agg := NewAggregator()
	data, _ := json.Marshal(NewCodeEvent(invalidResult(), time.Millisecond, false, ""))
	if err := agg.Handler()(context.Background(), nil, data); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if err := agg.Handler()(context.Background(), nil, []byte("not json")); err == nil {
		t.Error("expected decode error")
	}
	if agg.Stats().TotalValidations != 1 {
		t.Errorf("expected one recorded event, got %d", agg.Stats().TotalValidations)
	}
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 2, time.Hour)
	c.Record(ValidationEvent{Type: EventImportValidation, Valid: true})
	c.Record(ValidationEvent{Type: EventImportValidation, Valid: true})

	deadline := time.Now().Add(time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.count() != 2 {
		t.Fatalf("expected 2 published events, got %d", pub.count())
	}
	if key := pub.batches[0][0].Key; key != string(EventImportValidation) {
		t.Errorf("event key = %q", key)
	}
}

func TestCollectorFlushesOnShutdown(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, 100, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	c.Record(ValidationEvent{Type: EventCodeValidation})
	cancel()
	c.Close()
	if pub.count() != 1 {
		t.Errorf("expected buffered event to be flushed, got %d", pub.count())
	}
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 100, time.Hour)
	c.Record(ValidationEvent{Type: EventCodeValidation})
	c.flush(context.Background())
	if c.BufferLen() != 1 {
		t.Errorf("expected event to be requeued, buffer has %d", c.BufferLen())
	}
}

func TestFanout(t *testing.T) {
	a, b := NewAggregator(), NewAggregator()
	Fanout{a, b}.Record(ValidationEvent{Type: EventCodeValidation, Valid: true})
	if a.Stats().Valid != 1 || b.Stats().Valid != 1 {
		t.Error("expected both recorders to see the event")
	}
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(ValidationEvent{Type: EventCodeValidation, Valid: true})
	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st AggregatedStats
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.TotalValidations != 1 {
		t.Errorf("total = %d", st.TotalValidations)
	}
}

func TestHandlerTopParam(t *testing.T) {
	agg := NewAggregator()
	agg.Record(ValidationEvent{
		Type:           EventCodeValidation,
		UnknownClasses: []string{"vtkA", "vtkB", "vtkC"},
	})
	h := NewHandler(agg)

	tests := []struct {
		query   string
		status  int
		wantTop int
	}{
		{"", http.StatusOK, 3},
		{"?top=2", http.StatusOK, 2},
		{"?top=0", http.StatusBadRequest, 0},
		{"?top=101", http.StatusBadRequest, 0},
		{"?top=x", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics"+tt.query, nil))
		if rec.Code != tt.status {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.status)
			continue
		}
		if rec.Header().Get("Cache-Control") != "no-store" {
			t.Errorf("%q: missing Cache-Control", tt.query)
		}
		if tt.status != http.StatusOK {
			continue
		}
		var st AggregatedStats
		if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
			t.Fatalf("%q: decode: %v", tt.query, err)
		}
		if len(st.TopUnknownClasses) != tt.wantTop {
			t.Errorf("%q: %d unknown classes, want %d", tt.query, len(st.TopUnknownClasses), tt.wantTop)
		}
	}
}
