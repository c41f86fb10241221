package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
)

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("expected a generated request id")
	}
	if rec.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q does not match context id %q", rec.Header().Get(RequestIDHeader), seen)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "abc-123" {
		t.Errorf("expected propagated id, got %q", seen)
	}
}

func TestTimeout(t *testing.T) {
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/classes/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := Metrics(m)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/classes/vtkFoo", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/classes/vtkBar", nil))

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/classes/{name}", "404"))
	if got != 2 {
		t.Errorf("expected 2 requests under the route pattern, got %v", got)
	}
}

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatal("third request should be limited")
	}
	if !l.Allow("b") {
		t.Error("other keys have their own bucket")
	}
	now = now.Add(30 * time.Second)
	if !l.Allow("a") {
		t.Error("half a window should refill one token")
	}
	if l.Allow("a") {
		t.Error("only one token should have been refilled")
	}
}

func TestLimiterCleanup(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewLimiter(1, time.Minute)
	l.now = func() time.Time { return now }
	l.Allow("idle")
	now = now.Add(3 * time.Minute)
	l.Allow("active")
	if _, ok := l.buckets["idle"]; ok {
		t.Error("idle bucket should have been dropped")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	h := RateLimit(NewLimiter(1, time.Minute))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		path string
		fwd  string
		want int
	}{
		{"first request", "/api/v1/validate", "", http.StatusOK},
		{"over budget", "/api/v1/validate", "", http.StatusTooManyRequests},
		{"health exempt", "/health/live", "", http.StatusOK},
		{"forwarded client", "/api/v1/validate", "10.0.0.9, 10.0.0.1", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, tt.path, nil)
		if tt.fwd != "" {
			req.Header.Set("X-Forwarded-For", tt.fwd)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") != "60" {
			t.Errorf("%s: Retry-After = %q", tt.name, rec.Header().Get("Retry-After"))
		}
	}
}

func TestCORS(t *testing.T) {
	var reached bool
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/validate", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || reached {
		t.Errorf("preflight: status %d, reached %v", rec.Code, reached)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("missing allow-origin header")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/classes", nil)
	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if !reached || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("disallowed origin should pass through without CORS headers")
	}
}

func TestMetricsSkipsHealthAndCountsBytes(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /api/v1/tools", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("0123456789"))
	})
	h := Metrics(m)(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))

	if n := testutil.CollectAndCount(m.HTTPRequestsTotal); n != 1 {
		t.Errorf("expected one labelled series, got %d", n)
	}
	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/tools", "200")); got != 1 {
		t.Errorf("tools requests = %v", got)
	}
	if n := testutil.CollectAndCount(m.HTTPResponseSize); n != 1 {
		t.Errorf("expected one response size series, got %d", n)
	}
}

func TestTimeoutFlushesCompletedResponse(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", "yes")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("made"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusCreated || rec.Body.String() != "made" || rec.Header().Get("X-Handler") != "yes" {
		t.Errorf("unexpected response %d %q %v", rec.Code, rec.Body.String(), rec.Header())
	}
}

func TestTimeoutDiscardsLateWrites(t *testing.T) {
	lateErr := make(chan error, 1)
	h := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		time.Sleep(5 * time.Millisecond)
		_, err := w.Write([]byte("late"))
		lateErr <- err
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}
	if err := <-lateErr; err != http.ErrHandlerTimeout {
		t.Errorf("late write error = %v", err)
	}
	if strings.Contains(rec.Body.String(), "late") {
		t.Errorf("late body leaked into response: %q", rec.Body.String())
	}
}
