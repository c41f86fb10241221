package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRunWorstStatusWins(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Status
		want   Status
	}{
		{"all up", map[string]Status{"a": StatusUp, "b": StatusUp}, StatusUp},
		{"degraded", map[string]Status{"a": StatusUp, "b": StatusDegraded}, StatusDegraded},
		{"down", map[string]Status{"a": StatusDegraded, "b": StatusDown}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, st := range tt.checks {
				c.Register(name, func(ctx context.Context) ComponentHealth {
					return ComponentHealth{Status: st}
				})
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("expected %d components, got %d", len(tt.checks), len(report.Components))
			}
		})
	}
}

func TestPingCheck(t *testing.T) {
	down := PingCheck(func(ctx context.Context) error { return errors.New("connection refused") })(context.Background())
	if down.Status != StatusDown || down.Message != "connection refused" {
		t.Errorf("unexpected result %+v", down)
	}
	up := PingCheck(func(ctx context.Context) error { return nil })(context.Background())
	if up.Status != StatusUp {
		t.Errorf("expected up, got %+v", up)
	}
}

func TestReadyHandlerDegradedIsReady(t *testing.T) {
	c := NewChecker()
	c.Register("api_index", func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: StatusDegraded, Message: "index is empty"}
	})
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for degraded, got %d", rec.Code)
	}
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Components["api_index"].Message != "index is empty" {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestReadyHandlerDown(t *testing.T) {
	c := NewChecker()
	c.Register("cache", PingCheck(func(ctx context.Context) error { return errors.New("down") }))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestOptionalComponentOnlyDegrades(t *testing.T) {
	c := NewChecker()
	c.Register("api_index", func(ctx context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} })
	c.RegisterOptional("kafka", PingCheck(func(ctx context.Context) error { return errors.New("no brokers") }))

	report := c.Run(context.Background())
	if report.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	kafka := report.Components["kafka"]
	if kafka.Status != StatusDown || !kafka.Optional {
		t.Errorf("unexpected kafka component %+v", kafka)
	}
}

func TestCheckTimeout(t *testing.T) {
	c := NewChecker()
	c.SetTimeout(10 * time.Millisecond)
	release := make(chan struct{})
	defer close(release)
	c.Register("slow", func(ctx context.Context) ComponentHealth {
		<-release
		return ComponentHealth{Status: StatusUp}
	})

	report := c.Run(context.Background())
	if report.Status != StatusDown {
		t.Fatalf("status = %s, want down", report.Status)
	}
	if !strings.Contains(report.Components["slow"].Message, "timed out") {
		t.Errorf("unexpected message %q", report.Components["slow"].Message)
	}
}

func TestLiveHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewChecker().LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || body["status"] != "alive" || body["uptime"] == "" {
		t.Errorf("unexpected live response %d %v", rec.Code, body)
	}
}
