package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ValidationsTotal.WithLabelValues("invalid").Inc()
	m.ValidationErrorsTotal.WithLabelValues("method").Add(2)
	m.IndexClasses.Set(3)

	if got := testutil.ToFloat64(m.ValidationsTotal.WithLabelValues("invalid")); got != 1 {
		t.Errorf("validations_total{invalid} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.ValidationErrorsTotal.WithLabelValues("method")); got != 2 {
		t.Errorf("validation_errors_total{method} = %v, want 2", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "index_classes" {
			found = true
		}
	}
	if !found {
		t.Error("index_classes not registered")
	}
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestHandlerForServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ValidationsTotal.WithLabelValues("valid").Inc()

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `validations_total{result="valid"} 1`) {
		t.Errorf("scrape output missing validation counter:\n%s", rec.Body.String())
	}
}
