package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
)

// Metrics records request count, latency, response size and in-flight
// requests, labelled by route pattern. Health probes are not recorded.
// It must sit inside any middleware that copies the request, so the mux's
// pattern is visible after the call.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health/") {
				next.ServeHTTP(w, r)
				return
			}
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rw := &recordingWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.Status())).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytes))
		})
	}
}

// recordingWriter remembers the first status code and counts body bytes.
type recordingWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recordingWriter) WriteHeader(code int) {
	if rw.status == 0 {
		rw.status = code
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *recordingWriter) Status() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}
