package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
)

// Timeout gives each request a deadline. The handler writes into a buffer
// that is flushed once it returns; if the deadline passes first the client
// gets a 504 JSON body and anything the handler writes afterwards is
// discarded with http.ErrHandlerTimeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			bw := &bufferedWriter{header: make(http.Header)}
			done := make(chan struct{})
			panicked := make(chan any, 1)
			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicked <- p
					}
				}()
				next.ServeHTTP(bw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case p := <-panicked:
				panic(p)
			case <-done:
				bw.flushTo(w)
			case <-ctx.Done():
				bw.expire()
				logger.FromContext(r.Context()).Warn("request timed out",
					"method", r.Method, "path", r.URL.Path, "timeout", timeout)
				writeError(w, http.StatusGatewayTimeout, "request timeout")
			}
		})
	}
}

type bufferedWriter struct {
	mu      sync.Mutex
	header  http.Header
	body    bytes.Buffer
	status  int
	expired bool
}

func (bw *bufferedWriter) Header() http.Header { return bw.header }

func (bw *bufferedWriter) WriteHeader(code int) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.expired || bw.status != 0 {
		return
	}
	bw.status = code
}

func (bw *bufferedWriter) Write(b []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.expired {
		return 0, http.ErrHandlerTimeout
	}
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	return bw.body.Write(b)
}

func (bw *bufferedWriter) expire() {
	bw.mu.Lock()
	bw.expired = true
	bw.mu.Unlock()
}

func (bw *bufferedWriter) flushTo(w http.ResponseWriter) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	dst := w.Header()
	for k, v := range bw.header {
		dst[k] = v
	}
	if bw.status == 0 {
		bw.status = http.StatusOK
	}
	w.WriteHeader(bw.status)
	w.Write(bw.body.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
