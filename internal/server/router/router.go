// Package router wires up the HTTP API routes and applies the middleware
// chain (RequestID → CORS → RateLimit → Timeout → Metrics).
package router

import (
	"net/http"
	"time"

	"github.com/patrickoleary/vtkapi-mcp/internal/analytics"
	"github.com/patrickoleary/vtkapi-mcp/internal/server/handler"
	"github.com/patrickoleary/vtkapi-mcp/pkg/health"
	"github.com/patrickoleary/vtkapi-mcp/pkg/metrics"
	"github.com/patrickoleary/vtkapi-mcp/pkg/middleware"
)

// Config holds the optional parts of the router. A nil Analytics leaves
// /api/v1/analytics unregistered; a nil Metrics disables request metrics.
type Config struct {
	Analytics *analytics.Handler
	Checker   *health.Checker
	Metrics   *metrics.Metrics
	Timeout   time.Duration

	// RateLimit is requests per minute per client; 0 disables limiting.
	RateLimit   int
	CORSOrigins []string
}

// New builds the HTTP handler.
//
// Route table:
//
//	POST   /api/v1/validate                          → validate code (cached)
//	POST   /api/v1/validate/import                   → validate one import statement
//	GET    /api/v1/classes?q=&limit=                 → search classes
//	GET    /api/v1/classes/{name}                    → class info
//	GET    /api/v1/classes/{name}/methods/{method}   → method info
//	GET    /api/v1/modules/{module}/classes          → classes in module
//	GET    /api/v1/tools                             → tool specs
//	POST   /api/v1/tools/{name}                      → call a tool
//	GET    /api/v1/cache/stats                       → cache stats
//	POST   /api/v1/cache/invalidate                  → drop cached results
//	GET    /api/v1/analytics                         → aggregated usage
//	GET    /health/live, /health/ready               → probes
func New(h *handler.Handler, cfg Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/validate", h.ValidateCode)
	mux.HandleFunc("POST /api/v1/validate/import", h.ValidateImport)

	mux.HandleFunc("GET /api/v1/classes", h.SearchClasses)
	mux.HandleFunc("GET /api/v1/classes/{name}", h.GetClass)
	mux.HandleFunc("GET /api/v1/classes/{name}/methods/{method}", h.GetMethod)
	mux.HandleFunc("GET /api/v1/modules/{module}/classes", h.ModuleClasses)

	mux.HandleFunc("GET /api/v1/tools", h.ListTools)
	mux.HandleFunc("POST /api/v1/tools/{name}", h.CallTool)

	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)

	if cfg.Analytics != nil {
		mux.HandleFunc("GET /api/v1/analytics", cfg.Analytics.Stats)
	}
	if cfg.Checker != nil {
		mux.HandleFunc("GET /health/live", cfg.Checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", cfg.Checker.ReadyHandler())
	}

	// applied inside-out: request → RequestID → CORS → RateLimit → Timeout → Metrics → mux
	var chain http.Handler = mux
	if cfg.Metrics != nil {
		chain = middleware.Metrics(cfg.Metrics)(chain)
	}
	if cfg.Timeout > 0 {
		chain = middleware.Timeout(cfg.Timeout)(chain)
	}
	if cfg.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.RateLimit, time.Minute))(chain)
	}
	if len(cfg.CORSOrigins) > 0 {
		chain = middleware.CORS(cfg.CORSOrigins)(chain)
	}
	chain = middleware.RequestID(chain)
	return chain
}
