// Package handler implements the HTTP API over the lookup and validation
// service.
package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/patrickoleary/vtkapi-mcp/internal/tools"
	apperrors "github.com/patrickoleary/vtkapi-mcp/pkg/errors"
	"github.com/patrickoleary/vtkapi-mcp/pkg/logger"
)

// maxBodyBytes bounds request bodies; code samples are small.
const maxBodyBytes = 1 << 20

type Handler struct {
	svc          *tools.Service
	registry     *tools.Registry
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(svc *tools.Service, registry *tools.Registry, defaultLimit, maxResults int) *Handler {
	return &Handler{
		svc:          svc,
		registry:     registry,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "api-handler"),
	}
}

type validateRequest struct {
	Code string `json:"code"`
}

// ValidateCode serves POST /api/v1/validate.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := h.decode(r, &req); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	report, err := h.svc.ValidateCode(r.Context(), req.Code)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

type importRequest struct {
	ImportStatement string `json:"import_statement"`
}

// ValidateImport serves POST /api/v1/validate/import.
func (h *Handler) ValidateImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := h.decode(r, &req); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if req.ImportStatement == "" {
		h.writeError(w, http.StatusBadRequest, "import_statement is required")
		return
	}
	h.writeJSON(w, http.StatusOK, h.svc.ValidateImport(r.Context(), req.ImportStatement))
}

// SearchClasses serves GET /api/v1/classes?q=&limit=.
func (h *Handler) SearchClasses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, h.maxResults)
	}
	results := h.svc.Search(query, limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": results,
		"count":   len(results),
	})
}

// GetClass serves GET /api/v1/classes/{name}.
func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	info, ok := h.svc.ClassInfo(name)
	if !ok {
		h.writeAppError(w, r, apperrors.Newf(apperrors.ErrClassNotFound, http.StatusNotFound,
			"Class '%s' not found in VTK API", name))
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// GetMethod serves GET /api/v1/classes/{name}/methods/{method}.
func (h *Handler) GetMethod(w http.ResponseWriter, r *http.Request) {
	name, method := r.PathValue("name"), r.PathValue("method")
	info, ok := h.svc.MethodInfo(name, method)
	if !ok {
		h.writeAppError(w, r, apperrors.Newf(apperrors.ErrMethodNotFound, http.StatusNotFound,
			"Method '%s' not found in class '%s'", method, name))
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// ModuleClasses serves GET /api/v1/modules/{module}/classes.
func (h *Handler) ModuleClasses(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.ModuleClasses(r.PathValue("module")))
}

// ListTools serves GET /api/v1/tools.
func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"tools": h.registry.Specs()})
}

// CallTool serves POST /api/v1/tools/{name}; the body is the tool input.
func (h *Handler) CallTool(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	out, err := h.registry.Call(r.Context(), r.PathValue("name"), body)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// CacheStats serves GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Cache().Stats(r.Context())
	var hitRate float64
	if total := st.Hits + st.Misses; total > 0 {
		hitRate = float64(st.Hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"backend":  st.Backend,
		"hits":     st.Hits,
		"misses":   st.Misses,
		"entries":  st.Entries,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheInvalidate serves POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cache().Invalidate(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		return apperrors.InvalidInputf("invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, status, apperrors.Message(err))
}
