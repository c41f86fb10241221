package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// Handler exposes the aggregator over HTTP.
type Handler struct {
	agg *Aggregator
	log *slog.Logger
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{agg: agg, log: slog.Default().With("component", "analytics-handler")}
}

// Stats serves GET /api/v1/analytics. The optional top query parameter
// (1..MaxTop) sets how many unknown classes and missing methods are listed.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := DefaultTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxTop {
			h.respond(w, http.StatusBadRequest, map[string]string{
				"error": "top must be an integer between 1 and " + strconv.Itoa(MaxTop),
			})
			return
		}
		top = n
	}
	h.respond(w, http.StatusOK, h.agg.StatsTop(top))
}

func (h *Handler) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("writing analytics response", "error", err)
	}
}
