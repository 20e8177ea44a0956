package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
)

// ClearCache empties the read-model cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	res := h.backend.ClearCache(r.Context())
	slog.Info("Cache cleared", "entries", res.ClearedEntries)
	JSON(w, http.StatusOK, res)
}

// DebugLogs returns the most recent process log entries, newest first.
func (h *Handler) DebugLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	JSON(w, http.StatusOK, h.ring.Recent(limit))
}

// ClearDebugLogs drops the process log entries.
func (h *Handler) ClearDebugLogs(w http.ResponseWriter, _ *http.Request) {
	h.ring.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Health returns the health status of the API and its dependencies.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DefaultHealthTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if err := h.backend.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}
	checks["log_streams"] = strconv.Itoa(h.conns.Count())

	JSON(w, statusCode, status)
}
