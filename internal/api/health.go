package api

import (
	"context"
	"net/http"
	"time"

	"github.com/erazemk/najdeno/internal/logger"
)

// welcome handles GET /.
func (h *Handler) welcome(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, map[string]string{
		"name":    "najdeno",
		"message": "Welcome to the lost and found board.",
		"items":   "/api/items",
	})
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		logger.FromRequest(r).Error().Err(err).Msg("database unreachable")
		jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
