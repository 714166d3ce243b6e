package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/erazemk/najdeno/internal/asset"
	"github.com/erazemk/najdeno/internal/model"
)

// serveUpload handles GET /uploads/{key}. Only keys of the generated shape
// are looked up.
func (h *Handler) serveUpload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if !asset.ValidKey(key) {
		writeError(w, r, model.ErrNotFound)
		return
	}

	data, contentType, err := h.assets.Read(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
