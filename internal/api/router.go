package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes returns the router with every endpoint registered.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.withTraceID)
	r.Use(h.withLogging)
	r.Use(middleware.Recoverer)
	r.Use(h.withBodyLimit)
	r.Use(h.withSession)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		jsonError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", h.welcome)
	r.Get("/api/health", h.health)
	r.Get("/uploads/{key}", h.serveUpload)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})

	r.Route("/api/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.createItem)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getItem)
			r.Post("/", h.editItem)
			r.Put("/", h.editItem)
			r.Delete("/", h.deleteItem)
			r.Post("/delete", h.deleteItem)
			r.Post("/claim", h.claimItem)
			r.Post("/unclaim", h.unclaimItem)
		})
	})

	return r
}
