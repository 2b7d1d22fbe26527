package documents

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the document endpoints. It must be mounted
// below a route that binds {tenant}; requireToken guards every endpoint.
func Routes(h *Handler, requireToken func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requireToken)

	r.Route("/{collection}", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	return r
}
