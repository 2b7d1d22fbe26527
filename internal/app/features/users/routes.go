package users

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a router with the users endpoints, for mounting at
// /{tenant}/users. Signup and login are open; requireToken guards the rest.
func Routes(h *Handler, requireToken func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Post("/", h.Signup)
	r.Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(requireToken)
		r.Delete("/token", h.Logout)
		r.Get("/me", h.Me)
		r.Delete("/me", h.DeleteMe)
		r.Get("/tokens", h.Sessions)
		r.Delete("/tokens/{sessionID}", h.RevokeSession)
	})
	return r
}
