// Package apicors provides CORS middleware for the token-authenticated API.
//
// The API never uses cookies: the session token travels in the x-auth request
// header and comes back in the x-auth response header on signup and login.
// Browsers only let scripts send and read that header when CORS names it, so
// it appears in both Allow-Headers and Expose-Headers.
package apicors

import (
	"net/http"
	"strings"
)

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Accept, x-auth"
	exposeHeader = "x-auth"
)

// Middleware returns CORS middleware for the API routes.
//
// With no origins, any origin is allowed (Access-Control-Allow-Origin: *).
// Otherwise only the listed origins are echoed back; other origins get no
// CORS headers and the browser blocks the response.
func Middleware(allowedOrigins ...string) func(http.Handler) http.Handler {
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			originSet[o] = struct{}{}
		}
	}
	_, wildcard := originSet["*"]
	anyOrigin := len(originSet) == 0 || wildcard

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else if origin := r.Header.Get("Origin"); origin != "" {
				h.Add("Vary", "Origin")
				if _, ok := originSet[origin]; ok {
					h.Set("Access-Control-Allow-Origin", origin)
				}
			}
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			h.Set("Access-Control-Expose-Headers", exposeHeader)
			h.Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
