package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"go.uber.org/zap"
)

// APIKeyAuth returns middleware that checks a static key sent as
// "Authorization: Bearer <key>". It guards operator endpoints such as
// /metrics, which are not tied to any tenant.
//
// An empty validKey rejects every request.
func APIKeyAuth(validKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	if validKey == "" {
		logger.Warn("API key not configured - all requests will be rejected")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validKey == "" {
				apierr.WriteStatus(w, http.StatusUnauthorized, "API authentication not configured")
				return
			}

			scheme, provided, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") {
				logger.Debug("API request rejected: missing or malformed Authorization header",
					zap.String("path", r.URL.Path),
				)
				apierr.WriteStatus(w, http.StatusUnauthorized, "expected Authorization: Bearer <api-key>")
				return
			}

			if subtle.ConstantTimeCompare([]byte(provided), []byte(validKey)) != 1 {
				logger.Warn("API request rejected: invalid API key",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				apierr.Write(w, apierr.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
