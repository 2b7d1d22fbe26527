package auth

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Token: The opaque bearer string carried in the x-auth header

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/auditlog"
	"github.com/dalemusser/stratadoc/internal/app/system/normalize"
	"github.com/dalemusser/stratadoc/internal/app/system/timeouts"
	"github.com/dalemusser/stratadoc/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// HeaderToken is the request and response header carrying the session token.
const HeaderToken = "x-auth"

// TenantParam is the chi URL parameter naming the tenant.
const TenantParam = "tenant"

// TokenValidator resolves a session token to its owner.
// Implementations return apierr.ErrUnauthorized for unknown tokens.
type TokenValidator interface {
	Validate(ctx context.Context, tenant, token string) (*models.User, error)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-User helper                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Principal is the authenticated caller of one request.
type Principal struct {
	User   *models.User
	Token  string // the token that authenticated this request
	Tenant string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the principal & "found?" flag from the request context.
func CurrentUser(r *http.Request) (*Principal, bool) {
	p, ok := r.Context().Value(currentUserKey).(*Principal)
	return p, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// RequireToken returns middleware that admits a request only when its x-auth
// header carries a live session token of the tenant in the URL. The user is
// looked up on every request, so a revoked token stops working immediately.
func RequireToken(v TokenValidator, logger *zap.Logger, audit *auditlog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := chi.URLParam(r, TenantParam)
			token := normalize.Token(r.Header.Get(HeaderToken))

			ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), logger, "validate_token")
			u, err := v.Validate(ctx, tenant, token)
			cancel()
			if err != nil {
				if errors.Is(err, apierr.ErrUnauthorized) {
					if token != "" {
						audit.TokenRejected(r.Context(), r, tenant)
					}
					apierr.Write(w, apierr.ErrUnauthorized)
					return
				}
				logger.Error("token validation failed",
					zap.String("tenant", tenant),
					zap.String("path", r.URL.Path),
					zap.Error(err))
				apierr.Write(w, err)
				return
			}

			next.ServeHTTP(w, withUser(r, &Principal{User: u, Token: token, Tenant: tenant}))
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func withUser(r *http.Request, p *Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, p))
}

// WithTestPrincipal injects a Principal into the request context for testing.
func WithTestPrincipal(r *http.Request, p *Principal) *http.Request {
	return withUser(r, p)
}
