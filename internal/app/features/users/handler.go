// Package users serves account and session endpoints of a tenant.
//
// Endpoints (relative to /{tenant}/users):
//   - POST   /                 signup; the first token comes back in x-auth
//   - POST   /login            login; a new token comes back in x-auth
//   - DELETE /token            revoke the token of this request
//   - GET    /me               the signed-in user
//   - DELETE /me              delete the account and all its sessions
//   - GET    /tokens           list the caller's sessions
//   - DELETE /tokens/{id}      revoke one session by id
package users

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	ratelimitstore "github.com/dalemusser/stratadoc/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/stratadoc/internal/app/store/users"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/auditlog"
	"github.com/dalemusser/stratadoc/internal/app/system/auth"
	"github.com/dalemusser/stratadoc/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadoc/internal/app/system/normalize"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the users routes.
type Handler struct {
	users   *userstore.Store
	limiter *ratelimitstore.Store // nil disables login throttling
	audit   *auditlog.Logger
	logger  *zap.Logger
}

// NewHandler creates a users Handler.
func NewHandler(users *userstore.Store, limiter *ratelimitstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		users:   users,
		limiter: limiter,
		audit:   audit,
		logger:  logger,
	}
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	if !apierr.IsClientError(err) {
		h.logger.Error("users request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	apierr.Write(w, err)
}

// Signup handles POST /.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, auth.TenantParam)
	var in credentials
	if err := jsonutil.Decode(r, &in); err != nil {
		h.writeErr(w, r, err)
		return
	}

	u, token, err := h.users.Create(r.Context(), tenant, in.Email, in.Password)
	if err != nil {
		if apierr.IsClientError(err) {
			h.audit.SignupRejected(r.Context(), r, tenant, normalize.Email(in.Email), apierr.Kind(err))
		}
		h.writeErr(w, r, err)
		return
	}

	h.audit.Signup(r.Context(), r, tenant, u.ID, u.Email)
	w.Header().Set(auth.HeaderToken, token)
	jsonutil.OK(w, u)
}

// Login handles POST /login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, auth.TenantParam)
	var in credentials
	if err := jsonutil.Decode(r, &in); err != nil {
		h.writeErr(w, r, err)
		return
	}
	email := normalize.Email(in.Email)
	key := ratelimitstore.Key(tenant, email)

	if h.limiter != nil {
		if allowed, until := h.limiter.CheckAllowed(r.Context(), key); !allowed {
			h.audit.LoginLockedOut(r.Context(), r, tenant, email)
			if until != nil {
				secs := int(time.Until(*until).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(secs))
			}
			apierr.Write(w, apierr.ErrTooManyAttempts)
			return
		}
	}

	u, token, err := h.users.Login(r.Context(), tenant, email, in.Password)
	if errors.Is(err, apierr.ErrInvalidCredentials) {
		h.audit.LoginFailed(r.Context(), r, tenant, email, "invalid credentials")
		if h.limiter != nil {
			if locked, _ := h.limiter.RecordFailure(r.Context(), key); locked {
				h.logger.Warn("login locked out",
					zap.String("tenant", tenant),
					zap.String("email", email))
			}
		}
		apierr.Write(w, err)
		return
	}
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	if h.limiter != nil {
		if err := h.limiter.ClearOnSuccess(r.Context(), key); err != nil {
			h.logger.Warn("failed to clear login attempts", zap.Error(err))
		}
	}
	h.audit.LoginSuccess(r.Context(), r, tenant, u.ID, u.Email)
	w.Header().Set(auth.HeaderToken, token)
	jsonutil.OK(w, u)
}

// Logout handles DELETE /token. A failure to revoke is reported as 400.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, apierr.ErrUnauthorized)
		return
	}
	if err := h.users.Revoke(r.Context(), p.Tenant, p.User.ID, p.Token); err != nil {
		h.logger.Error("token revoke failed",
			zap.String("tenant", p.Tenant),
			zap.String("user_id", p.User.ID.Hex()),
			zap.Error(err))
		apierr.WriteStatus(w, http.StatusBadRequest, err.Error())
		return
	}
	h.audit.Logout(r.Context(), r, p.Tenant, p.User.ID)
	jsonutil.Empty(w)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, apierr.ErrUnauthorized)
		return
	}
	jsonutil.OK(w, p.User)
}

// DeleteMe handles DELETE /me.
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, apierr.ErrUnauthorized)
		return
	}
	if err := h.users.Delete(r.Context(), p.Tenant, p.User.ID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.audit.AccountDeleted(r.Context(), r, p.Tenant, p.User.ID)
	jsonutil.Empty(w)
}

// Sessions handles GET /tokens.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, apierr.ErrUnauthorized)
		return
	}
	sessions, err := h.users.Sessions(r.Context(), p.Tenant, p.User.ID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	out := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, newSessionView(s, p.Token))
	}
	jsonutil.OK(w, out)
}

// RevokeSession handles DELETE /tokens/{sessionID}.
func (h *Handler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.CurrentUser(r)
	if !ok {
		apierr.Write(w, apierr.ErrUnauthorized)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.users.RevokeByID(r.Context(), p.Tenant, p.User.ID, sessionID); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.audit.SessionRevoked(r.Context(), r, p.Tenant, p.User.ID, sessionID)
	jsonutil.Empty(w)
}
