// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratadoc/internal/app/store/audit"
	"github.com/dalemusser/stratadoc/internal/app/system/network"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (login, logout, revocation).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Account controls logging for signup and account deletion.
	// Same values as Auth.
	Account string
	// TrustProxy takes the client IP from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) clientIP(r *http.Request) string {
	if l == nil {
		return ""
	}
	return network.ClientIP(r, l.config.TrustProxy)
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.String("tenant", event.Tenant),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.Email != "" {
		fields = append(fields, zap.String("email", event.Email))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAccount:
		setting = l.config.Account
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(r *http.Request, tenant, eventType string) audit.Event {
	return audit.Event{
		Category:  audit.CategoryAuth,
		EventType: eventType,
		Tenant:    tenant,
		IP:        l.clientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// --- Authentication Events ---

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, tenant string, userID primitive.ObjectID, email string) {
	e := l.auth(r, tenant, audit.EventLoginSuccess)
	e.UserID = &userID
	e.Email = email
	e.Success = true
	l.Log(ctx, e)
}

// LoginFailed logs a rejected credential. The reason is recorded for
// operators only; callers always see the same error.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, tenant, email, reason string) {
	e := l.auth(r, tenant, audit.EventLoginFailed)
	e.Email = email
	e.FailureReason = reason
	l.Log(ctx, e)
}

// LoginLockedOut logs a login refused because of too many failures.
func (l *Logger) LoginLockedOut(ctx context.Context, r *http.Request, tenant, email string) {
	e := l.auth(r, tenant, audit.EventLoginLockedOut)
	e.Email = email
	e.FailureReason = "too many failed attempts"
	l.Log(ctx, e)
}

// TokenRejected logs a request carrying an x-auth token that did not validate.
func (l *Logger) TokenRejected(ctx context.Context, r *http.Request, tenant string) {
	e := l.auth(r, tenant, audit.EventTokenRejected)
	e.FailureReason = "unknown or revoked token"
	e.Details = map[string]string{"path": r.URL.Path}
	l.Log(ctx, e)
}

// Logout logs the revocation of the caller's own token.
func (l *Logger) Logout(ctx context.Context, r *http.Request, tenant string, userID primitive.ObjectID) {
	e := l.auth(r, tenant, audit.EventLogout)
	e.UserID = &userID
	e.Success = true
	l.Log(ctx, e)
}

// SessionRevoked logs the revocation of a session by its id.
func (l *Logger) SessionRevoked(ctx context.Context, r *http.Request, tenant string, userID primitive.ObjectID, sessionID string) {
	e := l.auth(r, tenant, audit.EventSessionRevoked)
	e.UserID = &userID
	e.Success = true
	e.Details = map[string]string{"session_id": sessionID}
	l.Log(ctx, e)
}

// --- Account Events ---

// Signup logs a new account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, tenant string, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAccount,
		EventType: audit.EventSignup,
		Tenant:    tenant,
		UserID:    &userID,
		Email:     email,
		IP:        l.clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}

// SignupRejected logs a refused signup (validation or duplicate email).
func (l *Logger) SignupRejected(ctx context.Context, r *http.Request, tenant, email, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAccount,
		EventType:     audit.EventSignupRejected,
		Tenant:        tenant,
		Email:         email,
		IP:            l.clientIP(r),
		UserAgent:     r.UserAgent(),
		FailureReason: reason,
	})
}

// AccountDeleted logs an account removing itself.
func (l *Logger) AccountDeleted(ctx context.Context, r *http.Request, tenant string, userID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAccount,
		EventType: audit.EventAccountDeleted,
		Tenant:    tenant,
		UserID:    &userID,
		IP:        l.clientIP(r),
		UserAgent: r.UserAgent(),
		Success:   true,
	})
}
