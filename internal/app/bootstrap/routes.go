// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	documentsfeature "github.com/dalemusser/stratadoc/internal/app/features/documents"
	"github.com/dalemusser/stratadoc/internal/app/features/health"
	usersfeature "github.com/dalemusser/stratadoc/internal/app/features/users"
	"github.com/dalemusser/stratadoc/internal/app/store/audit"
	docstore "github.com/dalemusser/stratadoc/internal/app/store/documents"
	ratelimitstore "github.com/dalemusser/stratadoc/internal/app/store/ratelimit"
	userstore "github.com/dalemusser/stratadoc/internal/app/store/users"
	"github.com/dalemusser/stratadoc/internal/app/system/apicors"
	"github.com/dalemusser/stratadoc/internal/app/system/apierr"
	"github.com/dalemusser/stratadoc/internal/app/system/auditlog"
	"github.com/dalemusser/stratadoc/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// Layout:
//   - /health, /ready, /readyz, /livez   probes
//   - /metrics                           Prometheus (Bearer key when metrics_api_key is set)
//   - /{app_prefix}/{tenant}/users/...   signup, login and session management
//   - /{app_prefix}/{tenant}/{collection}/...  document API, x-auth required
//
// The whole router is wrapped in an OpenTelemetry server span.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Audit store and logger for security event tracking.
	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:       appCfg.AuditLogAuth,
		Account:    appCfg.AuditLogAccount,
		TrustProxy: appCfg.TrustProxy,
	})

	users := userstore.New(deps.Resolver, appCfg.TokenMaxAge, logger)

	var limiter *ratelimitstore.Store
	if appCfg.RateLimitEnabled {
		limiter = ratelimitstore.New(deps.MongoDatabase,
			appCfg.RateLimitLoginAttempts,
			appCfg.RateLimitLoginWindow,
			appCfg.RateLimitLoginLockout)
	}

	// Document service, instrumented.
	var docs docstore.Service = docstore.New(logger)
	docs = docstore.MiddlewareMetrics(deps.Metrics)(docs)

	requireToken := auth.RequireToken(users, logger, auditLogger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Request count and latency by route pattern.
	r.Use(deps.Metrics.Middleware)

	// ─────────────────────────────────────────────────────────────────────────────
	// Operational endpoints
	// ─────────────────────────────────────────────────────────────────────────────

	r.Group(func(r chi.Router) {
		r.Use(middleware.CORSFromConfig(coreCfg))

		health.MountRootEndpoints(r, health.NewHandler(deps.MongoClient, logger))

		metricsHandler := deps.Metrics.Handler()
		if appCfg.MetricsAPIKey != "" {
			metricsHandler = auth.APIKeyAuth(appCfg.MetricsAPIKey, logger)(metricsHandler)
		}
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	})

	// ─────────────────────────────────────────────────────────────────────────────
	// Tenant API
	// ─────────────────────────────────────────────────────────────────────────────

	usersHandler := usersfeature.NewHandler(users, limiter, auditLogger, logger)
	docsHandler := documentsfeature.NewHandler(deps.Resolver, docs, logger, appCfg.MaxBatchSize, appCfg.DefaultPageLimit)

	r.Route("/"+appCfg.AppPrefix, func(r chi.Router) {
		r.Use(apicors.Middleware(appCfg.CORSOrigins...))

		r.Route("/{"+auth.TenantParam+"}", func(r chi.Router) {
			r.Mount("/users", usersfeature.Routes(usersHandler, requireToken))
			r.Mount("/", documentsfeature.Routes(docsHandler, requireToken))
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteStatus(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierr.WriteStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	logger.Info("routes built",
		zap.String("api_prefix", "/"+appCfg.AppPrefix),
		zap.Bool("rate_limit", limiter != nil),
		zap.Bool("metrics_protected", appCfg.MetricsAPIKey != ""))

	return otelhttp.NewHandler(r, "stratadoc"), nil
}
