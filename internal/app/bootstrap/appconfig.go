// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS for non-API routes,
// body size limits, DB connect timeouts); everything below is specific to
// the document service.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Service database: rate limits and audit log. Never served as a tenant.
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// API surface
	AppPrefix        string   // Path segment in front of /{tenant} (default: api)
	CORSOrigins      []string // Allowed origins for the API; empty means any
	MaxBatchSize     int      // Largest accepted bulk write; 0 disables the check
	DefaultPageLimit int64    // Page size of list requests without ?limit=
	TrustProxy       bool     // Take client IPs from X-Forwarded-For / X-Real-IP

	// Sessions
	TokenMaxAge time.Duration // Lifetime of an x-auth token; 0 means tokens never expire

	// Rate limiting configuration
	RateLimitEnabled       bool          // Enable login throttling
	RateLimitLoginAttempts int           // Max failed attempts before lockout
	RateLimitLoginWindow   time.Duration // Window for counting failed attempts
	RateLimitLoginLockout  time.Duration // Lockout duration after exceeding limit

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAuth    string
	AuditLogAccount string
	AuditRetention  time.Duration // Age after which stored audit events are pruned; 0 keeps them

	// Request-scoped storage deadlines
	TimeoutPing  time.Duration
	TimeoutShort time.Duration
	TimeoutBatch time.Duration

	// Bearer key guarding /metrics; empty leaves it open
	MetricsAPIKey string
}
