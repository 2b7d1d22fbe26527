// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATADOC"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, app_prefix, etc.
//   - Environment variables: STRATADOC_MONGO_URI, STRATADOC_APP_PREFIX, etc.
//   - Command-line flags: --mongo_uri, --app_prefix, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratadoc", Desc: "Service database (rate limits, audit log); cannot be used as a tenant"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// API surface
	{Name: "app_prefix", Default: "api", Desc: "Path prefix in front of /{tenant}"},
	{Name: "cors_origins", Default: "", Desc: "Comma-separated origins allowed to call the API (blank means any)"},
	{Name: "max_batch_size", Default: 1000, Desc: "Max documents in one bulk write (0 disables the check)"},
	{Name: "default_page_limit", Default: 20, Desc: "Page size for list requests without ?limit="},
	{Name: "trust_proxy", Default: false, Desc: "Trust X-Forwarded-For / X-Real-IP for client IPs"},

	// Sessions
	{Name: "token_max_age", Default: "0s", Desc: "x-auth token lifetime (e.g., 720h); 0 means tokens never expire"},

	// Rate limiting configuration
	{Name: "rate_limit_enabled", Default: true, Desc: "Enable rate limiting for login attempts"},
	{Name: "rate_limit_login_attempts", Default: 5, Desc: "Max failed login attempts before lockout"},
	{Name: "rate_limit_login_window", Default: "15m", Desc: "Time window for counting failed attempts"},
	{Name: "rate_limit_login_lockout", Default: "15m", Desc: "Lockout duration after exceeding limit"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_account", Default: "all", Desc: "Account event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_retention", Default: "2160h", Desc: "Prune stored audit events older than this (0 keeps them)"},

	// Storage deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Deadline for health probe pings"},
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for token validation"},
	{Name: "timeout_batch", Default: "60s", Desc: "Deadline for bulk writes and bulk deletes"},

	{Name: "metrics_api_key", Default: "", Desc: "Bearer key required on /metrics (blank leaves it open)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATADOC_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		AppPrefix:        strings.Trim(appValues.String("app_prefix"), "/"),
		CORSOrigins:      splitList(appValues.String("cors_origins")),
		MaxBatchSize:     appValues.Int("max_batch_size"),
		DefaultPageLimit: int64(appValues.Int("default_page_limit")),
		TrustProxy:       appValues.Bool("trust_proxy"),

		TokenMaxAge: appValues.Duration("token_max_age", 0),

		// Rate limiting
		RateLimitEnabled:       appValues.Bool("rate_limit_enabled"),
		RateLimitLoginAttempts: appValues.Int("rate_limit_login_attempts"),
		RateLimitLoginWindow:   appValues.Duration("rate_limit_login_window", 15*time.Minute),
		RateLimitLoginLockout:  appValues.Duration("rate_limit_login_lockout", 15*time.Minute),

		// Audit logging
		AuditLogAuth:    appValues.String("audit_log_auth"),
		AuditLogAccount: appValues.String("audit_log_account"),
		AuditRetention:  appValues.Duration("audit_retention", 90*24*time.Hour),

		TimeoutPing:  appValues.Duration("timeout_ping", 2*time.Second),
		TimeoutShort: appValues.Duration("timeout_short", 5*time.Second),
		TimeoutBatch: appValues.Duration("timeout_batch", 60*time.Second),

		MetricsAPIKey: appValues.String("metrics_api_key"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	var problems []error
	if err := collections.ValidateTenant(appCfg.MongoDatabase); err != nil {
		problems = append(problems, fmt.Errorf("mongo_database: %w", err))
	}
	if appCfg.AppPrefix == "" || strings.Contains(appCfg.AppPrefix, "/") {
		problems = append(problems, fmt.Errorf("app_prefix: %q must be a single path segment", appCfg.AppPrefix))
	}
	if appCfg.MaxBatchSize < 0 {
		problems = append(problems, errors.New("max_batch_size: must not be negative"))
	}
	if appCfg.DefaultPageLimit <= 0 {
		problems = append(problems, errors.New("default_page_limit: must be positive"))
	}
	if appCfg.TokenMaxAge < 0 {
		problems = append(problems, errors.New("token_max_age: must not be negative"))
	}
	if appCfg.RateLimitEnabled && appCfg.RateLimitLoginAttempts <= 0 {
		problems = append(problems, errors.New("rate_limit_login_attempts: must be positive when rate limiting is enabled"))
	}
	for name, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_account": appCfg.AuditLogAccount} {
		switch v {
		case "all", "db", "log", "off":
		default:
			problems = append(problems, fmt.Errorf("%s: %q is not one of all, db, log, off", name, v))
		}
	}

	if err := errors.Join(problems...); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return err
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
