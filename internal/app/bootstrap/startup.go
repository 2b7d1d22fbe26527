// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratadoc/internal/app/store/audit"
	userstore "github.com/dalemusser/stratadoc/internal/app/store/users"
	"github.com/dalemusser/stratadoc/internal/app/system/tasks"
	"github.com/dalemusser/stratadoc/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies the storage deadlines and starts the background task runner.
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:  appCfg.TimeoutPing,
		Short: appCfg.TimeoutShort,
		Batch: appCfg.TimeoutBatch,
	})

	startTaskRunner(appCfg, deps, logger)
	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner registers the maintenance jobs that the configuration
// calls for and starts the runner.
func startTaskRunner(appCfg AppConfig, deps DBDeps, logger *zap.Logger) {
	taskRunner = tasks.New(logger, deps.Metrics)

	if appCfg.TokenMaxAge > 0 {
		users := userstore.New(deps.Resolver, appCfg.TokenMaxAge, logger)
		taskRunner.Register(tasks.SessionSweepJob(deps.Resolver, users, appCfg.MongoDatabase, logger))
	}
	if appCfg.AuditRetention > 0 {
		taskRunner.Register(tasks.AuditRetentionJob(audit.New(deps.MongoDatabase), appCfg.AuditRetention, logger))
	}

	taskRunner.Start()
}
