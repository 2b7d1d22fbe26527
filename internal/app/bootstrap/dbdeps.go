// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratadoc/internal/app/store/collections"
	"github.com/dalemusser/stratadoc/internal/app/system/metrics"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown.
type DBDeps struct {
	// MongoDB client and the service database (rate limits, audit log).
	// Tenant databases are reached through Resolver.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Resolver      *collections.Resolver

	// Metrics is the Prometheus registry shared by the HTTP layer, the
	// document service and the task runner.
	Metrics *metrics.Registry
}
