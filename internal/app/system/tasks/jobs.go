// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TenantLister enumerates the tenant databases on the server.
type TenantLister interface {
	Tenants(ctx context.Context, skip ...string) ([]string, error)
}

// SessionSweeper removes sessions older than its configured lifetime from
// one tenant. IsTenant tells prepared tenants apart from other databases.
type SessionSweeper interface {
	IsTenant(ctx context.Context, tenant string) (bool, error)
	SweepExpired(ctx context.Context, tenant string, cutoff time.Time) (int64, error)
	TokenMaxAge() time.Duration
}

// AuditPruner deletes audit events older than a cutoff.
type AuditPruner interface {
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionSweepJob creates a job that drops sessions older than the
// sweeper's token lifetime from every tenant. Expired sessions are already
// refused at validation time; this only reclaims the space they hold in user
// documents. serviceDB and databases signup never prepared are left alone.
func SessionSweepJob(tenants TenantLister, sweeper SessionSweeper, serviceDB string, logger *zap.Logger) Job {
	return Job{
		Name:     "session-sweep",
		Interval: 1 * time.Hour,
		Timeout:  10 * time.Minute,
		Run: func(ctx context.Context) error {
			maxAge := sweeper.TokenMaxAge()
			if maxAge <= 0 {
				return nil
			}
			names, err := tenants.Tenants(ctx, serviceDB)
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			cutoff := time.Now().UTC().Add(-maxAge)
			var errs []error
			var users int64
			swept := 0
			for _, tenant := range names {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				ok, err := sweeper.IsTenant(ctx, tenant)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", tenant, err))
					continue
				}
				if !ok {
					continue
				}
				swept++
				n, err := sweeper.SweepExpired(ctx, tenant, cutoff)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", tenant, err))
					continue
				}
				users += n
			}

			if users > 0 {
				logger.Info("swept expired sessions",
					zap.Int("tenants", swept),
					zap.Int64("users", users),
					zap.Time("cutoff", cutoff))
			}
			return errors.Join(errs...)
		},
	}
}

// AuditRetentionJob creates a job that deletes audit events older than retention.
func AuditRetentionJob(pruner AuditPruner, retention time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "audit-retention",
		Interval: 6 * time.Hour,
		Timeout:  5 * time.Minute,
		Run: func(ctx context.Context) error {
			deleted, err := pruner.DeleteBefore(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("pruned audit events",
					zap.Int64("deleted", deleted),
					zap.Duration("retention", retention))
			}
			return nil
		},
	}
}
