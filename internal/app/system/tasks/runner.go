// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("unknown job")

// Job represents a scheduled background task.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds a single execution. Zero means no bound beyond shutdown.
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Runner manages background job execution.
type Runner struct {
	logger   *zap.Logger
	jobs     []Job
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	running  atomic.Int32 // Count of currently executing jobs
	jobNames sync.Map     // Track which jobs are currently running

	runs *prometheus.CounterVec
	durs *prometheus.HistogramVec
}

// New creates a new task runner. Job outcomes are counted on reg when it is
// non-nil.
func New(logger *zap.Logger, reg prometheus.Registerer) *Runner {
	r := &Runner{
		logger: logger,
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasks",
			Name:      "job_runs_total",
			Help:      "Number of background job executions by outcome",
		}, []string{"job", "result"}),
		durs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tasks",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job executions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
	}
	if reg != nil {
		reg.MustRegister(r.runs, r.durs)
	}
	return r
}

// Register adds a job to the runner.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Jobs returns the names of the registered jobs in registration order.
func (r *Runner) Jobs() []string {
	names := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		names = append(names, j.Name)
	}
	return names
}

// Start begins executing all registered jobs.
// Call Stop to gracefully shutdown.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.runJob(ctx, job)
	}

	r.logger.Info("background task runner started",
		zap.Strings("jobs", r.Jobs()))
}

// Stop gracefully stops all running jobs within the given context's deadline.
// If ctx is cancelled before all jobs complete, it returns ctx.Err().
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped gracefully")
		return nil
	case <-ctx.Done():
		var stillRunning []string
		r.jobNames.Range(func(key, _ any) bool {
			stillRunning = append(stillRunning, key.(string))
			return true
		})
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", stillRunning),
			zap.Int32("running_count", r.running.Load()))
		return ctx.Err()
	}
}

// runJob executes a single job on its interval, starting immediately.
func (r *Runner) runJob(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.executeJob(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.executeJob(ctx, job)
		}
	}
}

// executeJob runs a job and records the result.
func (r *Runner) executeJob(ctx context.Context, job Job) {
	r.running.Add(1)
	r.jobNames.Store(job.Name, struct{}{})
	defer func() {
		r.running.Add(-1)
		r.jobNames.Delete(job.Name)
	}()

	start := time.Now()
	err := r.call(ctx, job)
	took := time.Since(start)
	r.durs.WithLabelValues(job.Name).Observe(took.Seconds())

	switch {
	case err == nil:
		r.runs.WithLabelValues(job.Name, "ok").Inc()
		r.logger.Debug("job completed",
			zap.String("job", job.Name),
			zap.Duration("duration", took))
	case ctx.Err() != nil:
		// shutdown, not a failure
		r.runs.WithLabelValues(job.Name, "cancelled").Inc()
		r.logger.Debug("job cancelled during shutdown",
			zap.String("job", job.Name),
			zap.Duration("duration", took))
	default:
		r.runs.WithLabelValues(job.Name, "error").Inc()
		r.logger.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", took),
			zap.Error(err))
	}
}

func (r *Runner) call(ctx context.Context, job Job) error {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}
	return job.Run(ctx)
}

// RunOnce executes a job immediately, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return r.call(ctx, job)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}
