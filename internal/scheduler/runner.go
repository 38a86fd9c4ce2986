// Package scheduler runs import batches: on explicit submission, on demand,
// and on a cron schedule. A run lock keeps batches from overlapping.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/lock"
	"github.com/amishk599/jobimport/internal/metrics"
)

// ErrBatchInProgress is returned by RunNow when another batch holds the run lock.
var ErrBatchInProgress = errors.New("import batch already in progress")

// Trigger labels say what started a batch.
const (
	TriggerSubmit   = "submit"
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// BatchRunner processes one batch of pending items.
type BatchRunner interface {
	RunBatch(ctx context.Context) (importer.BatchReport, error)
}

// Notifier is told about every batch that did some work.
type Notifier interface {
	NotifyBatch(ctx context.Context, report importer.BatchReport) error
}

// Runner owns batch execution. Submitted jobs are coalesced: while one is
// waiting, further submissions are dropped since the waiting batch will
// pick up their items anyway.
type Runner struct {
	batches  BatchRunner
	locker   lock.Locker
	notifier Notifier
	logger   *slog.Logger
	jobs     chan string
}

// NewRunner creates a runner. notifier may be nil.
func NewRunner(batches BatchRunner, locker lock.Locker, notifier Notifier, logger *slog.Logger) *Runner {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	return &Runner{
		batches:  batches,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
		jobs:     make(chan string, 1),
	}
}

// Submit asks the worker loop started by Run to process a batch. It never blocks.
func (r *Runner) Submit() {
	r.submit(TriggerSubmit)
}

func (r *Runner) submit(trigger string) bool {
	select {
	case r.jobs <- trigger:
		return true
	default:
		r.logger.Debug("batch already queued, coalescing", "trigger", trigger)
		return false
	}
}

// RunNow processes one batch synchronously. It returns ErrBatchInProgress
// instead of waiting when another batch is running.
func (r *Runner) RunNow(ctx context.Context) (importer.BatchReport, error) {
	return r.run(ctx, TriggerManual)
}

func (r *Runner) run(ctx context.Context, trigger string) (importer.BatchReport, error) {
	release, err := r.locker.TryLock(ctx)
	if errors.Is(err, lock.ErrLocked) {
		metrics.IncBatch(trigger, "busy")
		return importer.BatchReport{}, ErrBatchInProgress
	}
	if err != nil {
		metrics.IncBatch(trigger, "error")
		return importer.BatchReport{}, fmt.Errorf("taking run lock: %w", err)
	}
	defer func() {
		// Release even when ctx was cancelled mid-batch.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := release(relCtx); err != nil {
			r.logger.Warn("releasing run lock", "error", err)
		}
	}()

	start := time.Now()
	report, err := r.batches.RunBatch(ctx)
	metrics.ObserveBatch(time.Since(start))
	if err != nil {
		metrics.IncBatch(trigger, "error")
		return report, fmt.Errorf("running batch: %w", err)
	}
	metrics.IncBatch(trigger, "ok")

	if !report.Empty() && r.notifier != nil {
		if err := r.notifier.NotifyBatch(ctx, report); err != nil {
			r.logger.Error("batch notification failed", "error", err)
		}
	}
	return report, nil
}

// Run consumes submitted jobs until ctx is cancelled. When spec is not
// empty it also registers a cron schedule (e.g. "@every 10m") and runs one
// batch immediately. Returns nil on graceful shutdown.
func (r *Runner) Run(ctx context.Context, spec string) error {
	if spec != "" {
		c := cron.New(cron.WithLogger(cronLogger{r.logger}))
		if _, err := c.AddFunc(spec, func() { r.submit(TriggerSchedule) }); err != nil {
			return fmt.Errorf("adding cron schedule %q: %w", spec, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		r.logger.Info("import schedule started", "spec", spec)
		r.submit(TriggerSchedule)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down batch runner")
			return nil
		case trigger := <-r.jobs:
			report, err := r.run(ctx, trigger)
			switch {
			case errors.Is(err, ErrBatchInProgress):
				r.logger.Info("batch skipped, another runner is busy", "trigger", trigger)
			case err != nil:
				r.logger.Error("batch failed", "trigger", trigger, "error", err)
			case report.Empty():
				r.logger.Debug("queue empty", "trigger", trigger)
			}
		}
	}
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
