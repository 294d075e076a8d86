package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/config"
)

// Runner triggers a cycle on a fixed interval inside the worker process.
type Runner struct {
	scheduler *Scheduler
	interval  time.Duration
	enabled   bool
	logger    *zap.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRunner builds a Runner from configuration.
func NewRunner(s *Scheduler, cfg config.Config, logger *zap.Logger) *Runner {
	return &Runner{
		scheduler: s,
		interval:  cfg.EDI.PollInterval,
		enabled:   cfg.EDI.SchedulerEnabled,
		logger:    logger,
	}
}

// Module provides the Scheduler to Fx.
var Module = fx.Provide(NewScheduler)

// RunnerModule starts the periodic runner with the application lifecycle.
var RunnerModule = fx.Options(
	fx.Provide(NewRunner),
	fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
		lc.Append(fx.Hook{
			OnStart: r.Start,
			OnStop:  r.Stop,
		})
	}),
)

// Start launches the loop. The first cycle runs after one interval.
func (r *Runner) Start(context.Context) error {
	if !r.enabled {
		r.logger.Info("edi scheduler disabled")
		return nil
	}
	if r.interval <= 0 {
		r.interval = 15 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx)
	}()

	r.logger.Info("edi scheduler started", zap.Duration("interval", r.interval))
	return nil
}

// Stop cancels the loop and waits for an in-flight cycle to finish.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel == nil {
		return nil
	}
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		r.logger.Info("edi scheduler stopped")
		return nil
	}
}

func (r *Runner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.scheduler.FetchEdiUpdates(ctx)
		}
	}
}
