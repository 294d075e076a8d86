// Package scheduler runs EDI sync cycles: one pass over every inbound
// document type in priority order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/edisync/internal/cache"
	"github.com/Additional-Code/edisync/internal/config"
	"github.com/Additional-Code/edisync/internal/edi"
	"github.com/Additional-Code/edisync/internal/lock"
	"github.com/Additional-Code/edisync/internal/provider"
	edisvc "github.com/Additional-Code/edisync/internal/service/edi"
)

const (
	// LockKey guards against overlapping cycles.
	LockKey = "edi:sync:lock"
	// LastResultKey caches the summary of the most recent cycle.
	LastResultKey = "edi:sync:last"

	lastResultTTL = 24 * time.Hour
)

// ErrAlreadyRunning is reported when another cycle holds the lock.
var ErrAlreadyRunning = errors.New("sync cycle already running")

var (
	schedulerTracer = otel.Tracer("github.com/Additional-Code/edisync/scheduler")
	schedulerMeter  = otel.Meter("github.com/Additional-Code/edisync/scheduler")
)

// Poller runs the batch for one inbound document type.
type Poller interface {
	PollDocumentType(ctx context.Context, code edi.DocumentType) (edisvc.BatchResult, error)
}

// SyncResult summarizes one cycle. Results is keyed by document name.
type SyncResult struct {
	Success        bool                          `json:"success"`
	ProcessingTime string                        `json:"processingTime,omitempty"`
	StartedAt      time.Time                     `json:"startedAt"`
	Results        map[string]edisvc.BatchResult `json:"results,omitempty"`
	Error          string                        `json:"error,omitempty"`
}

// Scheduler orchestrates sync cycles.
type Scheduler struct {
	poller   Poller
	locker   lock.Locker
	store    cache.Store
	logger   *zap.Logger
	lockTTL  time.Duration
	stages   []edi.DocumentType
	now      func() time.Time
	cycles   metric.Int64Counter
	duration metric.Float64Histogram
}

// Options tunes a Scheduler.
type Options struct {
	LockTTL time.Duration
	Stages  []edi.DocumentType
	Now     func() time.Time
}

// New builds a Scheduler. A nil locker or store disables that concern.
func New(poller Poller, locker lock.Locker, store cache.Store, logger *zap.Logger, opts Options) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 10 * time.Minute
	}
	if len(opts.Stages) == 0 {
		opts.Stages = edi.InboundPriority
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cycles, err := schedulerMeter.Int64Counter("edi.sync.cycles",
		metric.WithDescription("EDI sync cycles, by result"),
	)
	if err != nil {
		logger.Warn("create edi.sync.cycles counter", zap.Error(err))
	}
	duration, err := schedulerMeter.Float64Histogram("edi.sync.duration",
		metric.WithDescription("Wall clock duration of EDI sync cycles"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("create edi.sync.duration histogram", zap.Error(err))
	}

	return &Scheduler{
		poller:   poller,
		locker:   locker,
		store:    store,
		logger:   logger,
		lockTTL:  opts.LockTTL,
		stages:   opts.Stages,
		now:      opts.Now,
		cycles:   cycles,
		duration: duration,
	}
}

// Params defines dependencies for constructing Scheduler through Fx.
type Params struct {
	fx.In

	Service *edisvc.Service
	Locker  lock.Locker
	Store   cache.Store
	Config  config.Config
	Logger  *zap.Logger
}

// NewScheduler wires a Scheduler from the Fx graph.
func NewScheduler(p Params) *Scheduler {
	return New(p.Service, p.Locker, p.Store, p.Logger, Options{LockTTL: p.Config.EDI.LockTTL})
}

// FetchEdiUpdates runs one cycle. A failing stage is recorded in Results and
// does not stop later stages. Success is false only when the cycle itself
// could not run.
func (s *Scheduler) FetchEdiUpdates(ctx context.Context) (result SyncResult) {
	ctx, span := schedulerTracer.Start(ctx, "Scheduler.FetchEdiUpdates")
	defer span.End()

	start := s.now()
	result.StartedAt = start.UTC()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("edi sync cycle panicked", zap.Any("panic", r))
			result = SyncResult{Success: false, StartedAt: start.UTC(), Error: fmt.Sprintf("sync cycle failed: %v", r)}
		}
		elapsed := s.now().Sub(start)
		result.ProcessingTime = fmt.Sprintf("%.2fs", elapsed.Seconds())
		if !result.Success {
			span.SetStatus(codes.Error, result.Error)
		}
		s.record(ctx, result, elapsed)
	}()

	release, err := s.acquire(ctx)
	if errors.Is(err, ErrAlreadyRunning) {
		s.logger.Warn("edi sync cycle skipped; another cycle holds the lock")
		return SyncResult{Success: false, StartedAt: start.UTC(), Error: err.Error()}
	}
	if err != nil {
		return SyncResult{Success: false, StartedAt: start.UTC(), Error: err.Error()}
	}
	defer release()

	s.logger.Info("edi sync cycle started")
	result.Results = make(map[string]edisvc.BatchResult, len(s.stages))
	for _, code := range s.stages {
		result.Results[code.Name()] = s.runStage(ctx, code)
	}
	result.Success = true
	return result
}

// PollOne runs the batch for a single inbound document type under the cycle
// lock, so it never overlaps a running cycle or another poll. It returns
// ErrAlreadyRunning when the lock is held.
func (s *Scheduler) PollOne(ctx context.Context, code edi.DocumentType) (edisvc.BatchResult, error) {
	ctx, span := schedulerTracer.Start(ctx, "Scheduler.PollOne", trace.WithAttributes(
		attribute.String("edi.document_type", code.String()),
	))
	defer span.End()

	if !code.Inbound() {
		return edisvc.BatchResult{DocumentType: code}, fmt.Errorf("%w: %s", edisvc.ErrUnsupportedDocument, code)
	}

	release, err := s.acquire(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrAlreadyRunning) {
			s.logger.Info("edi poll skipped; a sync cycle holds the lock", zap.String("document_type", code.String()))
		}
		return edisvc.BatchResult{DocumentType: code}, err
	}
	defer release()

	res := s.runStage(ctx, code)
	if !res.Success && res.Error != nil {
		span.SetStatus(codes.Error, res.Error.Message)
	}
	return res, nil
}

// acquire takes the cycle lock. The returned func releases it.
func (s *Scheduler) acquire(ctx context.Context) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	lease, err := s.locker.Obtain(ctx, LockKey, s.lockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return nil, ErrAlreadyRunning
	}
	if err != nil {
		s.logger.Error("failed to obtain edi sync lock", zap.Error(err))
		return nil, fmt.Errorf("obtain edi sync lock: %w", err)
	}
	return func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release edi sync lock", zap.Error(err))
		}
	}, nil
}

func (s *Scheduler) runStage(ctx context.Context, code edi.DocumentType) (res edisvc.BatchResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("stage %s panicked: %v", code.Name(), r)
			s.logger.Error("edi sync stage failed", zap.String("document_type", code.String()), zap.Error(err))
			res = edisvc.BatchResult{DocumentType: code, Error: provider.Normalize(err)}
		}
	}()

	res, err := s.poller.PollDocumentType(ctx, code)
	if err != nil {
		s.logger.Error("edi sync stage failed", zap.String("document_type", code.String()), zap.Error(err))
		res.DocumentType = code
		res.Success = false
		if res.Error == nil {
			res.Error = provider.Normalize(err)
		}
	}
	return res
}

func (s *Scheduler) record(ctx context.Context, result SyncResult, elapsed time.Duration) {
	outcome := "success"
	if !result.Success {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(attribute.String("result", outcome))
	if s.cycles != nil {
		s.cycles.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, elapsed.Seconds(), attrs)
	}

	fields := []zap.Field{
		zap.Bool("success", result.Success),
		zap.String("processing_time", result.ProcessingTime),
	}
	for name, stage := range result.Results {
		fields = append(fields, zap.Int(name+"_processed", stage.Processed), zap.Int(name+"_failed", stage.Failed))
	}
	if result.Error != "" {
		fields = append(fields, zap.String("error", result.Error))
	}
	s.logger.Info("edi sync cycle finished", fields...)

	if s.store == nil || result.Error == ErrAlreadyRunning.Error() {
		return
	}
	if err := cache.SetJSON(context.WithoutCancel(ctx), s.store, LastResultKey, result, lastResultTTL); err != nil {
		s.logger.Warn("failed to cache edi sync result", zap.Error(err))
	}
}

// LastResult returns the most recent cached cycle summary.
func (s *Scheduler) LastResult(ctx context.Context) (SyncResult, bool, error) {
	if s.store == nil {
		return SyncResult{}, false, nil
	}
	var result SyncResult
	err := cache.GetJSON(ctx, s.store, LastResultKey, &result)
	if errors.Is(err, cache.ErrCacheMiss) {
		return SyncResult{}, false, nil
	}
	if err != nil {
		return SyncResult{}, false, err
	}
	return result, true, nil
}
