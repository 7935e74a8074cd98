package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/robfig/cron/v3"

	"github.com/gidroatlas/atlas-service/internal/domain"
	"github.com/gidroatlas/atlas-service/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxAttempts    = 5
)

// Extractor fetches the current normalized object collection.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.WaterObject, error)
}

// Transformer converts a water object into an output event.
type Transformer interface {
	Transform(ctx context.Context, obj domain.WaterObject) (domain.OutputEvent, error)
}

// BatchLoader writes multiple output events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.OutputEvent) error
}

// Pipeline syncs the registry into the sink topic on a schedule.
type Pipeline struct {
	extractor   Extractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
	backoff     time.Duration
}

// New creates a Pipeline with the given stages and observability. A nil
// loader syncs the catalog without publishing.
func New(e Extractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
		backoff:     initialBackoff,
	}
}

// Ready reports whether at least one sync has completed.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once a sync has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a sync yet")
	}
	return nil
}

// Run syncs once immediately, then on every tick of schedule until the
// context is cancelled. Overlapping ticks are skipped.
func (p *Pipeline) Run(ctx context.Context, schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{p.logger})))
	if _, err := c.AddFunc(schedule, func() { p.runLogged(ctx) }); err != nil {
		return fmt.Errorf("schedule sync %q: %w", schedule, err)
	}

	p.logger.Info("pipeline started", "schedule", schedule, "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.runLogged(ctx)
	c.Start()

	<-ctx.Done()
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	<-c.Stop().Done()
	return nil
}

func (p *Pipeline) runLogged(ctx context.Context) {
	if err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("sync failed", "error", err)
	}
}

// RunOnce performs one extract-transform-load sync. Extract and load
// failures are retried with exponential backoff; objects that fail to
// serialize are skipped.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	start := time.Now()
	err := p.sync(ctx)

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.SyncRuns.WithLabelValues(outcome).Inc()
	if err != nil {
		return err
	}

	p.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return nil
}

func (p *Pipeline) sync(ctx context.Context) error {
	var objects []domain.WaterObject
	err := p.retry(ctx, "extract", func() error {
		var err error
		objects, err = p.extractor.Extract(ctx)
		return err
	})
	if err != nil {
		return err
	}

	p.metrics.ObjectsSynced.Add(float64(len(objects)))
	p.metrics.CatalogObjects.Set(float64(len(objects)))

	if p.loader == nil {
		p.logger.Debug("sync complete, publishing disabled", "objects", len(objects))
		return nil
	}

	events := p.transform(ctx, objects)
	for start := 0; start < len(events); start += p.batchSize {
		batch := events[start:min(start+p.batchSize, len(events))]
		if err := p.retry(ctx, "load", func() error { return p.loader.LoadBatch(ctx, batch) }); err != nil {
			return err
		}
		p.metrics.ObjectsPublished.Add(float64(len(batch)))
	}

	p.logger.Info("sync complete", "objects", len(objects), "published", len(events))
	return nil
}

func (p *Pipeline) transform(ctx context.Context, objects []domain.WaterObject) []domain.OutputEvent {
	events := make([]domain.OutputEvent, 0, len(objects))
	for _, obj := range objects {
		event, err := p.transformer.Transform(ctx, obj)
		if err != nil {
			p.logger.Warn("transform failed, skipping object", "error", err, "id", obj.ID)
			p.metrics.SerializeErrors.Inc()
			continue
		}
		events = append(events, event)
	}
	return events
}

// retry runs fn up to maxAttempts times, sleeping with exponential backoff
// between attempts.
func (p *Pipeline) retry(ctx context.Context, stage string, fn func() error) error {
	backoff := p.backoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn(stage+" failed", "error", err, "attempt", attempt)
		if attempt == maxAttempts {
			break
		}
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
	return fmt.Errorf("%s failed after %d attempts: %w", stage, maxAttempts, err)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
