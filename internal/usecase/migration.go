package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
)

const (
	tracerName         = "github.com/zaynrix/trustedvalley-backend/internal/usecase"
	statisticsParent   = domain.CollectionAdminContent + "/" + statisticsDocID
	statisticsItemsSub = "items"
	defaultLockTTL     = 2 * time.Hour
)

// CoordinatorConfig wires the collaborators of a migration run. Only Source, Users and Processor are required.
type CoordinatorConfig struct {
	Source    port.LegacySource
	Users     port.UserRepository
	Processor RecordProcessor
	Lock      port.RunLock
	Events    port.EventPublisher
	Metrics   port.MigrationMetrics
	Sinks     []port.ReportSink
	Tracer    trace.Tracer
	Logger    *zap.Logger
	Now       func() time.Time
	LockTTL   time.Duration
	// RunID overrides the generated run identifier.
	RunID string
}

// Coordinator runs every collection pass in order and aggregates the outcome.
type Coordinator struct {
	source    port.LegacySource
	users     port.UserRepository
	processor RecordProcessor
	lock      port.RunLock
	events    port.EventPublisher
	metrics   port.MigrationMetrics
	sinks     []port.ReportSink
	tracer    trace.Tracer
	logger    *zap.Logger
	now       func() time.Time
	lockTTL   time.Duration
	runID     string
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	c := &Coordinator{
		source:    cfg.Source,
		users:     cfg.Users,
		processor: cfg.Processor,
		lock:      cfg.Lock,
		events:    cfg.Events,
		metrics:   cfg.Metrics,
		sinks:     cfg.Sinks,
		tracer:    cfg.Tracer,
		logger:    cfg.Logger,
		now:       cfg.Now,
		lockTTL:   cfg.LockTTL,
		runID:     cfg.RunID,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	if c.lockTTL <= 0 {
		c.lockTTL = defaultLockTTL
	}
	return c
}

// RunAll executes the full migration. Per-record failures are collected in the summary;
// only run-fatal failures are returned as errors.
func (c *Coordinator) RunAll(ctx context.Context) (domain.Summary, error) {
	runID := c.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	summary := domain.Summary{RunID: runID, Errors: []domain.Conflict{}, StartedAt: c.now().UTC()}
	log := c.logger.With(zap.String("run_id", runID))

	if c.lock != nil {
		acquired, err := c.lock.Acquire(ctx, runID, c.lockTTL)
		if err != nil {
			return summary, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			return summary, ErrRunInProgress
		}
		defer func() {
			if err := c.lock.Release(context.WithoutCancel(ctx), runID); err != nil {
				log.Warn("failed to release run lock", zap.Error(err))
			}
		}()
	}

	if err := c.users.Ping(ctx); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	if err := c.source.Ping(ctx); err != nil {
		return summary, fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
	}

	log.Info("migration started", zap.Strings("collections", domain.MigrationOrder))

	for _, collection := range domain.MigrationOrder {
		c.runPass(ctx, log, collection, &summary)
	}

	summary.FinishedAt = c.now().UTC()

	log.Info("migration finished",
		zap.Int("migrated_count", summary.MigratedCount),
		zap.Int("error_count", summary.ErrorCount),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	c.publishCompleted(ctx, log, summary)
	c.writeReports(ctx, log, summary)

	return summary, nil
}

func (c *Coordinator) runPass(ctx context.Context, log *zap.Logger, collection string, summary *domain.Summary) {
	ctx, span := c.tracer.Start(ctx, "migration.pass", trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	started := time.Now()
	log = log.With(zap.String("collection", collection))

	records, err := c.list(ctx, collection)
	switch {
	case errors.Is(err, port.ErrCollectionNotFound):
		log.Info("collection not found, nothing to migrate")
		return
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, "list collection")
		summary.AddConflict(domain.Conflict{
			Collection: collection,
			DocID:      domain.UnknownDocID,
			Reason:     err.Error(),
		})
		log.Warn("failed to read collection", zap.Error(err))
		return
	}

	if len(records) == 0 {
		log.Info("collection empty, nothing to migrate")
	}

	migrated, failed := 0, 0
	for _, rec := range records {
		outcome := c.processor.ProcessSourceRecord(ctx, collection, rec)
		summary.Record(outcome)
		if c.metrics != nil {
			c.metrics.ObserveRecord(collection, string(outcome.Kind))
		}
		switch {
		case outcome.Succeeded():
			migrated++
		case outcome.Kind == domain.OutcomeConflict:
			failed++
		}
	}

	elapsed := time.Since(started)
	if c.metrics != nil {
		c.metrics.ObservePass(collection, elapsed)
	}
	span.SetAttributes(
		attribute.Int("records", len(records)),
		attribute.Int("migrated", migrated),
		attribute.Int("conflicts", failed),
	)

	log.Info("collection pass finished",
		zap.Int("records", len(records)),
		zap.Int("migrated", migrated),
		zap.Int("conflicts", failed),
		zap.Duration("elapsed", elapsed),
	)
}

func (c *Coordinator) list(ctx context.Context, collection string) ([]domain.SourceRecord, error) {
	if collection == domain.CollectionStatisticsItems {
		return c.source.GetSubcollection(ctx, statisticsParent, statisticsItemsSub)
	}
	return c.source.ListCollection(ctx, collection)
}

func (c *Coordinator) publishCompleted(ctx context.Context, log *zap.Logger, summary domain.Summary) {
	if c.events == nil {
		return
	}
	event := domain.MigrationCompletedEvent{
		EventID:       uuid.NewString(),
		RunID:         summary.RunID,
		MigratedCount: summary.MigratedCount,
		ErrorCount:    summary.ErrorCount,
		StartedAt:     summary.StartedAt,
		FinishedAt:    summary.FinishedAt,
	}
	if err := c.events.PublishMigrationCompleted(ctx, event); err != nil {
		log.Warn("failed to publish migration completed event", zap.Error(err))
	}
}

func (c *Coordinator) writeReports(ctx context.Context, log *zap.Logger, summary domain.Summary) {
	for _, sink := range c.sinks {
		if err := sink.Write(ctx, summary); err != nil {
			log.Warn("failed to write migration report", zap.Error(err))
		}
	}
}
