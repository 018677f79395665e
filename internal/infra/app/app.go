package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/database"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/dump"
	firestoreinfra "github.com/zaynrix/trustedvalley-backend/internal/infra/firestore"
	kafkainfra "github.com/zaynrix/trustedvalley-backend/internal/infra/kafka"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/logger"
	redisinfra "github.com/zaynrix/trustedvalley-backend/internal/infra/redis"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/report"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/security"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/telemetry"
	postgresrepo "github.com/zaynrix/trustedvalley-backend/internal/repository/postgres"
	redisrepo "github.com/zaynrix/trustedvalley-backend/internal/repository/redis"
	"github.com/zaynrix/trustedvalley-backend/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application owns every connection a migration command needs and closes them in reverse order.
type Application struct {
	cfg      *config.AppConfig
	logger   *zap.Logger
	store    *postgresrepo.Store
	repos    *postgresrepo.Repositories
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
	tracing  *telemetry.TracerProvider
	metrics  *telemetry.Metrics
	reporter *telemetry.ErrorReporter

	source      port.LegacySource
	events      port.EventPublisher
	credentials port.CredentialIssuer
	lock        port.RunLock
}

// New connects to the canonical store and every optional collaborator. The legacy source is
// opened lazily by Migrate, so schema and repair commands work without source credentials.
func New(ctx context.Context, cfg *config.AppConfig) (_ *Application, err error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &Application{cfg: cfg, logger: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	a.reporter, err = telemetry.NewErrorReporter(cfg.Sentry, cfg.App, log)
	if err != nil {
		return nil, err
	}

	a.tracing, err = telemetry.NewTracerProvider(ctx, cfg.Telemetry, cfg.App.Env, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.metrics = telemetry.NewMetrics(cfg.Telemetry, log)

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", usecase.ErrStoreUnreachable, database.Describe(cfg.Postgres), err)
	}
	a.store = postgresrepo.NewStore(pool)
	a.repos = postgresrepo.NewRepositories(a.store.Pool())

	params := port.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	hasher, err := security.NewArgon2Hasher(params)
	if err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}
	a.credentials = security.NewCredentialIssuer(hasher)

	if cfg.Redis.Enabled {
		a.redis, err = redisinfra.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("init redis: %w", err)
		}
		a.lock = redisrepo.NewRunLock(a.redis.Client(), cfg.Redis.LockKey)
	} else {
		log.Info("redis disabled, concurrent runs are not guarded")
	}

	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, perr := kafkainfra.NewProducer(cfg.Kafka, log)
		if perr != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(perr))
			a.events = kafkainfra.NewStubPublisher(log)
		} else {
			a.producer = producer
			a.events = kafkainfra.NewEventPublisher(producer, cfg.App, log)
		}
	} else {
		log.Info("kafka disabled, using stub publisher")
		a.events = kafkainfra.NewStubPublisher(log)
	}

	return a, nil
}

// Logger returns the process logger.
func (a *Application) Logger() *zap.Logger {
	return a.logger
}

// Migrate runs every pass and ships the summary to the configured sinks. The returned
// summary is valid even when err is non-nil.
func (a *Application) Migrate(ctx context.Context) (domain.Summary, error) {
	source, err := a.openSource(ctx)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", usecase.ErrSourceUnreachable, err)
		a.reporter.CaptureFatal(wrapped, a.cfg.Migration.RunID, "run")
		return domain.Summary{RunID: a.cfg.Migration.RunID, Errors: []domain.Conflict{}}, wrapped
	}
	a.source = source

	sinks, err := a.reportSinks(ctx)
	if err != nil {
		return domain.Summary{}, err
	}

	resolver := usecase.NewIdentityResolver(a.repos.Users, a.logger)
	merger := usecase.NewProfileMerger(time.Now)
	orchestrator := usecase.NewOrchestrator(
		a.repos.Users,
		a.repos.Documents,
		resolver,
		merger,
		a.credentials,
		a.events,
		a.logger,
		time.Now,
	)

	coordinator := usecase.NewCoordinator(usecase.CoordinatorConfig{
		Source:    source,
		Users:     a.repos.Users,
		Processor: orchestrator,
		Lock:      a.lock,
		Events:    a.events,
		Metrics:   a.metrics,
		Sinks:     sinks,
		Tracer:    a.tracing.Tracer("github.com/zaynrix/trustedvalley-backend/internal/usecase"),
		Logger:    a.logger,
		LockTTL:   a.cfg.Migration.LockTTL,
		RunID:     a.cfg.Migration.RunID,
	})

	summary, err := coordinator.RunAll(ctx)
	if err != nil {
		a.reporter.CaptureFatal(err, summary.RunID, "run")
		return summary, err
	}

	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	if err := a.metrics.Push(ctx, summary.RunID, finished); err != nil {
		a.logger.Warn("failed to push migration metrics", zap.Error(err))
	}

	return summary, nil
}

// RepairAdminRoles promotes users whose profile marks them as administrators.
func (a *Application) RepairAdminRoles(ctx context.Context) (int, error) {
	repaired, err := usecase.NewAdminRoleRepair(a.repos.Users, a.logger, time.Now).Run(ctx)
	if err != nil {
		a.reporter.CaptureFatal(err, "", "repair-admin-roles")
	}
	return repaired, err
}

func (a *Application) openSource(ctx context.Context) (port.LegacySource, error) {
	switch a.cfg.Legacy.Driver {
	case config.LegacyDriverDump:
		a.logger.Info("reading legacy documents from dump", zap.String("dir", a.cfg.Legacy.DumpDir))
		return dump.NewSource(a.cfg.Legacy.DumpDir, a.logger), nil
	case config.LegacyDriverFirestore:
		return firestoreinfra.NewSource(ctx, a.cfg.Legacy, a.logger)
	default:
		return nil, fmt.Errorf("unknown legacy driver %q", a.cfg.Legacy.Driver)
	}
}

func (a *Application) reportSinks(ctx context.Context) ([]port.ReportSink, error) {
	sinks := []port.ReportSink{report.NewConsoleSink(os.Stdout)}

	if a.cfg.Report.Path != "" {
		sinks = append(sinks, report.NewFileSink(a.cfg.Report.Path, a.logger))
	}

	if a.cfg.Report.S3Bucket != "" {
		s3Sink, err := report.NewS3Sink(ctx, a.cfg.Report, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init s3 report sink: %w", err)
		}
		sinks = append(sinks, s3Sink)
	}

	return sinks, nil
}

// Close releases resources in reverse order of acquisition. It is safe on a partially built Application.
func (a *Application) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("failed to close legacy source", zap.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close kafka producer", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
		}
	}
	a.store.Close()
	if a.tracing != nil {
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.Warn("failed to shut down tracing", zap.Error(err))
		}
	}
	a.reporter.Flush()
	logger.Sync()
}

// MigrateSchema applies the embedded DDL without opening the rest of the application.
func MigrateSchema(cfg *config.AppConfig) error {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	log.Info("applying schema migrations", zap.String("target", database.Describe(cfg.Postgres)))
	return database.Migrate(cfg.Postgres.DSN(), log)
}
