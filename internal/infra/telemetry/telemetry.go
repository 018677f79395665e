package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

const (
	namespace = "trustedvalley"
	subsystem = "migration"
	pushJob   = "trustedvalley_migrate"
)

// Metrics records migration counters on a private registry. The process is a batch job,
// so nothing is scraped; Push ships the registry to a Prometheus Pushgateway at the end of a run.
type Metrics struct {
	registry     *prometheus.Registry
	records      *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	lastSuccess  prometheus.Gauge

	pushURL string
	logger  *zap.Logger
}

var _ port.MigrationMetrics = (*Metrics)(nil)

// NewMetrics registers the migration collectors. An empty pushgateway URL makes Push a no-op.
func NewMetrics(cfg config.TelemetrySettings, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "records_total",
		Help:      "Source records processed, by collection and outcome.",
	}, []string{"collection", "outcome"})

	passDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "pass_duration_seconds",
		Help:      "Wall time of a single collection pass.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"collection"})

	lastSuccess := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "last_completion_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	})

	registry.MustRegister(records, passDuration, lastSuccess)

	return &Metrics{
		registry:     registry,
		records:      records,
		passDuration: passDuration,
		lastSuccess:  lastSuccess,
		pushURL:      cfg.PushgatewayURL,
		logger:       logger,
	}
}

func (m *Metrics) ObserveRecord(collection string, outcome string) {
	m.records.WithLabelValues(collection, outcome).Inc()
}

func (m *Metrics) ObservePass(collection string, elapsed time.Duration) {
	m.passDuration.WithLabelValues(collection).Observe(elapsed.Seconds())
}

// Registry exposes the collectors for tests and ad-hoc gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push stamps the completion time and sends the registry to the pushgateway, grouped by run id.
func (m *Metrics) Push(ctx context.Context, runID string, finishedAt time.Time) error {
	m.lastSuccess.Set(float64(finishedAt.Unix()))

	if m.pushURL == "" {
		return nil
	}

	pusher := push.New(m.pushURL, pushJob).
		Gatherer(m.registry).
		Grouping("run_id", runID)

	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", m.pushURL, err)
	}

	m.logger.Info("metrics pushed",
		zap.String("pushgateway", m.pushURL),
		zap.String("run_id", runID),
	)
	return nil
}
