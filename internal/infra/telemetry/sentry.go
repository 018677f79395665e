package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/infra/config"
)

const sentryFlushTimeout = 5 * time.Second

// ErrorReporter forwards run-fatal errors to Sentry. Without a DSN every call is a no-op.
type ErrorReporter struct {
	enabled bool
	logger  *zap.Logger
}

func NewErrorReporter(cfg config.SentrySettings, app config.AppSettings, logger *zap.Logger) (*ErrorReporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		return &ErrorReporter{logger: logger}, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      app.Env,
		Release:          fmt.Sprintf("%s@%s", app.Name, ServiceVersion),
		AttachStacktrace: true,
		SampleRate:       1.0,
	})
	if err != nil {
		return nil, fmt.Errorf("init sentry: %w", err)
	}

	logger.Info("sentry error reporting enabled", zap.String("environment", app.Env))
	return &ErrorReporter{enabled: true, logger: logger}, nil
}

// CaptureFatal reports err tagged with the run id and the failing command.
func (r *ErrorReporter) CaptureFatal(err error, runID, command string) {
	if r == nil || !r.enabled || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		scope.SetTag("run_id", runID)
		scope.SetTag("command", command)
		sentry.CaptureException(err)
	})
}

// Flush waits for queued events to be delivered.
func (r *ErrorReporter) Flush() {
	if r == nil || !r.enabled {
		return
	}
	if !sentry.Flush(sentryFlushTimeout) {
		r.logger.Warn("sentry flush timed out", zap.Duration("timeout", sentryFlushTimeout))
	}
}
