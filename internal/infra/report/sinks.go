package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
)

// ConsoleSink prints the run totals followed by the enumerated conflict list.
type ConsoleSink struct {
	out io.Writer
}

var _ port.ReportSink = (*ConsoleSink)(nil)

func NewConsoleSink(out io.Writer) *ConsoleSink {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSink{out: out}
}

func (s *ConsoleSink) Write(_ context.Context, summary domain.Summary) error {
	if _, err := fmt.Fprintf(s.out, "migration %s finished: %d migrated, %d errors\n",
		summary.RunID, summary.MigratedCount, summary.ErrorCount); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for i, c := range summary.Errors {
		if _, err := fmt.Fprintf(s.out, "%d. [%s] %s: %s\n", i+1, c.Collection, c.DocID, c.Reason); err != nil {
			return fmt.Errorf("write conflict: %w", err)
		}
	}
	return nil
}

// FileSink writes the summary as indented JSON, replacing the file atomically.
type FileSink struct {
	path   string
	logger *zap.Logger
}

var _ port.ReportSink = (*FileSink)(nil)

func NewFileSink(path string, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{path: path, logger: logger}
}

func (s *FileSink) Write(_ context.Context, summary domain.Summary) error {
	body, err := Marshal(summary)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write report file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace report file: %w", err)
	}

	s.logger.Info("migration report written", zap.String("path", s.path))
	return nil
}

// Marshal renders the summary as the JSON report document. Errors is always an array.
func Marshal(summary domain.Summary) ([]byte, error) {
	if summary.Errors == nil {
		summary.Errors = []domain.Conflict{}
	}
	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return append(body, '\n'), nil
}
