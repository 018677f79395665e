package port

import (
	"context"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
)

// ReportSink stores the end-of-run summary.
type ReportSink interface {
	Write(ctx context.Context, summary domain.Summary) error
}
