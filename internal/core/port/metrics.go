package port

import "time"

// MigrationMetrics records per-record and per-pass observations.
type MigrationMetrics interface {
	ObserveRecord(collection string, outcome string)
	ObservePass(collection string, elapsed time.Duration)
}
