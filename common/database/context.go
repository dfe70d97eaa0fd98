package database

import (
	"context"
	"time"
)

// Standard timeout durations for store operations.
const (
	// DefaultQueryTimeout bounds read queries (event listing, counts).
	DefaultQueryTimeout = 5 * time.Second

	// DefaultBatchTimeout bounds one ingest batch from BEGIN to COMMIT.
	DefaultBatchTimeout = 30 * time.Second

	// DefaultMigrateTimeout bounds schema migrations at startup.
	DefaultMigrateTimeout = 60 * time.Second
)

// QueryContext creates a context with DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// BatchContext creates a context bounded by d, or DefaultBatchTimeout when
// d is not positive. A parent deadline that is sooner still wins.
func BatchContext(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultBatchTimeout
	}
	return context.WithTimeout(parent, d)
}
