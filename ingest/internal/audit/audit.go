// Package audit builds and appends ledger events, one per processed tuple.
package audit

import (
	"context"
	"time"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// DefaultCostPerTuple is the estimated processing cost of one tuple in USD.
const DefaultCostPerTuple = 0.0001

// Appender stores audit events. repository.Batch satisfies it.
type Appender interface {
	AppendAudit(ctx context.Context, e *models.AuditEvent) error
}

// Recorder stamps events with cost and creation time.
type Recorder struct {
	costPerTuple float64
	now          func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithCostPerTuple overrides DefaultCostPerTuple. Negative values are
// ignored.
func WithCostPerTuple(usd float64) Option {
	return func(r *Recorder) {
		if usd >= 0 {
			r.costPerTuple = usd
		}
	}
}

// WithClock overrides the creation-time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{costPerTuple: DefaultCostPerTuple, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EventTypeFor picks the label for an upsert outcome on table.
func EventTypeFor(table string, changed bool) models.EventType {
	if !changed {
		return models.EventNoop
	}
	if spec, ok := models.LookupTable(table); ok {
		return spec.ChangedEvent
	}
	return models.EventNoop
}

// Upserted builds the event for a tuple that reached the upsert.
func (r *Recorder) Upserted(ingestID string, rec *models.CanonicalRecord, changed bool, latency time.Duration) *models.AuditEvent {
	return r.event(ingestID, rec.SourceApp, rec.ExternalID, EventTypeFor(rec.Table, changed),
		models.UpsertMessage(rec.Table, changed), latency)
}

// Failed builds the event for a tuple that could not be processed.
// externalID may be empty when the failure happened before the vendor id
// was read.
func (r *Recorder) Failed(ingestID, sourceApp, externalID, reason string, err error, latency time.Duration) *models.AuditEvent {
	return r.event(ingestID, sourceApp, externalID, models.EventError,
		models.ErrorMessage(reason, err), latency)
}

func (r *Recorder) event(ingestID, sourceApp, externalID string, et models.EventType, msg string, latency time.Duration) *models.AuditEvent {
	return &models.AuditEvent{
		IngestID:        ingestID,
		SourceApp:       sourceApp,
		EventType:       et,
		ExternalID:      externalID,
		Actor:           models.Actor(sourceApp),
		LatencyMS:       latency.Milliseconds(),
		CostEstimateUSD: r.costPerTuple,
		CreatedAt:       models.Timestamp(r.now()),
		Message:         msg,
	}
}

// Write appends e.
func Write(ctx context.Context, a Appender, e *models.AuditEvent) error {
	return a.AppendAudit(ctx, e)
}
