// Package repository persists canonical records, raw payloads and audit
// events.
//
// All writes of one ingest batch go through a Batch, which wraps a single
// database transaction. Canonical rows are written with one conditional
// INSERT ... ON CONFLICT statement, so concurrent batches never need to
// read a row before deciding whether to write it.
package repository

import (
	"context"
	"errors"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrUnknownTable   = errors.New("unknown table")
	ErrBatchClosed    = errors.New("batch already committed or rolled back")
)

// Repository is the storage surface used by the ingest service.
type Repository interface {
	BeginBatch(ctx context.Context) (Batch, error)

	ListEvents(ctx context.Context, filter EventFilter) ([]*models.AuditEvent, error)
	ListRawPayloads(ctx context.Context, sourceApp, externalID string) ([]*models.RawPayload, error)
	GetRecord(ctx context.Context, table, sourceApp, externalID string) (*models.CanonicalRecord, error)
	Counts(ctx context.Context, sourceApp string) (map[string]int64, error)
	VerifyChecksums(ctx context.Context, table string) (*VerifyReport, error)

	Ping(ctx context.Context) error
	Close() error
}

// Batch is one transactional unit of ingest writes. A Batch must end with
// exactly one Commit or Rollback; Rollback after Commit is a no-op.
type Batch interface {
	// Upsert writes rec unless the stored row already carries the same
	// checksum, and reports whether a row was inserted or changed.
	Upsert(ctx context.Context, rec *models.CanonicalRecord) (changed bool, err error)
	AppendRaw(ctx context.Context, p *models.RawPayload) error
	AppendAudit(ctx context.Context, e *models.AuditEvent) error
	Commit() error
	Rollback() error
}

// EventFilter selects audit events, newest first.
type EventFilter struct {
	Limit     int
	IngestID  string
	SourceApp string
}

// DefaultEventLimit applies when EventFilter.Limit is not positive.
const DefaultEventLimit = 50

// VerifyReport lists canonical rows whose stored checksum no longer
// matches their stored content.
type VerifyReport struct {
	Table      string     `json:"table"`
	Checked    int        `json:"checked"`
	Mismatches []Mismatch `json:"mismatches"`
}

// OK reports whether every checked row was consistent.
func (r *VerifyReport) OK() bool {
	return len(r.Mismatches) == 0
}

// Mismatch is one inconsistent canonical row.
type Mismatch struct {
	SourceApp  string `json:"source_app"`
	ExternalID string `json:"external_id"`
	Stored     string `json:"stored"`
	Computed   string `json:"computed"`
}
