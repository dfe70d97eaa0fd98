package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// Tx is the Store's Batch implementation.
type Tx struct {
	tx    *sql.Tx
	store *Store
	done  bool
}

// Upsert applies rec with a single conditional statement. changed is true
// when a row was inserted or its content replaced, false when the stored
// checksum already matched.
func (t *Tx) Upsert(ctx context.Context, rec *models.CanonicalRecord) (bool, error) {
	if t.done {
		return false, ErrBatchClosed
	}
	spec, ok := models.LookupTable(rec.Table)
	if !ok {
		return false, &StorageError{Op: "upsert", Table: rec.Table, Code: CodeUnknown, Err: ErrUnknownTable}
	}

	args := make([]any, 0, len(spec.Columns)+4)
	args = append(args, rec.SourceApp, rec.ExternalID)
	for _, col := range spec.Columns {
		args = append(args, rec.Fields[col.Name])
	}
	args = append(args, rec.Checksum, rec.FetchedAt)

	res, err := t.tx.ExecContext(ctx, t.store.upserts[spec.Table], args...)
	if err != nil {
		return false, storageError("upsert", spec.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("upsert", spec.Table, err)
	}
	return n == 1, nil
}

// AppendRaw archives p and sets p.ID.
func (t *Tx) AppendRaw(ctx context.Context, p *models.RawPayload) error {
	if t.done {
		return ErrBatchClosed
	}
	d := t.store.dialect
	query := fmt.Sprintf(`INSERT INTO raw_payloads
		(source_app, external_id, entity_type, payload, payload_checksum, fetched_at)
		VALUES (%s, %s, %s, %s, %s, %s) RETURNING id`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
		d.Placeholder(4), d.Placeholder(5), d.Placeholder(6))

	err := t.tx.QueryRowContext(ctx, query,
		p.SourceApp, p.ExternalID, string(p.EntityType), string(p.Payload), p.PayloadChecksum, p.FetchedAt,
	).Scan(&p.ID)
	return storageError("append", TableRawPayloads, err)
}

// AppendAudit writes e and sets e.ID.
func (t *Tx) AppendAudit(ctx context.Context, e *models.AuditEvent) error {
	if t.done {
		return ErrBatchClosed
	}
	d := t.store.dialect
	query := fmt.Sprintf(`INSERT INTO audit_events
		(ingest_id, source_app, event_type, external_id, actor, latency_ms, cost_estimate_usd, created_at, message)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s) RETURNING id`,
		d.Placeholder(1), d.Placeholder(2), d.Placeholder(3),
		d.Placeholder(4), d.Placeholder(5), d.Placeholder(6),
		d.Placeholder(7), d.Placeholder(8), d.Placeholder(9))

	err := t.tx.QueryRowContext(ctx, query,
		e.IngestID, e.SourceApp, string(e.EventType), e.ExternalID, e.Actor,
		e.LatencyMS, e.CostEstimateUSD, e.CreatedAt, e.Message,
	).Scan(&e.ID)
	return storageError("append", TableAuditEvents, err)
}

// Commit makes every write of the batch visible.
func (t *Tx) Commit() error {
	if t.done {
		return ErrBatchClosed
	}
	t.done = true
	return storageError("commit", "", t.tx.Commit())
}

// Rollback discards the batch. It is safe to defer after Commit.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return storageError("rollback", "", err)
}
