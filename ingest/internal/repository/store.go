package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dmaynor/property-mangement-pane/common/database"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// Non-canonical tables.
const (
	TableRawPayloads = "raw_payloads"
	TableAuditEvents = "audit_events"
)

// Options configures the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultOptions returns the pool settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// Store is a Repository over database/sql. The same statements serve
// PostgreSQL (through pgx) and SQLite; only bind parameters differ.
type Store struct {
	db      *sql.DB
	dialect database.Dialect
	upserts map[string]string
}

var _ Repository = (*Store)(nil)

// Open connects to the database named by rawURL and verifies the
// connection. The schema is expected to exist; see package migrations.
func Open(ctx context.Context, rawURL string, opts Options) (*Store, error) {
	dsn, err := database.ParseDSN(rawURL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dsn.Driver, dsn.DataSource)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	s := newStore(db, dsn.Dialect)
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return s, nil
}

func newStore(db *sql.DB, dialect database.Dialect) *Store {
	s := &Store{db: db, dialect: dialect, upserts: make(map[string]string)}
	for _, spec := range models.Entities() {
		s.upserts[spec.Table] = upsertStatement(dialect, spec)
	}
	return s
}

// Dialect returns the store's SQL flavour.
func (s *Store) Dialect() database.Dialect {
	return s.dialect
}

// upsertStatement builds the conditional write for one canonical table.
// The DO UPDATE branch only fires when the checksum differs, so a matching
// row reports zero affected rows and is left untouched.
func upsertStatement(d database.Dialect, spec models.EntitySpec) string {
	cols := canonicalColumns(spec)

	params := make([]string, len(cols))
	for i := range cols {
		params[i] = d.Placeholder(i + 1)
	}

	sets := make([]string, 0, len(cols)-2)
	for _, c := range cols[2:] {
		sets = append(sets, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s, %s) DO UPDATE SET %s WHERE %s.%s <> excluded.%s",
		spec.Table,
		strings.Join(cols, ", "),
		strings.Join(params, ", "),
		models.ColumnSourceApp, models.ColumnExternalID,
		strings.Join(sets, ", "),
		spec.Table, models.ColumnChecksum, models.ColumnChecksum,
	)
}

// canonicalColumns lists every column of a canonical table: the key pair,
// the entity columns, then checksum and fetched_at.
func canonicalColumns(spec models.EntitySpec) []string {
	cols := make([]string, 0, len(spec.Columns)+4)
	cols = append(cols, models.ColumnSourceApp, models.ColumnExternalID)
	cols = append(cols, spec.ColumnNames()...)
	return append(cols, models.ColumnChecksum, models.ColumnFetchedAt)
}

// BeginBatch starts the transaction for one ingest batch. ctx bounds the
// whole transaction; cancelling it rolls the batch back.
func (s *Store) BeginBatch(ctx context.Context) (Batch, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin", "", err)
	}
	return &Tx{tx: tx, store: s}, nil
}

// ListEvents returns audit events newest first.
func (s *Store) ListEvents(ctx context.Context, filter EventFilter) ([]*models.AuditEvent, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	var (
		where []string
		args  []any
	)
	if filter.IngestID != "" {
		args = append(args, filter.IngestID)
		where = append(where, "ingest_id = "+s.dialect.Placeholder(len(args)))
	}
	if filter.SourceApp != "" {
		args = append(args, filter.SourceApp)
		where = append(where, "source_app = "+s.dialect.Placeholder(len(args)))
	}
	args = append(args, limit)

	query := `SELECT id, ingest_id, source_app, event_type, external_id, actor,
		latency_ms, cost_estimate_usd, created_at, message
		FROM audit_events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT " + s.dialect.Placeholder(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageError("list events", TableAuditEvents, err)
	}
	defer rows.Close()

	events := make([]*models.AuditEvent, 0, limit)
	for rows.Next() {
		e := &models.AuditEvent{}
		var eventType string
		if err := rows.Scan(&e.ID, &e.IngestID, &e.SourceApp, &eventType, &e.ExternalID, &e.Actor,
			&e.LatencyMS, &e.CostEstimateUSD, &e.CreatedAt, &e.Message); err != nil {
			return nil, storageError("list events", TableAuditEvents, err)
		}
		e.EventType = models.EventType(eventType)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list events", TableAuditEvents, err)
	}
	return events, nil
}

// ListRawPayloads returns the archived payloads of one identity, oldest
// first.
func (s *Store) ListRawPayloads(ctx context.Context, sourceApp, externalID string) ([]*models.RawPayload, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT id, source_app, external_id, entity_type, payload, payload_checksum, fetched_at
		FROM raw_payloads WHERE source_app = %s AND external_id = %s ORDER BY id`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))

	rows, err := s.db.QueryContext(ctx, query, sourceApp, externalID)
	if err != nil {
		return nil, storageError("list raw payloads", TableRawPayloads, err)
	}
	defer rows.Close()

	var payloads []*models.RawPayload
	for rows.Next() {
		p := &models.RawPayload{}
		var entityType, payload string
		if err := rows.Scan(&p.ID, &p.SourceApp, &p.ExternalID, &entityType, &payload, &p.PayloadChecksum, &p.FetchedAt); err != nil {
			return nil, storageError("list raw payloads", TableRawPayloads, err)
		}
		p.EntityType = models.EntityType(entityType)
		p.Payload = []byte(payload)
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list raw payloads", TableRawPayloads, err)
	}
	return payloads, nil
}

// GetRecord loads one canonical row.
func (s *Store) GetRecord(ctx context.Context, table, sourceApp, externalID string) (*models.CanonicalRecord, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s AND %s = %s",
		strings.Join(canonicalColumns(spec), ", "), spec.Table,
		models.ColumnSourceApp, s.dialect.Placeholder(1),
		models.ColumnExternalID, s.dialect.Placeholder(2))

	rec, err := scanRecord(spec, s.db.QueryRowContext(ctx, query, sourceApp, externalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, storageError("get record", table, err)
	}
	return rec, nil
}

// Counts returns the row count of every table, restricted to sourceApp
// when it is not empty.
func (s *Store) Counts(ctx context.Context, sourceApp string) (map[string]int64, error) {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()

	tables := append(models.Tables(), TableRawPayloads, TableAuditEvents)
	counts := make(map[string]int64, len(tables))
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var args []any
		if sourceApp != "" {
			query += " WHERE source_app = " + s.dialect.Placeholder(1)
			args = append(args, sourceApp)
		}
		var n int64
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, storageError("count", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := database.QueryContext(ctx)
	defer cancel()
	return storageError("ping", "", s.db.PingContext(ctx))
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
