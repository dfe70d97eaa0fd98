package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/checksum"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one row selected with canonicalColumns(spec).
func scanRecord(spec models.EntitySpec, row rowScanner) (*models.CanonicalRecord, error) {
	rec := &models.CanonicalRecord{
		Entity: spec.Type,
		Table:  spec.Table,
		Fields: make(map[string]any, len(spec.Columns)),
	}

	values := make([]any, len(spec.Columns))
	dest := make([]any, 0, len(spec.Columns)+4)
	dest = append(dest, &rec.SourceApp, &rec.ExternalID)
	for i, col := range spec.Columns {
		switch col.Kind.StorageKind() {
		case models.KindInteger:
			values[i] = &sql.NullInt64{}
		case models.KindReal:
			values[i] = &sql.NullFloat64{}
		default:
			values[i] = &sql.NullString{}
		}
		dest = append(dest, values[i])
	}
	dest = append(dest, &rec.Checksum, &rec.FetchedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	for i, col := range spec.Columns {
		switch v := values[i].(type) {
		case *sql.NullInt64:
			rec.Fields[col.Name] = nullable(v.Valid, v.Int64)
		case *sql.NullFloat64:
			rec.Fields[col.Name] = nullable(v.Valid, v.Float64)
		case *sql.NullString:
			rec.Fields[col.Name] = nullable(v.Valid, v.String)
		}
	}
	return rec, nil
}

func nullable[T any](valid bool, v T) any {
	if !valid {
		return nil
	}
	return v
}

// VerifyChecksums recomputes the checksum of every row in table and
// reports the rows whose stored checksum disagrees with their content.
func (s *Store) VerifyChecksums(ctx context.Context, table string) (*VerifyReport, error) {
	spec, ok := models.LookupTable(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s, %s",
		strings.Join(canonicalColumns(spec), ", "), spec.Table,
		models.ColumnSourceApp, models.ColumnExternalID)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("verify", table, err)
	}
	defer rows.Close()

	report := &VerifyReport{Table: table, Mismatches: []Mismatch{}}
	for rows.Next() {
		rec, err := scanRecord(spec, rows)
		if err != nil {
			return nil, storageError("verify", table, err)
		}
		report.Checked++

		computed, err := checksum.Of(rec.HashInput())
		if err != nil {
			return nil, fmt.Errorf("verify %s/%s: %w", rec.SourceApp, rec.ExternalID, err)
		}
		if computed != rec.Checksum {
			report.Mismatches = append(report.Mismatches, Mismatch{
				SourceApp:  rec.SourceApp,
				ExternalID: rec.ExternalID,
				Stored:     rec.Checksum,
				Computed:   computed,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("verify", table, err)
	}
	return report, nil
}
