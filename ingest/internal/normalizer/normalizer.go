// Package normalizer converts vendor records into canonical records.
//
// Each entity type has a fixed column layout (see models.EntitySpec).
// Normalization validates the required vendor fields, coerces every
// column to its storage kind, hashes sensitive values, and stamps the
// result with a content checksum and a capture time.
package normalizer

import (
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/checksum"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// Normalizer is safe for concurrent use.
type Normalizer struct {
	schemas map[models.EntityType]*jsonschema.Schema
	now     func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the capture-time source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New compiles the per-entity vendor schemas.
func New(opts ...Option) (*Normalizer, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	n := &Normalizer{schemas: schemas, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Normalize translates one (entity type, vendor record) pair from
// sourceApp into its canonical record. Failures are
// *UnsupportedEntityError, *MissingFieldError or *InvalidFieldError.
func (n *Normalizer) Normalize(sourceApp, entityType string, record map[string]any) (*models.CanonicalRecord, error) {
	et := models.EntityType(entityType)
	spec, ok := models.LookupEntity(et)
	if !ok {
		return nil, &UnsupportedEntityError{EntityType: entityType}
	}
	if record == nil {
		return nil, &MissingFieldError{EntityType: entityType, Field: models.VendorIDField}
	}
	if err := validateRequired(n.schemas[et], et, record); err != nil {
		return nil, err
	}

	externalID, err := identifier(entityType, models.VendorIDField, record[models.VendorIDField])
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(spec.Columns))
	for _, col := range spec.Columns {
		raw, present := record[col.Source]
		if col.Required {
			id, err := identifier(entityType, col.Source, raw)
			if err != nil {
				return nil, err
			}
			fields[col.Name] = id
			continue
		}
		if !present || raw == nil {
			fields[col.Name] = col.Default
			continue
		}
		v, err := coerce(col, raw)
		if err != nil {
			return nil, &InvalidFieldError{EntityType: entityType, Field: col.Source, Value: raw, Want: col.Kind.String()}
		}
		fields[col.Name] = v
	}

	rec := &models.CanonicalRecord{
		Entity:     et,
		Table:      spec.Table,
		SourceApp:  sourceApp,
		ExternalID: externalID,
		Fields:     fields,
		FetchedAt:  models.Timestamp(n.now()),
	}
	sum, err := checksum.Of(rec.HashInput())
	if err != nil {
		return nil, fmt.Errorf("checksum %s/%s: %w", spec.Table, externalID, err)
	}
	rec.Checksum = sum
	return rec, nil
}

// Recompute returns the checksum a stored row should carry. Used to verify
// that stored checksums still agree with stored content.
func Recompute(sourceApp, externalID string, fields map[string]any) (string, error) {
	rec := models.CanonicalRecord{SourceApp: sourceApp, ExternalID: externalID, Fields: fields}
	return checksum.Of(rec.HashInput())
}
