// Package archive builds the provenance copy of each vendor record.
package archive

import (
	"context"
	"fmt"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/checksum"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// Appender stores raw payloads. repository.Batch satisfies it.
type Appender interface {
	AppendRaw(ctx context.Context, p *models.RawPayload) error
}

// Build encodes the vendor record canonically and fingerprints those
// bytes. The fingerprint covers the vendor record as received and is
// unrelated to the canonical record's checksum.
func Build(rec *models.CanonicalRecord, vendor map[string]any) (*models.RawPayload, error) {
	payload, err := checksum.Canonical(vendor)
	if err != nil {
		return nil, fmt.Errorf("encode %s/%s payload: %w", rec.Entity, rec.ExternalID, err)
	}
	return &models.RawPayload{
		SourceApp:       rec.SourceApp,
		ExternalID:      rec.ExternalID,
		EntityType:      rec.Entity,
		Payload:         payload,
		PayloadChecksum: checksum.Bytes(payload),
		FetchedAt:       rec.FetchedAt,
	}, nil
}

// Write builds and appends the raw payload for rec. Payloads are never
// deduplicated: every call adds a row.
func Write(ctx context.Context, a Appender, rec *models.CanonicalRecord, vendor map[string]any) (*models.RawPayload, error) {
	p, err := Build(rec, vendor)
	if err != nil {
		return nil, err
	}
	if err := a.AppendRaw(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
