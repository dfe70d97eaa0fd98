package models

import (
	"encoding/json"
	"time"
)

// TimeLayout is the ISO-8601 UTC layout used for fetched_at and created_at.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t in UTC using TimeLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// CanonicalRecord is one normalized entity row.
//
// Fields holds the non-key columns of the entity's spec; every column is
// present, absent vendor values appear as nil. Values are string, int64
// or float64.
type CanonicalRecord struct {
	Entity     EntityType     `json:"entity_type"`
	Table      string         `json:"table"`
	SourceApp  string         `json:"source_app"`
	ExternalID string         `json:"external_id"`
	Fields     map[string]any `json:"fields"`
	Checksum   string         `json:"checksum"`
	FetchedAt  string         `json:"fetched_at"`
}

// HashInput returns the mapping the checksum is computed over: every
// canonical column except checksum and fetched_at.
func (r *CanonicalRecord) HashInput() map[string]any {
	m := make(map[string]any, len(r.Fields)+2)
	for k, v := range r.Fields {
		m[k] = v
	}
	m[ColumnSourceApp] = r.SourceApp
	m[ColumnExternalID] = r.ExternalID
	return m
}

// RawPayload is one archived vendor record.
type RawPayload struct {
	ID         int64      `json:"id,omitempty"`
	SourceApp  string     `json:"source_app"`
	ExternalID string     `json:"external_id"`
	EntityType EntityType `json:"entity_type"`
	// Payload is the canonical JSON encoding of the vendor record.
	Payload json.RawMessage `json:"payload"`
	// PayloadChecksum fingerprints the vendor record itself. It is not
	// comparable with CanonicalRecord.Checksum.
	PayloadChecksum string `json:"payload_checksum"`
	FetchedAt       string `json:"fetched_at"`
}
