package models

import "fmt"

// EventType labels an audit event.
type EventType string

const (
	EventPropertyUpserted EventType = "PropertyUpserted"
	EventUnitUpserted     EventType = "UnitUpserted"
	EventTenantUpserted   EventType = "TenantUpserted"
	EventLeaseUpserted    EventType = "LeaseUpserted"
	EventPaymentRecorded  EventType = "PaymentRecorded"
	EventNoop             EventType = "Noop"
	EventError            EventType = "Error"
)

// AuditEvent is one row of the processing ledger.
type AuditEvent struct {
	ID              int64     `json:"id,omitempty"`
	IngestID        string    `json:"ingest_id"`
	SourceApp       string    `json:"source_app"`
	EventType       EventType `json:"event_type"`
	ExternalID      string    `json:"external_id"`
	Actor           string    `json:"actor"`
	LatencyMS       int64     `json:"latency_ms"`
	CostEstimateUSD float64   `json:"cost_estimate_usd"`
	CreatedAt       string    `json:"created_at"`
	Message         string    `json:"message"`
}

// Actor returns the audit actor for a connector, e.g. connector@appfolio.
func Actor(sourceApp string) string {
	return "connector@" + sourceApp
}

// UpsertMessage returns the audit message for a completed upsert.
func UpsertMessage(table string, changed bool) string {
	if changed {
		return "upsert:" + table
	}
	return "noop:" + table
}

// ErrorMessage returns the audit message for a failed tuple.
func ErrorMessage(reason string, err error) string {
	if err == nil {
		return "error:" + reason
	}
	return fmt.Sprintf("error:%s: %v", reason, err)
}
