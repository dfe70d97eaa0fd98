package client

// Response bodies of the pmap ingest API.

type ConnectorInfo struct {
	Name string `json:"name"`
}

type Discovery struct {
	SourceApp        string   `json:"source_app"`
	Mode             string   `json:"mode"`
	Resources        []string `json:"resources"`
	WebhookSupported bool     `json:"webhook_supported"`
	Version          string   `json:"version"`
}

type TupleResult struct {
	Table      string `json:"table,omitempty"`
	EntityType string `json:"entity_type"`
	ExternalID string `json:"external_id,omitempty"`
	Changed    bool   `json:"changed"`
	Status     string `json:"status"`
	EventType  string `json:"event_type"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

type BatchSummary struct {
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Noop      int `json:"noop"`
	Failed    int `json:"failed"`
}

// BatchResult is the outcome of a pull or webhook delivery.
type BatchResult struct {
	IngestID  string        `json:"ingest_id"`
	SourceApp string        `json:"source_app"`
	Trigger   string        `json:"trigger"`
	Results   []TupleResult `json:"results"`
	Summary   BatchSummary  `json:"summary"`
}

type Reconciliation struct {
	SourceApp      string           `json:"source_app"`
	SnapshotCounts map[string]int   `json:"snapshot_counts"`
	LocalCounts    map[string]int64 `json:"local_counts"`
}

// AuditEvent is one row of the audit trail.
type AuditEvent struct {
	ID              int64   `json:"id"`
	IngestID        string  `json:"ingest_id"`
	SourceApp       string  `json:"source_app"`
	EventType       string  `json:"event_type"`
	ExternalID      string  `json:"external_id"`
	Actor           string  `json:"actor"`
	LatencyMS       int64   `json:"latency_ms"`
	CostEstimateUSD float64 `json:"cost_estimate_usd"`
	CreatedAt       string  `json:"created_at"`
	Message         string  `json:"message"`
}

type Mismatch struct {
	SourceApp  string `json:"source_app"`
	ExternalID string `json:"external_id"`
	Stored     string `json:"stored"`
	Computed   string `json:"computed"`
}

type VerifyReport struct {
	Table      string     `json:"table"`
	Checked    int        `json:"checked"`
	Mismatches []Mismatch `json:"mismatches"`
}

// VerifyResult is the checksum audit across one or more tables.
type VerifyResult struct {
	OK     bool            `json:"ok"`
	Tables []*VerifyReport `json:"tables"`
}

// EventQuery filters GET /events.
type EventQuery struct {
	Limit     int
	IngestID  string
	SourceApp string
}
