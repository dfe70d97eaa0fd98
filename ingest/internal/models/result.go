package models

// Trigger names what started a batch.
type Trigger string

const (
	TriggerPull    Trigger = "pull"
	TriggerWebhook Trigger = "webhook"
)

// TupleStatus is the outcome of one processed tuple.
type TupleStatus string

const (
	StatusOK     TupleStatus = "ok"
	StatusFailed TupleStatus = "failed"
)

// TupleResult is one itemized entry in a batch response.
type TupleResult struct {
	Table      string      `json:"table,omitempty"`
	EntityType EntityType  `json:"entity_type"`
	ExternalID string      `json:"external_id,omitempty"`
	Changed    bool        `json:"changed"`
	Status     TupleStatus `json:"status"`
	EventType  EventType   `json:"event_type"`
	Reason     string      `json:"reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Failed reports whether the tuple could not be processed.
func (r TupleResult) Failed() bool {
	return r.Status == StatusFailed
}

// BatchSummary counts tuple outcomes in one batch.
type BatchSummary struct {
	Processed int `json:"processed"`
	Changed   int `json:"changed"`
	Noop      int `json:"noop"`
	Failed    int `json:"failed"`
}

// BatchResult is the response of one committed batch.
type BatchResult struct {
	IngestID  string        `json:"ingest_id"`
	SourceApp string        `json:"source_app"`
	Trigger   Trigger       `json:"trigger"`
	Results   []TupleResult `json:"results"`
	Summary   BatchSummary  `json:"summary"`
}

// Add appends r and updates the summary.
func (b *BatchResult) Add(r TupleResult) {
	b.Results = append(b.Results, r)
	b.Summary.Processed++
	switch {
	case r.Failed():
		b.Summary.Failed++
	case r.Changed:
		b.Summary.Changed++
	default:
		b.Summary.Noop++
	}
}
