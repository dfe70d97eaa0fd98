package models

// FailedTuple is a tuple the pipeline could not normalize, kept with its
// original vendor record so it can be replayed.
type FailedTuple struct {
	IngestID   string         `json:"ingest_id"`
	SourceApp  string         `json:"source_app"`
	EntityType string         `json:"entity_type"`
	ExternalID string         `json:"external_id,omitempty"`
	Record     map[string]any `json:"record"`
	Reason     string         `json:"reason"`
	Error      string         `json:"error"`
	FailedAt   string         `json:"failed_at"`
}

// BatchCompleted announces a committed batch.
type BatchCompleted struct {
	IngestID    string  `json:"ingest_id"`
	Connector   string  `json:"connector"`
	Trigger     Trigger `json:"trigger"`
	Processed   int     `json:"processed"`
	Changed     int     `json:"changed"`
	Noop        int     `json:"noop"`
	Failed      int     `json:"failed"`
	CompletedAt string  `json:"completed_at"`
}

// Completed summarizes b for notification.
func (b *BatchResult) Completed(completedAt string) *BatchCompleted {
	return &BatchCompleted{
		IngestID:    b.IngestID,
		Connector:   b.SourceApp,
		Trigger:     b.Trigger,
		Processed:   b.Summary.Processed,
		Changed:     b.Summary.Changed,
		Noop:        b.Summary.Noop,
		Failed:      b.Summary.Failed,
		CompletedAt: completedAt,
	}
}
