package models

import "time"

// IngestionStats counts batches handled by one ingest instance since start.
type IngestionStats struct {
	Batches       int64     `json:"batches"`
	FailedBatches int64     `json:"failed_batches"`
	Tuples        int64     `json:"tuples"`
	Changed       int64     `json:"changed"`
	Noop          int64     `json:"noop"`
	FailedTuples  int64     `json:"failed_tuples"`
	RateLimited   int64     `json:"rate_limited"`
	LastBatch     time.Time `json:"last_batch,omitzero"`
}
