// Package dlq parks tuples that failed normalization in a JetStream stream
// so they stay replayable after the batch that rejected them has committed.
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/common/messaging"
	"github.com/dmaynor/property-mangement-pane/common/messaging/nats"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// Headers set on every dead-letter message next to messaging.HeaderIngestID.
const (
	HeaderSourceApp  = "Pmap-Source-App"
	HeaderReason     = "Pmap-Reason"
	HeaderEntityType = "Pmap-Entity-Type"
)

// Publisher publishes a message and waits for the stream acknowledgement.
type Publisher interface {
	PublishSync(ctx context.Context, msg *messaging.Message) (*jetstream.PubAck, error)
}

// Queue writes failed tuples to the ingest DLQ stream.
// Safe for use across multiple ingest instances.
type Queue struct {
	pub     Publisher
	stream  jetstream.Stream
	logger  *logging.Logger
	written atomic.Uint64
}

// NewJetStreamQueue ensures the DLQ stream exists and returns a Queue
// publishing into it.
func NewJetStreamQueue(ctx context.Context, js *nats.JetStreamClient, logger *logging.Logger) (*Queue, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	stream, err := js.CreateOrUpdateStream(ctx, nats.IngestDLQStream)
	if err != nil {
		return nil, fmt.Errorf("create dlq stream: %w", err)
	}

	q := New(js, logger)
	q.stream = stream
	q.logger.Info("DLQ stream ready", "stream", nats.IngestDLQStream.Name)
	return q, nil
}

// New returns a Queue over pub. Stream statistics are unavailable.
func New(pub Publisher, logger *logging.Logger) *Queue {
	if logger == nil {
		logger = logging.Default()
	}
	return &Queue{pub: pub, logger: logger}
}

// Write publishes ft to pmap.ingest.dlq.<reason>.
func (q *Queue) Write(ctx context.Context, ft *models.FailedTuple) error {
	if q == nil {
		return nil
	}

	data, err := json.Marshal(ft)
	if err != nil {
		return fmt.Errorf("marshal dlq entry: %w", err)
	}

	msg := &messaging.Message{
		Subject: messaging.DLQSubject(ft.Reason),
		Data:    data,
		Metadata: map[string]string{
			messaging.HeaderIngestID: ft.IngestID,
			HeaderSourceApp:          ft.SourceApp,
			HeaderReason:             ft.Reason,
			HeaderEntityType:         ft.EntityType,
		},
	}
	ack, err := q.pub.PublishSync(ctx, msg)
	if err != nil {
		return fmt.Errorf("publish dlq entry: %w", err)
	}

	q.written.Add(1)
	q.logger.DebugContext(ctx, "dead-lettered tuple",
		logging.ExternalID(ft.ExternalID),
		"subject", msg.Subject,
		"seq", ack.Sequence)
	return nil
}

// Stats reports local write counts and, when the stream is known, its
// current state.
func (q *Queue) Stats(ctx context.Context) map[string]any {
	if q == nil {
		return map[string]any{
			"enabled": false,
			"backend": "jetstream",
		}
	}

	stats := map[string]any{
		"enabled":       true,
		"backend":       "jetstream",
		"written_local": q.written.Load(),
	}
	if q.stream == nil {
		return stats
	}

	info, err := q.stream.Info(ctx)
	if err != nil {
		stats["error"] = err.Error()
		return stats
	}
	stats["total_messages"] = info.State.Msgs
	stats["total_bytes"] = info.State.Bytes
	stats["first_seq"] = info.State.FirstSeq
	stats["last_seq"] = info.State.LastSeq
	return stats
}
