// Package events announces committed ingest batches on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmaynor/property-mangement-pane/common/messaging"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// Publisher publishes batch notifications for the ingest service.
type Publisher struct {
	client messaging.Publisher
}

// NewPublisher creates a new NATS publisher.
func NewPublisher(client messaging.Publisher) *Publisher {
	return &Publisher{client: client}
}

// BatchCompleted publishes evt to pmap.ingest.completed.
func (p *Publisher) BatchCompleted(ctx context.Context, evt *models.BatchCompleted) error {
	return p.publish(ctx, messaging.SubjectIngestCompleted, evt, map[string]string{
		messaging.HeaderIngestID:  evt.IngestID,
		messaging.HeaderConnector: evt.Connector,
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, data any, headers map[string]string) error {
	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.client.PublishMsg(ctx, &messaging.Message{
		Subject:  subject,
		Data:     bytes,
		Metadata: headers,
	})
}
