// Package messaging defines the broker-neutral types pmap uses to announce
// committed ingest batches and to park failed tuples.
package messaging

import (
	"context"
)

// Message is a message sent to a broker.
type Message struct {
	Subject string
	Data    []byte

	// Metadata is carried as message headers.
	Metadata map[string]string
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends data to subject, fire-and-forget.
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message including its headers.
	PublishMsg(ctx context.Context, msg *Message) error

	Close() error
}

// Client is a Publisher bound to a live broker connection.
type Client interface {
	Publisher

	// Drain closes the connection after in-flight messages complete.
	Drain() error

	IsConnected() bool
}
