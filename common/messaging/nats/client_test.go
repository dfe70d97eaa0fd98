package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaynor/property-mangement-pane/common/messaging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, nats.DefaultURL, cfg.URL)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Second, cfg.ReconnectWait)
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond

	_, err := NewClient(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to NATS")
}

func TestMessageConversion(t *testing.T) {
	msg := &messaging.Message{
		Subject:  messaging.SubjectIngestCompleted,
		Data:     []byte(`{"processed":5}`),
		Metadata: map[string]string{messaging.HeaderIngestID: "abc"},
	}

	natsMsg := toNATS(msg)
	assert.Equal(t, msg.Subject, natsMsg.Subject)
	assert.Equal(t, "abc", natsMsg.Header.Get(messaging.HeaderIngestID))

	assert.Equal(t, msg.Data, natsMsg.Data)
}

func TestMessageConversion_NoHeaders(t *testing.T) {
	natsMsg := toNATS(&messaging.Message{Subject: "pmap.ingest.dlq.x"})
	assert.Nil(t, natsMsg.Header)
}

func TestIngestDLQStreamCoversDLQSubjects(t *testing.T) {
	require.Len(t, IngestDLQStream.Subjects, 1)
	assert.Equal(t, "pmap.ingest.dlq.>", IngestDLQStream.Subjects[0])
}
