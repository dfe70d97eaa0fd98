package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

var fixed = time.Date(2025, 11, 1, 12, 0, 0, 0, time.UTC)

func TestEventTypeFor(t *testing.T) {
	tests := []struct {
		table   string
		changed bool
		want    models.EventType
	}{
		{"properties", true, models.EventPropertyUpserted},
		{"units", true, models.EventUnitUpserted},
		{"tenants", true, models.EventTenantUpserted},
		{"leases", true, models.EventLeaseUpserted},
		{"payments", true, models.EventPaymentRecorded},
		{"payments", false, models.EventNoop},
		{"properties", false, models.EventNoop},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EventTypeFor(tt.table, tt.changed), "%s/%v", tt.table, tt.changed)
	}
}

func TestRecorder_Upserted(t *testing.T) {
	r := NewRecorder(WithClock(func() time.Time { return fixed }))
	rec := &models.CanonicalRecord{Table: "properties", SourceApp: "appfolio", ExternalID: "prop_1001"}

	e := r.Upserted("ing-1", rec, true, 12*time.Millisecond)
	assert.Equal(t, "ing-1", e.IngestID)
	assert.Equal(t, models.EventPropertyUpserted, e.EventType)
	assert.Equal(t, "connector@appfolio", e.Actor)
	assert.Equal(t, "upsert:properties", e.Message)
	assert.Equal(t, "prop_1001", e.ExternalID)
	assert.Equal(t, int64(12), e.LatencyMS)
	assert.Equal(t, DefaultCostPerTuple, e.CostEstimateUSD)
	assert.Equal(t, "2025-11-01T12:00:00.000000Z", e.CreatedAt)

	noop := r.Upserted("ing-1", rec, false, 0)
	assert.Equal(t, models.EventNoop, noop.EventType)
	assert.Equal(t, "noop:properties", noop.Message)
}

func TestRecorder_Failed(t *testing.T) {
	r := NewRecorder(WithCostPerTuple(0.5))

	e := r.Failed("ing-2", "appfolio", "", "missing_field", errors.New(`unit record is missing required field "property_id"`), time.Millisecond)
	assert.Equal(t, models.EventError, e.EventType)
	assert.Equal(t, `error:missing_field: unit record is missing required field "property_id"`, e.Message)
	assert.Empty(t, e.ExternalID)
	assert.Equal(t, 0.5, e.CostEstimateUSD)
}

func TestWithCostPerTuple_IgnoresNegative(t *testing.T) {
	r := NewRecorder(WithCostPerTuple(-1))
	assert.Equal(t, DefaultCostPerTuple, r.costPerTuple)

	free := NewRecorder(WithCostPerTuple(0))
	assert.Zero(t, free.costPerTuple)
}

type sink struct{ events []*models.AuditEvent }

func (s *sink) AppendAudit(_ context.Context, e *models.AuditEvent) error {
	s.events = append(s.events, e)
	return nil
}

func TestWrite(t *testing.T) {
	s := &sink{}
	e := NewRecorder().Failed("ing", "appfolio", "x", "unknown", nil, 0)
	require.NoError(t, Write(context.Background(), s, e))
	require.Len(t, s.events, 1)
	assert.Equal(t, "error:unknown", s.events[0].Message)
}
