package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/checksum"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

type recordingAppender struct {
	payloads []*models.RawPayload
	err      error
}

func (a *recordingAppender) AppendRaw(_ context.Context, p *models.RawPayload) error {
	if a.err != nil {
		return a.err
	}
	p.ID = int64(len(a.payloads) + 1)
	a.payloads = append(a.payloads, p)
	return nil
}

func tenantRecord() *models.CanonicalRecord {
	return &models.CanonicalRecord{
		Entity:     models.EntityTenant,
		Table:      "tenants",
		SourceApp:  "appfolio",
		ExternalID: "ten_3001",
		Fields:     map[string]any{"full_name": "Alex Smith"},
		Checksum:   "c0ffee",
		FetchedAt:  "2025-11-01T12:00:00.000000Z",
	}
}

func TestBuild(t *testing.T) {
	vendor := map[string]any{"phone": "+15550000001", "id": "ten_3001", "email": "alex@example.com", "full_name": "Alex Smith"}

	p, err := Build(tenantRecord(), vendor)
	require.NoError(t, err)

	assert.Equal(t, `{"email":"alex@example.com","full_name":"Alex Smith","id":"ten_3001","phone":"+15550000001"}`, string(p.Payload))
	assert.Equal(t, checksum.Bytes(p.Payload), p.PayloadChecksum)
	assert.NotEqual(t, "c0ffee", p.PayloadChecksum)
	assert.Equal(t, models.EntityTenant, p.EntityType)
	assert.Equal(t, "ten_3001", p.ExternalID)
	assert.Equal(t, "2025-11-01T12:00:00.000000Z", p.FetchedAt)
}

func TestBuild_PreservesVendorNumbers(t *testing.T) {
	vendor := map[string]any{"id": "unit_2001", "bathrooms": json.Number("1.50"), "sqft": json.Number("900")}
	rec := &models.CanonicalRecord{Entity: models.EntityUnit, SourceApp: "appfolio", ExternalID: "unit_2001"}

	p, err := Build(rec, vendor)
	require.NoError(t, err)
	assert.Equal(t, `{"bathrooms":1.50,"id":"unit_2001","sqft":900}`, string(p.Payload))
}

func TestBuild_Unencodable(t *testing.T) {
	_, err := Build(tenantRecord(), map[string]any{"id": "x", "bad": make(chan int)})
	assert.Error(t, err)
}

func TestWrite_AppendsEveryTime(t *testing.T) {
	a := &recordingAppender{}
	vendor := map[string]any{"id": "ten_3001"}

	for i := 0; i < 2; i++ {
		p, err := Write(context.Background(), a, tenantRecord(), vendor)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), p.ID)
	}
	require.Len(t, a.payloads, 2)
	assert.Equal(t, a.payloads[0].PayloadChecksum, a.payloads[1].PayloadChecksum)
}

func TestWrite_PropagatesAppendError(t *testing.T) {
	boom := errors.New("disk full")
	_, err := Write(context.Background(), &recordingAppender{err: boom}, tenantRecord(), map[string]any{"id": "x"})
	assert.ErrorIs(t, err, boom)
}
