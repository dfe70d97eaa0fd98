package appfolio

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/pkg/appfoliomock"
)

func newMockConnector(t *testing.T, fixtures appfoliomock.Fixtures, key string) *Connector {
	t.Helper()
	srv := httptest.NewServer(appfoliomock.NewServer(appfoliomock.DefaultAPIKey, fixtures, nil).Handler())
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL + "/"
	cfg.APIKey = key
	return New(cfg)
}

func TestDiscover(t *testing.T) {
	c := New(DefaultConfig())
	d, err := c.Discover(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "appfolio", d.SourceApp)
	assert.Equal(t, "read_only", d.Mode)
	assert.Equal(t, []string{"properties", "units", "tenants", "leases", "payments"}, d.Resources)
	assert.True(t, d.WebhookSupported)
	assert.Equal(t, "api-0.1", d.Version)
}

func TestPull_DependencyOrder(t *testing.T) {
	c := newMockConnector(t, appfoliomock.DefaultFixtures(), appfoliomock.DefaultAPIKey)

	tuples, err := c.Pull(context.Background())
	require.NoError(t, err)
	require.Len(t, tuples, 5)

	var order []string
	for _, tp := range tuples {
		order = append(order, tp.EntityType)
	}
	assert.Equal(t, []string{"property", "unit", "tenant", "lease", "payment"}, order)

	unit := tuples[1].Record
	assert.Equal(t, "unit_2001", unit["id"])
	assert.Equal(t, json.Number("1.5"), unit["bathrooms"], "numbers decode as json.Number")
}

func TestPull_WrongKey(t *testing.T) {
	c := newMockConnector(t, appfoliomock.DefaultFixtures(), "not-the-key")

	_, err := c.Pull(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.StatusCode)
	assert.Equal(t, "properties", apiErr.Resource)
}

func TestPull_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://127.0.0.1:1"
	_, err := New(cfg).Pull(context.Background())
	assert.Error(t, err)
}

func TestReconcile(t *testing.T) {
	fixtures := appfoliomock.DefaultFixtures().Merge(appfoliomock.Generate(3, 2))
	c := newMockConnector(t, fixtures, appfoliomock.DefaultAPIKey)

	snap, err := c.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "appfolio", snap.SourceApp)
	assert.Equal(t, map[string]int{"properties": 3, "units": 3, "tenants": 3, "leases": 3, "payments": 3}, snap.SnapshotCounts)
}

func TestWebhook(t *testing.T) {
	c := New(DefaultConfig())
	ctx := context.Background()

	tests := []struct {
		name    string
		payload string
		want    int
		wantErr bool
	}{
		{"tenant", `{"entity_type":"tenant","data":{"id":"ten_9999","full_name":"Casey Wave","email":"c@x.com","phone":"+15551112222"}}`, 1, false},
		{"unknown entity", `{"entity_type":"vendor","data":{"id":"v1"}}`, 0, false},
		{"missing data", `{"entity_type":"unit"}`, 1, false},
		{"malformed", `{"entity_type":`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuples, err := c.Webhook(ctx, []byte(tt.payload))
			if tt.wantErr {
				assert.ErrorIs(t, err, connector.ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Len(t, tuples, tt.want)
		})
	}

	tuples, err := c.Webhook(ctx, []byte(`{"entity_type":"lease","data":{"id":"l1","rent_cents":175000}}`))
	require.NoError(t, err)
	assert.Equal(t, "lease", tuples[0].EntityType)
	assert.Equal(t, json.Number("175000"), tuples[0].Record["rent_cents"])
}
