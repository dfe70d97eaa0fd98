package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaynor/property-mangement-pane/common/logging"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/audit"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector/appfolio"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/normalizer"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/pipeline"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/repository"
	"github.com/dmaynor/property-mangement-pane/ingest/migrations"
	"github.com/dmaynor/property-mangement-pane/ingest/pkg/appfoliomock"
)

// Mock implementations

type mockRateLimiter struct {
	allowFunc func(ctx context.Context, key string) (bool, error)
	keys      []string
}

func (m *mockRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	m.keys = append(m.keys, key)
	if m.allowFunc != nil {
		return m.allowFunc(ctx, key)
	}
	return true, nil
}

func (m *mockRateLimiter) Close() error { return nil }

type failingConnector struct {
	connector.Connector
	err error
}

func (f *failingConnector) SourceApp() string { return "broken" }

func (f *failingConnector) Pull(context.Context) ([]connector.Tuple, error) {
	return nil, f.err
}

func (f *failingConnector) Reconcile(context.Context) (*connector.Snapshot, error) {
	return nil, f.err
}

type testEnv struct {
	svc   *IngestService
	store *repository.Store
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()

	url := "sqlite://" + filepath.Join(t.TempDir(), "pmap.db")
	require.NoError(t, migrations.Up(ctx, url, migrations.Options{}))
	store, err := repository.Open(ctx, url, repository.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	mock := httptest.NewServer(appfoliomock.NewServer(appfoliomock.DefaultAPIKey, appfoliomock.DefaultFixtures(), nil).Handler())
	t.Cleanup(mock.Close)
	cfg := appfolio.DefaultConfig()
	cfg.BaseURL = mock.URL

	registry, err := connector.NewRegistry(appfolio.New(cfg), &failingConnector{err: errors.New("vendor unreachable")})
	require.NoError(t, err)

	n, err := normalizer.New()
	require.NoError(t, err)
	p := pipeline.New(store, n, audit.NewRecorder(), pipeline.WithLogger(logging.Discard()))

	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	return &testEnv{svc: NewIngestService(registry, p, store, opts...), store: store}
}

func TestIngestService_Connectors(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, []ConnectorInfo{{Name: "appfolio"}, {Name: "broken"}}, env.svc.Connectors())
}

func TestIngestService_UnknownConnector(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Discover(ctx, "yardi")
	assert.ErrorIs(t, err, connector.ErrUnknownConnector)
	assert.EqualError(t, err, "unknown connector yardi")

	_, err = env.svc.Pull(ctx, "yardi")
	assert.ErrorIs(t, err, connector.ErrUnknownConnector)
	_, err = env.svc.Webhook(ctx, "yardi", []byte(`{}`))
	assert.ErrorIs(t, err, connector.ErrUnknownConnector)
	_, err = env.svc.Reconcile(ctx, "yardi")
	assert.ErrorIs(t, err, connector.ErrUnknownConnector)
}

func TestIngestService_Discover(t *testing.T) {
	env := newTestEnv(t)
	d, err := env.svc.Discover(context.Background(), "appfolio")
	require.NoError(t, err)
	assert.Equal(t, "appfolio", d.SourceApp)
	assert.Equal(t, "read_only", d.Mode)
}

func TestIngestService_PullThenReconcile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.svc.Pull(ctx, "appfolio")
	require.NoError(t, err)
	assert.Equal(t, models.TriggerPull, res.Trigger)
	assert.Equal(t, models.BatchSummary{Processed: 5, Changed: 5}, res.Summary)

	again, err := env.svc.Pull(ctx, "appfolio")
	require.NoError(t, err)
	assert.Equal(t, 5, again.Summary.Noop)

	rec, err := env.svc.Reconcile(ctx, "appfolio")
	require.NoError(t, err)
	assert.Equal(t, "appfolio", rec.SourceApp)
	assert.Equal(t, map[string]int{"properties": 1, "units": 1, "tenants": 1, "leases": 1, "payments": 1}, rec.SnapshotCounts)
	assert.Equal(t, int64(1), rec.LocalCounts["properties"])
	assert.Equal(t, int64(10), rec.LocalCounts["audit_events"])

	stats := env.svc.GetStats()
	assert.Equal(t, int64(2), stats.Batches)
	assert.Equal(t, int64(10), stats.Tuples)
	assert.Equal(t, int64(5), stats.Changed)
	assert.Equal(t, int64(5), stats.Noop)
	assert.False(t, stats.LastBatch.IsZero())
}

func TestIngestService_VendorFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var vendorErr *VendorError
	_, err := env.svc.Pull(ctx, "broken")
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, "pull", vendorErr.Op)
	assert.EqualError(t, err, "pull broken: vendor unreachable")

	_, err = env.svc.Reconcile(ctx, "broken")
	require.ErrorAs(t, err, &vendorErr)
	assert.Equal(t, "reconcile", vendorErr.Op)
}

func TestIngestService_Webhook(t *testing.T) {
	limiter := &mockRateLimiter{}
	env := newTestEnv(t, WithRateLimiter(limiter))
	ctx := context.Background()

	res, err := env.svc.Webhook(ctx, "appfolio", []byte(`{"entity_type":"property","data":{"id":"prop_1001","name":"Riverside Arms"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.TriggerWebhook, res.Trigger)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Changed)
	assert.Equal(t, []string{"appfolio"}, limiter.keys)

	res, err = env.svc.Webhook(ctx, "appfolio", []byte(`{"entity_type":"vendor","data":{"id":"v1"}}`))
	require.NoError(t, err)
	assert.Empty(t, res.Results, "untracked entity types produce an empty batch")

	_, err = env.svc.Webhook(ctx, "appfolio", []byte(`not json`))
	assert.ErrorIs(t, err, connector.ErrMalformedPayload)
}

func TestIngestService_WebhookRateLimited(t *testing.T) {
	limiter := &mockRateLimiter{allowFunc: func(context.Context, string) (bool, error) { return false, nil }}
	env := newTestEnv(t, WithRateLimiter(limiter))

	_, err := env.svc.Webhook(context.Background(), "appfolio", []byte(`{"entity_type":"property","data":{"id":"p1"}}`))
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int64(1), env.svc.GetStats().RateLimited)

	counts, err := env.store.Counts(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, counts["properties"])
}

func TestIngestService_WebhookLimiterOutageFailsOpen(t *testing.T) {
	limiter := &mockRateLimiter{allowFunc: func(context.Context, string) (bool, error) {
		return false, errors.New("redis: connection refused")
	}}
	env := newTestEnv(t, WithRateLimiter(limiter))

	res, err := env.svc.Webhook(context.Background(), "appfolio", []byte(`{"entity_type":"property","data":{"id":"p1"}}`))
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
}

func TestIngestService_Events(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	events, err := env.svc.Events(ctx, repository.EventFilter{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	first, err := env.svc.Pull(ctx, "appfolio")
	require.NoError(t, err)
	_, err = env.svc.Pull(ctx, "appfolio")
	require.NoError(t, err)

	events, err = env.svc.Events(ctx, repository.EventFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Greater(t, events[0].ID, events[1].ID)

	events, err = env.svc.Events(ctx, repository.EventFilter{Limit: 10000, IngestID: first.IngestID})
	require.NoError(t, err)
	assert.Len(t, events, 5)
	for _, e := range events {
		assert.Equal(t, first.IngestID, e.IngestID)
		assert.NotEqual(t, models.EventNoop, e.EventType)
	}
}

func TestIngestService_Verify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Pull(ctx, "appfolio")
	require.NoError(t, err)

	reports, err := env.svc.Verify(ctx, "")
	require.NoError(t, err)
	require.Len(t, reports, len(models.Tables()))
	for _, r := range reports {
		assert.True(t, r.OK(), r.Table)
		assert.Equal(t, 1, r.Checked, r.Table)
	}

	reports, err = env.svc.Verify(ctx, "tenants")
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "tenants", reports[0].Table)

	_, err = env.svc.Verify(ctx, "audit_events")
	assert.ErrorIs(t, err, repository.ErrUnknownTable)
}

func TestIngestService_Ready(t *testing.T) {
	env := newTestEnv(t)
	assert.NoError(t, env.svc.Ready(context.Background()))

	require.NoError(t, env.store.Close())
	assert.Error(t, env.svc.Ready(context.Background()))
}
