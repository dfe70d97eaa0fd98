package appfoliomock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_ListResources(t *testing.T) {
	srv := httptest.NewServer(NewServer(DefaultAPIKey, DefaultFixtures(), nil).Handler())
	defer srv.Close()

	for _, resource := range Resources {
		t.Run(resource, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/"+resource, nil)
			require.NoError(t, err)
			req.Header.Set(HeaderAPIKey, DefaultAPIKey)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			require.Equal(t, http.StatusOK, resp.StatusCode)
			var records []map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&records))
			assert.Len(t, records, 1)
			assert.NotEmpty(t, records[0]["id"])
		})
	}
}

func TestServer_RejectsWrongKey(t *testing.T) {
	srv := httptest.NewServer(NewServer(DefaultAPIKey, DefaultFixtures(), nil).Handler())
	defer srv.Close()

	for _, key := range []string{"", "wrong"} {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/properties", nil)
		require.NoError(t, err)
		if key != "" {
			req.Header.Set(HeaderAPIKey, key)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, "key %q", key)
		assert.Equal(t, "Invalid API key", body["detail"])
	}
}

func TestServer_HealthAndUnknown(t *testing.T) {
	h := NewServer(DefaultAPIKey, Fixtures{}, nil).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/owners", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/units", nil)
	req.Header.Set(HeaderAPIKey, DefaultAPIKey)
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGenerate_DeterministicAndLinked(t *testing.T) {
	a := Generate(42, 3)
	b := Generate(42, 3)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Generate(7, 3))

	for _, r := range Resources {
		assert.Len(t, a[r], 3, r)
	}
	for i := range a[ResourceLeases] {
		lease := a[ResourceLeases][i]
		assert.Equal(t, a[ResourceUnits][i]["id"], lease["unit_id"])
		assert.Equal(t, a[ResourceTenants][i]["id"], lease["tenant_id"])
		assert.Equal(t, lease["id"], a[ResourcePayments][i]["lease_id"])
		assert.Equal(t, a[ResourceProperties][i]["id"], a[ResourceUnits][i]["property_id"])
	}
}

func TestFixturesMergeAndCount(t *testing.T) {
	merged := DefaultFixtures().Merge(Generate(1, 2))
	counts := merged.Count()
	for _, r := range Resources {
		assert.Equal(t, 3, counts[r], r)
	}
	assert.Equal(t, "prop_1001", merged[ResourceProperties][0]["id"])
	assert.Len(t, DefaultFixtures()[ResourceProperties], 1, "merge must not mutate the receiver")
}
