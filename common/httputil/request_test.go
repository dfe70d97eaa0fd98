package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON(t *testing.T) {
	t.Run("keeps numbers as json.Number", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"rent_cents": 175000}`))
		var body map[string]any
		require.NoError(t, DecodeJSON(req, &body, 0))
		assert.Equal(t, json.Number("175000"), body["rent_cents"])
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var body map[string]any
		assert.ErrorIs(t, DecodeJSON(req, &body, 0), ErrEmptyBody)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"entity_type":`))
		var body map[string]any
		err := DecodeJSON(req, &body, 0)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON body")
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{} {}`))
		var body map[string]any
		assert.Error(t, DecodeJSON(req, &body, 0))
	})

	t.Run("oversized body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"data":"`+strings.Repeat("x", 64)+`"}`))
		var body map[string]any
		assert.Error(t, DecodeJSON(req, &body, 16))
	})
}

func TestParseIntParam(t *testing.T) {
	assert.Equal(t, 10, ParseIntParam("", 10))
	assert.Equal(t, 25, ParseIntParam("25", 10))
	assert.Equal(t, 10, ParseIntParam("abc", 10))
	assert.Equal(t, -3, ParseIntParam(" -3 ", 10))
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"?limit=5", 5},
		{"?limit=0", 50},
		{"?limit=-1", 50},
		{"?limit=abc", 50},
		{"?limit=100000", 500},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/events"+tt.query, nil)
			assert.Equal(t, tt.want, ParseLimit(req, 50, 500))
		})
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", GetClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.195, 70.41.3.18")
	assert.Equal(t, "203.0.113.195", GetClientIP(req))
}
