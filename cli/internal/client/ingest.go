package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the ingest service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// IngestClient talks to the pmap ingest API.
type IngestClient struct {
	baseURL string
	client  *http.Client
}

func NewIngestClient(baseURL string) *IngestClient {
	return &IngestClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *IngestClient) Connectors(ctx context.Context) ([]ConnectorInfo, error) {
	var resp struct {
		Connectors []ConnectorInfo `json:"connectors"`
	}
	if err := c.do(ctx, http.MethodGet, "/connectors", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Connectors, nil
}

func (c *IngestClient) Discover(ctx context.Context, connector string) (*Discovery, error) {
	var d Discovery
	if err := c.do(ctx, http.MethodGet, connectorPath(connector, "discover"), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Pull runs a full pull of connector as one batch.
func (c *IngestClient) Pull(ctx context.Context, connector string) (*BatchResult, error) {
	var res BatchResult
	if err := c.do(ctx, http.MethodPost, connectorPath(connector, "pull"), nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Webhook delivers payload as if the vendor had pushed it.
func (c *IngestClient) Webhook(ctx context.Context, connector string, payload []byte) (*BatchResult, error) {
	var res BatchResult
	if err := c.do(ctx, http.MethodPost, connectorPath(connector, "webhook"), payload, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *IngestClient) Reconcile(ctx context.Context, connector string) (*Reconciliation, error) {
	var rec Reconciliation
	if err := c.do(ctx, http.MethodGet, connectorPath(connector, "reconcile"), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Events lists audit events, newest first.
func (c *IngestClient) Events(ctx context.Context, q EventQuery) ([]AuditEvent, error) {
	params := url.Values{}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.IngestID != "" {
		params.Set("ingest_id", q.IngestID)
	}
	if q.SourceApp != "" {
		params.Set("source_app", q.SourceApp)
	}
	path := "/events"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp struct {
		Events []AuditEvent `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Verify recomputes stored checksums. An empty table checks all of them.
func (c *IngestClient) Verify(ctx context.Context, table string) (*VerifyResult, error) {
	path := "/verify"
	if table != "" {
		path += "?" + url.Values{"table": {table}}.Encode()
	}
	var res VerifyResult
	if err := c.do(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *IngestClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func connectorPath(name, op string) string {
	return "/connectors/" + url.PathEscape(name) + "/" + op
}

func (c *IngestClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
