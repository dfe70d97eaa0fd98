// Package appfolio connects pmap to the AppFolio property-management API.
package appfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmaynor/property-mangement-pane/ingest/pkg/appfoliomock"
)

// SourceApp is the namespace of every AppFolio external id.
const SourceApp = "appfolio"

// Config configures the API client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// DefaultConfig points at a local mock API.
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8001",
		APIKey:  appfoliomock.DefaultAPIKey,
		Timeout: 10 * time.Second,
	}
}

// APIError is a non-200 response from the vendor.
type APIError struct {
	Resource   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("appfolio %s: status %d: %s", e.Resource, e.StatusCode, e.Body)
}

// Client reads resources from the AppFolio API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// List fetches every record of resource. Numbers are kept as json.Number
// so vendor values reach the normalizer unrounded.
func (c *Client) List(ctx context.Context, resource string) ([]map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+resource, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(appfoliomock.HeaderAPIKey, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appfolio %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{Resource: resource, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("appfolio %s: decode response: %w", resource, err)
	}
	return records, nil
}
