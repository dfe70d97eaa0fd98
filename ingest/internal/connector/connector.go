// Package connector defines the contract between vendor integrations and
// the ingest pipeline.
//
// A Connector turns a vendor API into (entity type, vendor record) tuples.
// The pipeline only ever sees tuples, never a concrete vendor.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownConnector   = errors.New("unknown connector")
	ErrDuplicateConnector = errors.New("connector already registered")
	// ErrMalformedPayload marks a webhook body the connector cannot decode.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Tuple is one vendor record and its entity type.
type Tuple struct {
	EntityType string         `json:"entity_type"`
	Record     map[string]any `json:"data"`
}

// Discovery describes what a connector can do.
type Discovery struct {
	SourceApp        string   `json:"source_app"`
	Mode             string   `json:"mode"`
	Resources        []string `json:"resources"`
	WebhookSupported bool     `json:"webhook_supported"`
	Version          string   `json:"version"`
}

// Snapshot is a connector's view of how many records the vendor holds.
type Snapshot struct {
	SourceApp      string         `json:"source_app"`
	SnapshotCounts map[string]int `json:"snapshot_counts"`
}

// Connector is implemented once per vendor.
type Connector interface {
	// SourceApp namespaces every external id the connector produces.
	SourceApp() string
	Discover(ctx context.Context) (*Discovery, error)
	// Pull fetches a full snapshot in dependency order.
	Pull(ctx context.Context) ([]Tuple, error)
	// Webhook decodes one push delivery into zero or more tuples.
	Webhook(ctx context.Context, payload []byte) ([]Tuple, error)
	Reconcile(ctx context.Context) (*Snapshot, error)
}

// Registry maps connector names to connectors. It is built once at
// startup and read-only afterwards.
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry registers cs under their SourceApp names.
func NewRegistry(cs ...Connector) (*Registry, error) {
	r := &Registry{connectors: make(map[string]Connector, len(cs))}
	for _, c := range cs {
		if err := r.register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) register(c Connector) error {
	name := c.SourceApp()
	if _, exists := r.connectors[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateConnector, name)
	}
	r.connectors[name] = c
	return nil
}

// Get returns the connector registered as name.
func (r *Registry) Get(name string) (Connector, error) {
	c, ok := r.connectors[name]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownConnector, name)
	}
	return c, nil
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
