package appfolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/connector"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
	"github.com/dmaynor/property-mangement-pane/ingest/pkg/appfoliomock"
)

const apiVersion = "api-0.1"

// resourceEntities maps API resources to entity types.
var resourceEntities = map[string]models.EntityType{
	appfoliomock.ResourceProperties: models.EntityProperty,
	appfoliomock.ResourceUnits:      models.EntityUnit,
	appfoliomock.ResourceTenants:    models.EntityTenant,
	appfoliomock.ResourceLeases:     models.EntityLease,
	appfoliomock.ResourcePayments:   models.EntityPayment,
}

// Connector is the read-only AppFolio integration.
type Connector struct {
	client *Client
}

var _ connector.Connector = (*Connector)(nil)

func New(cfg Config) *Connector {
	return &Connector{client: NewClient(cfg)}
}

func (c *Connector) SourceApp() string {
	return SourceApp
}

func (c *Connector) Discover(ctx context.Context) (*connector.Discovery, error) {
	return &connector.Discovery{
		SourceApp:        SourceApp,
		Mode:             "read_only",
		Resources:        append([]string(nil), appfoliomock.Resources...),
		WebhookSupported: true,
		Version:          apiVersion,
	}, nil
}

// Pull reads every resource, properties first, so parents precede the
// records that reference them.
func (c *Connector) Pull(ctx context.Context) ([]connector.Tuple, error) {
	var tuples []connector.Tuple
	for _, resource := range appfoliomock.Resources {
		records, err := c.client.List(ctx, resource)
		if err != nil {
			return nil, err
		}
		et := string(resourceEntities[resource])
		for _, rec := range records {
			tuples = append(tuples, connector.Tuple{EntityType: et, Record: rec})
		}
	}
	return tuples, nil
}

// webhookPayload is one AppFolio push delivery.
type webhookPayload struct {
	EntityType string         `json:"entity_type"`
	Data       map[string]any `json:"data"`
}

// Webhook decodes {"entity_type": ..., "data": {...}}. Deliveries for
// entity types pmap does not track yield no tuples.
func (c *Connector) Webhook(ctx context.Context, payload []byte) ([]connector.Tuple, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var p webhookPayload
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("appfolio webhook: %w: %w", connector.ErrMalformedPayload, err)
	}
	if _, ok := models.LookupEntity(models.EntityType(p.EntityType)); !ok {
		return nil, nil
	}
	if p.Data == nil {
		p.Data = map[string]any{}
	}
	return []connector.Tuple{{EntityType: p.EntityType, Record: p.Data}}, nil
}

// Reconcile counts the records the vendor currently serves.
func (c *Connector) Reconcile(ctx context.Context) (*connector.Snapshot, error) {
	counts := make(map[string]int, len(appfoliomock.Resources))
	for _, resource := range appfoliomock.Resources {
		records, err := c.client.List(ctx, resource)
		if err != nil {
			return nil, err
		}
		counts[resource] = len(records)
	}
	return &connector.Snapshot{SourceApp: SourceApp, SnapshotCounts: counts}, nil
}
