package seeder

import (
	"encoding/json"
	"maps"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/dmaynor/property-mangement-pane/ingest/pkg/appfoliomock"
)

// resourceEntities maps fake API resources to webhook entity types.
var resourceEntities = map[string]string{
	appfoliomock.ResourceProperties: "property",
	appfoliomock.ResourceUnits:      "unit",
	appfoliomock.ResourceTenants:    "tenant",
	appfoliomock.ResourceLeases:     "lease",
	appfoliomock.ResourcePayments:   "payment",
}

// Delivery is one webhook push.
type Delivery struct {
	EntityType string         `json:"entity_type"`
	Data       map[string]any `json:"data"`
	// Faulty deliveries are expected to be rejected.
	Faulty bool `json:"-"`
}

// Payload encodes d the way the vendor pushes it.
func (d Delivery) Payload() ([]byte, error) {
	return json.Marshal(d)
}

// GenerateDeliveries builds webhook deliveries for cfg's portfolios,
// parents before children. The same seed always yields the same list.
func GenerateDeliveries(cfg DefaultsConfig) []Delivery {
	fixtures := appfoliomock.Generate(cfg.Seed, cfg.Portfolios)
	faker := gofakeit.New(cfg.Seed + 1)

	var out []Delivery
	for _, resource := range appfoliomock.Resources {
		for _, rec := range fixtures[resource] {
			d := Delivery{
				EntityType: resourceEntities[resource],
				Data:       maps.Clone(rec),
			}
			if cfg.FaultRate > 0 && faker.Float64Range(0, 1) < cfg.FaultRate {
				delete(d.Data, "id")
				d.Faulty = true
			}
			out = append(out, d)
		}
	}
	return out
}
