// Package appfoliomock serves a fake AppFolio API for local runs and tests.
//
// The fake exposes GET /properties, /units, /tenants, /leases and
// /payments, each returning a JSON array of vendor records, and rejects
// requests whose X-API-KEY header does not match.
package appfoliomock

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
)

// Resource names, in dependency order.
const (
	ResourceProperties = "properties"
	ResourceUnits      = "units"
	ResourceTenants    = "tenants"
	ResourceLeases     = "leases"
	ResourcePayments   = "payments"
)

// Resources lists every resource in dependency order.
var Resources = []string{ResourceProperties, ResourceUnits, ResourceTenants, ResourceLeases, ResourcePayments}

// Record is one vendor record as served by the API.
type Record = map[string]any

// Fixtures is the data set behind the fake API.
type Fixtures map[string][]Record

// DefaultFixtures returns the canonical single-tenant data set.
func DefaultFixtures() Fixtures {
	return Fixtures{
		ResourceProperties: {
			{"id": "prop_1001", "name": "Riverside Arms", "address": "12 River St", "city": "Austin", "state": "TX", "postal_code": "73301", "active": true},
		},
		ResourceUnits: {
			{"id": "unit_2001", "property_id": "prop_1001", "label": "Unit 2B", "bedrooms": 2, "bathrooms": 1.5, "sqft": 900, "status": "occupied"},
		},
		ResourceTenants: {
			{"id": "ten_3001", "full_name": "Alex Smith", "email": "alex@example.com", "phone": "+15550000001"},
		},
		ResourceLeases: {
			{"id": "lea_4001", "unit_id": "unit_2001", "tenant_id": "ten_3001", "start_date": "2025-01-01", "end_date": "2025-12-31", "rent_cents": 175000, "status": "active"},
		},
		ResourcePayments: {
			{"id": "pay_5001", "tenant_id": "ten_3001", "lease_id": "lea_4001", "amount_cents": 175000, "posted_date": "2025-11-01", "method": "ach"},
		},
	}
}

// Count returns the number of records per resource.
func (f Fixtures) Count() map[string]int {
	counts := make(map[string]int, len(Resources))
	for _, r := range Resources {
		counts[r] = len(f[r])
	}
	return counts
}

// Merge returns f with other's records appended.
func (f Fixtures) Merge(other Fixtures) Fixtures {
	out := make(Fixtures, len(Resources))
	for _, r := range Resources {
		out[r] = append(append([]Record{}, f[r]...), other[r]...)
	}
	return out
}

var (
	unitStatuses  = []string{"occupied", "vacant", "notice", "make_ready"}
	leaseStatuses = []string{"active", "pending", "expired"}
	payMethods    = []string{"ach", "card", "check", "cash"}
)

// Generate builds n linked portfolios from seed: each property gets one
// unit, one tenant, one lease on that unit and one payment on that lease.
// The same seed always yields the same records.
func Generate(seed int64, n int) Fixtures {
	faker := gofakeit.New(seed)
	f := make(Fixtures, len(Resources))

	for i := 0; i < n; i++ {
		propID := fmt.Sprintf("prop_%d", 9000+i)
		unitID := fmt.Sprintf("unit_%d", 9000+i)
		tenantID := fmt.Sprintf("ten_%d", 9000+i)
		leaseID := fmt.Sprintf("lea_%d", 9000+i)
		payID := fmt.Sprintf("pay_%d", 9000+i)
		rent := faker.IntRange(90000, 350000)

		f[ResourceProperties] = append(f[ResourceProperties], Record{
			"id":          propID,
			"name":        faker.Company() + " Apartments",
			"address":     faker.Street(),
			"city":        faker.City(),
			"state":       faker.StateAbr(),
			"postal_code": faker.Zip(),
			"active":      faker.Bool(),
		})
		f[ResourceUnits] = append(f[ResourceUnits], Record{
			"id":          unitID,
			"property_id": propID,
			"label":       fmt.Sprintf("Unit %d%s", faker.IntRange(1, 12), faker.RandomString([]string{"A", "B", "C", "D"})),
			"bedrooms":    faker.IntRange(0, 4),
			"bathrooms":   float64(faker.IntRange(2, 7)) / 2,
			"sqft":        faker.IntRange(400, 2200),
			"status":      faker.RandomString(unitStatuses),
		})
		f[ResourceTenants] = append(f[ResourceTenants], Record{
			"id":        tenantID,
			"full_name": faker.Name(),
			"email":     faker.Email(),
			"phone":     "+1" + faker.Phone(),
		})
		f[ResourceLeases] = append(f[ResourceLeases], Record{
			"id":         leaseID,
			"unit_id":    unitID,
			"tenant_id":  tenantID,
			"start_date": "2025-01-01",
			"end_date":   "2025-12-31",
			"rent_cents": rent,
			"status":     faker.RandomString(leaseStatuses),
		})
		f[ResourcePayments] = append(f[ResourcePayments], Record{
			"id":           payID,
			"tenant_id":    tenantID,
			"lease_id":     leaseID,
			"amount_cents": rent,
			"posted_date":  fmt.Sprintf("2025-%02d-01", faker.IntRange(1, 12)),
			"method":       faker.RandomString(payMethods),
		})
	}
	return f
}
