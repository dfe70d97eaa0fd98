package models

import "sort"

// EntityType is a vendor entity kind accepted by the pipeline.
type EntityType string

const (
	EntityProperty EntityType = "property"
	EntityUnit     EntityType = "unit"
	EntityTenant   EntityType = "tenant"
	EntityLease    EntityType = "lease"
	EntityPayment  EntityType = "payment"
)

// Key columns shared by every canonical table.
const (
	ColumnSourceApp  = "source_app"
	ColumnExternalID = "external_id"
	ColumnChecksum   = "checksum"
	ColumnFetchedAt  = "fetched_at"

	// VendorIDField is the vendor attribute mapped to external_id.
	VendorIDField = "id"
)

// ColumnKind describes how a vendor value becomes a canonical column value.
type ColumnKind int

const (
	// KindText stores a string.
	KindText ColumnKind = iota
	// KindInteger stores a 64-bit integer.
	KindInteger
	// KindReal stores a float64.
	KindReal
	// KindFlag stores a vendor boolean as 1 or 0.
	KindFlag
	// KindHashed stores the SHA-256 hex of a sensitive vendor string.
	KindHashed
)

// StorageKind is the kind of value that ends up in the database.
func (k ColumnKind) StorageKind() ColumnKind {
	switch k {
	case KindFlag:
		return KindInteger
	case KindHashed:
		return KindText
	default:
		return k
	}
}

func (k ColumnKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindFlag:
		return "flag"
	case KindHashed:
		return "hashed"
	default:
		return "unknown"
	}
}

// Column maps one vendor field onto one canonical column.
type Column struct {
	Name     string
	Source   string
	Kind     ColumnKind
	Required bool
	// Default applies when the vendor omits the field. nil means NULL.
	Default any
}

// EntitySpec is the canonical shape of one entity type.
type EntitySpec struct {
	Type  EntityType
	Table string
	// ChangedEvent is the audit label written when an upsert changes the row.
	ChangedEvent EventType
	Columns      []Column
}

// RequiredFields returns the vendor fields that must be present, id first.
func (s EntitySpec) RequiredFields() []string {
	fields := []string{VendorIDField}
	for _, c := range s.Columns {
		if c.Required {
			fields = append(fields, c.Source)
		}
	}
	return fields
}

// ColumnNames returns the non-key canonical column names in declaration order.
func (s EntitySpec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

var entitySpecs = map[EntityType]EntitySpec{
	EntityProperty: {
		Type:         EntityProperty,
		Table:        "properties",
		ChangedEvent: EventPropertyUpserted,
		Columns: []Column{
			{Name: "name", Source: "name", Kind: KindText},
			{Name: "address", Source: "address", Kind: KindText},
			{Name: "city", Source: "city", Kind: KindText},
			{Name: "state", Source: "state", Kind: KindText},
			{Name: "postal_code", Source: "postal_code", Kind: KindText},
			{Name: "active", Source: "active", Kind: KindFlag, Default: int64(1)},
		},
	},
	EntityUnit: {
		Type:         EntityUnit,
		Table:        "units",
		ChangedEvent: EventUnitUpserted,
		Columns: []Column{
			{Name: "property_external_id", Source: "property_id", Kind: KindText, Required: true},
			{Name: "label", Source: "label", Kind: KindText},
			{Name: "bedrooms", Source: "bedrooms", Kind: KindInteger},
			{Name: "bathrooms", Source: "bathrooms", Kind: KindReal},
			{Name: "sqft", Source: "sqft", Kind: KindInteger},
			{Name: "status", Source: "status", Kind: KindText},
		},
	},
	EntityTenant: {
		Type:         EntityTenant,
		Table:        "tenants",
		ChangedEvent: EventTenantUpserted,
		Columns: []Column{
			{Name: "full_name", Source: "full_name", Kind: KindText},
			{Name: "email_hash", Source: "email", Kind: KindHashed},
			{Name: "phone_hash", Source: "phone", Kind: KindHashed},
		},
	},
	EntityLease: {
		Type:         EntityLease,
		Table:        "leases",
		ChangedEvent: EventLeaseUpserted,
		Columns: []Column{
			{Name: "unit_external_id", Source: "unit_id", Kind: KindText, Required: true},
			{Name: "tenant_external_id", Source: "tenant_id", Kind: KindText, Required: true},
			{Name: "start_date", Source: "start_date", Kind: KindText},
			{Name: "end_date", Source: "end_date", Kind: KindText},
			{Name: "rent_cents", Source: "rent_cents", Kind: KindInteger},
			{Name: "status", Source: "status", Kind: KindText},
		},
	},
	EntityPayment: {
		Type:         EntityPayment,
		Table:        "payments",
		ChangedEvent: EventPaymentRecorded,
		Columns: []Column{
			{Name: "tenant_external_id", Source: "tenant_id", Kind: KindText, Required: true},
			{Name: "lease_external_id", Source: "lease_id", Kind: KindText},
			{Name: "amount_cents", Source: "amount_cents", Kind: KindInteger},
			{Name: "posted_date", Source: "posted_date", Kind: KindText},
			{Name: "method", Source: "method", Kind: KindText},
		},
	},
}

// EntityOrder is the dependency order used for snapshot pulls: parents
// before the records that reference them.
var EntityOrder = []EntityType{EntityProperty, EntityUnit, EntityTenant, EntityLease, EntityPayment}

// LookupEntity returns the spec for et.
func LookupEntity(et EntityType) (EntitySpec, bool) {
	spec, ok := entitySpecs[et]
	return spec, ok
}

// LookupTable returns the spec whose table is name.
func LookupTable(name string) (EntitySpec, bool) {
	for _, spec := range entitySpecs {
		if spec.Table == name {
			return spec, true
		}
	}
	return EntitySpec{}, false
}

// Tables returns every canonical table name, sorted.
func Tables() []string {
	tables := make([]string, 0, len(entitySpecs))
	for _, spec := range entitySpecs {
		tables = append(tables, spec.Table)
	}
	sort.Strings(tables)
	return tables
}

// Entities returns every spec in EntityOrder.
func Entities() []EntitySpec {
	specs := make([]EntitySpec, 0, len(EntityOrder))
	for _, et := range EntityOrder {
		specs = append(specs, entitySpecs[et])
	}
	return specs
}
