package logging

import "log/slog"

// Field names shared by every pmap component.
const (
	FieldService    = "service"
	FieldRequestID  = "request_id"
	FieldIngestID   = "ingest_id"
	FieldConnector  = "connector"
	FieldTrigger    = "trigger"
	FieldEntityType = "entity_type"
	FieldTable      = "table"
	FieldExternalID = "external_id"
	FieldChanged    = "changed"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldClientIP   = "client_ip"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldCount      = "count"
	FieldError      = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// IngestID returns a slog attribute for a batch correlation id.
func IngestID(id string) slog.Attr {
	return slog.String(FieldIngestID, id)
}

// Connector returns a slog attribute for a connector (source app) name.
func Connector(name string) slog.Attr {
	return slog.String(FieldConnector, name)
}

// Trigger returns a slog attribute for what started a batch (pull, webhook).
func Trigger(trigger string) slog.Attr {
	return slog.String(FieldTrigger, trigger)
}

// EntityType returns a slog attribute for a vendor entity type.
func EntityType(et string) slog.Attr {
	return slog.String(FieldEntityType, et)
}

// Table returns a slog attribute for a canonical table name.
func Table(name string) slog.Attr {
	return slog.String(FieldTable, name)
}

// ExternalID returns a slog attribute for a vendor record id.
func ExternalID(id string) slog.Attr {
	return slog.String(FieldExternalID, id)
}

// Changed returns a slog attribute for an upsert outcome.
func Changed(changed bool) slog.Attr {
	return slog.Bool(FieldChanged, changed)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// ClientIP returns a slog attribute for the originating client address.
func ClientIP(ip string) slog.Attr {
	return slog.String(FieldClientIP, ip)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Count returns a slog attribute for a generic count.
func Count(n int) slog.Attr {
	return slog.Int(FieldCount, n)
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
