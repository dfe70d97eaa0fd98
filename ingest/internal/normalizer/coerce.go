package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/checksum"
	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

var errUncoercible = errors.New("uncoercible value")

// identifier converts an id or reference field to its canonical string.
// Empty and null identifiers count as missing.
func identifier(entityType, field string, v any) (string, error) {
	var s string
	switch val := v.(type) {
	case nil:
		return "", &MissingFieldError{EntityType: entityType, Field: field}
	case string:
		s = norm.NFC.String(strings.TrimSpace(val))
	case json.Number:
		s = val.String()
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.Abs(val) > 1<<53 {
			return "", &InvalidFieldError{EntityType: entityType, Field: field, Value: v, Want: "identifier"}
		}
		s = strconv.FormatInt(int64(val), 10)
	default:
		return "", &InvalidFieldError{EntityType: entityType, Field: field, Value: v, Want: "identifier"}
	}
	if s == "" {
		return "", &MissingFieldError{EntityType: entityType, Field: field}
	}
	if strings.ContainsRune(s, 0) {
		return "", &InvalidFieldError{EntityType: entityType, Field: field, Value: v, Want: "identifier"}
	}
	return s, nil
}

// ExternalID returns the canonical vendor id of record, or "" when it has
// no usable one.
func ExternalID(entityType string, record map[string]any) string {
	id, err := identifier(entityType, models.VendorIDField, record[models.VendorIDField])
	if err != nil {
		return ""
	}
	return id
}

// coerce converts a non-null vendor value to the storage value of col.
func coerce(col models.Column, v any) (any, error) {
	switch col.Kind {
	case models.KindText:
		return toText(v)
	case models.KindInteger:
		return toInteger(v)
	case models.KindReal:
		return toReal(v)
	case models.KindFlag:
		return toFlag(v)
	case models.KindHashed:
		return toHash(v)
	default:
		return nil, fmt.Errorf("column %s: unknown kind %d", col.Name, col.Kind)
	}
}

func toText(v any) (any, error) {
	switch val := v.(type) {
	case string:
		// PostgreSQL text cannot hold NUL.
		if strings.ContainsRune(val, 0) {
			return nil, errUncoercible
		}
		return norm.NFC.String(val), nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return nil, errUncoercible
	}
}

func toInteger(v any) (any, error) {
	switch val := v.(type) {
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case float64:
		return integralFloat(val)
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, errUncoercible
		}
		return integralFloat(f)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		return nil, errUncoercible
	default:
		return nil, errUncoercible
	}
}

func integralFloat(f float64) (any, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > 1<<53 {
		return nil, errUncoercible
	}
	return int64(f), nil
}

func toReal(v any) (any, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, errUncoercible
		}
		return f, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errUncoercible
		}
		return f, nil
	default:
		return nil, errUncoercible
	}
}

func toFlag(v any) (any, error) {
	var b bool
	switch val := v.(type) {
	case bool:
		b = val
	case int:
		b = val != 0
	case int64:
		b = val != 0
	case float64:
		b = val != 0
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, errUncoercible
		}
		b = f != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "y", "yes", "active":
			b = true
		case "0", "f", "false", "n", "no", "inactive":
			b = false
		default:
			return nil, errUncoercible
		}
	default:
		return nil, errUncoercible
	}
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

// toHash fingerprints a sensitive value. Empty input stays null so that
// "no value" is never confused with the digest of an empty string.
func toHash(v any) (any, error) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	default:
		return nil, errUncoercible
	}
	if s == "" {
		return nil, nil
	}
	return checksum.String(s), nil
}
