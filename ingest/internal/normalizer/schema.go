package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/dmaynor/property-mangement-pane/ingest/internal/models"
)

// identifierTypes are the JSON types accepted for id and reference fields.
var identifierTypes = []any{"string", "integer"}

// schemaFor builds the JSON Schema document enforcing the required vendor
// fields of spec. Only required fields are constrained; everything else
// in a vendor record passes through to column coercion.
func schemaFor(spec models.EntitySpec) map[string]any {
	required := spec.RequiredFields()
	props := make(map[string]any, len(required))
	reqList := make([]any, len(required))
	for i, f := range required {
		props[f] = map[string]any{"type": identifierTypes}
		reqList[i] = f
	}
	return map[string]any{
		"type":       "object",
		"required":   reqList,
		"properties": props,
	}
}

func compileSchemas() (map[models.EntityType]*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)

	schemas := make(map[models.EntityType]*jsonschema.Schema, len(models.EntityOrder))
	for _, spec := range models.Entities() {
		url := fmt.Sprintf("https://pmap.local/schemas/vendor/%s.json", spec.Type)
		if err := c.AddResource(url, schemaFor(spec)); err != nil {
			return nil, fmt.Errorf("add %s schema: %w", spec.Type, err)
		}
		sch, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", spec.Type, err)
		}
		schemas[spec.Type] = sch
	}
	return schemas, nil
}

// validateRequired runs the entity schema over record and converts the
// first violation into a MissingFieldError or InvalidFieldError.
func validateRequired(sch *jsonschema.Schema, et models.EntityType, record map[string]any) error {
	err := sch.Validate(schemaInstance(record))
	if err == nil {
		return nil
	}

	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return &InvalidFieldError{EntityType: string(et), Value: err.Error(), Want: "JSON object"}
	}
	if field, ok := firstMissing(verr); ok {
		return &MissingFieldError{EntityType: string(et), Field: field}
	}
	if field, ok := firstTypeViolation(verr); ok {
		value := record[field]
		if value == nil {
			return &MissingFieldError{EntityType: string(et), Field: field}
		}
		return &InvalidFieldError{EntityType: string(et), Field: field, Value: value, Want: "identifier"}
	}
	return &InvalidFieldError{EntityType: string(et), Value: verr.Error(), Want: "JSON object"}
}

func firstMissing(verr *jsonschema.ValidationError) (string, bool) {
	if req, ok := verr.ErrorKind.(*kind.Required); ok && len(req.Missing) > 0 {
		return req.Missing[0], true
	}
	for _, cause := range verr.Causes {
		if field, ok := firstMissing(cause); ok {
			return field, true
		}
	}
	return "", false
}

func firstTypeViolation(verr *jsonschema.ValidationError) (string, bool) {
	if _, ok := verr.ErrorKind.(*kind.Type); ok && len(verr.InstanceLocation) > 0 {
		return verr.InstanceLocation[0], true
	}
	for _, cause := range verr.Causes {
		if field, ok := firstTypeViolation(cause); ok {
			return field, true
		}
	}
	return "", false
}

// schemaInstance copies the required-field view of record into values the
// validator understands. Only top-level scalars matter to the schema, so
// nested documents are replaced by an empty object placeholder.
func schemaInstance(record map[string]any) map[string]any {
	inst := make(map[string]any, len(record))
	for k, v := range record {
		switch v.(type) {
		case nil, string, bool, json.Number, float64, float32, int, int32, int64, uint, uint32, uint64:
			inst[k] = v
		case []any:
			inst[k] = []any{}
		default:
			inst[k] = map[string]any{}
		}
	}
	return inst
}
