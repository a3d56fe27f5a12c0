package usecase

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

// schemaValidator holds one compiled JSON Schema per document type,
// generated from the extraction field schemas. Validation failures are
// advisory: the extractor downgrades to lenient per-field parsing.
type schemaValidator struct {
	schemas map[domain.DocumentType]*jsonschema.Schema
}

func newSchemaValidator() (*schemaValidator, error) {
	v := &schemaValidator{schemas: make(map[domain.DocumentType]*jsonschema.Schema)}
	for _, dt := range domain.CanonicalDocumentTypes {
		specs, ok := domain.SchemaFor(dt)
		if !ok {
			continue
		}
		sch, err := compileExtractionSchema(dt, specs)
		if err != nil {
			return nil, fmt.Errorf("document type %s: %w", dt, err)
		}
		v.schemas[dt] = sch
	}
	return v, nil
}

func (v *schemaValidator) validate(dt domain.DocumentType, content []byte) error {
	sch, ok := v.schemas[dt]
	if !ok {
		return fmt.Errorf("no schema for document type %s", dt)
	}
	var decoded any
	if err := json.Unmarshal(content, &decoded); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return sch.Validate(decoded)
}

func compileExtractionSchema(dt domain.DocumentType, specs []domain.FieldSpec) (*jsonschema.Schema, error) {
	properties := make(map[string]any, len(specs))
	for _, spec := range specs {
		properties[spec.Name] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"value": map[string]any{"type": jsonTypesFor(spec.Kind)},
				"confidence": map[string]any{
					"type":    "number",
					"minimum": 0,
					"maximum": 1,
				},
			},
		}
	}
	doc := map[string]any{
		"type":     "object",
		"required": []string{"fields"},
		"properties": map[string]any{
			"fields": map[string]any{
				"type":       "object",
				"properties": properties,
			},
		},
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	name := fmt.Sprintf("extraction-%s.json", dt)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return compiler.Compile(name)
}

// jsonTypesFor is deliberately permissive: the schema polices the
// envelope shape and confidence bounds, while the per-field parser
// enforces value semantics (calendar-valid dates and the like).
func jsonTypesFor(kind domain.FieldKind) []string {
	switch kind {
	case domain.FieldInt:
		return []string{"integer", "string", "null"}
	case domain.FieldFloat:
		return []string{"number", "string", "null"}
	case domain.FieldBool:
		return []string{"boolean", "string", "null"}
	default:
		return []string{"string", "null"}
	}
}
