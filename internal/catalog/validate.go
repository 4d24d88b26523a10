package catalog

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// schemaJSON is the closed-world shape catalogue documents must satisfy,
// stricter than the yaml.v3 unmarshal LoadDir performs: it validates each
// source's kind against the closed SourceKind enum. LoadDir does not apply
// it; the validate command does.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "sources"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "doc": {"type": "string"},
      "supported_os": {"type": "array", "items": {"type": "string"}},
      "provides": {"type": "array", "items": {"type": "string"}},
      "conditions": {"type": "array", "items": {"type": "string"}},
      "sources": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["type"],
          "properties": {
            "type": {
              "type": "string",
              "enum": ["FILE", "DIRECTORY", "PATH", "REGISTRY_KEY", "REGISTRY_VALUE", "ARTIFACT_GROUP"]
            },
            "supported_os": {"type": "array", "items": {"type": "string"}},
            "attributes": {"type": "object"}
          }
        }
      }
    }
  }
}`

// ValidateFile type-checks one catalogue document's raw bytes against
// schemaJSON, independent of LoadDir's own unmarshalling.
func ValidateFile(name string, raw []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("catalog: parsing %q: %w", name, err)
	}

	// jsonschema validates against plain JSON-shaped values (map[string]any,
	// []any, ...); yaml.v3 already decodes into that shape for documents
	// without YAML-specific tags, so no extra conversion step is needed.
	schema, err := jsonschema.CompileString("catalogue.schema.json", schemaJSON)
	if err != nil {
		return fmt.Errorf("catalog: compiling schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("catalog: %q failed schema validation: %w", name, err)
	}
	return nil
}
