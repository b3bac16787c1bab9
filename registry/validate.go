package registry

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonschema"
)

// registrySchema describes the shape of a collection-registry document: a
// JSON array of {name, fields: [...]}. Field-level semantic checks (known
// parser, facet kind) happen afterwards in validateField, since those
// depend on runtime state (the set of registered parsers) a static schema
// cannot express.
const registrySchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "fields"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "parent": {"type": "string"},
      "excludedTypes": {"type": "array", "items": {"type": "string"}},
      "fields": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "type", "parser"],
          "properties": {
            "name": {"type": "string", "minLength": 1},
            "type": {"enum": ["tokenized-text", "untokenized-string", "long", "facet"]},
            "parser": {"type": "string", "minLength": 1},
            "sortable": {"type": "boolean"},
            "lowerCase": {"type": "boolean"},
            "private": {"type": "boolean"},
            "regex": {"type": "string"},
            "default": {"type": "string"},
            "booleanFacet": {"type": "boolean"},
            "facetKind": {"enum": ["", "value", "boolean", "file", "link"]},
            "jsonPaths": {"type": "array", "items": {"type": "string"}},
            "expandable": {"type": "boolean"}
          }
        }
      }
    }
  }
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiledRegistrySchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.WithDecoderJSON(sonic.Unmarshal)
		compiler.WithEncoderJSON(sonic.Marshal)
		compiledSchema, compileErr = compiler.Compile([]byte(registrySchema))
	})
	return compiledSchema, compileErr
}

// validateSchema validates raw registry JSON against registrySchema,
// mirroring the teacher's DocumentSchema.Validate: compile once, validate
// many, report every field error rather than just the first.
func validateSchema(raw []byte) error {
	schema, err := compiledRegistrySchema()
	if err != nil {
		return fmt.Errorf("compiling registry schema: %w", err)
	}

	var doc any
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decoding registry document: %w", err)
	}

	// The registry document is a top-level JSON array, not an object, so
	// we use the schema's generic Validate (teacher's validate.go uses
	// ValidateMap, which only applies to object documents).
	result := schema.Validate(doc)
	if result.IsValid() {
		return nil
	}

	var msgs []string
	for field, e := range result.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Message))
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
