package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed manifest.schema.json
var schemaDoc []byte

const schemaResourceURL = "restate.dev/sdk-go-core/manifest.schema.json"

var compiledSchema *jsonschema.Schema

func init() {
	var doc any
	if err := json.Unmarshal(schemaDoc, &doc); err != nil {
		panic(fmt.Sprintf("manifest: embedded schema is not valid JSON: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResourceURL, doc); err != nil {
		panic(fmt.Sprintf("manifest: embedded schema failed to register: %v", err))
	}
	schema, err := c.Compile(schemaResourceURL)
	if err != nil {
		panic(fmt.Sprintf("manifest: embedded schema failed to compile: %v", err))
	}
	compiledSchema = schema
}

// Validate checks m's wire encoding against the manifest JSON Schema (spec
// §6 "Manifest shape"). Callers doing discovery-document construction use
// this as a guard against a future field rename silently breaking runtime
// compatibility.
func Validate(m *Manifest) error {
	encoded, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("manifest: marshal before validation: %w", err)
	}
	var doc any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return fmt.Errorf("manifest: unmarshal before validation: %w", err)
	}
	return compiledSchema.Validate(doc)
}
