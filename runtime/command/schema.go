package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator checks parsed inputs against the JSON schemas commands
// declare in their metadata. Compiled schemas are cached per command.
type SchemaValidator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator creates an empty validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate checks input against meta.Schema. Commands without a schema
// always pass.
func (v *SchemaValidator) Validate(meta Metadata, input any) error {
	if meta.Schema == nil {
		return nil
	}
	schema, err := v.schema(meta)
	if err != nil {
		return fmt.Errorf("%s: schema: %w", meta.Name, err)
	}

	doc, err := jsonValue(input)
	if err != nil {
		return Inputf(meta.Name, "input is not serializable: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return Inputf(meta.Name, "%v", err)
	}
	return nil
}

func (v *SchemaValidator) schema(meta Metadata) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[meta.Name]; ok {
		return s, nil
	}

	raw, err := json.Marshal(meta.Schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	// Command schemas are self-contained.
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("$ref to %s not allowed", url)
	}
	url := "schema://" + meta.Name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	s, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}
	v.compiled[meta.Name] = s
	return s, nil
}

// jsonValue converts a typed input into the generic form schemas validate.
func jsonValue(input any) (any, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
