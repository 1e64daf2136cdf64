package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsval "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "wordsdk-config.json"

// Schema returns the JSON Schema of the configuration file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
		Anonymous:      true,
		FieldNameTag:   "yaml",
	}
	s := reflector.Reflect(&Config{})
	s.Title = "wordsdk configuration"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

var compiled = sync.OnceValues(func() (*jsval.Schema, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}
	compiler := jsval.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(schemaURL)
})

// SchemaError lists the places where a document does not match Schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return "config does not match schema: " + e.Problems[0]
	}
	return fmt.Sprintf("config does not match schema (%d problems): %v", len(e.Problems), e.Problems)
}

// checkSchema validates a YAML document against Schema.
func checkSchema(data []byte) error {
	sch, err := compiled()
	if err != nil {
		return fmt.Errorf("invalid config schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding yaml: %w", err)
	}
	// Round-trip through JSON so the validator sees JSON types only.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	var obj any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("failed to prepare validation object: %w", err)
	}

	if err := sch.Validate(obj); err != nil {
		var ve *jsval.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		return &SchemaError{Problems: problems(ve)}
	}
	return nil
}

func problems(ve *jsval.ValidationError) []string {
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + ve.Message}
	}
	var out []string
	for _, c := range ve.Causes {
		out = append(out, problems(c)...)
	}
	return out
}
