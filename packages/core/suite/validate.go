package suite

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// ValidationError lists every schema violation found in a suite document.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid suite: " + strings.Join(e.Violations, "; ")
}

// Validate checks a decoded suite document (the generic result of JSON or
// YAML unmarshalling) against the suite schema.
func Validate(doc any) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("loading suite schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validating suite: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		verr.Violations = append(verr.Violations, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return verr
}

// ValidateBytes unmarshals data in the given format and validates it.
func ValidateBytes(data []byte, format Format) error {
	doc, err := unmarshalDocument(data, format)
	if err != nil {
		return err
	}
	return Validate(doc)
}
