// Package schema validates raw upstream responses against JSON Schemas before they are decoded, so that a missing
// or mistyped field is reported as a transform error instead of surfacing as zero values downstream.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/tarancss/soldash/lib/fetch"
)

// Schema is a compiled schema for one source.
type Schema struct {
	source string
	s      *jsonschema.Schema
}

// Compile compiles the Draft 2020-12 schema document for source.
func Compile(source, doc string) (*Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	url := fmt.Sprintf("https://soldash.schemas.local/%s.schema.json", source)
	if err := c.AddResource(url, strings.NewReader(doc)); err != nil {
		return nil, fmt.Errorf("schema: load %s failed: %w", source, err)
	}

	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema: compile %s failed: %w", source, err)
	}

	return &Schema{source: source, s: s}, nil
}

// MustCompile is like Compile but panics, for schemas declared as package variables.
func MustCompile(source, doc string) *Schema {
	s, err := Compile(source, doc)
	if err != nil {
		panic(err)
	}

	return s
}

// Validate checks raw against the schema. A violation is a *fetch.TransformError.
func (s *Schema) Validate(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return &fetch.TransformError{Source: s.source, Err: err}
	}

	if err := s.s.Validate(v); err != nil {
		return &fetch.TransformError{Source: s.source, Err: flatten(err)}
	}

	return nil
}

// Decode validates raw and unmarshals it into v.
func (s *Schema) Decode(raw []byte, v interface{}) error {
	if err := s.Validate(raw); err != nil {
		return err
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return &fetch.TransformError{Source: s.source, Err: err}
	}

	return nil
}

// flatten keeps the innermost cause of a validation error, the full tree is too verbose for a panel's error view.
func flatten(err error) error {
	ve, ok := err.(*jsonschema.ValidationError) //nolint:errorlint // Validate returns the concrete type
	if !ok {
		return err
	}

	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}

	return fmt.Errorf("%s: %s", loc, ve.Message)
}
