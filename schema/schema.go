// Package schema describes which document fields the activity store
// tracks. It is consumed once at store construction.
package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Kind is the closed set of supported value kinds. The kind is
// resolved once from the schema; there is no runtime type inspection
// on the access path.
type Kind string

const (
	KindInt   Kind = "int"
	KindLong  Kind = "long"
	KindFloat Kind = "float"
)

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInt, KindLong, KindFloat:
		return true
	}
	return false
}

// FieldDefinition declares one tracked field.
type FieldDefinition struct {
	// Name is the field name as it appears in update documents.
	Name string `json:"name"`

	// Kind selects the per-slot storage representation.
	Kind Kind `json:"kind"`

	// Activity marks the field as an activity value. Only activity
	// fields get per-slot storage; the rest of the document schema is
	// outside this store's responsibility.
	Activity bool `json:"activity"`
}

// TimeAggregateInfo declares a pre-aggregated composite field: one
// cumulative counter plus one counter per trailing time window.
type TimeAggregateInfo struct {
	FieldName string   `json:"field"`
	Windows   []string `json:"windows"`
}

// Schema is the full set of tracked definitions.
type Schema struct {
	Fields     []FieldDefinition   `json:"fields"`
	Aggregates []TimeAggregateInfo `json:"aggregates,omitempty"`
}

// Validate checks the schema for unknown kinds and duplicate names.
func (s *Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: field with empty name")
		}
		if !f.Kind.Valid() {
			return fmt.Errorf("schema: field %q has unknown kind %q", f.Name, f.Kind)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	for _, a := range s.Aggregates {
		if a.FieldName == "" {
			return fmt.Errorf("schema: aggregate with empty field name")
		}
		if len(a.Windows) == 0 {
			return fmt.Errorf("schema: aggregate %q has no windows", a.FieldName)
		}
	}
	return nil
}

// Load reads a JSON schema document from r.
func Load(r io.Reader) (*Schema, error) {
	var s Schema
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("schema: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadFile reads a JSON schema document from path.
func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path) //nolint:gosec // G304: Path is configurable
	if err != nil {
		return nil, fmt.Errorf("schema: open: %w", err)
	}
	defer f.Close()
	return Load(f)
}
