// Package schema wraps JSON-Schema Draft-4 compilation/validation for plan,
// activity, and workflow inputs. Compilation happens once, at Plan load
// time; validation happens many times, at runtime, against whatever
// document a particular event or template render produced.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON-Schema Draft-4 document. The zero value is not
// usable; construct with Compile.
type Schema struct {
	raw    map[string]any
	loaded *gojsonschema.Schema
}

// Compile parses and compiles a Draft-4 schema document. A nil/empty doc is
// not an error: it means "no constraint", and Validate on a nil *Schema
// always succeeds.
func Compile(doc map[string]any) (*Schema, error) {
	if len(doc) == 0 {
		return nil, nil
	}
	loader := gojsonschema.NewGoLoader(withDraft4(doc))
	loaded, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{raw: doc, loaded: loaded}, nil
}

// withDraft4 stamps $schema onto a copy of doc when the caller didn't
// specify one, so documents written the way spec.md describes ("a
// JSON-Schema Draft-4 document" with no explicit $schema keyword) are
// still validated against draft-4 semantics rather than gojsonschema's
// default (which infers the latest draft it knows).
func withDraft4(doc map[string]any) map[string]any {
	if _, ok := doc["$schema"]; ok {
		return doc
	}
	out := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["$schema"] = "http://json-schema.org/draft-04/schema#"
	return out
}

// Validate checks doc against the compiled schema. A nil receiver or a
// receiver compiled from an empty schema always succeeds: "optional
// input_schema" per spec.md §3 means absence imposes no constraint.
func (s *Schema) Validate(doc any) error {
	if s == nil || s.loaded == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document for validation: %w", err)
	}
	result, err := s.loaded.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("schema validation failed: %s", strings.Join(msgs, "; "))
}
