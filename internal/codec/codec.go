/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package codec converts element lists to and from the JSON interchange
// format: a pretty-printed array of element objects.
package codec

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
	"zonecanvas/internal/domain"
)

//go:embed element.schema.json
var elementSchema []byte

// Policy controls how array entries are checked on import.
type Policy int

const (
	// Strict rejects the whole import when any entry fails validation.
	Strict Policy = iota
	// Lenient keeps entries that fail validation as domain.Raw.
	Lenient
)

func (p Policy) String() string {
	if p == Lenient {
		return "lenient"
	}
	return "strict"
}

// ParsePolicy maps a config value to a Policy; empty means Strict.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Strict, fmt.Errorf("invalid import validation policy %q (want strict|lenient)", s)
}

// ParseError reports input that is not JSON at all.
type ParseError struct{ Err error }

func (e *ParseError) Error() string { return "Error: Invalid JSON" }
func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports valid JSON whose top level is not an array.
type SchemaError struct{ Got string }

func (e *SchemaError) Error() string { return "Error: JSON must be an array." }

// Problem describes one rejected array entry.
type Problem struct {
	Index  int
	Reason string
}

// ValidationError lists the entries that failed strict validation.
type ValidationError struct{ Problems []Problem }

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, fmt.Sprintf("#%d: %s", p.Index, p.Reason))
	}
	return "Error: invalid elements (" + strings.Join(parts, "; ") + ")"
}

// Export renders els as a JSON array with two-space indentation.
func Export(els []domain.Element) ([]byte, error) {
	if els == nil {
		els = []domain.Element{}
	}
	b, err := json.MarshalIndent(els, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode elements: %w", err)
	}
	return b, nil
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(elementSchema))
	})
	return schema, schemaErr
}

// Import parses text as an interchange array. It returns *ParseError,
// *SchemaError or, under Strict, *ValidationError.
func Import(text []byte, p Policy) (domain.Elements, error) {
	var top any
	if err := json.Unmarshal(text, &top); err != nil {
		return nil, &ParseError{Err: err}
	}
	if _, ok := top.([]any); !ok {
		return nil, &SchemaError{Got: fmt.Sprintf("%T", top)}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(text, &items); err != nil {
		return nil, &ParseError{Err: err}
	}
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("load element schema: %w", err)
	}

	out := make(domain.Elements, 0, len(items))
	var problems []Problem
	seen := make(map[string]int, len(items))
	for i, it := range items {
		res, err := sch.Validate(gojsonschema.NewBytesLoader(it))
		if err != nil {
			return nil, &ParseError{Err: err}
		}
		el := domain.DecodeElement(it)
		reason := ""
		if !res.Valid() {
			reason = describe(res.Errors())
		} else if prev, dup := seen[el.ElementID()]; dup {
			reason = fmt.Sprintf("duplicate id %q (also at #%d)", el.ElementID(), prev)
		}
		if reason == "" {
			seen[el.ElementID()] = i
			out = append(out, el)
			continue
		}
		if p == Strict {
			problems = append(problems, Problem{Index: i, Reason: reason})
			continue
		}
		if _, ok := el.(domain.Raw); !ok {
			el = domain.Raw{ID: el.ElementID(), Type: el.Kind(), Data: append(json.RawMessage(nil), it...)}
		}
		out = append(out, el)
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return out, nil
}

func describe(errs []gojsonschema.ResultError) string {
	if len(errs) == 0 {
		return "does not match element schema"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.String())
	}
	return strings.Join(msgs, ", ")
}
