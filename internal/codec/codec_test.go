/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package codec

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"zonecanvas/internal/domain"
)

func sample() domain.Elements {
	return domain.Elements{
		domain.Image{ID: "1", Src: "https://example.com/a.png", Geometry: domain.Geometry{X: 70, Y: 70, Width: 100, Height: 100}},
		domain.Text{ID: "2", Text: "Hello", FontSize: 20, Geometry: domain.Geometry{X: 80, Y: 80, Width: 150, Height: 30, Rotation: 30}},
	}
}

func TestExportPrettyArray(t *testing.T) {
	b, err := Export(sample())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	s := string(b)
	if !strings.HasPrefix(s, "[\n  {\n    \"id\": \"1\",\n    \"type\": \"image\",\n    \"src\"") {
		t.Fatalf("unexpected layout:\n%s", s)
	}
	if strings.Contains(strings.SplitN(s, "}", 2)[0], "rotation") {
		t.Fatalf("zero rotation should be omitted:\n%s", s)
	}
	if !strings.Contains(s, `"rotation": 30`) {
		t.Fatalf("rotation missing:\n%s", s)
	}
}

func TestExportEmpty(t *testing.T) {
	b, err := Export(nil)
	if err != nil || string(b) != "[]" {
		t.Fatalf("got %q %v", b, err)
	}
}

func TestRoundTrip(t *testing.T) {
	in := sample()
	b, err := Export(in)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	out, err := Import(b, Strict)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%#v\nout=%#v", in, out)
	}
}

func TestImportParseError(t *testing.T) {
	_, err := Import([]byte("not json"), Strict)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want ParseError, got %v", err)
	}
	if err.Error() != "Error: Invalid JSON" {
		t.Fatalf("message: %q", err.Error())
	}
}

func TestImportSchemaError(t *testing.T) {
	_, err := Import([]byte(`{"a":1}`), Lenient)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("want SchemaError, got %v", err)
	}
	if err.Error() != "Error: JSON must be an array." {
		t.Fatalf("message: %q", err.Error())
	}
}

func TestImportEmptyArray(t *testing.T) {
	els, err := Import([]byte(" [] "), Strict)
	if err != nil || len(els) != 0 {
		t.Fatalf("got %v %v", els, err)
	}
}

func TestStrictRejectsBadEntries(t *testing.T) {
	in := `[
		{"id":"1","type":"image","src":"a","x":0,"y":0,"width":10,"height":10},
		{"id":"2","type":"circle","x":0,"y":0,"width":1,"height":1},
		{"id":"1","type":"text","text":"t","fontSize":10,"x":0,"y":0,"width":1,"height":1},
		{"id":"4","type":"text","x":0,"y":0,"width":1,"height":1}
	]`
	_, err := Import([]byte(in), Strict)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	var idx []int
	for _, p := range ve.Problems {
		idx = append(idx, p.Index)
	}
	if !reflect.DeepEqual(idx, []int{1, 2, 3}) {
		t.Fatalf("problem indices %v (%v)", idx, err)
	}
}

func TestStrictEnforcesMinimumSize(t *testing.T) {
	for _, wh := range []string{`"width":0,"height":30`, `"width":150,"height":4.9`} {
		in := `[{"id":"1","type":"text","text":"t","fontSize":20,"x":0,"y":0,` + wh + `}]`
		var ve *ValidationError
		if _, err := Import([]byte(in), Strict); !errors.As(err, &ve) {
			t.Fatalf("%s: want ValidationError, got %v", wh, err)
		}
	}
	in := `[{"id":"1","type":"image","src":"a.png","x":0,"y":0,"width":5,"height":5}]`
	if _, err := Import([]byte(in), Strict); err != nil {
		t.Fatalf("minimum size rejected: %v", err)
	}
}

func TestLenientKeepsRaw(t *testing.T) {
	in := `[{"id":"1","type":"circle","r":3},{"id":"2","type":"text","text":"t","fontSize":10,"x":1,"y":2,"width":30,"height":40}]`
	els, err := Import([]byte(in), Lenient)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("len=%d", len(els))
	}
	if _, ok := els[0].(domain.Raw); !ok {
		t.Fatalf("first should be raw: %#v", els[0])
	}
	if _, ok := els[1].(domain.Text); !ok {
		t.Fatalf("second should be text: %#v", els[1])
	}
	b, err := Export(els)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(string(b), `"r": 3`) {
		t.Fatalf("raw entry not preserved:\n%s", b)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy(""); err != nil || p != Strict {
		t.Fatalf("empty: %v %v", p, err)
	}
	if p, err := ParsePolicy("Lenient"); err != nil || p != Lenient {
		t.Fatalf("lenient: %v %v", p, err)
	}
	if _, err := ParsePolicy("loose"); err == nil {
		t.Fatalf("expected error")
	}
}
