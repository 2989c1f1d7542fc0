/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutWrapsIntoWidth(t *testing.T) {
	box := Layout(BasicProvider{}, FontSpec{}, "Hello world from Go", 50)
	if len(box.Lines) < 2 {
		t.Fatalf("expected wrapping into multiple lines, got %d", len(box.Lines))
	}
	for _, ln := range box.Lines {
		if ln.Width > 50 && len(ln.Text) > 0 && containsSpace(ln.Text) {
			t.Fatalf("line %q exceeds width: %v", ln.Text, ln.Width)
		}
	}
	if box.Height != float32(len(box.Lines))*box.Metrics.LineHeight() {
		t.Fatalf("height %v does not match %d lines", box.Height, len(box.Lines))
	}
}

func containsSpace(s string) bool {
	for _, r := range s {
		if r == ' ' {
			return true
		}
	}
	return false
}

func TestLayoutNoWrapAndNewlines(t *testing.T) {
	box := Layout(nil, FontSpec{}, "one two\nthree", 0)
	if len(box.Lines) != 2 || box.Lines[0].Text != "one two" || box.Lines[1].Text != "three" {
		t.Fatalf("unexpected lines %+v", box.Lines)
	}
}

func TestMeasureDeterministic(t *testing.T) {
	w1, h1 := Measure(BasicProvider{}, FontSpec{}, "ABC")
	if w1 != 21 || h1 <= 0 {
		t.Fatalf("basic face is 7px wide per glyph, got w=%v h=%v", w1, h1)
	}
}

func TestOTProviderUsesGoRegular(t *testing.T) {
	p := OTProvider{Lib: WithDefault()}
	_, small := p.Resolve(FontSpec{SizePx: 10})
	_, big := p.Resolve(FontSpec{Family: "Unknown", SizePx: 40})
	if big.Ascent <= small.Ascent {
		t.Fatalf("larger size should have larger ascent: %v vs %v", big.Ascent, small.Ascent)
	}
	w, _ := Measure(p, FontSpec{SizePx: 20}, "Hello")
	if w <= 0 {
		t.Fatalf("expected positive width")
	}
}

func TestLoadTTFErrors(t *testing.T) {
	fl := NewFontLibrary()
	if err := fl.LoadTTF("X", filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Fatalf("expected read error")
	}
	bad := filepath.Join(t.TempDir(), "bad.ttf")
	if err := os.WriteFile(bad, []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fl.LoadTTF("X", bad); err == nil {
		t.Fatalf("expected parse error")
	}
	// empty library falls back to the basic face
	_, m := OTProvider{Lib: fl}.Resolve(FontSpec{SizePx: 30})
	if m.Ascent != 11 {
		t.Fatalf("expected basicfont fallback metrics, got %+v", m)
	}
}
