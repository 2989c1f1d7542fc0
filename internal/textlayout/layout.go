/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and wraps text blocks into the width of a text
// element. Font resolution is behind Provider so renderers and tests can use
// different engines.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name; empty selects the default
	SizePx float32
}

// Metrics provides font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is ascent plus descent plus gap.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Line is one laid out line.
type Line struct {
	Text  string
	Width float32
}

// Box is the result of laying out text into a width.
type Box struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Provider maps a FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests.
// The requested size is ignored.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Layout breaks text on spaces and newlines so no line exceeds maxWidth,
// except a single word wider than maxWidth which gets a line of its own.
// A non-positive maxWidth disables wrapping.
func Layout(p Provider, spec FontSpec, text string, maxWidth float32) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	d := &font.Drawer{Face: face}
	box := Box{Metrics: met}
	add := func(s string) {
		w := advance(d, s)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		if w > box.Width {
			box.Width = w
		}
		box.Height += met.LineHeight()
	}
	for _, para := range strings.Split(text, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			add("")
			continue
		}
		cur := words[0]
		for _, w := range words[1:] {
			next := cur + " " + w
			if maxWidth > 0 && advance(d, next) > maxWidth {
				add(cur)
				cur = w
				continue
			}
			cur = next
		}
		add(cur)
	}
	return box
}

func advance(d *font.Drawer, s string) float32 {
	return fixedToPx(d.MeasureString(s))
}

func fixedToPx(v fixed.Int26_6) float32 { return float32(v) / 64 }

// Measure returns the width and line height of text on a single line.
func Measure(p Provider, spec FontSpec, text string) (w, h float32) {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	return advance(&font.Drawer{Face: face}, text), met.Ascent + met.Descent
}
