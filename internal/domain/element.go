/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model of a composition: zones, and the
// elements (images, text blocks) placed on the canvas.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ZoneKey identifies a zone ("A", "B", "C", ...).
type ZoneKey string

// Zone is a fixed rectangle in canvas coordinates that constrains where an
// element may be positioned.
type Zone struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Kind is the element type discriminator used on the wire.
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Geometry is shared by every element variant. X/Y is the top-left corner,
// Rotation is clockwise degrees around that corner.
type Geometry struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation,omitempty"`
}

// Element is a placed item. The set of implementations is closed: Image, Text
// and Raw (an imported entry kept verbatim).
type Element interface {
	ElementID() string
	Kind() Kind
	Geom() Geometry
	// WithGeom returns a copy with the same id and variant and new geometry.
	WithGeom(g Geometry) Element
	isElement()
}

// Image places a bitmap referenced by Src (URL or data URI).
type Image struct {
	ID  string
	Src string
	Geometry
}

func (im Image) ElementID() string { return im.ID }
func (Image) Kind() Kind { return KindImage }
func (im Image) Geom() Geometry { return im.Geometry }
func (im Image) WithGeom(g Geometry) Element { im.Geometry = g; return im }
func (Image) isElement() {}

// Text places a single text block.
type Text struct {
	ID       string
	Text     string
	FontSize float64
	Geometry
}

func (tx Text) ElementID() string { return tx.ID }
func (Text) Kind() Kind { return KindText }
func (tx Text) Geom() Geometry { return tx.Geometry }
func (tx Text) WithGeom(g Geometry) Element { tx.Geometry = g; return tx }
func (Text) isElement() {}

// Raw is an imported entry that did not match a known variant. It is kept
// byte-for-byte so it survives an export, and renderers skip it.
type Raw struct {
	ID   string
	Type Kind
	Data json.RawMessage
}

func (r Raw) ElementID() string { return r.ID }
func (r Raw) Kind() Kind { return r.Type }
func (r Raw) Geom() Geometry { return Geometry{} }

// WithGeom is a no-op for raw entries; their payload is never rewritten.
func (r Raw) WithGeom(Geometry) Element { return r }
func (Raw) isElement() {}

type imageWire struct {
	ID   string `json:"id"`
	Type Kind   `json:"type"`
	Src  string `json:"src"`
	Geometry
}

type textWire struct {
	ID       string  `json:"id"`
	Type     Kind    `json:"type"`
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
	Geometry
}

func (im Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(imageWire{ID: im.ID, Type: KindImage, Src: im.Src, Geometry: im.Geometry})
}

func (tx Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(textWire{ID: tx.ID, Type: KindText, Text: tx.Text, FontSize: tx.FontSize, Geometry: tx.Geometry})
}

func (r Raw) MarshalJSON() ([]byte, error) {
	if len(r.Data) == 0 {
		return []byte("null"), nil
	}
	return r.Data, nil
}

// Elements is the ordered element list; order is z-order (later draws on top).
type Elements []Element

// UnmarshalJSON decodes a JSON array, dispatching each entry on its "type".
// Entries with an unknown type or an undecodable shape become Raw.
func (es *Elements) UnmarshalJSON(b []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	out := make(Elements, 0, len(items))
	for _, it := range items {
		out = append(out, DecodeElement(it))
	}
	*es = out
	return nil
}

// DecodeElement decodes one interchange entry. It never fails: anything that
// is not a well-formed image or text element is returned as Raw.
func DecodeElement(b json.RawMessage) Element {
	var head struct {
		ID   any  `json:"id"`
		Type Kind `json:"type"`
	}
	raw := Raw{Data: append(json.RawMessage(nil), bytes.TrimSpace(b)...)}
	if err := json.Unmarshal(b, &head); err != nil {
		return raw
	}
	if s, ok := head.ID.(string); ok {
		raw.ID = s
	} else if head.ID != nil {
		raw.ID = fmt.Sprint(head.ID)
	}
	raw.Type = head.Type
	switch head.Type {
	case KindImage:
		var w imageWire
		if err := json.Unmarshal(b, &w); err != nil || !isString(head.ID) {
			return raw
		}
		return Image{ID: w.ID, Src: w.Src, Geometry: w.Geometry}
	case KindText:
		var w textWire
		if err := json.Unmarshal(b, &w); err != nil || !isString(head.ID) {
			return raw
		}
		return Text{ID: w.ID, Text: w.Text, FontSize: w.FontSize, Geometry: w.Geometry}
	default:
		return raw
	}
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

// SameVariant reports whether a and b are the same element variant.
func SameVariant(a, b Element) bool {
	switch a.(type) {
	case Image:
		_, ok := b.(Image)
		return ok
	case Text:
		_, ok := b.(Text)
		return ok
	case Raw:
		_, ok := b.(Raw)
		return ok
	}
	return false
}
