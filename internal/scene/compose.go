/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene turns editor state into an ordered list of drawables for a
// rendering surface, and answers which element lies under a pointer.
package scene

import (
	"zonecanvas/internal/domain"
	"zonecanvas/internal/vector"
	"zonecanvas/internal/zone"
)

// Layer orders drawables; lower layers are drawn first.
type Layer int

const (
	LayerBackground Layer = iota
	LayerZone
	LayerElement
	LayerHandle
)

// Handle identifies a transform handle around the selected element.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopCenter
	HandleTopRight
	HandleMiddleLeft
	HandleMiddleRight
	HandleBottomLeft
	HandleBottomCenter
	HandleBottomRight
	HandleRotate
	HandleBorder
)

// HandleSize is the edge length of a resize anchor in canvas pixels.
const HandleSize = 10

// RotateOffset is how far above the top edge the rotate anchor sits.
const RotateOffset = 30

// Frame is everything Compose needs for one paint.
type Frame struct {
	Width, Height float64
	Background    string
	Zones         *zone.Registry
	Active        domain.ZoneKey
	Elements      []domain.Element
	Selected      string
}

// Drawable is one primitive for the rendering surface. Node carries geometry
// in local coordinates plus the transform to canvas space.
type Drawable struct {
	Layer   Layer
	Node    vector.Node
	ID      string // element id for element and handle layers
	Zone    domain.ZoneKey
	Active  bool // zone layer: this is the active zone
	Element domain.Element
	Handle  Handle
	Source  string // background layer: image URL
}

// Interactive reports whether pointer events may target d.
func (d Drawable) Interactive() bool {
	return d.Layer == LayerElement || d.Layer == LayerHandle
}

var (
	zoneStroke       = vector.Stroke{Color: vector.Gray, Width: 1, Dash: []float32{4, 4}, Enabled: true}
	activeZoneStroke = vector.Line(vector.Highlight, 2)
	handleFill       = vector.Solid(vector.White)
	handleStroke     = vector.Line(vector.Highlight, 1)
)

// Compose returns drawables in paint order: background, zone outlines,
// elements in store order, then the handles of the selected element.
// Entries the surface cannot draw (domain.Raw) are skipped.
func Compose(f Frame) []Drawable {
	out := make([]Drawable, 0, len(f.Elements)+16)
	out = append(out, Drawable{
		Layer:  LayerBackground,
		Node:   vector.NewRect(vector.R(0, 0, float32(f.Width), float32(f.Height)), vector.Solid(vector.White), vector.Stroke{}),
		Source: f.Background,
	})
	if f.Zones != nil {
		for _, k := range f.Zones.Keys() {
			z, _ := f.Zones.Lookup(k)
			s := zoneStroke
			if k == f.Active {
				s = activeZoneStroke
			}
			out = append(out, Drawable{
				Layer:  LayerZone,
				Node:   vector.NewRect(vector.R(float32(z.X), float32(z.Y), float32(z.Width), float32(z.Height)), vector.Fill{}, s),
				Zone:   k,
				Active: k == f.Active,
			})
		}
	}
	var sel domain.Element
	for _, el := range f.Elements {
		if _, raw := el.(domain.Raw); raw {
			continue
		}
		g := el.Geom()
		n := vector.NewRect(vector.R(0, 0, float32(g.Width), float32(g.Height)), vector.Fill{}, vector.Stroke{})
		n.SetTransform(vector.Place(g.X, g.Y, g.Rotation))
		out = append(out, Drawable{Layer: LayerElement, Node: n, ID: el.ElementID(), Element: el})
		if f.Selected != "" && el.ElementID() == f.Selected {
			sel = el
		}
	}
	if sel != nil {
		out = append(out, handles(sel)...)
	}
	return out
}

func handles(el domain.Element) []Drawable {
	g := el.Geom()
	xf := vector.Place(g.X, g.Y, g.Rotation)
	w, h := float32(g.Width), float32(g.Height)
	id := el.ElementID()

	border := vector.NewRect(vector.R(0, 0, w, h), vector.Fill{}, handleStroke)
	border.SetTransform(xf)
	out := []Drawable{{Layer: LayerHandle, Node: border, ID: id, Element: el, Handle: HandleBorder}}

	const hs = HandleSize
	anchors := []struct {
		h    Handle
		x, y float32
	}{
		{HandleTopLeft, 0, 0}, {HandleTopCenter, w / 2, 0}, {HandleTopRight, w, 0},
		{HandleMiddleLeft, 0, h / 2}, {HandleMiddleRight, w, h / 2},
		{HandleBottomLeft, 0, h}, {HandleBottomCenter, w / 2, h}, {HandleBottomRight, w, h},
	}
	for _, a := range anchors {
		n := vector.NewRect(vector.R(a.x-hs/2, a.y-hs/2, hs, hs), handleFill, handleStroke)
		n.SetTransform(xf)
		out = append(out, Drawable{Layer: LayerHandle, Node: n, ID: id, Element: el, Handle: a.h})
	}
	rot := vector.NewEllipse(vector.R(w/2-hs/2, -RotateOffset-hs/2, hs, hs), handleFill, handleStroke)
	rot.SetTransform(xf)
	out = append(out, Drawable{Layer: LayerHandle, Node: rot, ID: id, Element: el, Handle: HandleRotate})
	return out
}

// HitTest returns the id of the top-most element under p. Background and
// zone hits report ok=false, which callers treat as a background click.
// Handles count as their element.
func HitTest(ds []Drawable, p vector.Pt) (id string, ok bool) {
	for i := len(ds) - 1; i >= 0; i-- {
		d := ds[i]
		if !d.Interactive() || d.Handle == HandleBorder {
			continue
		}
		if d.Node.Hit(p) {
			return d.ID, true
		}
	}
	return "", false
}

// HandleAt returns the transform handle under p, if any.
func HandleAt(ds []Drawable, p vector.Pt) (Handle, string, bool) {
	for i := len(ds) - 1; i >= 0; i-- {
		d := ds[i]
		if d.Layer != LayerHandle || d.Handle == HandleBorder {
			continue
		}
		if d.Node.Hit(p) {
			return d.Handle, d.ID, true
		}
	}
	return HandleNone, "", false
}
