/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

// Node is a drawable shape with its own transform, styling, bounds and
// hit-testing. Geometry is defined in local coordinates before transform.
type Node interface {
	Local() Rect
	Bounds() Rect
	Transform() Affine2D
	SetTransform(Affine2D)
	Fill() Fill
	Stroke() Stroke
	Hit(p Pt) bool
}

type baseNode struct {
	xf     Affine2D
	fill   Fill
	stroke Stroke
	rect   Rect
}

func (b *baseNode) Local() Rect             { return b.rect }
func (b *baseNode) Transform() Affine2D     { return b.xf }
func (b *baseNode) SetTransform(m Affine2D) { b.xf = m }
func (b *baseNode) Fill() Fill              { return b.fill }
func (b *baseNode) Stroke() Stroke          { return b.stroke }
func (b *baseNode) Bounds() Rect            { return b.xf.Bounds(b.rect) }

// RectNode is a rectangle in local space.
type RectNode struct{ baseNode }

func NewRect(r Rect, f Fill, s Stroke) *RectNode {
	return &RectNode{baseNode{xf: Identity, fill: f, stroke: s, rect: r}}
}

func (n *RectNode) Hit(p Pt) bool {
	return n.rect.Contains(n.xf.Invert().Apply(p))
}

// EllipseNode is an ellipse inscribed in its local rect.
type EllipseNode struct{ baseNode }

func NewEllipse(r Rect, f Fill, s Stroke) *EllipseNode {
	return &EllipseNode{baseNode{xf: Identity, fill: f, stroke: s, rect: r}}
}

func (n *EllipseNode) Hit(p Pt) bool {
	q := n.xf.Invert().Apply(p)
	c := n.rect.Center()
	rx, ry := n.rect.W/2, n.rect.H/2
	if rx == 0 || ry == 0 {
		return false
	}
	dx := (q.X - c.X) / rx
	dy := (q.Y - c.Y) / ry
	return dx*dx+dy*dy <= 1
}
