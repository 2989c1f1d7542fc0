/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"math"

	"zonecanvas/internal/constraint"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/vector"
)

// Transform is the handle state reported when a resize or rotate gesture
// ends: the new origin and rotation, plus scale relative to the start size.
type Transform struct {
	X, Y           float64
	Rotation       float64
	ScaleX, ScaleY float64
}

// Resize computes the transform for dragging handle h of an element that
// started at g to canvas point p. The opposite edge stays put. Sizes below
// the minimum are held at the minimum instead of flipping.
func Resize(g domain.Geometry, h Handle, p vector.Pt) Transform {
	xf := vector.Place(g.X, g.Y, g.Rotation)
	q := xf.Invert().Apply(p)
	w, ht := float32(g.Width), float32(g.Height)
	minSize := float32(constraint.MinSize)

	left, top, right, bottom := float32(0), float32(0), w, ht
	switch h {
	case HandleTopLeft, HandleMiddleLeft, HandleBottomLeft:
		left = min(q.X, right-minSize)
	case HandleTopRight, HandleMiddleRight, HandleBottomRight:
		right = max(q.X, left+minSize)
	}
	switch h {
	case HandleTopLeft, HandleTopCenter, HandleTopRight:
		top = min(q.Y, bottom-minSize)
	case HandleBottomLeft, HandleBottomCenter, HandleBottomRight:
		bottom = max(q.Y, top+minSize)
	}
	origin := xf.Apply(vector.Pt{X: left, Y: top})
	return Transform{
		X:        float64(origin.X),
		Y:        float64(origin.Y),
		Rotation: g.Rotation,
		ScaleX:   ratio(float64(right-left), g.Width),
		ScaleY:   ratio(float64(bottom-top), g.Height),
	}
}

func ratio(n, d float64) float64 {
	if d == 0 {
		return 1
	}
	return n / d
}

// Rotate computes the transform for dragging the rotate handle to p. The
// element turns about its centre; the pointer straight above the centre is
// 0 degrees. The stored pivot stays the top-left corner, so the origin is
// moved to keep the centre fixed.
func Rotate(g domain.Geometry, p vector.Pt) Transform {
	half := vector.Pt{X: float32(g.Width / 2), Y: float32(g.Height / 2)}
	c := vector.Place(g.X, g.Y, g.Rotation).Apply(half)
	deg := math.Atan2(float64(p.X-c.X), -float64(p.Y-c.Y)) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	deg = math.Round(deg*100) / 100
	off := vector.Place(0, 0, deg).Apply(half)
	return Transform{
		X:        float64(c.X - off.X),
		Y:        float64(c.Y - off.Y),
		Rotation: deg,
		ScaleX:   1,
		ScaleY:   1,
	}
}
