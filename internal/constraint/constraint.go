/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package constraint keeps element geometry inside zone bounds and above the
// minimum size. All functions are pure.
package constraint

import (
	"math"

	"zonecanvas/internal/domain"
)

// MinSize is the smallest width or height an element may be committed with.
const MinSize = 5.0

// Point is a proposed top-left position.
type Point struct{ X, Y float64 }

// Size is a width/height pair.
type Size struct{ Width, Height float64 }

// Box is a position plus size, as reported by a transform handle.
type Box struct {
	X, Y          float64
	Width, Height float64
}

// ClampPosition keeps a box of the given size inside zone. When the box is
// larger than the zone on an axis, the zone origin wins on that axis.
func ClampPosition(p Point, box Size, z domain.Zone) Point {
	return Point{
		X: clampAxis(p.X, z.X, z.X+z.Width-box.Width),
		Y: clampAxis(p.Y, z.Y, z.Y+z.Height-box.Height),
	}
}

func clampAxis(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ClampSize floors both dimensions at MinSize. There is no upper bound.
func ClampSize(s Size) Size {
	return Size{Width: math.Max(MinSize, s.Width), Height: math.Max(MinSize, s.Height)}
}

// BakeScale folds scale factors into explicit width and height, then applies
// the size floor. The position is returned unchanged.
func BakeScale(b Box, scaleX, scaleY float64) Box {
	s := ClampSize(Size{Width: b.Width * scaleX, Height: b.Height * scaleY})
	return Box{X: b.X, Y: b.Y, Width: s.Width, Height: s.Height}
}
