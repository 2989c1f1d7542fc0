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

import "testing"

func TestRectNode_HitAndBounds(t *testing.T) {
	n := NewRect(R(0, 0, 100, 50), Solid(White), Line(Black, 1))
	n.SetTransform(Translate(10, 20))
	if !n.Hit(Pt{50 + 10, 25 + 20}) {
		t.Fatalf("expected hit after translation")
	}
	b := n.Bounds()
	if b.X != 10 || b.Y != 20 || b.W != 100 || b.H != 50 {
		t.Fatalf("unexpected bounds: %+v", b)
	}
	if n.Local() != R(0, 0, 100, 50) {
		t.Fatalf("local rect changed")
	}
}

func TestRectNode_RotatedHit(t *testing.T) {
	n := NewRect(R(0, 0, 100, 20), Fill{}, Stroke{})
	n.SetTransform(Place(50, 50, 90))
	// rotated 90deg clockwise the bar hangs down from (50,50) to the left
	if !n.Hit(Pt{40, 100}) {
		t.Fatalf("expected hit inside rotated rect")
	}
	if n.Hit(Pt{100, 55}) {
		t.Fatalf("unrotated footprint should miss")
	}
}

func TestEllipseNode_Hit(t *testing.T) {
	n := NewEllipse(R(0, 0, 100, 100), Solid(White), Stroke{})
	if !n.Hit(Pt{50, 50}) {
		t.Fatalf("center should hit")
	}
	if n.Hit(Pt{2, 2}) {
		t.Fatalf("bbox corner should miss")
	}
	if NewEllipse(R(0, 0, 0, 10), Fill{}, Stroke{}).Hit(Pt{0, 5}) {
		t.Fatalf("degenerate ellipse should never hit")
	}
}
