/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"errors"
	"testing"
	"time"

	"zonecanvas/internal/domain"
)

func img(id string) domain.Image {
	return domain.Image{ID: id, Src: "x.png", Geometry: domain.Geometry{Width: 100, Height: 100}}
}

func ids(s *Store) []string {
	var out []string
	for _, el := range s.All() {
		out = append(out, el.ElementID())
	}
	return out
}

func TestAppendRejectsDuplicateAndEmpty(t *testing.T) {
	s := New()
	if err := s.Append(img("1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(img("1")); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("want ErrDuplicateID, got %v", err)
	}
	if err := s.Append(img("")); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("want ErrEmptyID, got %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len=%d", s.Len())
	}
}

func TestReplaceSameVariantOnly(t *testing.T) {
	s := New(img("1"), domain.Text{ID: "2", Text: "a"})
	moved := img("1")
	moved.X = 40
	if !s.Replace("1", moved) {
		t.Fatalf("replace should succeed")
	}
	if el, _ := s.Get("1"); el.Geom().X != 40 {
		t.Fatalf("replace not applied: %#v", el)
	}
	if s.Replace("2", domain.Image{ID: "2"}) {
		t.Fatalf("variant change must be rejected")
	}
	if s.Replace("nope", img("nope")) {
		t.Fatalf("unknown id must be a no-op")
	}
	if s.Replace("1", img("3")) {
		t.Fatalf("id mismatch must be rejected")
	}
	if got := ids(s); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("order changed: %v", got)
	}
}

func TestSwapAdjacent(t *testing.T) {
	s := New(img("a"), img("b"), img("c"))
	if !s.SwapAdjacent(1, Up) {
		t.Fatalf("swap up failed")
	}
	if got := ids(s); got[0] != "b" || got[1] != "a" {
		t.Fatalf("after up: %v", got)
	}
	if !s.SwapAdjacent(1, Down) {
		t.Fatalf("swap down failed")
	}
	if got := ids(s); got[1] != "c" || got[2] != "a" {
		t.Fatalf("after down: %v", got)
	}
	if s.SwapAdjacent(0, Up) || s.SwapAdjacent(2, Down) || s.SwapAdjacent(7, Up) || s.SwapAdjacent(-1, Down) {
		t.Fatalf("out-of-range swaps must be no-ops")
	}
	if got := ids(s); got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Fatalf("no-op swaps changed order: %v", got)
	}
}

func TestAllIsSnapshot(t *testing.T) {
	s := New(img("1"))
	all := s.All()
	all[0] = img("zzz")
	if el, ok := s.Get("1"); !ok || el.ElementID() != "1" {
		t.Fatalf("All leaked backing array")
	}
}

func TestParseDirection(t *testing.T) {
	if d, err := ParseDirection("down"); err != nil || d != Down {
		t.Fatalf("down: %v %v", d, err)
	}
	if _, err := ParseDirection("left"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestIDGeneratorBumpsOnCollision(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := &IDGenerator{Now: func() time.Time { return fixed }}
	s := New()
	a := g.NextFor(s)
	_ = s.Append(img(a))
	b := g.NextFor(s)
	if a != "1700000000000" || b != "1700000000001" {
		t.Fatalf("got %s %s", a, b)
	}
	_ = s.Append(img("1700000000003"))
	g2 := &IDGenerator{Now: func() time.Time { return time.UnixMilli(1700000000003) }}
	if c := g2.NextFor(s); c != "1700000000004" {
		t.Fatalf("taken id not skipped: %s", c)
	}
}
