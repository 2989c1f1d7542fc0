//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// These tests exercise the Fyne canvas widget. They are gated behind the
// "fyne" build tag so headless CI does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"zonecanvas/internal/assets"
)

func newTestCanvas(t *testing.T) (*ZoneCanvas, string) {
	t.Helper()
	test.NewTempApp(t)
	c, id := newController(t)
	zc := NewZoneCanvas(c, assets.NewLoader())
	zc.Resize(zc.MinSize())
	return zc, id
}

func TestZoneCanvas_MinSizeIsLogicalSize(t *testing.T) {
	zc, _ := newTestCanvas(t)
	if sz := zc.MinSize(); sz.Width != 800 || sz.Height != 400 {
		t.Fatalf("MinSize = %v", sz)
	}
}

func TestZoneCanvas_CoordinatesFollowWidgetScale(t *testing.T) {
	zc, _ := newTestCanvas(t)
	zc.Resize(fyne.NewSize(400, 200))
	p := zc.toCanvas(fyne.NewPos(50, 40))
	if p.X != 100 || p.Y != 80 {
		t.Fatalf("toCanvas = %+v; want 100,80", p)
	}
	if pos := zc.toScreen(p); pos.X != 50 || pos.Y != 40 {
		t.Fatalf("toScreen = %+v; want 50,40", pos)
	}
}

func TestZoneCanvas_TapSelects(t *testing.T) {
	zc, id := newTestCanvas(t)
	test.Tap(zc)
	// test.Tap hits the origin which is background.
	if _, ok := zc.ctrl.Session.Selection(); ok {
		t.Fatalf("tap at origin should not select")
	}
	zc.Tapped(&fyne.PointEvent{Position: fyne.NewPos(100, 90)})
	if got, ok := zc.ctrl.Session.Selection(); !ok || got != id {
		t.Fatalf("selection = %q,%v; want %q", got, ok, id)
	}
}

func TestZoneCanvas_OverlayShowsHandlesForSelection(t *testing.T) {
	zc, id := newTestCanvas(t)
	r := test.WidgetRenderer(zc).(*zoneCanvasRenderer)
	base := len(r.Objects())
	zc.ctrl.Session.Select(id)
	r.Refresh()
	// Border (4 lines), 8 anchors and the rotate knob.
	if got := len(r.Objects()) - base; got != 13 {
		t.Fatalf("overlay objects added = %d; want 13", got)
	}
}

func TestZoneCanvas_DragMovesElement(t *testing.T) {
	zc, id := newTestCanvas(t)
	zc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(100, 90)}})
	zc.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(110, 100)}})
	zc.DragEnd()
	el, _ := zc.ctrl.Session.Element(id)
	if g := el.Geom(); g.X != 90 || g.Y != 90 {
		t.Fatalf("geometry after drag = %+v; want 90,90", g)
	}
}
