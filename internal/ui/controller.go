/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"image"
	"sync"

	"zonecanvas/internal/assets"
	"zonecanvas/internal/constraint"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/editor"
	"zonecanvas/internal/scene"
	"zonecanvas/internal/vector"
)

type gestureKind int

const (
	gestureMove gestureKind = iota + 1
	gestureResize
	gestureRotate
)

// gesture is an in-flight pointer drag. cur is the live geometry shown while
// dragging; the store only changes when the gesture ends.
type gesture struct {
	kind   gestureKind
	id     string
	handle scene.Handle
	start  domain.Geometry
	grab   vector.Pt
	cur    domain.Geometry
	xf     scene.Transform
}

// Controller turns pointer input in canvas coordinates into editor calls. It
// holds no toolkit types so the desktop widget stays a thin adapter.
type Controller struct {
	Session    *editor.Session
	Width      float64
	Height     float64
	Background string

	mu sync.Mutex
	g  *gesture
}

// Frame returns what to paint now, including the live geometry of a drag.
func (c *Controller) Frame() scene.Frame {
	els := c.Session.Elements()
	sel, _ := c.Session.Selection()
	c.mu.Lock()
	g := c.g
	c.mu.Unlock()
	if g != nil {
		for i, el := range els {
			if el.ElementID() == g.id {
				els[i] = el.WithGeom(g.cur)
			}
		}
	}
	return scene.Frame{
		Width:      c.Width,
		Height:     c.Height,
		Background: c.Background,
		Zones:      c.Session.Zones(),
		Active:     c.Session.ActiveZone(),
		Elements:   els,
		Selected:   sel,
	}
}

// Dragging reports whether a gesture is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.g != nil
}

// Tap selects the element under p, or deselects on a background click.
// Taps on a handle of the selection keep it selected.
func (c *Controller) Tap(p vector.Pt) {
	ds := scene.Compose(c.Frame())
	if _, _, ok := scene.HandleAt(ds, p); ok {
		return
	}
	if id, ok := scene.HitTest(ds, p); ok {
		c.Session.Select(id)
		return
	}
	c.Session.ClickBackground()
}

// Drag feeds one pointer position of a drag. The first call decides what the
// gesture does: a handle of the selection resizes or rotates, an element
// moves, the background does nothing.
func (c *Controller) Drag(p vector.Pt) error {
	c.mu.Lock()
	g := c.g
	c.mu.Unlock()
	if g == nil {
		var err error
		if g, err = c.begin(p); g == nil || err != nil {
			return err
		}
	}
	switch g.kind {
	case gestureMove:
		pos, err := c.Session.DragMove(g.id, constraint.Point{X: float64(p.X - g.grab.X), Y: float64(p.Y - g.grab.Y)})
		if err != nil {
			return err
		}
		c.update(func(g *gesture) { g.cur.X, g.cur.Y = pos.X, pos.Y })
	case gestureResize, gestureRotate:
		var t scene.Transform
		if g.kind == gestureResize {
			t = scene.Resize(g.start, g.handle, p)
		} else {
			t = scene.Rotate(g.start, p)
		}
		c.update(func(g *gesture) {
			g.xf = t
			g.cur = domain.Geometry{
				X:        t.X,
				Y:        t.Y,
				Width:    g.start.Width * t.ScaleX,
				Height:   g.start.Height * t.ScaleY,
				Rotation: t.Rotation,
			}
		})
	}
	return nil
}

func (c *Controller) update(fn func(g *gesture)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.g != nil {
		fn(c.g)
	}
}

func (c *Controller) begin(p vector.Pt) (*gesture, error) {
	ds := scene.Compose(c.Frame())
	if h, id, ok := scene.HandleAt(ds, p); ok {
		el, found := c.Session.Element(id)
		if !found {
			return nil, editor.ErrUnknownElement
		}
		if err := c.Session.BeginTransform(id); err != nil {
			return nil, err
		}
		kind := gestureResize
		if h == scene.HandleRotate {
			kind = gestureRotate
		}
		g0 := el.Geom()
		g := &gesture{kind: kind, id: id, handle: h, start: g0, cur: g0,
			xf: scene.Transform{X: g0.X, Y: g0.Y, Rotation: g0.Rotation, ScaleX: 1, ScaleY: 1}}
		c.mu.Lock()
		c.g = g
		c.mu.Unlock()
		return g, nil
	}
	id, ok := scene.HitTest(ds, p)
	if !ok {
		return nil, nil
	}
	el, found := c.Session.Element(id)
	if !found {
		return nil, editor.ErrUnknownElement
	}
	if err := c.Session.BeginDrag(id); err != nil {
		return nil, err
	}
	g0 := el.Geom()
	g := &gesture{
		kind:  gestureMove,
		id:    id,
		start: g0,
		cur:   g0,
		grab:  vector.Pt{X: p.X - float32(g0.X), Y: p.Y - float32(g0.Y)},
	}
	c.mu.Lock()
	c.g = g
	c.mu.Unlock()
	return g, nil
}

// DragEnd commits the gesture. It returns nil when no gesture was active.
func (c *Controller) DragEnd() (domain.Element, error) {
	c.mu.Lock()
	g := c.g
	c.g = nil
	c.mu.Unlock()
	if g == nil {
		return nil, nil
	}
	if g.kind == gestureMove {
		return c.Session.EndDrag(g.id, constraint.Point{X: g.cur.X, Y: g.cur.Y})
	}
	return c.Session.EndTransform(g.id, editor.TransformResult{
		X:        g.xf.X,
		Y:        g.xf.Y,
		Rotation: g.xf.Rotation,
		ScaleX:   g.xf.ScaleX,
		ScaleY:   g.xf.ScaleY,
	})
}

// LiveImages resolves images for on-screen painting without blocking. Until a
// bitmap is decoded the painter gets nothing and draws a placeholder; OnReady
// runs once it lands. Failed sources stay empty.
type LiveImages struct {
	Loader  *assets.Loader
	OnReady func()
}

func (li LiveImages) Wait(_ context.Context, src string) (image.Image, bool) {
	if src == "" {
		return nil, false
	}
	img, st := li.Loader.Get(src)
	switch st {
	case assets.Ready:
		return img, true
	case assets.Missing:
		li.Loader.Request(src, li.OnReady)
	}
	return nil, false
}

// Pending reports whether src is still loading or not requested yet.
func (li LiveImages) Pending(src string) bool {
	_, st := li.Loader.Get(src)
	return st == assets.Missing || st == assets.Pending
}
