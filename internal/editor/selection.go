/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"log/slog"
	"math"

	"zonecanvas/internal/constraint"
	"zonecanvas/internal/domain"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/undo"
)

// ErrNotSelected is returned when a transform starts on an element that
// does not carry the transform handles.
var ErrNotSelected = errors.New("element is not selected")

// ErrNotFinite is returned when a gesture reports NaN or an infinite value.
var ErrNotFinite = errors.New("coordinate is not a finite number")

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// StateOf reports the interaction state of id. Unknown ids are Idle.
func (s *Session) StateOf(id string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == "" || id != s.selected {
		return Idle
	}
	return s.state
}

// Selection returns the selected element id, if any.
func (s *Session) Selection() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected, s.selected != ""
}

// Select makes id the single selected element. Unknown ids are ignored.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	if s.store.IndexOf(id) < 0 {
		s.mu.Unlock()
		return false
	}
	s.selected, s.state = id, Selected
	s.mu.Unlock()
	s.changed()
	return true
}

// ClickBackground handles a pointer press on the stage itself: any
// selection is dropped.
func (s *Session) ClickBackground() {
	s.mu.Lock()
	had := s.selected != ""
	s.selected, s.state = "", Idle
	s.mu.Unlock()
	if had {
		s.changed()
	}
}

// BeginDrag starts moving id. The dragged element becomes the selected one.
func (s *Session) BeginDrag(id string) error {
	s.mu.Lock()
	if s.store.IndexOf(id) < 0 {
		s.mu.Unlock()
		return ErrUnknownElement
	}
	s.pushLocked("drag:" + id)
	s.selected, s.state = id, Transforming
	s.mu.Unlock()
	s.changed()
	return nil
}

// DragMove returns where the element is drawn for a proposed position: the
// proposal clamped to the active zone. The store is not touched.
func (s *Session) DragMove(id string, proposed constraint.Point) (constraint.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.store.Get(id)
	if !ok {
		return proposed, ErrUnknownElement
	}
	return s.clampLocked(el, proposed)
}

// EndDrag commits the final position (clamped again) through the store.
func (s *Session) EndDrag(id string, pos constraint.Point) (domain.Element, error) {
	s.mu.Lock()
	el, ok := s.store.Get(id)
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownElement
	}
	p, err := s.clampLocked(el, pos)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	g := el.Geom()
	g.X, g.Y = p.X, p.Y
	next := el.WithGeom(g)
	s.store.Replace(id, next)
	if s.selected == id {
		s.state = Selected
	}
	s.mu.Unlock()
	s.log.Debug("drag committed", applog.Element(id, string(next.Kind())), slog.Float64("x", p.X), slog.Float64("y", p.Y))
	s.changed()
	return next, nil
}

func (s *Session) clampLocked(el domain.Element, p constraint.Point) (constraint.Point, error) {
	if !finite(p.X, p.Y) {
		return p, ErrNotFinite
	}
	z, err := s.zones.Lookup(s.active)
	if err != nil {
		return p, err
	}
	g := el.Geom()
	return constraint.ClampPosition(p, constraint.Size{Width: g.Width, Height: g.Height}, z), nil
}

// BeginTransform starts a resize or rotate gesture on the selected element.
func (s *Session) BeginTransform(id string) error {
	s.mu.Lock()
	if s.store.IndexOf(id) < 0 {
		s.mu.Unlock()
		return ErrUnknownElement
	}
	if s.selected != id {
		s.mu.Unlock()
		return ErrNotSelected
	}
	s.pushLocked("transform:" + id)
	s.state = Transforming
	s.mu.Unlock()
	s.changed()
	return nil
}

// EndTransform bakes the handle scale into width and height (floored at the
// minimum size), takes position and rotation as reported, and commits.
// A zero scale factor is read as 1.
func (s *Session) EndTransform(id string, r TransformResult) (domain.Element, error) {
	s.mu.Lock()
	el, ok := s.store.Get(id)
	if !ok {
		s.mu.Unlock()
		return nil, ErrUnknownElement
	}
	if !finite(r.X, r.Y, r.Rotation, r.ScaleX, r.ScaleY) {
		s.mu.Unlock()
		return nil, ErrNotFinite
	}
	sx, sy := r.ScaleX, r.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	g := el.Geom()
	b := constraint.BakeScale(constraint.Box{X: r.X, Y: r.Y, Width: g.Width, Height: g.Height}, sx, sy)
	next := el.WithGeom(domain.Geometry{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height, Rotation: r.Rotation})
	s.store.Replace(id, next)
	if s.selected == id {
		s.state = Selected
	}
	s.mu.Unlock()
	s.log.Debug("transform committed", applog.Element(id, string(next.Kind())), slog.Float64("rotation", r.Rotation), slog.Float64("width", b.Width), slog.Float64("height", b.Height))
	s.changed()
	return next, nil
}

func (s *Session) pushLocked(label string) {
	blob, err := s.snapshotLocked()
	if err != nil {
		s.log.Warn("undo snapshot failed", slog.String("label", label), slog.Any("err", err))
		return
	}
	s.hist.Push(undo.Snapshot{Label: label, Blob: blob, TS: s.now()})
}
