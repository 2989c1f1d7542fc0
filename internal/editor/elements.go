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
	"fmt"
	"log/slog"
	"strings"

	"zonecanvas/internal/domain"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/store"
)

var (
	// ErrEmptyText is returned by AddText for blank input; nothing is added.
	ErrEmptyText = errors.New("text is empty")
	// ErrEmptySource is returned by AddImage for a blank source; nothing is added.
	ErrEmptySource = errors.New("image source is empty")
)

// AddImage places a 100x100 image inset from the active zone origin. The new
// element is not selected.
func (s *Session) AddImage(src string) (domain.Element, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrEmptySource
	}
	return s.add("image", func(id string, z domain.Zone) domain.Element {
		return domain.Image{ID: id, Src: src, Geometry: domain.Geometry{
			X: z.X + ImageInset, Y: z.Y + ImageInset, Width: ImageSize, Height: ImageSize,
		}}
	})
}

// AddText places a text block inset from the active zone origin. Blank text
// is ignored, as when the input prompt is cancelled.
func (s *Session) AddText(text string) (domain.Element, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	return s.add("text", func(id string, z domain.Zone) domain.Element {
		return domain.Text{ID: id, Text: text, FontSize: TextFontSize, Geometry: domain.Geometry{
			X: z.X + TextInset, Y: z.Y + TextInset, Width: TextWidth, Height: TextHeight,
		}}
	})
}

func (s *Session) add(kind string, build func(id string, z domain.Zone) domain.Element) (domain.Element, error) {
	s.mu.Lock()
	z, err := s.zones.Lookup(s.active)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.pushLocked("add")
	el := build(s.ids.NextFor(s.store), z)
	if err := s.store.Append(el); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("add %s: %w", kind, err)
	}
	zoneKey := s.active
	s.mu.Unlock()
	s.log.Info("element added", applog.Element(el.ElementID(), kind), slog.String("zone", string(zoneKey)))
	s.event("element_added", map[string]any{"kind": kind})
	s.changed()
	return el, nil
}

// Layer is one row of the layer panel. Rows mirror store order: row i is
// store index i, so index 0 (drawn first, at the back) is listed first.
type Layer struct {
	Index    int
	ID       string
	Label    string
	Selected bool
	CanUp    bool
	CanDown  bool
}

// Label returns the panel caption for el, e.g. "Image #1712345678901".
func Label(el domain.Element) string {
	switch el.(type) {
	case domain.Image:
		return "Image #" + el.ElementID()
	case domain.Text:
		return "Text #" + el.ElementID()
	}
	k := string(el.Kind())
	if k == "" {
		k = "element"
	}
	return strings.ToUpper(k[:1]) + k[1:] + " #" + el.ElementID()
}

// Layers returns the layer panel rows.
func (s *Session) Layers() []Layer {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.store.All()
	rows := make([]Layer, len(all))
	for i, el := range all {
		rows[i] = Layer{
			Index:    i,
			ID:       el.ElementID(),
			Label:    Label(el),
			Selected: el.ElementID() != "" && el.ElementID() == s.selected,
			CanUp:    i > 0,
			CanDown:  i < len(all)-1,
		}
	}
	return rows
}

// MoveLayer swaps the element at index with its neighbour. Out-of-range
// moves are no-ops and return false.
func (s *Session) MoveLayer(index int, dir store.Direction) bool {
	s.mu.Lock()
	if index < 0 || index >= s.store.Len() {
		s.mu.Unlock()
		return false
	}
	before, err := s.snapshotLocked()
	if !s.store.SwapAdjacent(index, dir) {
		s.mu.Unlock()
		return false
	}
	if err == nil {
		s.pushBlobLocked("layer", before)
	}
	s.mu.Unlock()
	s.changed()
	return true
}
