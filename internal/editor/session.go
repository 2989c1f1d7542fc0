/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor is the interactive core of a composition: it owns the
// element store, the active zone, the current selection and the transient
// status line, and turns pointer gestures into constrained store edits.
//
// A Session is safe for concurrent use. Callbacks (OnChange, OnEvent) are
// invoked without the session lock held.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"zonecanvas/internal/clipboard"
	"zonecanvas/internal/codec"
	"zonecanvas/internal/domain"
	applog "zonecanvas/internal/log"
	"zonecanvas/internal/store"
	"zonecanvas/internal/undo"
	"zonecanvas/internal/zone"
)

// State is the interaction state of a single element.
type State int

const (
	Idle State = iota
	Selected
	Transforming
)

func (s State) String() string {
	switch s {
	case Selected:
		return "selected"
	case Transforming:
		return "transforming"
	}
	return "idle"
}

// Status messages shown after an export.
const (
	StatusCopied    = "Copied to clipboard!"
	StatusCopyError = "Error copying"
)

// Defaults for newly added elements, relative to the active zone origin.
const (
	ImageInset    = 20.0
	ImageSize     = 100.0
	TextInset     = 30.0
	TextWidth     = 150.0
	TextHeight    = 30.0
	TextFontSize  = 20.0
	DefaultStatus = 2 * time.Second
)

// ClipboardError reports a failed clipboard write during Export.
type ClipboardError struct{ Err error }

func (e *ClipboardError) Error() string { return StatusCopyError }
func (e *ClipboardError) Unwrap() error { return e.Err }

// ErrUnknownElement is returned by gesture calls for ids not in the store.
var ErrUnknownElement = errors.New("unknown element")

// TransformResult is what the transform handles report at gesture end.
type TransformResult struct {
	X, Y           float64
	Rotation       float64
	ScaleX, ScaleY float64
}

// Options configures a Session. Zero values get sensible defaults.
type Options struct {
	Zones       *zone.Registry
	ActiveZone  domain.ZoneKey
	Clipboard   clipboard.Clipboard
	Policy      codec.Policy
	StatusClear time.Duration
	History     undo.Config
	Logger      *slog.Logger
	Now         func() time.Time
	// OnChange is called after any visible change (store, selection, status).
	OnChange func()
	// OnEvent receives anonymous usage events ("element_added", "export", "import").
	OnEvent func(name string, props map[string]any)
}

type Session struct {
	mu sync.Mutex

	store    *store.Store
	zones    *zone.Registry
	active   domain.ZoneKey
	selected string
	state    State

	status    string
	statusGen int
	timer     *time.Timer

	ids     store.IDGenerator
	hist    *undo.History
	clip    clipboard.Clipboard
	policy  codec.Policy
	clearIn time.Duration
	now     func() time.Time
	log     *slog.Logger

	onChange func()
	onEvent  func(string, map[string]any)
}

// New creates a session over els (copied).
func New(opts Options, els ...domain.Element) (*Session, error) {
	zones := opts.Zones
	if zones == nil {
		zones = zone.Default()
	}
	active := opts.ActiveZone
	if active == "" {
		active = zones.First()
	}
	if _, err := zones.Lookup(active); err != nil {
		return nil, err
	}
	st := store.New()
	for _, el := range els {
		if err := st.Append(el); err != nil {
			return nil, fmt.Errorf("load elements: %w", err)
		}
	}
	clip := opts.Clipboard
	if clip == nil {
		clip = clipboard.System{}
	}
	clearIn := opts.StatusClear
	if clearIn <= 0 {
		clearIn = DefaultStatus
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lg := opts.Logger
	if lg == nil {
		lg = applog.WithComponent("editor")
	}
	return &Session{
		store:    st,
		zones:    zones,
		active:   active,
		ids:      store.IDGenerator{Now: now},
		hist:     undo.NewHistory(opts.History),
		clip:     clip,
		policy:   opts.Policy,
		clearIn:  clearIn,
		now:      now,
		log:      lg,
		onChange: opts.OnChange,
		onEvent:  opts.OnEvent,
	}, nil
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

func (s *Session) event(name string, props map[string]any) {
	if s.onEvent != nil {
		s.onEvent(name, props)
	}
}

// Elements returns a snapshot of the store in z-order.
func (s *Session) Elements() domain.Elements {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.All()
}

// Element returns the element with id.
func (s *Session) Element(id string) (domain.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// Composition snapshots the session for saving under name.
func (s *Session) Composition(name string) domain.Composition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Composition{Name: name, ActiveZone: s.active, Elements: s.store.All()}
}

// Zones returns the registry the session clamps against.
func (s *Session) Zones() *zone.Registry { return s.zones }

// ActiveZone returns the zone used for placement and drag clamping.
func (s *Session) ActiveZone() domain.ZoneKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActiveZone switches the active zone. Existing elements are not moved.
func (s *Session) SetActiveZone(key domain.ZoneKey) error {
	s.mu.Lock()
	if _, err := s.zones.Lookup(key); err != nil {
		s.mu.Unlock()
		return err
	}
	s.active = key
	s.mu.Unlock()
	s.changed()
	return nil
}

// Status returns the current status line ("" when none).
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// setStatusLocked shows msg and schedules it to clear. A newer message
// cancels the pending clear of an older one.
func (s *Session) setStatusLocked(msg string) {
	s.status = msg
	s.statusGen++
	gen := s.statusGen
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if msg == "" {
		return
	}
	s.timer = time.AfterFunc(s.clearIn, func() {
		s.mu.Lock()
		if s.statusGen != gen {
			s.mu.Unlock()
			return
		}
		s.status = ""
		s.timer = nil
		s.mu.Unlock()
		s.changed()
	})
}

// Close stops the pending status timer.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
