/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store holds the ordered element list of a composition. Slice order
// is z-order: index 0 is drawn first, the last element is on top.
//
// A Store is not safe for concurrent use; callers serialize access.
package store

import (
	"errors"
	"fmt"

	"zonecanvas/internal/domain"
)

var (
	ErrEmptyID     = errors.New("element id is empty")
	ErrDuplicateID = errors.New("element id already exists")
)

// Direction selects the neighbour SwapAdjacent exchanges with.
type Direction int

const (
	// Up swaps with the previous index (one step towards the back).
	Up Direction = iota
	// Down swaps with the next index (one step towards the front).
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

// ParseDirection accepts "up" or "down".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Up, fmt.Errorf("invalid direction %q (want up|down)", s)
}

type Store struct {
	els []domain.Element
}

// New returns a store seeded with els (copied).
func New(els ...domain.Element) *Store {
	return &Store{els: append([]domain.Element(nil), els...)}
}

// Append adds el on top of the stack.
func (s *Store) Append(el domain.Element) error {
	id := el.ElementID()
	if id == "" {
		return ErrEmptyID
	}
	if s.IndexOf(id) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	s.els = append(s.els, el)
	return nil
}

// Replace swaps in el for the element with the given id, keeping its index.
// It returns false without changing anything when id is unknown, when el
// carries a different id, or when the variant differs.
func (s *Store) Replace(id string, el domain.Element) bool {
	i := s.IndexOf(id)
	if i < 0 || el.ElementID() != id || !domain.SameVariant(s.els[i], el) {
		return false
	}
	s.els[i] = el
	return true
}

// SwapAdjacent exchanges the element at index with its neighbour in dir.
// Out-of-range requests are ignored.
func (s *Store) SwapAdjacent(index int, dir Direction) bool {
	j := index - 1
	if dir == Down {
		j = index + 1
	}
	if index < 0 || index >= len(s.els) || j < 0 || j >= len(s.els) {
		return false
	}
	s.els[index], s.els[j] = s.els[j], s.els[index]
	return true
}

// All returns a copy of the elements in z-order.
func (s *Store) All() domain.Elements {
	return append(domain.Elements(nil), s.els...)
}

func (s *Store) Len() int { return len(s.els) }

// IndexOf returns the index of the first element with id, or -1.
func (s *Store) IndexOf(id string) int {
	for i, el := range s.els {
		if el.ElementID() == id {
			return i
		}
	}
	return -1
}

// Get returns the element with id.
func (s *Store) Get(id string) (domain.Element, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.els[i], true
	}
	return nil, false
}

// ReplaceAll swaps the whole list, as done by import and undo. The caller is
// responsible for validating the list first.
func (s *Store) ReplaceAll(els []domain.Element) {
	s.els = append([]domain.Element(nil), els...)
}
