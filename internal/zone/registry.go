/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package zone holds the fixed set of rectangles that constrain element
// placement on the canvas.
package zone

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"zonecanvas/internal/domain"
)

// ErrUnknownZone is returned by Lookup for keys outside the registry.
var ErrUnknownZone = errors.New("unknown zone")

// Registry is an immutable key to rectangle mapping.
type Registry struct {
	zones map[domain.ZoneKey]domain.Zone
	keys  []domain.ZoneKey
}

// Default returns the three stock zones laid out along the top of an 800x400 canvas.
func Default() *Registry {
	r, _ := New(map[domain.ZoneKey]domain.Zone{
		"A": {X: 50, Y: 50, Width: 200, Height: 150},
		"B": {X: 300, Y: 50, Width: 200, Height: 150},
		"C": {X: 550, Y: 50, Width: 200, Height: 150},
	})
	return r
}

// New validates zones and builds a registry. At least one zone is required.
func New(zones map[domain.ZoneKey]domain.Zone) (*Registry, error) {
	if len(zones) == 0 {
		return nil, errors.New("zone registry: no zones defined")
	}
	r := &Registry{zones: make(map[domain.ZoneKey]domain.Zone, len(zones))}
	for k, z := range zones {
		if strings.TrimSpace(string(k)) == "" {
			return nil, errors.New("zone registry: empty zone key")
		}
		if z.X < 0 || z.Y < 0 || z.Width < 0 || z.Height < 0 {
			return nil, fmt.Errorf("zone registry: zone %s has negative bounds", k)
		}
		r.zones[k] = z
		r.keys = append(r.keys, k)
	}
	sort.Slice(r.keys, func(i, j int) bool { return r.keys[i] < r.keys[j] })
	return r, nil
}

// FromConfig builds a registry from config-file keys.
func FromConfig(m map[string]domain.Zone) (*Registry, error) {
	zs := make(map[domain.ZoneKey]domain.Zone, len(m))
	for k, z := range m {
		zs[domain.ZoneKey(k)] = z
	}
	return New(zs)
}

// Lookup returns the rectangle for key.
func (r *Registry) Lookup(key domain.ZoneKey) (domain.Zone, error) {
	z, ok := r.zones[key]
	if !ok {
		return domain.Zone{}, fmt.Errorf("%w: %q", ErrUnknownZone, key)
	}
	return z, nil
}

// Keys returns the zone keys in sorted order.
func (r *Registry) Keys() []domain.ZoneKey {
	return append([]domain.ZoneKey(nil), r.keys...)
}

// First is the lowest key; used as the initial active zone.
func (r *Registry) First() domain.ZoneKey { return r.keys[0] }
