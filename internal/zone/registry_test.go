/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package zone

import (
	"errors"
	"testing"

	"zonecanvas/internal/domain"
)

func TestDefaultZones(t *testing.T) {
	r := Default()
	keys := r.Keys()
	if len(keys) != 3 || keys[0] != "A" || keys[2] != "C" {
		t.Fatalf("unexpected keys %v", keys)
	}
	b, err := r.Lookup("B")
	if err != nil {
		t.Fatalf("lookup B: %v", err)
	}
	if b != (domain.Zone{X: 300, Y: 50, Width: 200, Height: 150}) {
		t.Fatalf("unexpected zone B %+v", b)
	}
	if r.First() != "A" {
		t.Fatalf("first: %s", r.First())
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Default().Lookup("Z")
	if !errors.Is(err, ErrUnknownZone) {
		t.Fatalf("expected ErrUnknownZone, got %v", err)
	}
}

func TestFromConfigValidation(t *testing.T) {
	if _, err := FromConfig(map[string]domain.Zone{"": {}}); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := FromConfig(map[string]domain.Zone{"A": {X: -1}}); err == nil {
		t.Fatalf("expected error for negative bounds")
	}
	if _, err := FromConfig(nil); err == nil {
		t.Fatalf("expected error for empty registry")
	}
	r, err := FromConfig(map[string]domain.Zone{"D": {X: 1, Y: 2, Width: 3, Height: 4}, "A": {}})
	if err != nil {
		t.Fatalf("from config: %v", err)
	}
	if k := r.Keys(); len(k) != 2 || k[0] != "A" || k[1] != "D" {
		t.Fatalf("keys not sorted: %v", k)
	}
}

func TestKeysIsCopy(t *testing.T) {
	r := Default()
	k := r.Keys()
	k[0] = "X"
	if r.Keys()[0] != "A" {
		t.Fatalf("Keys leaked internal slice")
	}
}
