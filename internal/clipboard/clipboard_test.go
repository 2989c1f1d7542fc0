/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package clipboard

import (
	"errors"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	var m Memory
	if err := m.WriteText("[]"); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := m.ReadText()
	if err != nil || got != "[]" {
		t.Fatalf("got %q %v", got, err)
	}
}

func TestMemoryFail(t *testing.T) {
	boom := errors.New("boom")
	m := &Memory{Fail: boom}
	if err := m.WriteText("x"); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if _, err := m.ReadText(); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

var _ Clipboard = System{}
var _ Clipboard = (*Memory)(nil)
