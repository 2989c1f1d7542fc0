/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	h.Push(Snapshot{Label: "add", Blob: []byte("a"), TS: t0})
	h.Push(Snapshot{Label: "add", Blob: []byte("b"), TS: t0.Add(20 * time.Millisecond)})
	if _, undo, _ := h.Stats(); undo != 2 {
		t.Fatalf("expected 2 undo steps, got %d", undo)
	}
	s, ok := h.Undo([]byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = h.Redo([]byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if _, ok := h.Redo([]byte("c")); ok {
		t.Fatalf("redo stack should be empty")
	}
}

func TestPushClearsRedo(t *testing.T) {
	h := NewHistory(Config{MinInterval: -1})
	h.Push(Snapshot{Blob: []byte("a"), TS: time.Now()})
	h.Undo([]byte("b"))
	h.Push(Snapshot{Blob: []byte("x"), TS: time.Now()})
	if _, _, redo := h.Stats(); redo != 0 {
		t.Fatalf("redo not cleared: %d", redo)
	}
}

func TestCoalesceKeepsEarliestState(t *testing.T) {
	h := NewHistory(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	h.Push(Snapshot{Label: "drag:1", Blob: []byte("1"), TS: t0})
	h.Push(Snapshot{Label: "drag:1", Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)})
	h.Push(Snapshot{Label: "drag:2", Blob: []byte("3"), TS: t0.Add(20 * time.Millisecond)})
	if _, undo, _ := h.Stats(); undo != 2 {
		t.Fatalf("expected 2 steps after coalescing, got %d", undo)
	}
	h.Undo(nil)
	s, ok := h.Undo(nil)
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected earliest state '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestCaps(t *testing.T) {
	h := NewHistory(Config{MaxBytes: 20, MaxDepth: 2, MinInterval: -1})
	for i := 0; i < 10; i++ {
		h.Push(Snapshot{Blob: []byte("xxxxx"), TS: time.Now()})
	}
	if _, undo, _ := h.Stats(); undo != 2 {
		t.Fatalf("expected MaxDepth cap to limit to 2, got %d", undo)
	}
	h2 := NewHistory(Config{MaxBytes: 12, MinInterval: -1})
	for i := 0; i < 5; i++ {
		h2.Push(Snapshot{Blob: []byte("xxxxx"), TS: time.Now()})
	}
	if total, undo, _ := h2.Stats(); undo != 2 || total != 10 {
		t.Fatalf("byte cap: total=%d undo=%d", total, undo)
	}
}

func TestClear(t *testing.T) {
	h := NewHistory(Config{})
	h.Push(Snapshot{Blob: []byte("abc"), TS: time.Now()})
	h.Clear()
	if total, undo, redo := h.Stats(); total != 0 || undo != 0 || redo != 0 {
		t.Fatalf("not cleared: %d %d %d", total, undo, redo)
	}
}
