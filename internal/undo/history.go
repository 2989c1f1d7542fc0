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
	"sync"
	"time"
)

// Snapshot is a captured composition state. Blob is opaque to the history;
// its size is estimated as len(Blob). Label groups related edits (for
// example consecutive drags of the same element) for coalescing.
type Snapshot struct {
	Label string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undo steps kept (0 means unlimited).
	MaxDepth int
	// MinInterval merges pushes with the same label captured within the
	// interval into one step. Negative disables coalescing.
	MinInterval time.Duration
}

// History is a linear undo/redo stack of "before" states.
// It is safe for concurrent use.
type History struct {
	cfg  Config
	mu   sync.Mutex
	undo []Snapshot
	redo []Snapshot
	// accounting
	totalBytes int
}

func NewHistory(cfg Config) *History {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &History{cfg: cfg}
}

// Push records the state before an edit and clears the redo stack. A push
// with the same label as the previous one within MinInterval only refreshes
// its timestamp, so the earlier state stays the restore point.
func (h *History) Push(s Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redo = nil
	if n := len(h.undo); n > 0 && h.cfg.MinInterval > 0 && s.Label != "" {
		last := &h.undo[n-1]
		if last.Label == s.Label && s.TS.Sub(last.TS) < h.cfg.MinInterval {
			last.TS = s.TS
			return
		}
	}
	h.undo = append(h.undo, s)
	h.totalBytes += len(s.Blob)
	h.enforceCapsLocked()
}

// Undo returns the state to restore and stores current for Redo.
func (h *History) Undo(current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.undo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := h.undo[n-1]
	h.undo = h.undo[:n-1]
	h.totalBytes -= len(s.Blob)
	h.redo = append(h.redo, Snapshot{Label: s.Label, Blob: current, TS: time.Now()})
	return s, true
}

// Redo returns the state undone last and stores current for Undo.
func (h *History) Redo(current []byte) (Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.redo)
	if n == 0 {
		return Snapshot{}, false
	}
	s := h.redo[n-1]
	h.redo = h.redo[:n-1]
	h.undo = append(h.undo, Snapshot{Label: s.Label, Blob: current, TS: time.Now()})
	h.totalBytes += len(current)
	h.enforceCapsLocked()
	return s, true
}

// Clear drops both stacks, as after loading a different composition.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
	h.totalBytes = 0
}

// Stats returns current sizes for diagnostics.
func (h *History) Stats() (totalBytes, undoDepth, redoDepth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes, len(h.undo), len(h.redo)
}

func (h *History) enforceCapsLocked() {
	if h.cfg.MaxDepth > 0 && len(h.undo) > h.cfg.MaxDepth {
		toDrop := len(h.undo) - h.cfg.MaxDepth
		for i := 0; i < toDrop; i++ {
			h.totalBytes -= len(h.undo[i].Blob)
		}
		h.undo = append([]Snapshot{}, h.undo[toDrop:]...)
	}
	// keep at least the most recent step even when it alone exceeds the cap
	for len(h.undo) > 1 && h.totalBytes > h.cfg.MaxBytes {
		h.totalBytes -= len(h.undo[0].Blob)
		h.undo = h.undo[1:]
	}
}
