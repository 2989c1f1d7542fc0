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
	"log/slog"

	"zonecanvas/internal/codec"
	"zonecanvas/internal/domain"
	"zonecanvas/internal/undo"
)

// StatusPasteError is shown when the clipboard cannot be read for import.
const StatusPasteError = "Error reading clipboard"

// Export serializes the store, copies it to the clipboard and shows a
// short-lived status. The JSON is returned even when the clipboard write
// fails; that failure is reported as *ClipboardError and changes nothing else.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	els := s.store.All()
	s.mu.Unlock()

	b, err := codec.Export(els)
	if err != nil {
		return nil, err
	}
	werr := s.clip.WriteText(string(b))

	s.mu.Lock()
	if werr != nil {
		s.setStatusLocked(StatusCopyError)
	} else {
		s.setStatusLocked(StatusCopied)
	}
	s.mu.Unlock()

	s.event("export", map[string]any{"count": len(els), "ok": werr == nil})
	s.changed()
	if werr != nil {
		s.log.Warn("clipboard write failed", slog.Any("err", werr))
		return b, &ClipboardError{Err: werr}
	}
	s.log.Info("composition exported", slog.Int("count", len(els)), slog.Int("bytes", len(b)))
	return b, nil
}

// Import replaces the whole store with the array in text. On failure the
// store is untouched and the error message becomes the status line.
func (s *Session) Import(text []byte) error {
	els, err := codec.Import(text, s.policy)
	if err != nil {
		s.mu.Lock()
		s.setStatusLocked(err.Error())
		s.mu.Unlock()
		s.log.Warn("import rejected", slog.Any("err", err))
		s.event("import", map[string]any{"ok": false})
		s.changed()
		return err
	}
	s.mu.Lock()
	s.pushLocked("import")
	s.store.ReplaceAll(els)
	s.selected, s.state = "", Idle
	s.setStatusLocked("")
	s.mu.Unlock()
	s.log.Info("composition imported", slog.Int("count", len(els)))
	s.event("import", map[string]any{"ok": true, "count": len(els)})
	s.changed()
	return nil
}

// ImportClipboard imports whatever text the clipboard holds.
func (s *Session) ImportClipboard() error {
	text, err := s.clip.ReadText()
	if err != nil {
		s.mu.Lock()
		s.setStatusLocked(StatusPasteError)
		s.mu.Unlock()
		s.changed()
		return &ClipboardError{Err: err}
	}
	return s.Import([]byte(text))
}

// Reset loads els as a fresh composition: selection and undo history are
// dropped. Used when a project is opened or reloaded from disk.
func (s *Session) Reset(els []domain.Element) {
	s.mu.Lock()
	s.store.ReplaceAll(els)
	s.selected, s.state = "", Idle
	s.hist.Clear()
	s.mu.Unlock()
	s.changed()
}

// Undo restores the state before the last edit.
func (s *Session) Undo() bool {
	return s.step(s.hist.Undo)
}

// Redo re-applies the last undone edit.
func (s *Session) Redo() bool {
	return s.step(s.hist.Redo)
}

func (s *Session) step(move func([]byte) (undo.Snapshot, bool)) bool {
	s.mu.Lock()
	cur, err := s.snapshotLocked()
	if err != nil {
		s.mu.Unlock()
		s.log.Warn("undo snapshot failed", slog.Any("err", err))
		return false
	}
	snap, ok := move(cur)
	if !ok {
		s.mu.Unlock()
		return false
	}
	els, err := codec.Import(snap.Blob, codec.Lenient)
	if err != nil {
		s.mu.Unlock()
		s.log.Error("undo state unreadable", slog.String("label", snap.Label), slog.Any("err", err))
		return false
	}
	s.store.ReplaceAll(els)
	if s.store.IndexOf(s.selected) < 0 {
		s.selected, s.state = "", Idle
	} else {
		s.state = Selected
	}
	s.mu.Unlock()
	s.changed()
	return true
}

func (s *Session) snapshotLocked() ([]byte, error) {
	return codec.Export(s.store.All())
}

func (s *Session) pushBlobLocked(label string, blob []byte) {
	s.hist.Push(undo.Snapshot{Label: label, Blob: blob, TS: s.now()})
}
